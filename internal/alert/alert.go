// Package alert delivers operator notifications raised during a harvest run.
package alert

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"go-history-harvester/internal/model"
	"go-history-harvester/pkg/logger"
)

// Alert subjects
const (
	SubjectTimeout         = "history harvest timeout warning"
	SubjectQueryError      = "history harvest query error"
	SubjectConversionError = "history harvest document conversion error"
	SubjectTransportError  = "history harvest transport error warning"
	SubjectCheckpointError = "history harvest checkpoint error"
)

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) Notify(_ context.Context, subject, message string) error {
	log := n.Log
	if log == nil {
		log = logger.GetDefault()
	}
	log.Warn("🚨 %s: %s", subject, message)
	return nil
}

// SMTPConfig configures EmailNotifier.
type SMTPConfig struct {
	Addr     string   `yaml:"addr"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

// EmailNotifier sends alerts as plain text mail.
type EmailNotifier struct {
	config   SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	if config.Addr == "" {
		return nil, errors.New("smtp address is required")
	}
	if len(config.To) == 0 {
		return nil, errors.New("at least one recipient is required")
	}
	if config.From == "" {
		config.From = "history-harvester@localhost"
	}
	return &EmailNotifier{config: config, sendMail: smtp.SendMail}, nil
}

func (n *EmailNotifier) Notify(_ context.Context, subject, message string) error {
	var auth smtp.Auth
	if n.config.Username != "" {
		host := n.config.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, host)
	}
	if err := n.sendMail(n.config.Addr, auth, n.config.From, n.config.To, n.message(subject, message)); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}

func (n *EmailNotifier) message(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.config.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// AlertSaver persists alerts.
type AlertSaver interface {
	SaveAlert(ctx context.Context, a model.Alert) error
}

// StoreNotifier records alerts for the status API.
type StoreNotifier struct {
	Store AlertSaver
	RunID string
}

func (n StoreNotifier) Notify(ctx context.Context, subject, message string) error {
	return n.Store.SaveAlert(ctx, model.Alert{
		RunID:     n.RunID,
		Subject:   subject,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, subject, message string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, subject, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunNotifier is the alert channel of one run. Each (subject, source) pair
// is sent at most once and delivery failures are only logged.
type RunNotifier struct {
	next Notifier
	log  logger.Logger

	mu   sync.Mutex
	sent map[string]bool
}

func NewRunNotifier(next Notifier, log logger.Logger) *RunNotifier {
	if log == nil {
		log = logger.GetDefault()
	}
	return &RunNotifier{next: next, log: log, sent: make(map[string]bool)}
}

// Send reports whether the alert was handed to the underlying notifier.
func (r *RunNotifier) Send(ctx context.Context, subject, source, message string) bool {
	key := subject + "\x00" + source
	r.mu.Lock()
	if r.sent[key] {
		r.mu.Unlock()
		return false
	}
	r.sent[key] = true
	r.mu.Unlock()

	if r.next == nil {
		return true
	}
	if err := r.next.Notify(ctx, subject, message); err != nil {
		r.log.Error("❌ Failed to deliver alert %q for %s: %v", subject, source, err)
	}
	return true
}

// Count returns the number of distinct alerts sent.
func (r *RunNotifier) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
