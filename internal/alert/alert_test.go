package alert

import (
	"context"
	"errors"
	"net/smtp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-history-harvester/internal/model"
	"go-history-harvester/pkg/logger"
)

type recorder struct {
	mu   sync.Mutex
	subs []string
	err  error
}

func (r *recorder) Notify(_ context.Context, subject, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, subject)
	return r.err
}

func TestRunNotifierDedupes(t *testing.T) {
	rec := &recorder{err: errors.New("mail down")}
	n := NewRunNotifier(rec, logger.NewDiscardLogger())
	ctx := context.Background()

	assert.True(t, n.Send(ctx, SubjectConversionError, "schedd1", "bad ad"))
	assert.False(t, n.Send(ctx, SubjectConversionError, "schedd1", "another bad ad"))
	assert.True(t, n.Send(ctx, SubjectConversionError, "schedd2", "bad ad"))
	assert.True(t, n.Send(ctx, SubjectTimeout, "schedd1", "late"))

	assert.Equal(t, 3, n.Count())
	assert.Equal(t, []string{SubjectConversionError, SubjectConversionError, SubjectTimeout}, rec.subs)
}

func TestMultiJoinsErrors(t *testing.T) {
	a, b := &recorder{}, &recorder{err: errors.New("boom")}
	err := Multi{a, nil, b, LogNotifier{Log: logger.NewDiscardLogger()}}.Notify(context.Background(), "s", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, a.subs, 1)
	assert.Len(t, b.subs, 1)
}

func TestEmailNotifier(t *testing.T) {
	_, err := NewEmailNotifier(SMTPConfig{Addr: "localhost:25"})
	assert.Error(t, err)

	n, err := NewEmailNotifier(SMTPConfig{Addr: "mail.example.org:587", To: []string{"ops@example.org"}, Username: "u", Password: "p"})
	require.NoError(t, err)

	var gotAddr string
	var gotMsg []byte
	var gotAuth smtp.Auth
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotMsg = addr, a, msg
		return nil
	}
	require.NoError(t, n.Notify(context.Background(), SubjectTimeout, "line1\nline2"))
	assert.Equal(t, "mail.example.org:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Contains(t, string(gotMsg), "Subject: "+SubjectTimeout+"\r\n")
	assert.Contains(t, string(gotMsg), "line1\r\nline2")

	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.Error(t, n.Notify(context.Background(), "s", "m"))
}

type savedAlerts []model.Alert

func (s *savedAlerts) SaveAlert(_ context.Context, a model.Alert) error {
	*s = append(*s, a)
	return nil
}

func TestStoreNotifier(t *testing.T) {
	var saved savedAlerts
	require.NoError(t, StoreNotifier{Store: &saved, RunID: "run-1"}.Notify(context.Background(), "s", "m"))
	require.Len(t, saved, 1)
	assert.Equal(t, "run-1", saved[0].RunID)
	assert.Equal(t, "m", saved[0].Message)
	assert.False(t, saved[0].CreatedAt.IsZero())
}
