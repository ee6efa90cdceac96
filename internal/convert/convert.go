// Package convert normalizes job ads into flat documents ready for indexing.
package convert

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"

	"go-history-harvester/internal/classad"
	"go-history-harvester/internal/model"
	"go-history-harvester/internal/schema"
	"go-history-harvester/pkg/logger"
)

const (
	maxStringLen = 256
	keepLen      = 253
	ellipsis     = "..."

	unknownHost   = "UNKNOWN@UNKNOWN"
	unknownSchedd = "UNKNOWN"
)

// ErrSkipRecord marks ads that are intentionally not indexed.
var ErrSkipRecord = errors.New("record skipped")

// ConversionError reports a single ad that could not be turned into a document.
type ConversionError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := "conversion failed"
	if e.Field != "" {
		msg += " on " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Converter turns records into documents. It is safe for concurrent use.
type Converter struct {
	table      *schema.Table
	launchTime int64
	log        logger.Logger
}

// Option configures a Converter
type Option func(*Converter)

// WithLogger routes coercion warnings to log
func WithLogger(log logger.Logger) Option {
	return func(c *Converter) { c.log = log }
}

// New creates a converter. launchTime is the run start in epoch seconds and
// is used as RecordTime for ads that are not finished.
func New(table *schema.Table, launchTime int64, opts ...Option) *Converter {
	if table == nil {
		table = schema.Default()
	}
	c := &Converter{
		table:      table,
		launchTime: launchTime,
		log:        logger.GetDefault(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize converts every attribute of rec. It never fails; fields that
// cannot be coerced are kept under a suffixed key instead.
func (c *Converter) Normalize(rec classad.Record) model.Document {
	doc, err := c.normalize(rec)
	if err != nil {
		c.log.Warn("Partial normalization: %v", err)
	}
	return doc
}

// Convert normalizes rec and computes its document id.
func (c *Converter) Convert(rec classad.Record) (id string, doc model.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, doc, err = "", nil, &ConversionError{Reason: fmt.Sprintf("record panicked: %v", r)}
		}
	}()

	if taskType, ok := classad.String(rec, "TaskType"); ok && taskType == "ROOT" {
		return "", nil, ErrSkipRecord
	}
	doc, err = c.normalize(rec)
	if err != nil {
		return "", nil, err
	}
	id, err = DocumentID(doc)
	if err != nil {
		return "", nil, err
	}
	return id, doc, nil
}

func (c *Converter) normalize(rec classad.Record) (doc model.Document, err error) {
	doc = make(model.Document)
	defer func() {
		if r := recover(); r != nil {
			err = &ConversionError{Reason: fmt.Sprintf("record panicked: %v", r)}
		}
	}()

	c.derive(rec, doc)

	for _, key := range rec.Keys() {
		name, kind := c.table.Lookup(key)
		if kind == schema.Ignore {
			continue
		}

		result := rec.Eval(key)
		switch result.State {
		case classad.Undefined:
			if !classad.IsExpr(rec, key) {
				continue
			}
			raw, _ := rec.Get(key)
			doc[name+"_EXPR"] = truncate(stringify(raw))
			continue
		case classad.Error:
			raw, _ := rec.Get(key)
			doc[name+"_EXPR"] = truncate(stringify(raw))
			continue
		}

		field, value, keep := c.coerce(name, kind, result.Value)
		if !keep {
			continue
		}
		if s, ok := value.(string); ok {
			value = truncate(s)
		}
		doc[field] = value
	}
	return doc, nil
}

// coerce converts value to the storage type of kind. On failure the field is
// renamed to <name>_STRING and stored as text. keep is false for unset dates.
func (c *Converter) coerce(name string, kind schema.Kind, value interface{}) (string, interface{}, bool) {
	switch kind {
	case schema.Float:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			c.log.Warn("Failed to convert key %s with value %#v to float", name, value)
			return name + "_STRING", stringify(value), true
		}
		return name, f, true
	case schema.Int:
		i, err := toInt64(value)
		if err != nil {
			c.log.Warn("Failed to convert key %s with value %#v to int", name, value)
			return name + "_STRING", stringify(value), true
		}
		return name, i, true
	case schema.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			c.log.Warn("Failed to convert key %s with value %#v to bool", name, value)
			return name + "_STRING", stringify(value), true
		}
		return name, b, true
	case schema.Date:
		i, err := toInt64(value)
		if err != nil {
			c.log.Warn("Failed to convert key %s with value %#v to int for a date field", name, value)
			return name + "_STRING", stringify(value), true
		}
		if i == 0 {
			return name, nil, false
		}
		return name, i, true
	default:
		return name, stringify(value), true
	}
}

func (c *Converter) derive(rec classad.Record, doc model.Document) {
	doc["RecordTime"] = c.RecordTime(rec)

	globalID, ok := classad.String(rec, "GlobalJobId")
	if !ok {
		globalID = unknownSchedd
	}
	doc["ScheddName"] = strings.SplitN(globalID, "#", 2)[0]

	host, ok := classad.String(rec, "RemoteHost")
	if !ok {
		host, ok = classad.String(rec, "LastRemoteHost")
	}
	if !ok {
		host = unknownHost
	}
	parts := strings.Split(host, "@")
	doc["StartdSlot"] = parts[0]
	doc["StartdName"] = parts[len(parts)-1]

	doc["Status"] = label(rec, "JobStatus", schema.StatusLabels)
	doc["Universe"] = label(rec, "JobUniverse", schema.UniverseLabels)
}

// RecordTime is the completion time for finished jobs, falling back to the
// time they entered their status and then to the launch time.
func (c *Converter) RecordTime(rec classad.Record) int64 {
	status, ok := classad.Int64(rec, "JobStatus")
	if ok && isTerminal(status) {
		if t, ok := classad.Int64(rec, "CompletionDate"); ok && t > 0 {
			return t
		}
		if t, ok := classad.Int64(rec, "EnteredCurrentStatus"); ok && t > 0 {
			return t
		}
	}
	return c.launchTime
}

// DocumentID returns "<GlobalJobId>#<RecordTime>" for a normalized document.
func DocumentID(doc model.Document) (string, error) {
	globalID, ok := doc["GlobalJobId"].(string)
	if !ok || globalID == "" {
		return "", &ConversionError{Field: "GlobalJobId", Reason: "missing job identity"}
	}
	recordTime, ok := doc["RecordTime"]
	if !ok {
		return "", &ConversionError{Field: "RecordTime", Reason: "missing record time"}
	}
	return fmt.Sprintf("%s#%v", globalID, recordTime), nil
}

// Removed, Completed and Error are terminal.
func isTerminal(status int64) bool {
	return status == 3 || status == 4 || status == 6
}

func label(rec classad.Record, name string, labels map[int64]string) string {
	code, ok := classad.Int64(rec, name)
	if !ok {
		return "Unknown"
	}
	if l, ok := labels[code]; ok {
		return l
	}
	return "Unknown"
}

var decimalFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// toInt64 reads strings as base-10 numbers only: "010" is 10 and "0x10" is
// rejected. Whole-number decimals like "42.0" are accepted.
func toInt64(value interface{}) (int64, error) {
	s, ok := value.(string)
	if !ok {
		return cast.ToInt64E(value)
	}
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if !decimalFloat.MatchString(s) {
		return 0, fmt.Errorf("%q is not a base-10 integer", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int64(f), nil
}

func stringify(value interface{}) string {
	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return s
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxStringLen {
		return s
	}
	return string([]rune(s)[:keepLen]) + ellipsis
}
