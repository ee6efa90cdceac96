// Package classad models job ads: attribute maps whose values are either
// literals or expressions evaluated on demand.
package classad

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
)

// State is the outcome class of evaluating an attribute.
type State int

const (
	Defined State = iota
	Undefined
	Error
)

func (s State) String() string {
	switch s {
	case Defined:
		return "defined"
	case Undefined:
		return "undefined"
	default:
		return "error"
	}
}

// Result of Eval. Value is only meaningful when State is Defined.
type Result struct {
	State State
	Value any
	Err   error
}

// Record is the read capability the normalizer and harvester need from a
// source record. Name lookups are case-insensitive.
type Record interface {
	Keys() []string
	// Get returns the raw value, or the source text for expressions.
	Get(name string) (any, bool)
	Eval(name string) Result
}

// ExprRecord is implemented by records that can tell expression attributes
// from literal values.
type ExprRecord interface {
	IsExpr(name string) bool
}

// IsExpr reports whether rec stores name as an expression.
func IsExpr(rec Record, name string) bool {
	er, ok := rec.(ExprRecord)
	return ok && er.IsExpr(name)
}

// Expr is an unevaluated attribute expression.
type Expr struct {
	Source string
}

func (e Expr) String() string { return e.Source }

// ErrCycle is reported when expressions reference each other.
var ErrCycle = errors.New("expression cycle")

// Ad is a map-backed Record.
type Ad struct {
	attrs map[string]any
	index map[string]string
}

// New builds an ad from attribute values. Values of type Expr are
// evaluated lazily.
func New(attrs map[string]any) *Ad {
	ad := &Ad{
		attrs: make(map[string]any, len(attrs)),
		index: make(map[string]string, len(attrs)),
	}
	for k, v := range attrs {
		ad.Set(k, v)
	}
	return ad
}

// Set stores value under name, replacing any attribute whose name differs
// only in case.
func (a *Ad) Set(name string, value any) {
	folded := strings.ToLower(name)
	if prev, ok := a.index[folded]; ok && prev != name {
		delete(a.attrs, prev)
	}
	a.index[folded] = name
	a.attrs[name] = value
}

func (a *Ad) Keys() []string {
	keys := make([]string, 0, len(a.attrs))
	for k := range a.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *Ad) lookup(name string) (string, any, bool) {
	key, ok := a.index[strings.ToLower(name)]
	if !ok {
		return "", nil, false
	}
	return key, a.attrs[key], true
}

func (a *Ad) Get(name string) (any, bool) {
	_, v, ok := a.lookup(name)
	if !ok {
		return nil, false
	}
	if e, isExpr := v.(Expr); isExpr {
		return e.Source, true
	}
	return v, true
}

// IsExpr reports whether name holds an unevaluated expression.
func (a *Ad) IsExpr(name string) bool {
	_, v, ok := a.lookup(name)
	if !ok {
		return false
	}
	_, isExpr := v.(Expr)
	return isExpr
}

func (a *Ad) Eval(name string) Result {
	return a.eval(name, make(map[string]bool))
}

func (a *Ad) eval(name string, visiting map[string]bool) Result {
	key, v, ok := a.lookup(name)
	if !ok {
		return Result{State: Undefined}
	}
	e, isExpr := v.(Expr)
	if !isExpr {
		if v == nil {
			return Result{State: Undefined}
		}
		return Result{State: Defined, Value: v}
	}
	if visiting[key] {
		return Result{State: Error, Err: fmt.Errorf("%w at %s", ErrCycle, key)}
	}
	visiting[key] = true
	defer delete(visiting, key)

	env := make(map[string]any, len(a.attrs))
	for k, other := range a.attrs {
		if k == key {
			continue
		}
		if _, dep := other.(Expr); !dep {
			env[k] = other
			continue
		}
		if !strings.Contains(e.Source, k) {
			continue
		}
		if r := a.eval(k, visiting); r.State == Defined {
			env[k] = r.Value
		} else if r.State == Error && errors.Is(r.Err, ErrCycle) {
			return r
		}
	}

	program, err := expr.Compile(e.Source, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return Result{State: Error, Err: fmt.Errorf("compile %s: %w", key, err)}
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return Result{State: Error, Err: fmt.Errorf("evaluate %s: %w", key, err)}
	}
	if out == nil {
		return Result{State: Undefined}
	}
	return Result{State: Defined, Value: out}
}

// Int64 evaluates name and converts whole numbers to int64.
func Int64(rec Record, name string) (int64, bool) {
	r := rec.Eval(name)
	if r.State != Defined {
		return 0, false
	}
	switch v := r.Value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// String evaluates name and returns it when it is a string.
func String(rec Record, name string) (string, bool) {
	r := rec.Eval(name)
	if r.State != Defined {
		return "", false
	}
	s, ok := r.Value.(string)
	return s, ok
}

// Env evaluates every defined attribute of rec into a plain map.
func Env(rec Record) map[string]any {
	env := make(map[string]any)
	for _, k := range rec.Keys() {
		if r := rec.Eval(k); r.State == Defined {
			env[k] = r.Value
		}
	}
	return env
}

// UnmarshalJSON decodes a JSON object into the ad. Objects of the form
// {"$expr": "..."} become expressions; numbers keep integer precision.
func (a *Ad) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*a = *New(nil)
	for k, v := range raw {
		a.Set(k, decodeValue(v))
	}
	return nil
}

// MarshalJSON encodes the ad back into the same form UnmarshalJSON reads.
func (a *Ad) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.attrs))
	for k, v := range a.attrs {
		if e, ok := v.(Expr); ok {
			out[k] = map[string]string{"$expr": e.Source}
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// Parse decodes one JSON object into an ad.
func Parse(data []byte) (*Ad, error) {
	ad := New(nil)
	if err := ad.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("failed to parse ad: %w", err)
	}
	return ad, nil
}

func decodeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		if src, ok := val["$expr"].(string); ok && len(val) == 1 {
			return Expr{Source: src}
		}
		b, _ := json.Marshal(val)
		return string(b)
	case []any:
		b, _ := json.Marshal(val)
		return string(b)
	default:
		return v
	}
}
