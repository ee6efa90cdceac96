package classad

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled boolean constraint over a record.
type Filter struct {
	source  string
	program *vm.Program
}

// NewFilter compiles a boolean expression. Attributes missing from a record
// evaluate as nil.
func NewFilter(expression string) (*Filter, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expression, err)
	}
	return &Filter{source: expression, program: program}, nil
}

// SinceFilter selects records whose status changed at or after since.
func SinceFilter(since int64) (*Filter, error) {
	return NewFilter(fmt.Sprintf("EnteredCurrentStatus != nil && EnteredCurrentStatus >= %d", since))
}

func (f *Filter) String() string { return f.source }

// Match reports whether rec satisfies the filter. Evaluation errors count
// as a mismatch.
func (f *Filter) Match(rec Record) bool {
	out, err := expr.Run(f.program, Env(rec))
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
