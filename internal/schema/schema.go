// Package schema holds the static attribute classification table used to
// normalize job ads into documents.
package schema

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
)

// Kind is the storage type an attribute is coerced to.
type Kind int

const (
	// Unknown attributes are stored as strings under a lower-cased key.
	Unknown Kind = iota
	Text
	Keyword
	NoIndexKeyword
	Float
	Int
	Bool
	Date
	Ignore
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Keyword:
		return "keyword"
	case NoIndexKeyword:
		return "noindex_keyword"
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Date:
		return "date"
	case Ignore:
		return "ignore"
	default:
		return "unknown"
	}
}

// Rule classifies names matching Pattern as Kind.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Kind    Kind
}

// Sets lists the exact attribute names per kind.
type Sets struct {
	Text           []string
	Keyword        []string
	NoIndexKeyword []string
	Float          []string
	Int            []string
	Bool           []string
	Date           []string
	Ignore         []string
}

// Table resolves attribute names to their canonical spelling and kind.
// It is immutable after construction and safe for concurrent use.
type Table struct {
	sets    Sets
	exact   map[string]Kind
	folded  map[string]string
	rules   []Rule
	renames []*regexp.Regexp
}

// DefaultRules are evaluated in order after the exact sets; first match wins.
var DefaultRules = []Rule{
	{Name: "provisioned_attrs", Pattern: regexp.MustCompile(`^.*Provisioned$`), Kind: Int},
	{Name: "resource_request_attrs", Pattern: regexp.MustCompile(`^Request[A-Z].*$`), Kind: Int},
	{Name: "target_boolean_attrs", Pattern: regexp.MustCompile(`^(Want|Has|Is)[A-Z_].*$`), Kind: Bool},
	{Name: "date_attrs", Pattern: regexp.MustCompile(`^.*Date$`), Kind: Date},
}

// renamePatterns make unknown names readable; every captured group is capitalized.
var renamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*)(Date)$`),
	regexp.MustCompile(`^(.*)(Provisioned)$`),
	regexp.MustCompile(`^(Request)([A-Za-df-z].*)$`), // not "Requested"
	regexp.MustCompile(`(?i)^(Want|Has|Is)([A-Z_].*)$`),
}

// New builds a table from the given sets and ordered pattern rules.
func New(sets Sets, rules []Rule) *Table {
	t := &Table{
		sets:    sets,
		exact:   make(map[string]Kind),
		folded:  make(map[string]string),
		rules:   rules,
		renames: renamePatterns,
	}

	// Lower priority first so higher priority kinds overwrite.
	ordered := []struct {
		kind  Kind
		names []string
	}{
		{Date, sets.Date},
		{Bool, sets.Bool},
		{Int, sets.Int},
		{Float, sets.Float},
		{NoIndexKeyword, sets.NoIndexKeyword},
		{Keyword, sets.Keyword},
		{Text, sets.Text},
		{Ignore, sets.Ignore},
	}
	for _, group := range ordered {
		for _, name := range group.names {
			t.exact[name] = group.kind
			t.folded[Fold(name)] = name
		}
	}
	return t
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the built-in HTCondor table.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = New(Sets{
			Text:           TextAttrs,
			Keyword:        IndexedKeywordAttrs,
			NoIndexKeyword: NoIndexKeywordAttrs,
			Float:          FloatAttrs,
			Int:            IntAttrs,
			Bool:           BoolAttrs,
			Date:           DateAttrs,
			Ignore:         IgnoreAttrs,
		}, DefaultRules)
	})
	return defaultTable
}

// Fold returns the case-folded form of name.
func Fold(name string) string {
	return cases.Fold().String(name)
}

// Canonical returns the spelling a raw attribute name is stored under:
// the known casing, a readable form from the rename patterns, or the
// lower-cased name.
func (t *Table) Canonical(name string) string {
	folded := Fold(name)
	if known, ok := t.folded[folded]; ok {
		return known
	}
	for _, re := range t.renames {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		var b strings.Builder
		for _, group := range m[1:] {
			b.WriteString(capitalize(group))
		}
		return b.String()
	}
	return folded
}

// Classify returns the kind of a canonical name. Exact sets win over the
// pattern rules.
func (t *Table) Classify(canonical string) Kind {
	if kind, ok := t.exact[canonical]; ok {
		return kind
	}
	for _, rule := range t.rules {
		if rule.Pattern.MatchString(canonical) {
			return rule.Kind
		}
	}
	return Unknown
}

// Lookup combines Canonical and Classify.
func (t *Table) Lookup(name string) (string, Kind) {
	canonical := t.Canonical(name)
	return canonical, t.Classify(canonical)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
