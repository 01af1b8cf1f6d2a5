package stringtemplate

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
)

// Filter transforms a placeholder value. ctx is the store bound to the
// placeholder's resolved scope and may be nil. Filters return v unchanged
// for value kinds they do not handle.
type Filter func(v attrs.Value, ctx attrs.Store) attrs.Value

// FilterRegistry maps filter ids to filters. Ids are unique.
type FilterRegistry struct {
	filters map[string]Filter
}

// NewFilterRegistry returns an empty registry.
func NewFilterRegistry() *FilterRegistry {
	return &FilterRegistry{filters: map[string]Filter{}}
}

// Register adds f under id. A second registration for the same id fails with
// ErrDuplicateFilter.
func (r *FilterRegistry) Register(id string, f Filter) error {
	if _, ok := r.filters[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateFilter, id)
	}
	r.filters[id] = f
	return nil
}

// Lookup returns the filter registered under id.
func (r *FilterRegistry) Lookup(id string) (Filter, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := r.filters[id]
	return f, ok
}

// Names returns the registered ids, sorted.
func (r *FilterRegistry) Names() []string {
	names := make([]string, 0, len(r.filters))
	for id := range r.filters {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

var builtinFilters = func() *FilterRegistry {
	r := NewFilterRegistry()
	for id, f := range map[string]Filter{
		"lower":        stringFilter(func(s string) string { return cases.Lower(language.Und).String(s) }),
		"upper":        stringFilter(func(s string) string { return cases.Upper(language.Und).String(s) }),
		"capitalize":   stringFilter(capitalize),
		"decapitalize": stringFilter(decapitalize),
		"escapestring": stringFilter(escapeString),
	} {
		if err := r.Register(id, f); err != nil {
			panic(err)
		}
	}
	return r
}()

// Builtins returns the ids of the filters every Template knows.
func Builtins() []string { return builtinFilters.Names() }

// stringFilter lifts fn to a Filter that only touches string values.
func stringFilter(fn func(string) string) Filter {
	return func(v attrs.Value, _ attrs.Store) attrs.Value {
		s, ok := v.(attrs.StringValue)
		if !ok {
			return v
		}
		return attrs.StringValue(fn(string(s)))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	_, n := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:n]) + s[n:]
}

func decapitalize(s string) string {
	if s == "" {
		return s
	}
	_, n := utf8.DecodeRuneInString(s)
	return cases.Lower(language.Und).String(s[:n]) + s[n:]
}

func escapeString(s string) string {
	if s == "" {
		return s
	}
	return `"` + s + `"`
}
