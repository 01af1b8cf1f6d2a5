// Package filterext provides optional filters beyond the built-in set.
package filterext

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Filters maps extension filter ids to their implementations.
var Filters = map[string]stringtemplate.Filter{
	"markdown": Markdown,
	"title":    Title,
	"trim":     Trim,
}

// Names returns the extension filter ids, sorted.
func Names() []string {
	names := make([]string, 0, len(Filters))
	for name := range Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds the named extension filters to env. With no names, all of
// them are registered.
func Register(env *stringtemplate.Environment, names ...string) error {
	if len(names) == 0 {
		names = Names()
	}
	for _, name := range names {
		f, ok := Filters[name]
		if !ok {
			return fmt.Errorf("unknown extension filter %q", name)
		}
		if err := env.RegisterFilter(name, f); err != nil {
			return err
		}
	}
	return nil
}

// Markdown renders a string as HTML with GitHub-flavoured markdown.
func Markdown(v attrs.Value, _ attrs.Store) attrs.Value {
	s, ok := v.(attrs.StringValue)
	if !ok {
		return v
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		return v
	}
	return attrs.StringValue(buf.String())
}

// Title upper-cases the first letter of every word.
func Title(v attrs.Value, _ attrs.Store) attrs.Value {
	s, ok := v.(attrs.StringValue)
	if !ok {
		return v
	}
	return attrs.StringValue(cases.Title(language.Und).String(string(s)))
}

// Trim removes leading and trailing white space.
func Trim(v attrs.Value, _ attrs.Store) attrs.Value {
	s, ok := v.(attrs.StringValue)
	if !ok {
		return v
	}
	return attrs.StringValue(strings.TrimSpace(string(s)))
}
