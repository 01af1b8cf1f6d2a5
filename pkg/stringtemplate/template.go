// Package stringtemplate renders text templates against attribute stores.
//
// The grammar has three forms: literal text, {{ path | filter }}
// placeholders and {% statement %} control structures. Statements are
// for/endfor, if/else/endif and include.
package stringtemplate

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
)

// Template is immutable template source plus the Environment it was created
// by, if any.
type Template struct {
	name string
	src  string
	env  *Environment

	mu     sync.Mutex
	cached *Root
	trim   bool
}

// New returns a Template with no Environment. It renders without trim-blocks
// and its includes produce no output.
func New(name, src string) *Template {
	return &Template{name: name, src: src}
}

// LoadFile reads a template from path. Line endings are kept as they are.
func LoadFile(path string) (*Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyTemplate)
	}
	return New(path, string(b)), nil
}

// Name returns the name the template was created or loaded with.
func (t *Template) Name() string { return t.name }

// Source returns the raw template text.
func (t *Template) Source() string { return t.src }

// Environment returns the owning Environment, or nil.
func (t *Template) Environment() *Environment { return t.env }

func (t *Template) bind(e *Environment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.env != nil {
		return fmt.Errorf("%s: %w", t.name, ErrEnvironmentBound)
	}
	t.env = e
	return nil
}

// Parse returns the template's AST, using the owning Environment's
// trim-blocks setting.
func (t *Template) Parse() (*Root, error) { return t.parse() }

func (t *Template) parse() (*Root, error) {
	trim, cache := false, false
	if t.env != nil {
		trim, cache = t.env.trimBlocks, t.env.parseCache
	}
	if !cache {
		return t.parseSource(trim)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cached != nil && t.trim == trim {
		return t.cached, nil
	}
	root, err := t.parseSource(trim)
	if err != nil {
		return nil, err
	}
	t.cached, t.trim = root, trim
	return root, nil
}

func (t *Template) parseSource(trim bool) (*Root, error) {
	root, err := Parse(t.src, trim)
	if err != nil {
		if perr, ok := err.(*ParseError); ok {
			perr.Template = t.name
		}
		return nil, err
	}
	return root, nil
}

// Validate reports whether the template parses.
func (t *Template) Validate() error {
	_, err := t.parse()
	return err
}

// Execute renders the template against data and writes the output to w.
// Nothing is written when rendering fails.
func (t *Template) Execute(w io.Writer, data attrs.Store) error {
	root, err := t.parse()
	if err != nil {
		return err
	}
	buf := getBuffer()
	defer putBuffer(buf)
	if err := newRenderer(t, 0).render(buf, root, data); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// Render renders the template against data.
func (t *Template) Render(data attrs.Store) (string, error) {
	root, err := t.parse()
	if err != nil {
		return "", err
	}
	buf := getBuffer()
	defer putBuffer(buf)
	if err := newRenderer(t, 0).render(buf, root, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
