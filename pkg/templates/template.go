// Package templates reads template bundles: YAML files that define named
// templates together with the data they require and default values.
//
//	name: mail
//	templates:
//	  greeting:
//	    description: Opening line
//	    arguments:
//	      required: [name]
//	      defaults:
//	        salutation: Dear
//	    source: "{{ salutation }} {{ name|capitalize }},"
package templates

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
	v "github.com/neurodesk/stringtemplate/pkg/validator"
)

// ErrMissingArgument is returned when data lacks a required key.
var ErrMissingArgument = errors.New("missing required argument")

type Arguments struct {
	Required []string       `yaml:"required,omitempty"`
	Defaults map[string]any `yaml:"defaults,omitempty"`
}

func (a *Arguments) Validate() error {
	return v.All(
		v.Map(a.Required, func(item string, key string) error {
			return v.All(
				v.NotEmpty(item, key),
				v.Identifier(item, key),
			)
		}, "required arguments"),
		v.NoDuplicates(a.Required, "required arguments"),
		v.MapDict(a.Defaults, func(key string, _ any) error {
			return v.Identifier(key, "default argument")
		}),
	)
}

// Template is one named entry of a bundle.
type Template struct {
	Description string    `yaml:"description,omitempty"`
	Arguments   Arguments `yaml:"arguments,omitempty"`
	Source      string    `yaml:"source"`

	name string
}

func (t *Template) Name() string { return t.name }

func (t *Template) Validate() error {
	if err := v.All(
		v.NotEmpty(t.Source, "source"),
		t.Arguments.Validate(),
	); err != nil {
		return fmt.Errorf("template %q: %w", t.name, err)
	}
	// trim-blocks does not change which sources parse
	if _, err := stringtemplate.Parse(t.Source, false); err != nil {
		return fmt.Errorf("template %q: %w", t.name, err)
	}
	return nil
}

// Prepare layers data over the template's defaults and checks that every
// required argument is present.
func (t *Template) Prepare(data *attrs.Attributes) (*attrs.Attributes, error) {
	out := attrs.FromMap(t.Arguments.Defaults)
	out.Merge(data)
	for _, key := range t.Arguments.Required {
		if !out.Contains(key) {
			return nil, fmt.Errorf("template %q: %w: %s", t.name, ErrMissingArgument, key)
		}
	}
	return out, nil
}

// Bundle is a set of named templates. It is a stringtemplate.Loader, so a
// bundle can serve as an Environment search root.
type Bundle struct {
	Name      string               `yaml:"name"`
	Templates map[string]*Template `yaml:"templates"`
}

var _ stringtemplate.Loader = (*Bundle)(nil)

func (b *Bundle) Validate() error {
	return v.All(
		v.NotEmpty(b.Name, "bundle name"),
		v.MapDict(b.Templates, func(key string, t *Template) error {
			if t == nil {
				return fmt.Errorf("template %q is empty", key)
			}
			return v.All(
				v.NotEmpty(key, "template name"),
				v.NoTemplateSyntax(key, "template name"),
			)
		}),
		v.Each(b.templates()),
	)
}

func (b *Bundle) templates() []*Template {
	out := make([]*Template, 0, len(b.Templates))
	for _, name := range b.Names() {
		if t := b.Templates[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Names returns the template names in sorted order.
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.Templates))
	for name := range b.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named template.
func (b *Bundle) Get(name string) (*Template, error) {
	if t, ok := b.Templates[name]; ok && t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s (bundle %s)", stringtemplate.ErrTemplateNotFound, name, b.Name)
}

func (b *Bundle) Load(name string) (string, error) {
	t, err := b.Get(name)
	if err != nil {
		return "", err
	}
	return t.Source, nil
}

// Decode reads one bundle document. Unknown fields are rejected.
func Decode(r io.Reader) (*Bundle, error) {
	var b Bundle
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	for name, t := range b.Templates {
		if t != nil {
			t.name = name
		}
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bundle %q: %w", b.Name, err)
	}
	return &b, nil
}

// LoadFS decodes every *.yaml file at the top of fsys. Templates from later
// files (in name order) override earlier ones with the same name.
func LoadFS(fsys fs.FS, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	merged := &Bundle{Templates: map[string]*Template{}}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		f, err := fsys.Open(entry.Name())
		if err != nil {
			return nil, err
		}
		b, err := Decode(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		names = append(names, b.Name)
		for name, t := range b.Templates {
			if _, ok := merged.Templates[name]; ok {
				logger.Warn("template overridden", "template", name, "bundle", b.Name, "file", entry.Name())
			}
			merged.Templates[name] = t
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no bundle files found")
	}
	merged.Name = strings.Join(names, "+")
	return merged, nil
}
