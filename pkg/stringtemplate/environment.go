package stringtemplate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/neurodesk/stringtemplate/pkg/validator"
)

var discardLogger = slog.New(slog.DiscardHandler)

// Environment owns the caller-registered filters, the template search root
// and the render options shared by every Template it creates. Configure it
// before the first render; it is read-only afterwards.
type Environment struct {
	filters       *FilterRegistry
	loader        Loader
	trimBlocks    bool
	strictFilters bool
	parseCache    bool
	conditions    ConditionEvaluator
	logger        *slog.Logger
}

// Option configures an Environment.
type Option func(*Environment)

// WithTrimBlocks drops the line terminator after each statement tag.
func WithTrimBlocks(on bool) Option {
	return func(e *Environment) { e.trimBlocks = on }
}

// WithLoader sets the loader by-name template lookups go through.
func WithLoader(l Loader) Option {
	return func(e *Environment) { e.loader = l }
}

// WithSearchRoot resolves template names against a directory.
func WithSearchRoot(dir string) Option {
	return WithLoader(DirLoader(dir))
}

// WithLogger sets the logger soft failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStrictFilters makes unknown filter ids fail the render.
func WithStrictFilters(on bool) Option {
	return func(e *Environment) { e.strictFilters = on }
}

// WithParseCache keeps each Template's AST after its first parse.
func WithParseCache(on bool) Option {
	return func(e *Environment) { e.parseCache = on }
}

// WithConditions replaces the default TruthEvaluator.
func WithConditions(c ConditionEvaluator) Option {
	return func(e *Environment) { e.conditions = c }
}

// NewEnvironment returns an Environment with the given options applied.
func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{
		filters: NewFilterRegistry(),
		logger:  discardLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterFilter adds a filter. Ids must be unique within the Environment;
// an id matching a built-in replaces the built-in for this Environment.
func (e *Environment) RegisterFilter(id string, f Filter) error {
	if err := validator.All(
		validator.NotEmpty(id, "filter id"),
		validator.Identifier(id, "filter id"),
	); err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("filter %q: nil function", id)
	}
	return e.filters.Register(id, f)
}

// Filters returns the ids of the registered filters, sorted.
func (e *Environment) Filters() []string { return e.filters.Names() }

func (e *Environment) filter(id string) (Filter, bool) {
	if e == nil {
		return nil, false
	}
	return e.filters.Lookup(id)
}

// TrimBlocks reports whether trim-blocks is enabled.
func (e *Environment) TrimBlocks() bool { return e.trimBlocks }

// Logger returns the Environment's logger.
func (e *Environment) Logger() *slog.Logger { return e.logger }

// NewTemplate creates a Template owned by e.
func (e *Environment) NewTemplate(name, src string) *Template {
	t := New(name, src)
	t.env = e
	return t
}

// Bind makes e the owner of a Template created with New. A Template has at
// most one owner; binding it again fails with ErrEnvironmentBound.
func (e *Environment) Bind(t *Template) error {
	return t.bind(e)
}

// LoadTemplate loads a template by name through the search root.
func (e *Environment) LoadTemplate(name string) (*Template, error) {
	if e.loader == nil {
		return nil, ErrNoSearchRoot
	}
	src, err := e.loader.Load(name)
	if err != nil {
		return nil, err
	}
	if src == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTemplate)
	}
	return e.NewTemplate(name, src), nil
}

// LoadTemplateFile loads a template from a file path, bypassing the search
// root.
func (e *Environment) LoadTemplateFile(path string) (*Template, error) {
	t, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := e.Bind(t); err != nil {
		return nil, err
	}
	return t, nil
}

// IsNotFound reports whether err means a template name did not resolve.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) || errors.Is(err, ErrNoSearchRoot)
}
