package stringtemplate

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateFilter is returned when a filter id is registered twice.
	ErrDuplicateFilter = errors.New("filter already registered")
	// ErrEnvironmentBound is returned when a Template already owned by an
	// Environment is bound again.
	ErrEnvironmentBound = errors.New("template already bound to an environment")
	// ErrTemplateNotFound is returned by loaders for unknown template names.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrNoSearchRoot is returned by LoadTemplate when the Environment has
	// no loader to resolve names against.
	ErrNoSearchRoot = errors.New("no template search root configured")
	// ErrEmptyTemplate is returned when a template file has no content.
	ErrEmptyTemplate = errors.New("template file is empty")
)

// Position locates a statement in template source.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in bytes
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ParseError reports malformed template syntax.
type ParseError struct {
	Template string // template name, when known
	Pos      Position
	Stmt     string // offending statement text, may be empty
	Msg      string
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Stmt != "" {
		msg = fmt.Sprintf("%s (statement %q)", e.Msg, e.Stmt)
	}
	if e.Template != "" {
		return fmt.Sprintf("%s:%s: %s", e.Template, e.Pos, msg)
	}
	return fmt.Sprintf("%s: %s", e.Pos, msg)
}

// BindingError reports a reference that could not be resolved. It is a soft
// failure: renders log it and continue with an absent value.
type BindingError struct {
	Ref   string
	Scope string
	Msg   string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("cannot resolve %q in scope %q: %s", e.Ref, e.Scope, e.Msg)
}

// UnknownFilterError reports a placeholder filter id present in neither the
// Environment nor the built-in registry.
type UnknownFilterError struct {
	Filter string
	Path   string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q applied to %q", e.Filter, e.Path)
}

// IncludeError wraps a failure raised while rendering an included template.
type IncludeError struct {
	Name string
	Err  error
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("include %q: %v", e.Name, e.Err)
}

func (e *IncludeError) Unwrap() error { return e.Err }
