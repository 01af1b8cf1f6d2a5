package starlark

import (
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
)

// Evaluator runs Starlark expressions and scripts against attribute data.
// An Evaluator is not safe for concurrent use.
type Evaluator struct {
	thread   *starlark.Thread
	builtins starlark.StringDict
	globals  starlark.StringDict
}

// NewEvaluator creates a Starlark evaluator. print output goes to logger.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		thread:   newThread("strtmpl", logger),
		builtins: CreateBuiltins(),
		globals:  make(starlark.StringDict),
	}
}

// SetGlobal sets a global variable in the Starlark environment
func (e *Evaluator) SetGlobal(name string, value attrs.Value) {
	e.globals[name] = ConvertToStarlark(value)
}

// LoadStore exposes every key of s as a global.
func (e *Evaluator) LoadStore(s *attrs.Attributes) {
	for _, key := range s.Keys() {
		e.SetGlobal(key, s.Get(key))
	}
}

func (e *Evaluator) predeclared() starlark.StringDict {
	predeclared := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	for k, v := range e.builtins {
		predeclared[k] = v
	}
	for k, v := range e.globals {
		predeclared[k] = v
	}
	return predeclared
}

// Eval evaluates a Starlark expression.
func (e *Evaluator) Eval(expr string) (attrs.Value, error) {
	val, err := starlark.Eval(e.thread, "<eval>", expr, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	return ConvertFromStarlark(val), nil
}

// ExecFile executes a Starlark file and keeps the globals it defines.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFile(e.thread, filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	for k, v := range globals {
		e.globals[k] = v
	}
	return globals, nil
}

// GetGlobal retrieves a global variable as an attribute value.
func (e *Evaluator) GetGlobal(name string) (attrs.Value, bool) {
	if val, ok := e.globals[name]; ok {
		return ConvertFromStarlark(val), true
	}
	return nil, false
}
