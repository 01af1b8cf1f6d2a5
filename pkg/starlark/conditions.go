package starlark

import (
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
)

// Conditions evaluates {% if %} conditions as Starlark expressions, so
// templates can write comparisons and boolean logic:
//
//	{% if loop.index > 0 and user.role == "admin" %}
//
// The keys of the global store are visible unqualified and every other
// active binding under its name. Names that resolve to nothing are None.
type Conditions struct {
	builtins starlark.StringDict
	logger   *slog.Logger
}

var _ stringtemplate.ConditionEvaluator = (*Conditions)(nil)

// NewConditions returns a Starlark condition evaluator.
func NewConditions(logger *slog.Logger) *Conditions {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Conditions{builtins: CreateBuiltins(), logger: logger}
}

func (c *Conditions) Evaluate(cond string, scope stringtemplate.Scope) (bool, error) {
	expr, err := syntax.ParseExpr("<condition>", cond, 0)
	if err != nil {
		return false, fmt.Errorf("parsing condition: %w", err)
	}

	env := make(starlark.StringDict, len(c.builtins))
	for k, v := range c.builtins {
		env[k] = v
	}
	for _, b := range scope.Bindings() {
		if b.Name == stringtemplate.GlobalScope {
			if k, ok := b.Store.(keyed); ok {
				for _, key := range k.Keys() {
					env[key] = ConvertToStarlark(b.Store.Get(key))
				}
			}
			continue
		}
		env[b.Name] = StoreToStarlark(b.Store)
	}

	// unknown names evaluate to None instead of failing to resolve
	syntax.Walk(expr, func(n syntax.Node) bool {
		if id, ok := n.(*syntax.Ident); ok {
			if _, defined := env[id.Name]; !defined && !starlark.Universe.Has(id.Name) {
				env[id.Name] = starlark.None
			}
		}
		return true
	})

	thread := newThread("condition", c.logger)
	v, err := starlark.Eval(thread, "<condition>", cond, env)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", cond, err)
	}
	return bool(v.Truth()), nil
}
