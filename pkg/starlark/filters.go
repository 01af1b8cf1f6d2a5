package starlark

import (
	"fmt"
	"log/slog"
	"sort"

	"go.starlark.net/starlark"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
)

// LoadFilters executes a Starlark script and returns one template filter per
// top-level function it defines. A function receives the placeholder value
// and, when it declares a second parameter, the scope store as a struct.
//
//	def shout(v):
//	    return v.upper() + "!"
//
// Functions whose names start with "_" are private to the script.
func LoadFilters(filename string, src any, logger *slog.Logger) (map[string]stringtemplate.Filter, error) {
	e := NewEvaluator(logger)
	globals, err := e.ExecFile(filename, src)
	if err != nil {
		return nil, err
	}

	filters := make(map[string]stringtemplate.Filter)
	for name, v := range globals {
		fn, ok := v.(*starlark.Function)
		if !ok || name[0] == '_' {
			continue
		}
		filters[name] = scriptFilter(fn, logger)
	}
	return filters, nil
}

// RegisterFilters loads a filter script and registers its functions with
// env, in name order.
func RegisterFilters(env *stringtemplate.Environment, filename string, src any) error {
	filters, err := LoadFilters(filename, src, env.Logger())
	if err != nil {
		return err
	}
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := env.RegisterFilter(name, filters[name]); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
	}
	return nil
}

func scriptFilter(fn *starlark.Function, logger *slog.Logger) stringtemplate.Filter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(v attrs.Value, ctx attrs.Store) attrs.Value {
		args := starlark.Tuple{ConvertToStarlark(v)}
		if fn.NumParams() > 1 {
			args = append(args, StoreToStarlark(ctx))
		}
		thread := newThread("filter "+fn.Name(), logger)
		out, err := starlark.Call(thread, fn, args, nil)
		if err != nil {
			// a failing filter leaves the value as it was
			logger.Debug("filter failed", "filter", fn.Name(), "error", err)
			return v
		}
		return ConvertFromStarlark(out)
	}
}
