package starlark

import (
	"log/slog"
	"strings"

	"go.starlark.net/starlark"
)

func newThread(name string, logger *slog.Logger) *starlark.Thread {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &starlark.Thread{
		Name: name,
		Print: func(thread *starlark.Thread, msg string) {
			logger.Info(msg, "thread", thread.Name)
		},
	}
}

// CreateBuiltins returns the helpers available to conditions and filter
// scripts in addition to the Starlark universe.
func CreateBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"empty": starlark.NewBuiltin("empty", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var v starlark.Value
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &v); err != nil {
				return nil, err
			}
			return starlark.Bool(!bool(v.Truth())), nil
		}),

		"lower": starlark.NewBuiltin("lower", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &s); err != nil {
				return nil, err
			}
			return starlark.String(strings.ToLower(s)), nil
		}),
	}
}
