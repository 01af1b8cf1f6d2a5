package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
	"github.com/neurodesk/stringtemplate/pkg/netcache"
	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
	"github.com/neurodesk/stringtemplate/pkg/validator"
)

// readRef returns the content of a local file or an http(s) URL.
func readRef(ctx context.Context, cache *netcache.Cache, ref string) ([]byte, error) {
	if netcache.IsRemote(ref) {
		return cache.Read(ctx, ref)
	}
	return os.ReadFile(ref)
}

// loadTemplate resolves ref as a URL, then as a file path, then as a name
// under the environment's search root.
func loadTemplate(ctx context.Context, s *session, ref string) (*stringtemplate.Template, error) {
	if netcache.IsRemote(ref) {
		b, err := s.cache.Read(ctx, ref)
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("%w: %s", stringtemplate.ErrEmptyTemplate, ref)
		}
		return s.env.NewTemplate(ref, string(b)), nil
	}

	_, err := os.Stat(ref)
	switch {
	case err == nil:
		return s.env.LoadTemplateFile(ref)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	t, err := s.env.LoadTemplate(ref)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", ref, err)
	}
	return t, nil
}

// loadData merges the YAML documents in refs, in order, and applies the
// KEY=VALUE overrides last.
func loadData(ctx context.Context, cache *netcache.Cache, refs, sets []string) (*attrs.Attributes, error) {
	data := attrs.New()
	for _, ref := range refs {
		var (
			a   *attrs.Attributes
			err error
		)
		if netcache.IsRemote(ref) {
			var b []byte
			if b, err = cache.Read(ctx, ref); err == nil {
				a, err = attrs.FromYAML(bytes.NewReader(b))
			}
			if err != nil {
				err = fmt.Errorf("%s: %w", ref, err)
			}
		} else {
			a, err = attrs.LoadYAMLFile(ref)
		}
		if err != nil {
			return nil, fmt.Errorf("loading data: %w", err)
		}
		data.Merge(a)
	}

	overrides, err := parseSets(sets)
	if err != nil {
		return nil, err
	}
	data.Merge(overrides)
	return data, nil
}

// parseSets turns KEY=VALUE pairs into attributes. Values are read as YAML
// scalars, so "n=3" sets an integer and "ok=true" a boolean.
func parseSets(sets []string) (*attrs.Attributes, error) {
	pairs := make(map[string]string, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected KEY=VALUE", s)
		}
		pairs[strings.TrimSpace(k)] = v
	}
	if err := validator.MapDict(pairs, func(k, _ string) error {
		return validator.All(
			validator.NotEmpty(k, "--set key"),
			validator.Identifier(k, "--set key"),
		)
	}); err != nil {
		return nil, err
	}

	out := attrs.New()
	for _, s := range sets {
		k, v, _ := strings.Cut(s, "=")
		out.Set(strings.TrimSpace(k), scalar(v))
	}
	return out, nil
}

func scalar(s string) any {
	if s == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	switch v.(type) {
	case string, bool, int, float64:
		return v
	}
	return s
}
