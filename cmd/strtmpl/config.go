package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/neurodesk/stringtemplate/pkg/filterext"
	"github.com/neurodesk/stringtemplate/pkg/netcache"
	"github.com/neurodesk/stringtemplate/pkg/starlark"
	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
	"github.com/neurodesk/stringtemplate/pkg/templates"
	"github.com/neurodesk/stringtemplate/pkg/validator"
)

const (
	defaultConfigFile = "strtmpl.yaml"
	envPrefix         = "STRTMPL_"

	conditionsTruth    = "truth"
	conditionsStarlark = "starlark"
)

var conditionModes = []string{conditionsTruth, conditionsStarlark}

// Config is the strtmpl configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
type Config struct {
	TemplatesDir  string   `koanf:"templates_dir"`
	BundleDir     string   `koanf:"bundle_dir"`
	TrimBlocks    bool     `koanf:"trim_blocks"`
	StrictFilters bool     `koanf:"strict_filters"`
	Conditions    string   `koanf:"conditions"`
	ParseCache    bool     `koanf:"parse_cache"`
	CacheDir      string   `koanf:"cache_dir"`
	Verbose       bool     `koanf:"verbose"`
	Extensions    []string `koanf:"extensions"`
	FilterScripts []string `koanf:"filter_scripts"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

func (c *Config) Validate() error {
	return validator.All(
		validator.MatchesAllowed(c.Conditions, conditionModes, "conditions"),
		validator.SliceHasElements(c.Extensions, filterext.Names(), "extensions"),
		validator.NoDuplicates(c.Extensions, "extensions"),
		validator.NoDuplicates(c.FilterScripts, "filter_scripts"),
		validator.Map(c.FilterScripts, validator.NotEmpty, "filter_scripts"),
	)
}

// addConfigFlags registers the flags that map onto Config keys.
func addConfigFlags(flags *pflag.FlagSet) {
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("templates-dir", "", "Search root for included templates (directory or http(s) URL)")
	flags.String("bundle-dir", "", "Directory of template bundle YAML files")
	flags.Bool("trim-blocks", false, "Drop the newline that follows a statement tag")
	flags.Bool("strict-filters", false, "Fail on unknown filters instead of skipping them")
	flags.String("conditions", conditionsTruth, "Condition evaluator: truth or starlark")
	flags.Bool("parse-cache", false, "Reuse parsed templates between renders")
	flags.String("cache-dir", "", "Directory for downloaded templates and data")
	flags.StringSlice("extensions", nil, "Extension filters to register (default all)")
	flags.StringArray("filter-script", nil, "Starlark file defining extra filters (repeatable)")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "strtmpl")
}

// loadConfig layers defaults, the config file, STRTMPL_* variables and the
// flags that were set explicitly. A missing config file is only an error
// when the path was given with --config.
func loadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"templates_dir":  "",
		"bundle_dir":     "",
		"trim_blocks":    false,
		"strict_filters": false,
		"conditions":     conditionsTruth,
		"parse_cache":    false,
		"cache_dir":      defaultCacheDir(),
		"verbose":        false,
		"extensions":     filterext.Names(),
		"filter_scripts": []string{},
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := flags != nil && flags.Changed("config")
	used := ""
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			used = cfgFile
		} else if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// STRTMPL_TEMPLATES_DIR -> templates_dir
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "filter_script" {
				key = "filter_scripts"
			}
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				return key, sv.GetSlice()
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// session is what a command works with: the environment plus the download
// cache and bundle it was built from.
type session struct {
	env    *stringtemplate.Environment
	cache  *netcache.Cache
	bundle *templates.Bundle
}

// entry returns the bundle template t was loaded from, if any.
func (s *session) entry(t *stringtemplate.Template) *templates.Template {
	if s.bundle == nil {
		return nil
	}
	bt, err := s.bundle.Get(t.Name())
	if err != nil || bt.Source != t.Source() {
		return nil
	}
	return bt
}

// newSession builds the environment described by c. Bundle templates are
// looked up before the templates dir.
func (c *Config) newSession(ctx context.Context, logger *slog.Logger) (*session, error) {
	s := &session{cache: netcache.New(c.CacheDir)}
	s.cache.Logger = logger

	var loaders stringtemplate.ChainLoader
	if c.BundleDir != "" {
		b, err := templates.LoadFS(os.DirFS(c.BundleDir), logger)
		if err != nil {
			return nil, fmt.Errorf("bundle dir %s: %w", c.BundleDir, err)
		}
		s.bundle = b
		loaders = append(loaders, b)
	}
	switch {
	case netcache.IsRemote(c.TemplatesDir):
		loaders = append(loaders, netcache.Loader{Cache: s.cache, Base: c.TemplatesDir, Context: ctx})
	case c.TemplatesDir != "":
		loaders = append(loaders, stringtemplate.DirLoader(c.TemplatesDir))
	}

	opts := []stringtemplate.Option{
		stringtemplate.WithLogger(logger),
		stringtemplate.WithTrimBlocks(c.TrimBlocks),
		stringtemplate.WithStrictFilters(c.StrictFilters),
		stringtemplate.WithParseCache(c.ParseCache),
	}
	if len(loaders) > 0 {
		opts = append(opts, stringtemplate.WithLoader(loaders))
	}
	if c.Conditions == conditionsStarlark {
		opts = append(opts, stringtemplate.WithConditions(starlark.NewConditions(logger)))
	}

	s.env = stringtemplate.NewEnvironment(opts...)
	if len(c.Extensions) > 0 {
		if err := filterext.Register(s.env, c.Extensions...); err != nil {
			return nil, err
		}
	}
	for _, script := range c.FilterScripts {
		src, err := readRef(ctx, s.cache, script)
		if err != nil {
			return nil, fmt.Errorf("filter script: %w", err)
		}
		if err := starlark.RegisterFilters(s.env, script, src); err != nil {
			return nil, err
		}
	}
	return s, nil
}
