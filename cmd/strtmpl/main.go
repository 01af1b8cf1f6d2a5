package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/neurodesk/stringtemplate/pkg/netcache"
	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
	"github.com/neurodesk/stringtemplate/pkg/templates"
	"github.com/neurodesk/stringtemplate/pkg/validator"
)

var configPath string

var (
	cfg    *Config
	logger = slog.Default()
)

var rootCmd = cobra.Command{
	Use:          "strtmpl",
	Short:        "Render text templates with {{ placeholders }} and {% statements %}",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = c
		logger = newLogger(cmd.ErrOrStderr(), c.Verbose)
		slog.SetDefault(logger)
		if c.File != "" {
			logger.Debug("config loaded", "file", c.File)
		}
		return nil
	},
}

func setup(cmd *cobra.Command) (*session, error) {
	return cfg.newSession(cmd.Context(), logger)
}

// renderJob is one template rendered against a set of data files.
type renderJob struct {
	Template string
	Data     []string
	Set      []string
	// Out is the output file; empty means the command's stdout.
	Out string
}

func renderJobFromFlags(flags *pflag.FlagSet, template string) renderJob {
	data, _ := flags.GetStringArray("data")
	sets, _ := flags.GetStringArray("set")
	out, _ := flags.GetString("out")
	return renderJob{Template: template, Data: data, Set: sets, Out: out}
}

// run renders the job. Templates that come from a bundle get the bundle's
// defaults and required-argument check.
func (j renderJob) run(ctx context.Context, s *session, stdout io.Writer) error {
	t, err := loadTemplate(ctx, s, j.Template)
	if err != nil {
		return err
	}
	data, err := loadData(ctx, s.cache, j.Data, j.Set)
	if err != nil {
		return err
	}
	if bt := s.entry(t); bt != nil {
		if data, err = bt.Prepare(data); err != nil {
			return err
		}
	}
	if j.Out == "" {
		return t.Execute(stdout, data)
	}
	out, err := t.Render(data)
	if err != nil {
		return err
	}
	return os.WriteFile(j.Out, []byte(out), 0o644)
}

var renderCmd = cobra.Command{
	Use:   "render TEMPLATE",
	Short: "Render a template (file, search-root name or URL) with YAML data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd)
		if err != nil {
			return err
		}
		job := renderJobFromFlags(cmd.Flags(), args[0])
		return job.run(cmd.Context(), s, cmd.OutOrStdout())
	},
}

// checkTemplates parses every template and lists the placeholders each
// one references.
func checkTemplates(w io.Writer, tmpls []*stringtemplate.Template) error {
	if err := validator.Each(tmpls); err != nil {
		return err
	}
	for _, t := range tmpls {
		root, err := t.Parse()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: ok\n", t.Name())
		for _, p := range stringtemplate.Placeholders(root) {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return nil
}

var checkCmd = cobra.Command{
	Use:   "check TEMPLATE...",
	Short: "Parse templates and list the placeholders they use",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd)
		if err != nil {
			return err
		}
		tmpls := make([]*stringtemplate.Template, 0, len(args))
		for _, ref := range args {
			t, err := loadTemplate(cmd.Context(), s, ref)
			if err != nil {
				return err
			}
			tmpls = append(tmpls, t)
		}
		return checkTemplates(cmd.OutOrStdout(), tmpls)
	},
}

var astCmd = cobra.Command{
	Use:   "ast TEMPLATE",
	Short: "Print the parsed node tree of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd)
		if err != nil {
			return err
		}
		t, err := loadTemplate(cmd.Context(), s, args[0])
		if err != nil {
			return err
		}
		root, err := t.Parse()
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), stringtemplate.Pretty(root))
		return err
	},
}

// listBundle prints every bundle template with its description and
// required arguments.
func listBundle(w io.Writer, b *templates.Bundle) {
	for _, name := range b.Names() {
		t, _ := b.Get(name)
		fmt.Fprintf(w, "%s", name)
		if t.Description != "" {
			fmt.Fprintf(w, " - %s", t.Description)
		}
		fmt.Fprintln(w)
		if len(t.Arguments.Required) > 0 {
			fmt.Fprintf(w, "  required: %s\n", strings.Join(t.Arguments.Required, ", "))
		}
	}
}

var listCmd = cobra.Command{
	Use:   "list",
	Short: "List the templates of the configured bundle dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.BundleDir == "" {
			return fmt.Errorf("no bundle dir configured (set bundle_dir or --bundle-dir)")
		}
		s, err := setup(cmd)
		if err != nil {
			return err
		}
		listBundle(cmd.OutOrStdout(), s.bundle)
		return nil
	},
}

var watchCmd = cobra.Command{
	Use:   "watch TEMPLATE",
	Short: "Render a template and render it again whenever it or its data changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if netcache.IsRemote(args[0]) {
			return fmt.Errorf("watch needs a local template, got %s", args[0])
		}
		// fail fast on a broken config before watching
		if _, err := setup(cmd); err != nil {
			return err
		}
		job := renderJobFromFlags(cmd.Flags(), args[0])

		var files, dirs []string
		if _, err := os.Stat(job.Template); err == nil {
			files = append(files, job.Template)
		}
		for _, ref := range job.Data {
			if !netcache.IsRemote(ref) {
				files = append(files, ref)
			}
		}
		if cfg.TemplatesDir != "" && !netcache.IsRemote(cfg.TemplatesDir) {
			dirs = append(dirs, cfg.TemplatesDir)
		}
		if cfg.BundleDir != "" {
			dirs = append(dirs, cfg.BundleDir)
		}
		if len(files) == 0 && len(dirs) == 0 {
			return fmt.Errorf("nothing to watch for %s", job.Template)
		}

		w, err := newWatcher(files, dirs, logger)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("watching", "template", job.Template, "files", len(files), "dirs", len(dirs))
		return w.Run(ctx, func() error {
			// bundles are read once per session, so reload them too
			s, err := setup(cmd)
			if err != nil {
				return err
			}
			return job.run(ctx, s, cmd.OutOrStdout())
		})
	},
}

func addRenderFlags(flags *pflag.FlagSet) {
	flags.StringArrayP("data", "d", nil, "YAML data file or URL (repeatable, later files win)")
	flags.StringArray("set", nil, "Override a top-level value as KEY=VALUE (repeatable)")
	flags.StringP("out", "o", "", "Write output to this file instead of stdout")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigFile, "Path to strtmpl configuration file")
	addConfigFlags(rootCmd.PersistentFlags())

	addRenderFlags(renderCmd.Flags())
	rootCmd.AddCommand(&renderCmd)

	rootCmd.AddCommand(&checkCmd)
	rootCmd.AddCommand(&astCmd)
	rootCmd.AddCommand(&listCmd)

	addRenderFlags(watchCmd.Flags())
	rootCmd.AddCommand(&watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
