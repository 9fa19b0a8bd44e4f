package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/metal-test/metal/internal/config"
	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/cpputest"
	"github.com/metal-test/metal/internal/errors"
	"github.com/metal-test/metal/internal/hook"
	"github.com/metal-test/metal/internal/logging"
	"github.com/metal-test/metal/internal/newlib"
	"github.com/metal-test/metal/internal/serialinfo"
	"github.com/metal-test/metal/internal/unit"
)

// sourceFlags are the preprocessing flags shared by generate and run.
type sourceFlags struct {
	includes []string
	defines  []string
	macros   []string
	noCache  bool
}

func (s *sourceFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&s.includes, "include", "I", nil, "Include search path (repeatable)")
	fs.StringSliceVarP(&s.defines, "define", "D", nil, "Predefined macro NAME[=VALUE] (repeatable)")
	fs.StringSliceVarP(&s.macros, "macro", "M", nil, "Additional macro to track (repeatable)")
	fs.BoolVar(&s.noCache, "no-cache", false, "Regenerate serial info even when cached")
}

// apply copies the flags the user set over cfg.
func (s *sourceFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "include":
			cfg.Source.Includes = append(cfg.Source.Includes, s.includes...)
		case "define":
			cfg.Source.Defines = append(cfg.Source.Defines, s.defines...)
		case "macro":
			cfg.Source.Macros = append(cfg.Source.Macros, s.macros...)
		case "no-cache":
			cfg.Cache.Enabled = !s.noCache
		}
	})
}

// hookFlags override the hook settings of the configuration.
type hookFlags struct {
	newlibMode string
	printLevel string
	reportJSON string
	color      bool
	cpputest   bool
}

func (h *hookFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&h.newlibMode, "newlib", constants.DefaultNewlibMode, "Syscall bridge mode (full, unchecked, buffered, blocked)")
	fs.StringVar(&h.printLevel, "print-level", constants.DefaultPrintLevel, "Unit report verbosity (all, warning, error)")
	fs.StringVar(&h.reportJSON, "report-json", "", "Write the unit report tree as JSON to this file")
	fs.BoolVar(&h.color, "color", false, "Colour unit report output")
	fs.BoolVar(&h.cpputest, "cpputest", false, "Bridge CppUTest output")
}

func (h *hookFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "newlib":
			cfg.Newlib.Mode = h.newlibMode
		case "print-level":
			cfg.Reporter.Level = h.printLevel
		case "report-json":
			cfg.Reporter.JSON = h.reportJSON
		case "color":
			cfg.Reporter.Color = h.color
		case "cpputest":
			cfg.CppUTest.Enabled = h.cpputest
		}
	})
}

func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.NewLoader().Load(g.config)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.noPretty {
		cfg.Log.Pretty = false
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Pretty = cfg.Log.Pretty
	return logging.New(lc)
}

// hookSet is the registry for one run and the files its hooks write to.
type hookSet struct {
	registry *hook.Registry
	closers  []io.Closer
}

func (h *hookSet) Close() error {
	return errors.CloseAll(h.closers...)
}

// buildHooks registers the hooks enabled in cfg. argv is handed to the
// target as its command line.
func buildHooks(cmd *cobra.Command, cfg *config.Config, argv []string, logger zerolog.Logger) (*hookSet, error) {
	set := &hookSet{}
	hooks := []hook.Hook{hook.NewArgv(argv, logger)}

	if cfg.Newlib.Enabled {
		nc, err := newlib.ConfigForMode(cfg.Newlib.Mode)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, newlib.New(newlib.NewHostOS(), nc, logger))
	}

	if cfg.Reporter.Enabled {
		level, err := unit.ParsePrintLevel(cfg.Reporter.Level)
		if err != nil {
			return nil, err
		}
		opts := unit.ReporterOptions{
			Output:     cmd.OutOrStdout(),
			PrintLevel: level,
			Color:      cfg.Reporter.Color,
		}
		if cfg.Reporter.JSON != "" {
			f, err := os.Create(cfg.Reporter.JSON)
			if err != nil {
				return nil, fmt.Errorf("failed to create report file: %w", err)
			}
			set.closers = append(set.closers, f)
			opts.JSON = f
		}
		hooks = append(hooks, unit.NewHook(unit.NewReporter(opts)))
	}

	if cfg.CppUTest.Enabled {
		hooks = append(hooks, cpputest.NewHook(cpputest.NewLogOutput(logger)))
	}

	registry, err := hook.NewRegistry(hooks...)
	if err != nil {
		_ = set.Close()
		return nil, err
	}
	set.registry = registry
	return set, nil
}

// withExtraMacros appends the extra macro names not already in base.
func withExtraMacros(base, extra []string) []string {
	macros := slices.Clone(base)
	for _, m := range extra {
		if !slices.Contains(macros, m) {
			macros = append(macros, m)
		}
	}
	return macros
}

func generate(ctx context.Context, cfg *config.Config, macros []string, logger zerolog.Logger) (*serialinfo.Info, error) {
	opts := serialinfo.GenerateOptions{
		Binary:   cfg.Binary,
		Includes: cfg.Source.Includes,
		Defines:  cfg.Source.Defines,
		Macros:   macros,
		Logger:   logger,
	}
	if cfg.Cache.Enabled {
		opts.Cache = serialinfo.NewCache(cfg.Cache.Dir, logger)
	}
	return serialinfo.Generate(ctx, opts)
}

// exitStatus turns a target exit code into the command result.
func exitStatus(code int) error {
	if code != 0 {
		return &ExitCodeError{Code: code}
	}
	return nil
}
