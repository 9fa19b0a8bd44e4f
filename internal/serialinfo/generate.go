package serialinfo

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/metal-test/metal/internal/preprocessor"
	"github.com/metal-test/metal/internal/symbols"
)

// GenerateOptions configures bundle generation.
type GenerateOptions struct {
	Binary   string
	Includes []string
	Defines  []string
	Macros   []string
	Logger   zerolog.Logger
	// Cache, when set, is consulted before preprocessing and updated after.
	Cache *Cache
	// Jobs bounds how many compile units are preprocessed at once.
	Jobs int
}

// Generate reads the binary, preprocesses every compile unit contributing
// markers and correlates the two.
func Generate(ctx context.Context, opts GenerateOptions) (*Info, error) {
	logger := opts.Logger.With().Str("component", "serialinfo").Logger()

	table, err := symbols.Read(opts.Binary, opts.Logger)
	if err != nil {
		return nil, err
	}
	units := markerUnits(table, logger)

	var key string
	if opts.Cache != nil {
		key, err = Fingerprint(opts, units)
		if err != nil {
			return nil, err
		}
		if info, ok := opts.Cache.Load(key); ok {
			logger.Debug().Str("key", key).Msg("Using cached bundle")
			return info, nil
		}
	}

	exps, err := preprocessUnits(ctx, opts, units)
	if err != nil {
		return nil, err
	}
	info, err := New(table, Merge(exps...))
	if err != nil {
		return nil, err
	}

	if opts.Cache != nil {
		if err := opts.Cache.Store(key, info); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache bundle")
		}
	}

	logger.Info().
		Str("binary", opts.Binary).
		Int("markers", len(info.Markers)).
		Int("expansions", len(info.Expansions)).
		Msg("Generated serial info")
	return info, nil
}

// markerUnits returns the compile units whose line programs mention a
// file that holds a marker and whose sources are present.
func markerUnits(table *symbols.Table, logger zerolog.Logger) []symbols.CompileUnit {
	files := make(map[string]struct{})
	for _, f := range table.MarkerFiles() {
		files[f] = struct{}{}
	}

	var units []symbols.CompileUnit
	for _, cu := range table.CompileUnits {
		relevant := false
		if _, ok := files[cu.Path()]; ok {
			relevant = true
		}
		for _, f := range cu.Files {
			if _, ok := files[f]; ok {
				relevant = true
				break
			}
		}
		if !relevant {
			continue
		}
		if _, err := os.Stat(cu.Path()); err != nil {
			logger.Warn().Str("source", cu.Path()).Err(err).Msg("Compile unit source unavailable")
			continue
		}
		units = append(units, cu)
	}
	return units
}

func preprocessUnits(ctx context.Context, opts GenerateOptions, units []symbols.CompileUnit) ([][]preprocessor.MacroExpansion, error) {
	results := make([][]preprocessor.MacroExpansion, len(units))

	g, ctx := errgroup.WithContext(ctx)
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(jobs)

	for i, cu := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pp := preprocessor.New(preprocessor.Options{
				Includes: opts.Includes,
				Defines:  opts.Defines,
				Macros:   opts.Macros,
				Logger:   opts.Logger,
			})
			exps, err := pp.Process(cu.Path())
			if err != nil {
				return fmt.Errorf("failed to preprocess %s: %w", cu.Path(), err)
			}
			results[i] = exps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
