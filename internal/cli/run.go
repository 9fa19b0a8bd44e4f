package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/metal-test/metal/internal/config"
	"github.com/metal-test/metal/internal/constants"
	merrors "github.com/metal-test/metal/internal/errors"
	"github.com/metal-test/metal/internal/session"
	"github.com/metal-test/metal/internal/transport"
)

// transportFlags override the transport settings of the configuration.
type transportFlags struct {
	kind    string
	device  string
	baud    int
	address string
	pty     bool
}

func (t *transportFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&t.kind, "transport", "t", constants.DefaultTransport, "Stream to the target (process, serial, tcp)")
	fs.StringVar(&t.device, "device", "", "Serial device for the serial transport")
	fs.IntVar(&t.baud, "baud", constants.DefaultBaudRate, "Baud rate for the serial transport")
	fs.StringVar(&t.address, "address", "", "host:port for the tcp transport")
	fs.BoolVar(&t.pty, "pty", false, "Run the target process on a pseudo terminal")
}

func (t *transportFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Transport.Kind = t.kind
		case "device":
			cfg.Transport.Device = t.device
		case "baud":
			cfg.Transport.Baud = t.baud
		case "address":
			cfg.Transport.Address = t.address
		case "pty":
			cfg.Transport.PTY = t.pty
		}
	})
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		src   sourceFlags
		tr    transportFlags
		hooks hookFlags
	)

	cmd := &cobra.Command{
		Use:   "run [binary] [-- args...]",
		Short: "Run an instrumented target and serve its requests",
		Long: `Generate (or load from cache) the serial info of the binary, start the
target on the configured transport and serve it until it exits.

Arguments after -- are handed to the target through METAL_SERIAL_INIT_ARGV,
with the binary name as argv[0]. metal-serial exits with the target's code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				cfg.Args = args[dash:]
				args = args[:dash]
			}
			if len(args) > 1 {
				return fmt.Errorf("expected one binary, got %d", len(args))
			}
			if len(args) == 1 {
				cfg.Binary = args[0]
			}
			src.apply(cmd.Flags(), cfg)
			tr.apply(cmd.Flags(), cfg)
			hooks.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(true); err != nil {
				return err
			}
			if cfg.Transport.Kind == constants.TransportFiles {
				return errors.New("use 'metal-serial interpret' for recorded streams")
			}

			code, err := runTarget(cmd, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			return exitStatus(code)
		},
	}
	src.register(cmd.Flags())
	tr.register(cmd.Flags())
	hooks.register(cmd.Flags())
	return cmd
}

func runTarget(cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger) (int, error) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	argv := append([]string{filepath.Base(cfg.Binary)}, cfg.Args...)
	set, err := buildHooks(cmd, cfg, argv, logger)
	if err != nil {
		return 0, err
	}
	defer merrors.DeferClose(logger, set, "Failed to close report files")

	info, err := generate(ctx, cfg, withExtraMacros(set.registry.Macros(), cfg.Source.Macros), logger)
	if err != nil {
		return 0, err
	}

	stream, wait, err := openStream(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}

	s, err := session.New(ctx, info, stream, set.registry, logger)
	if err != nil {
		cancel()
		if wait != nil {
			_, _ = wait()
		}
		return 0, err
	}
	code, runErr := s.Run()
	if runErr != nil {
		// The target may still be blocked on a reply.
		cancel()
	}
	if wait != nil {
		status, err := wait()
		if err != nil && runErr == nil {
			return 0, err
		}
		if runErr == nil && status != 0 {
			logger.Debug().Int("status", status).Int("code", code).Msg("Process status differs from reported exit code")
		}
	}
	if runErr != nil {
		return 0, runErr
	}
	return code, nil
}

// openStream connects to the target. wait is set for process targets.
func openStream(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (io.ReadWriteCloser, func() (int, error), error) {
	switch cfg.Transport.Kind {
	case constants.TransportProcess:
		p, err := transport.StartProcess(ctx, transport.Options{
			Path:   cfg.Binary,
			PTY:    cfg.Transport.PTY,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p.Wait, nil
	case constants.TransportSerial:
		s, err := transport.OpenSerial(cfg.Transport.Device, cfg.Transport.Baud)
		return s, nil, err
	case constants.TransportTCP:
		s, err := transport.DialTCP(ctx, cfg.Transport.Address)
		return s, nil, err
	}
	return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
}
