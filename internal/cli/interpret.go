package cli

import (
	"github.com/spf13/cobra"

	"github.com/metal-test/metal/internal/errors"
	"github.com/metal-test/metal/internal/serialinfo"
	"github.com/metal-test/metal/internal/session"
	"github.com/metal-test/metal/internal/transport"
)

func newInterpretCmd(g *globalFlags) *cobra.Command {
	var (
		infoPath string
		input    string
		output   string
		hooks    hookFlags
	)

	cmd := &cobra.Command{
		Use:   "interpret",
		Short: "Decode a recorded or piped target stream",
		Long: `Serve a target stream read from a file (or stdin) using a serial info
bundle written by 'metal-serial generate'. Replies are written to the output
file, or discarded when none is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			hooks.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(false); err != nil {
				return err
			}
			logger := newLogger(cfg)

			info, err := serialinfo.Load(infoPath)
			if err != nil {
				return err
			}
			set, err := buildHooks(cmd, cfg, cfg.Args, logger)
			if err != nil {
				return err
			}
			defer errors.DeferClose(logger, set, "Failed to close report files")

			stream, err := transport.OpenFiles(input, output)
			if err != nil {
				return err
			}
			s, err := session.New(cmd.Context(), info, stream, set.registry, logger)
			if err != nil {
				return err
			}
			code, err := s.Run()
			if err != nil {
				return err
			}
			return exitStatus(code)
		},
	}
	cmd.Flags().StringVarP(&infoPath, "serial-info", "S", "", "Serial info bundle (required)")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Recorded target output, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File receiving the host replies")
	hooks.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("serial-info")
	return cmd
}
