package cli

import (
	"github.com/spf13/cobra"

	"github.com/metal-test/metal/internal/constants"
)

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var (
		src    sourceFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate <binary>",
		Short: "Generate the serial info bundle of an instrumented binary",
		Long: `Read the marker symbols and line tables of the binary, preprocess
the compile units that define them and write the correlated bundle as JSON.

The bundle can be passed to 'metal-serial interpret' to decode a recorded
stream without the sources.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			cfg.Binary = args[0]
			src.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(true); err != nil {
				return err
			}
			logger := newLogger(cfg)

			macros := withExtraMacros(constants.KnownMacros, cfg.Source.Macros)
			info, err := generate(cmd.Context(), cfg, macros, logger)
			if err != nil {
				return err
			}
			if output == "-" {
				return info.Encode(cmd.OutOrStdout())
			}
			if err := info.Save(output); err != nil {
				return err
			}
			cmd.Printf("Wrote %d markers to %s\n", len(info.Markers), output)
			return nil
		},
	}
	src.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "serial-info.json", "Output file, - for stdout")
	return cmd
}
