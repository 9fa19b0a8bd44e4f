// Package cli implements the metal-serial command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/metal-test/metal/pkg/version"
)

// ExitCodeError carries a non-zero target exit code to the process exit status.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("target exited with code %d", e.Code)
}

type globalFlags struct {
	config   string
	logLevel string
	noPretty bool
}

// NewRootCmd builds the metal-serial command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "metal-serial",
		Short: "Host side of the metal-serial target protocol",
		Long: `Run instrumented targets and serve their metal-serial requests.

The target reports code locations over a byte stream (process pipes,
a pty, a serial line or a TCP bridge). metal-serial maps each location
back to the instrumentation macro that emitted it and dispatches it to
a hook: argv injection, newlib syscalls, unit test reports or CppUTest output.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.config, "config", "", "Run configuration file (default ./metal-serial.yaml)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&g.noPretty, "log-json", false, "Log JSON lines instead of console output")

	cmd.AddCommand(newGenerateCmd(g))
	cmd.AddCommand(newRunCmd(g))
	cmd.AddCommand(newInterpretCmd(g))
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.String())
		},
	}
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
