package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	repoDir    string
	outputJSON bool
	verbose    bool
)

// exitError carries a process exit status out of a command whose failure was
// already reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root cobra command and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, newRootCmd(), os.Args[1:])
}

func run(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	return 1
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fcboot",
		Short:         "FreeCrafter Qt bootstrap and build tooling",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&repoDir, "repo", "", "Path to the FreeCrafter checkout (default: working directory)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newBootstrapCmd())
	cmd.AddCommand(newFetchQtCmd())
	cmd.AddCommand(newDetectCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newGuardCmd())
	cmd.AddCommand(newInstallerCmd())
	cmd.AddCommand(newDistCmd())

	return cmd
}
