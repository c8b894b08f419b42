package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"freecrafter/internal/guard"
	"freecrafter/internal/logx"
	"freecrafter/internal/paths"
)

func newGuardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guard",
		Short: "Fail when tracked files contain personal home-directory paths",
		Args:  cobra.NoArgs,
		RunE:  runGuard,
	}
}

func runGuard(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(repoDir)
	if err != nil {
		return err
	}
	scanner := &guard.Scanner{
		Root:   pp.Root,
		Runner: newRunner(),
		Log:    logx.NewConsole(cmd.ErrOrStderr(), verbose),
	}

	findings, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("repository hygiene check could not enumerate files: %w", err)
	}

	if outputJSON {
		if findings == nil {
			findings = []guard.Finding{}
		}
		data, err := json.MarshalIndent(findings, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}
	if len(findings) == 0 {
		return nil
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintln(errOut, "Repository hygiene check failed:")
	for _, f := range findings {
		fmt.Fprintf(errOut, "  - %s\n", f)
	}
	fmt.Fprintln(errOut, "\nReplace absolute user-specific paths with repo-relative or generic examples.")
	return &exitError{code: 1}
}
