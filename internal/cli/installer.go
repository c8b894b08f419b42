package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"freecrafter/internal/paths"
	"freecrafter/internal/tui"
)

var (
	installerOffline    bool
	installerWheelCache string
)

const installerTitle = "FreeCrafter Installer"

func newInstallerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installer",
		Short: "Run bootstrap in an interactive installer window",
		Args:  cobra.NoArgs,
		RunE:  runInstaller,
	}

	cmd.Flags().BoolVar(&installerOffline, "offline", false, "Forward --offline to bootstrap")
	cmd.Flags().StringVar(&installerWheelCache, "wheel-cache", "", "Forward --wheel-cache to bootstrap")

	return cmd
}

// installerProcess describes the bootstrap child for the repo at root.
func installerProcess(self, root string) tui.Process {
	args := []string{"bootstrap", "--repo", root}
	if installerOffline {
		args = append(args, "--offline")
	}
	if installerWheelCache != "" {
		args = append(args, "--wheel-cache", installerWheelCache)
	}
	return tui.Process{Command: self, Args: args, Dir: root}
}

func runInstaller(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(repoDir)
	if err != nil {
		return err
	}
	self, err := executable()
	if err != nil {
		return fmt.Errorf("locate fcboot executable: %w", err)
	}
	proc := installerProcess(self, pp.Root)

	var code int
	if tui.DetectMode(cmd.OutOrStdout(), outputJSON) == tui.ModeTUI {
		model := tui.NewInstallerModel(installerTitle, func(events chan<- tea.Msg) error {
			return tui.Start(proc, events)
		})
		code, err = tui.RunInstaller(stdin, cmd.OutOrStdout(), model)
		if err != nil {
			return err
		}
	} else {
		code, err = runInstallerPlain(cmd, proc)
		if err != nil {
			return err
		}
	}

	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// runInstallerPlain runs the child once without a window, relaying its output
// line by line.
func runInstallerPlain(cmd *cobra.Command, proc tui.Process) (int, error) {
	events := make(chan tea.Msg, 256)
	if err := tui.Start(proc, events); err != nil {
		return 1, err
	}
	code := tui.Drain(events, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if code == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Install complete.")
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Install failed with code %d\n", code)
	}
	return code, nil
}
