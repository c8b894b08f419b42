package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"freecrafter/internal/bootstrap"
	"freecrafter/internal/bundle"
	"freecrafter/internal/tui"
)

var (
	distInstallPrefix string
	distOut           string
)

func newDistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dist",
		Short: "Archive the install prefix for distribution",
		Args:  cobra.NoArgs,
		RunE:  runDist,
	}

	cmd.Flags().StringVar(&distInstallPrefix, "install-prefix", bootstrap.DefaultInstallPrefix, "Install prefix produced by bootstrap")
	cmd.Flags().StringVar(&distOut, "out", "", "Directory to write the archive to (default: the build directory)")

	return cmd
}

func runDist(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	defer s.Close()

	src := s.paths.Abs(distInstallPrefix)
	outDir := s.paths.BuildDir
	if distOut != "" {
		outDir = s.paths.Abs(distOut)
	}

	var (
		status  *tui.StatusWriter
		onEntry bundle.EntryFunc
	)
	if tui.IsTerminal(cmd.ErrOrStderr()) {
		status = tui.NewStatusWriter(cmd.ErrOrStderr(), "Archiving "+s.paths.Rel(src))
		onEntry = status.Entry
	}
	dest, err := bundle.ArchiveWithProgress(s.platform, src, outDir, onEntry)
	if status != nil {
		status.Stop()
	}
	if err != nil {
		return err
	}
	if status != nil {
		files, size := status.Counts()
		s.log.Debugf("Archived %d files (%d bytes)", files, size)
	}

	if outputJSON {
		data, err := json.MarshalIndent(map[string]string{"archive": dest}, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	s.log.Infof("Wrote %s", dest)
	return nil
}
