package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"freecrafter/internal/bootstrap"
	"freecrafter/internal/qt"
)

var (
	fetchVersion      string
	fetchModules      []string
	fetchForce        bool
	fetchManifestOnly bool
)

func newFetchQtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch-qt",
		Short: "Re-pin qt/manifest.json and download the Qt runtime it names",
		Args:  cobra.NoArgs,
		RunE:  runFetchQt,
	}

	cmd.Flags().StringVar(&fetchVersion, "version", "", "Qt version to pin (default: manifest value, then "+qt.DefaultVersion+")")
	cmd.Flags().StringSliceVar(&fetchModules, "modules", nil, "Add-on modules to request; repeatable or comma separated")
	cmd.Flags().BoolVar(&fetchForce, "force", false, "Remove and re-download an existing runtime")
	cmd.Flags().BoolVar(&fetchManifestOnly, "update-manifest-only", false, "Rewrite the manifest without downloading")

	return cmd
}

func runFetchQt(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, "fetch-qt")
	if err != nil {
		return err
	}
	defer s.Close()

	b := s.bootstrap(cmd)
	refresher := &qt.Refresher{
		ManifestPath: s.paths.ManifestFile,
		QtRoot:       s.paths.QtRoot,
		Arch:         s.platform.Arch,
		Installer:    b.Installer(b.Dependencies(bootstrap.Options{})),
		Log:          s.log,
	}

	m, err := refresher.Refresh(cmd.Context(), qt.RefreshOptions{
		Version:      fetchVersion,
		Modules:      fetchModules,
		Force:        fetchForce,
		ManifestOnly: fetchManifestOnly,
	})
	if err != nil {
		s.log.Error(err.Error())
		return &exitError{code: bootstrap.ExitCode(err)}
	}

	if outputJSON {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}
	return nil
}
