package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"freecrafter/internal/tui"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Report which Qt prefix bootstrap would use",
		Args:  cobra.NoArgs,
		RunE:  runDetect,
	}
}

type detectResult struct {
	Found      bool   `json:"found"`
	Prefix     string `json:"prefix,omitempty"`
	Probe      string `json:"probe,omitempty"`
	Version    string `json:"manifest_version"`
	InstallDir string `json:"install_dir"`
}

// runDetect exits 1 when no prefix is found so scripts can branch on it.
func runDetect(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	defer s.Close()

	b := s.bootstrap(cmd)
	m := b.Manifest()
	detector := b.Detector(m)
	found, ok := detector.Detect(cmd.Context())

	result := detectResult{
		Found:      ok,
		Prefix:     found.Prefix,
		Probe:      found.Probe,
		Version:    m.Version,
		InstallDir: detector.InstallDir,
	}
	if err := writeDetectResult(cmd, result); err != nil {
		return err
	}
	if !ok {
		return &exitError{code: 1}
	}
	return nil
}

func writeDetectResult(cmd *cobra.Command, r detectResult) error {
	out := cmd.OutOrStdout()
	if outputJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	label := lipgloss.NewStyle().Bold(true).Inline(true)
	fmt.Fprintln(out, tui.HeaderStyle.Render("Qt detection"))
	if r.Found {
		fmt.Fprintf(out, "  %s %s\n", label.Render("Status:"), tui.StatusStyle("found").Render("found"))
	} else {
		fmt.Fprintf(out, "  %s %s\n", label.Render("Status:"), tui.StatusStyle("missing").Render("not found"))
	}
	fmt.Fprintf(out, "  %s %s\n", label.Render("Probe:"), nonEmptyOrDash(r.Probe))
	fmt.Fprintf(out, "  %s %s\n", label.Render("Prefix:"), nonEmptyOrDash(r.Prefix))
	fmt.Fprintf(out, "  %s Qt %s at %s\n", label.Render("Pinned:"), r.Version, r.InstallDir)
	return nil
}
