package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"freecrafter/internal/bootstrap"
	"freecrafter/internal/config"
	"freecrafter/internal/environ"
	"freecrafter/internal/paths"
	"freecrafter/internal/qt"
	"freecrafter/internal/runner"
)

// minFreeDisk is roughly one Qt runtime plus a build tree.
const minFreeDisk = 5 << 30

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that this machine can bootstrap FreeCrafter",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

// hostFacts is filled from gopsutil; tests replace it.
var hostFacts = func(root string) hostReport {
	var r hostReport
	r.info, r.infoErr = host.Info()
	r.memory, r.memErr = mem.VirtualMemory()
	r.disk, r.diskErr = disk.Usage(root)
	return r
}

type hostReport struct {
	info    *host.InfoStat
	infoErr error
	memory  *mem.VirtualMemoryStat
	memErr  error
	disk    *disk.UsageStat
	diskErr error
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(repoDir)
	if err != nil {
		return err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat repo dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("repository directory does not exist: %s", pp.Root)
	}

	var checks []healthCheck

	env := currentEnv()
	cfg, cfgErr := config.LoadWithEnv(pp.ConfigFile, env.Get)
	checks = append(checks, checkConfig(pp, cfg, cfgErr))
	if cfgErr != nil {
		// Everything below depends on the configured paths and interpreter.
		return writeDoctorResult(cmd, pp.Root, checks)
	}

	s, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	defer s.Close()
	b := s.bootstrap(cmd)
	ctx := cmd.Context()

	checks = append(checks, checkTool(ctx, b.Runner, s.env, "CMake", "cmake"))
	python := checkTool(ctx, b.Runner, s.env, "Python", b.Python())
	checks = append(checks, python)
	if python.Status == "ok" {
		checks = append(checks, checkHelper(ctx, b.Dependencies(bootstrap.Options{})))
	}

	checks = append(checks, checkManifest(s.paths.ManifestFile, b.Manifest()))

	m := b.Manifest()
	found, ok := b.Detector(m).Detect(ctx)
	checks = append(checks, checkQt(found, ok, m))

	checks = append(checks, checkHost(hostFacts(s.paths.Root))...)

	return writeDoctorResult(cmd, s.paths.Root, checks)
}

func checkConfig(pp paths.RepoPaths, cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}
	if ok, _ := paths.FileExists(pp.ConfigFile); !ok {
		return healthCheck{Name: "Config", Status: "ok", Summary: "no fcboot.yaml; using defaults"}
	}
	return healthCheck{
		Name:    "Config",
		Status:  "ok",
		Summary: fmt.Sprintf("fcboot.yaml (retry %d x %s)", cfg.Retry.Attempts, cfg.Retry.Delay),
	}
}

func checkTool(ctx context.Context, r runner.Runner, env environ.Environ, name, command string) healthCheck {
	res, err := r.Run(ctx, command, []string{"--version"}, runner.RunOptions{Env: env.List()})
	if res.ExitCode > 0 {
		return healthCheck{Name: name, Status: "error", Summary: fmt.Sprintf("%s --version exited %d", command, res.ExitCode)}
	}
	if err != nil {
		return healthCheck{Name: name, Status: "error", Summary: fmt.Sprintf("%s not usable: %v", command, err)}
	}
	version := firstLine(string(res.Stdout))
	if version == "" {
		// python 2 prints its version on stderr.
		version = firstLine(string(res.Stderr))
	}
	return healthCheck{Name: name, Status: "ok", Summary: nonEmptyOrDash(version)}
}

type helperResolver interface {
	Resolve(ctx context.Context) (string, bool)
}

func checkHelper(ctx context.Context, deps helperResolver) healthCheck {
	module, ok := deps.Resolve(ctx)
	if !ok {
		return healthCheck{Name: "aqtinstall", Status: "warning", Summary: "not importable; bootstrap will install it"}
	}
	return healthCheck{Name: "aqtinstall", Status: "ok", Summary: "python -m " + module}
}

func checkManifest(path string, m qt.Manifest) healthCheck {
	summary := fmt.Sprintf("Qt %s, modules %s", m.Version, joinComma(m.Modules))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return healthCheck{Name: "Manifest", Status: "warning", Summary: "missing; defaults " + summary}
	}
	return healthCheck{Name: "Manifest", Status: "ok", Summary: summary}
}

func checkQt(found qt.Detection, ok bool, m qt.Manifest) healthCheck {
	if !ok {
		return healthCheck{
			Name:    "Qt",
			Status:  "warning",
			Summary: fmt.Sprintf("not found; bootstrap will install Qt %s", m.Version),
		}
	}
	return healthCheck{Name: "Qt", Status: "ok", Summary: fmt.Sprintf("%s (%s)", found.Prefix, found.Probe)}
}

func checkHost(r hostReport) []healthCheck {
	var checks []healthCheck

	if r.infoErr != nil || r.info == nil {
		checks = append(checks, healthCheck{Name: "Host", Status: "warning", Summary: fmt.Sprintf("unavailable: %v", r.infoErr)})
	} else {
		checks = append(checks, healthCheck{
			Name:    "Host",
			Status:  "ok",
			Summary: strings.TrimSpace(fmt.Sprintf("%s %s %s", r.info.Platform, r.info.PlatformVersion, r.info.KernelArch)),
		})
	}

	if r.memErr != nil || r.memory == nil {
		checks = append(checks, healthCheck{Name: "Memory", Status: "warning", Summary: fmt.Sprintf("unavailable: %v", r.memErr)})
	} else {
		checks = append(checks, healthCheck{
			Name:    "Memory",
			Status:  "ok",
			Summary: fmt.Sprintf("%s available of %s", formatBytes(r.memory.Available), formatBytes(r.memory.Total)),
		})
	}

	switch {
	case r.diskErr != nil || r.disk == nil:
		checks = append(checks, healthCheck{Name: "Disk", Status: "warning", Summary: fmt.Sprintf("unavailable: %v", r.diskErr)})
	case r.disk.Free < minFreeDisk:
		checks = append(checks, healthCheck{
			Name:    "Disk",
			Status:  "warning",
			Summary: fmt.Sprintf("only %s free; a Qt download needs about %s", formatBytes(r.disk.Free), formatBytes(minFreeDisk)),
		})
	default:
		checks = append(checks, healthCheck{Name: "Disk", Status: "ok", Summary: formatBytes(r.disk.Free) + " free"})
	}

	return checks
}

func writeDoctorResult(cmd *cobra.Command, repoRoot string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("BOOTSTRAP HEALTH:")+" "+repoRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
