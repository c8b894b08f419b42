package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"freecrafter/internal/bootstrap"
)

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap [--offline] [--wheel-cache DIR] [--ci] [--install-prefix DIR]",
		Short: "Find or install Qt, then configure, build and install FreeCrafter",
		Long: `Find or install Qt, then configure, build and install FreeCrafter.

Flags:
      --offline               Reuse an existing Qt tree and wheel cache without network access
      --wheel-cache DIR       Directory of pre-downloaded wheels for offline mode
      --ci                    Configure only with a Release build type and skip deployment
      --install-prefix DIR    Install destination (default "dist")

Unknown arguments are reported and ignored.`,
		// Parsed by parseBootstrapArgs so unrecognised flags can be tolerated.
		DisableFlagParsing: true,
		RunE:               runBootstrap,
	}
}

type bootstrapArgs struct {
	opts    bootstrap.Options
	repo    string
	verbose bool
	help    bool
	ignored []string
}

func parseBootstrapArgs(args []string) (bootstrapArgs, error) {
	var parsed bootstrapArgs

	fs := pflag.NewFlagSet("bootstrap", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.BoolVar(&parsed.opts.Offline, "offline", false, "")
	fs.StringVar(&parsed.opts.WheelCache, "wheel-cache", "", "")
	fs.BoolVar(&parsed.opts.CI, "ci", false, "")
	fs.StringVar(&parsed.opts.InstallPrefix, "install-prefix", bootstrap.DefaultInstallPrefix, "")
	fs.StringVar(&parsed.repo, "repo", "", "")
	fs.BoolVarP(&parsed.verbose, "verbose", "v", false, "")
	fs.BoolVar(&outputJSON, "json", false, "")
	fs.BoolVarP(&parsed.help, "help", "h", false, "")

	parsed.ignored = unknownFlags(fs, args)
	if err := fs.Parse(args); err != nil {
		return parsed, err
	}
	parsed.ignored = append(parsed.ignored, fs.Args()...)
	return parsed, nil
}

// unknownFlags lists the flag tokens in args that fs does not define.
func unknownFlags(fs *pflag.FlagSet, args []string) []string {
	var unknown []string
	for _, arg := range args {
		if arg == "--" {
			break
		}
		switch {
		case strings.HasPrefix(arg, "--"):
			name, _, _ := strings.Cut(arg[2:], "=")
			if fs.Lookup(name) == nil {
				unknown = append(unknown, arg)
			}
		case len(arg) > 1 && arg[0] == '-':
			if fs.ShorthandLookup(arg[1:2]) == nil {
				unknown = append(unknown, arg)
			}
		}
	}
	return unknown
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	parsed, err := parseBootstrapArgs(args)
	if err != nil {
		return err
	}
	if parsed.help {
		return cmd.Help()
	}
	if parsed.repo != "" {
		repoDir = parsed.repo
	}
	if parsed.verbose {
		verbose = true
	}

	s, err := openSession(cmd, "bootstrap")
	if err != nil {
		return err
	}
	defer s.Close()

	if len(parsed.ignored) > 0 {
		s.log.Warnf("Ignoring unknown arguments: %s", strings.Join(parsed.ignored, " "))
	}

	if err := s.bootstrap(cmd).Run(cmd.Context(), parsed.opts); err != nil {
		s.log.Error(err.Error())
		return &exitError{code: bootstrap.ExitCode(err)}
	}
	if parsed.opts.CI {
		s.log.Info("Configure complete.")
	} else {
		s.log.Infof("Build complete. Run the executable in the '%s' directory.", s.paths.Rel(s.paths.BuildDir))
	}
	return nil
}
