package main

import (
	"os"
	"os/signal"
	"syscall"

	"anexis/bundler/build"
	"anexis/bundler/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// exit terminates the process once the bundle outcome is known.
var exit = os.Exit

var (
	opts options

	rootCmd = &cobra.Command{
		Use:   "bundle-runtime",
		Short: "Bundle src/runtime/index.js into dist/runtime/index.js",
		Long: `Bundles the server runtime entry module into a single CommonJS file for
Node. Installed packages under node_modules stay external and are required at
runtime. Exits 0 when the bundle was written and 1 otherwise.

Every flag is optional; without any the hardcoded job runs. Flags override
RUNTIME_BUNDLE_* environment variables (a .env file is read too), which
override the --config YAML file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBundle,
	}
)

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.root, "root", ".", "project root every relative path resolves against")
	pf.StringVarP(&opts.config, "config", "c", "", "YAML file overriding the job configuration")
	pf.StringVar(&opts.entry, "entry", build.DefaultEntry, "entry module")
	pf.StringVar(&opts.outDir, "out-dir", build.DefaultOutDir, "output directory")
	pf.StringVar(&opts.outFile, "out-file", build.DefaultOutFile, "artifact path inside the output directory")
	pf.StringVar(&opts.metafile, "metafile", "", "also write esbuild's metafile to this path")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "give up on the build after this long (0 waits forever)")
	rootCmd.Flags().BoolVar(&opts.analyze, "analyze", false, "print the bundle size breakdown after a successful build")
	rootCmd.Flags().BoolVar(&opts.analyzeAll, "analyze-all", false, "like --analyze but list every module")

	rootCmd.AddCommand(watchCmd)
}

func runBundle(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd.Flags().Changed, &opts, os.Environ(), ".env")
	if err != nil {
		return abortJob(cmd, err)
	}
	logger, err := utils.NewLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), s.LogLevel)
	if err != nil {
		return abortJob(cmd, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := &build.Orchestrator{
		Config: s.Config,
		Engine: &build.EsbuildEngine{Color: stderrIsTerminal()},
		Logger: logger,
		Exit:   exit,
	}
	if s.Analyze {
		orch.OnSuccess = func(stats *build.Stats) {
			result, err := build.Analyze(stats.Metafile, s.Config.Root)
			if err != nil {
				logger.Warnf("bundle analysis unavailable: %v", err)
				return
			}
			build.DisplayAnalysis(cmd.OutOrStdout(), result, s.AnalyzeAll)
		}
	}
	logger.WithField("entry", s.Config.EntryPath()).Debug("job configured")

	orch.Run(ctx)
	return nil
}

// abortJob reports a job that could not be configured the same way as a
// failed build: start notice, error detail, failure notice, exit 1.
func abortJob(cmd *cobra.Command, err error) error {
	logger, logErr := utils.NewLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), "info")
	if logErr != nil {
		return err
	}
	logger.Info(build.MsgStart)
	logger.Error(err)
	logger.Error(build.MsgFailed)
	exit(build.Failed.ExitCode())
	return nil
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
