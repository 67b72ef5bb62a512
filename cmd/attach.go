package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"massattach/attacher"
	"massattach/logging"
	"massattach/metrics"
)

var (
	attachAllows          []string
	attachDenies          []string
	attachMaxFuncCnt      uint32
	attachMaxFilenoRlimit uint64
	attachVerbose         bool
	attachDebug           bool
	attachDebugExtra      bool
	attachSkipRlimits     bool
	attachPolicyFile      string
)

var attachCmd = &cobra.Command{
	Use:   "attach <object-file>",
	Short: "Attach fentry/fexit tracers to every traceable kernel function matching the given rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttach,
}

func init() {
	attachCmd.Flags().StringArrayVar(&attachAllows, "allow", nil, "glob pattern to allow (repeatable)")
	attachCmd.Flags().StringArrayVar(&attachDenies, "deny", nil, "glob pattern to deny (repeatable)")
	attachCmd.Flags().Uint32Var(&attachMaxFuncCnt, "max-func-cnt", 0, "cap on the number of accepted functions (0 = unlimited)")
	attachCmd.Flags().Uint64Var(&attachMaxFilenoRlimit, "max-fileno-rlimit", 0, "open-files rlimit to raise to (0 = 300000)")
	attachCmd.Flags().BoolVar(&attachVerbose, "verbose", false, "log functions skipped for a missing kernel symbol, an untraceable name or an ABI mismatch")
	attachCmd.Flags().BoolVar(&attachDebug, "debug", false, "keep prototype programs loaded for verifier inspection; implies verbose")
	attachCmd.Flags().BoolVar(&attachDebugExtra, "debug-extra", false, "log a per-glob match-count summary after planning")
	attachCmd.Flags().BoolVar(&attachSkipRlimits, "skip-rlimits", false, "do not raise memlock/open-files rlimits")
	attachCmd.Flags().StringVar(&attachPolicyFile, "policy-file", "", "YAML file of allow/deny rules, applied before the --allow/--deny flags")

	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	objectPath := args[0]
	log := logging.Default()

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		return err
	}

	opts := attacher.Options{
		MaxFuncCnt:      attachMaxFuncCnt,
		MaxFilenoRlimit: attachMaxFilenoRlimit,
		Verbose:         attachVerbose,
		Debug:           attachDebug,
		DebugExtra:      attachDebugExtra,
		SkipRlimits:     attachSkipRlimits,
		PolicyFile:      attachPolicyFile,
		Metrics:         recorder,
	}

	a, err := attacher.New(objectPath, opts, log)
	if err != nil {
		return err
	}
	defer a.Free()

	for _, pattern := range attachAllows {
		if err := a.AllowGlob(pattern); err != nil {
			return err
		}
	}
	for _, pattern := range attachDenies {
		if err := a.DenyGlob(pattern); err != nil {
			return err
		}
	}

	useColor := isatty.IsTerminal(os.Stdout.Fd())

	printPhase("prepare", useColor)
	if err := a.Prepare(); err != nil {
		return err
	}
	fmt.Printf("planned %d functions (%d skipped)\n", a.FuncCount(), a.SkippedCount())

	var bar *progressbar.ProgressBar
	a.SetProgress(func(done, total int) {
		_ = bar.Set(done)
	})

	printPhase("load", useColor)
	bar = progressbar.NewOptions(a.FuncCount(),
		progressbar.OptionSetDescription("cloning programs"),
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionClearOnFinish(),
	)
	if err := a.Load(); err != nil {
		return err
	}
	_ = bar.Finish()

	printPhase("attach", useColor)
	bar = progressbar.NewOptions(a.FuncCount(),
		progressbar.OptionSetDescription("attaching programs"),
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionClearOnFinish(),
	)
	failed, err := a.Attach()
	if err != nil {
		return err
	}
	_ = bar.Finish()
	if failed > 0 {
		warnf(useColor, "%d of %d functions failed to attach; continuing\n", failed, a.FuncCount())
	}

	printPhase("activate", useColor)
	if err := a.Activate(); err != nil {
		return err
	}

	okf(useColor, "tracing live on %d functions\n", a.FuncCount())
	return nil
}

func printPhase(name string, useColor bool) {
	if useColor {
		fmt.Println(color.CyanString("==> %s", name))
		return
	}
	fmt.Printf("==> %s\n", name)
}

func warnf(useColor bool, format string, args ...any) {
	if useColor {
		fmt.Print(color.YellowString(format, args...))
		return
	}
	fmt.Printf(format, args...)
}

func okf(useColor bool, format string, args ...any) {
	if useColor {
		fmt.Print(color.GreenString(format, args...))
		return
	}
	fmt.Printf(format, args...)
}
