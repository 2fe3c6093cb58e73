// Package commands implements the docmill command line interface.
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docmill-ai/docmill/internal/config"
	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/observability"
	"github.com/docmill-ai/docmill/internal/pipeline"
	"github.com/docmill-ai/docmill/internal/ui"
)

var (
	cfgFile    string
	verbose    bool
	runAll     bool
	runConvert bool
	runSetupDB bool
	runProcess bool
	showConfig bool
	noTimer    bool
)

var rootCmd = &cobra.Command{
	Use:   "docmill",
	Short: "Convert, index, and summarize a directory of PDF documents",
	Long: `docmill is a batch pipeline over a local document set. It converts PDFs
to markdown with extracted images, chunks and embeds the markdown into a
persistent vector store, and generates English and Chinese summaries of the
whole corpus with a hosted LLM provider.

Stages run independently or together; re-running a stage skips work whose
output already exists. A failure in one document never aborts the batch.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVar(&runAll, "all", false, "run convert, index, and summarize in order")
	rootCmd.Flags().BoolVar(&runConvert, "convert", false, "convert input PDFs to markdown")
	rootCmd.Flags().BoolVar(&runSetupDB, "setup-db", false, "chunk, embed, and persist the converted markdown")
	rootCmd.Flags().BoolVar(&runProcess, "process", false, "generate the English and Chinese summaries")
	rootCmd.Flags().BoolVar(&showConfig, "config", false, "print the resolved configuration and exit")
	rootCmd.Flags().BoolVar(&noTimer, "no-timer", false, "suppress interval progress reports")
	rootCmd.Flags().StringVarP(&cfgFile, "config-file", "c", "", "optional YAML configuration file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if showConfig {
		fmt.Fprint(cmd.OutOrStdout(), cfg.Describe())
		return nil
	}

	stages := selectStages(runAll, runConvert, runSetupDB, runProcess)
	if !stages.Any() {
		return cmd.Help()
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	log := observability.NewLogger(observability.LogConfig{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		ServiceName:  "docmill",
		ErrorLogPath: cfg.Paths.ErrorLogPath(),
	})
	defer log.Close()

	for _, warning := range cfg.ProviderWarnings() {
		ui.Warning("%s", warning)
	}
	warnEmptyInput(cfg)

	var provider config.Provider
	if stages.Summarize {
		provider, err = resolveProvider(cfg)
		if err != nil {
			ui.Error("%v", err)
			return err
		}
		ui.Info("using LLM provider %s (%s)", provider, cfg.ProviderSettings(provider).Model)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Build(ctx, pipeline.BuildConfig{
		Config:   cfg,
		Provider: provider,
		Stages:   stages,
		Logger:   log,
		NoTimer:  noTimer,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	reports, runErr := p.Run(ctx)

	for _, report := range reports {
		if report.Failed > 0 {
			ui.Warning("%s", report)
		} else {
			ui.Success("%s", report)
		}
	}
	if runErr != nil {
		ui.Error("pipeline finished with failures, see %s", cfg.Paths.ErrorLogPath())
		return runErr
	}
	return nil
}

// selectStages maps the CLI flags to a stage selection. --all overrides the
// individual stage flags.
func selectStages(all, convert, setupDB, process bool) pipeline.Stages {
	if all {
		return pipeline.Stages{Convert: true, Index: true, Summarize: true}
	}
	return pipeline.Stages{Convert: convert, Index: setupDB, Summarize: process}
}

// resolveProvider picks the LLM provider for this run. A forced PROVIDER is
// honored, a single configured provider is used as is, and a multi-provider
// setup asks interactively when a terminal is attached.
func resolveProvider(cfg *config.Config) (config.Provider, error) {
	if cfg.Provider != "" {
		provider, err := cfg.ResolveProvider()
		if err != nil {
			return "", domain.ConfigError("requested provider is not usable", err)
		}
		return provider, nil
	}

	configured := cfg.ConfiguredProviders()
	if len(configured) == 0 {
		return "", domain.ConfigError(
			"no API keys configured: set OPENAI_API_KEY, GROK_API_KEY, or ANTHROPIC_API_KEY", nil)
	}
	if len(configured) == 1 || !ui.IsInteractive() {
		return configured[0], nil
	}

	options := make([]string, len(configured))
	for i, p := range configured {
		options[i] = fmt.Sprintf("%s (%s)", p, cfg.ProviderSettings(p).Model)
	}
	idx := ui.SelectOption("Multiple LLM providers are configured. Which one should generate the summaries?", options)
	return configured[idx], nil
}

// warnEmptyInput notes an input directory without PDFs. The stages treat an
// empty corpus as a no-op, so this is a console hint rather than an error.
func warnEmptyInput(cfg *config.Config) {
	pdfs, err := filepath.Glob(filepath.Join(cfg.Paths.InputDir, "*.pdf"))
	if err == nil && len(pdfs) == 0 {
		ui.Warning("no PDF files found in %s", cfg.Paths.InputDir)
	}
}
