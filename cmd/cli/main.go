package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/EchoCommand/internal/bootstrap"
	"github.com/himanishpuri/EchoCommand/internal/config"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

// cliOptions holds the persistent flags shared by every command.
type cliOptions struct {
	configPath string
	mediaDir   string
	dbPath     string
	provider   string
	verbose    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "echocommand",
		Short: "Voice command game toolbox",
		Long: `echocommand works directly on an EchoCommand media directory.

Use it to inspect the instruction list, try the text normalizer, check a
recorded attempt against an instruction, merge clips and list stored clips.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("ECHO_CONFIG"), "Path to YAML config file")
	root.PersistentFlags().StringVar(&opts.mediaDir, "media", "", "Media directory (overrides config)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Clip registry database (overrides config)")
	root.PersistentFlags().StringVar(&opts.provider, "oracle", "", "Oracle provider: openai, gemini or local (overrides config)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newInstructionsCmd(opts),
		newNormalizeCmd(),
		newCheckCmd(opts),
		newMergeCmd(opts),
		newClipsCmd(opts),
	)
	return root
}

func (o *cliOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.mediaDir != "" {
		cfg.Media.Dir = o.mediaDir
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.provider != "" {
		cfg.Oracle.Provider = o.provider
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	} else if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	o.cfg = cfg
	return nil
}

func (o *cliOptions) service(ctx context.Context) (*bootstrap.Service, error) {
	log := bootstrap.NewLogger(o.cfg)
	svc, err := bootstrap.NewService(ctx, o.cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_ = logger.GetLogger().Sync()
		os.Exit(1)
	}
}
