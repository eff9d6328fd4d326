package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/docforge/internal/app"
	"github.com/cuongbtq/docforge/internal/config"
	"github.com/cuongbtq/docforge/shared/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "docforge: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docforge",
		Short: "Convert documents to PDF and extract content from PDFs",
		Long: `docforge converts images, office documents and web pages to PDF, and extracts
text, tables and images from PDFs, using the same backends as the API service.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("DOCFORGE_CONFIG_PATH"), "Configuration file (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.AddCommand(
		newConvertCmd(opts),
		newExtractCmd(opts),
		newBackendsCmd(opts),
	)
	return cmd
}

// setup loads the configuration and assembles the services for one command
func (o *rootOptions) setup() (*config.Config, *app.Services, func(), error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(&logger.Config{Level: o.logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	services, err := app.New(cfg, log)
	if err != nil {
		log.Close()
		return nil, nil, nil, err
	}

	return cfg, services, func() {
		services.Close()
		log.Close()
	}, nil
}
