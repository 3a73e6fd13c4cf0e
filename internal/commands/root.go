package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recibo/internal/app"
	"github.com/cleared-dev/recibo/internal/buildinfo"
	"github.com/cleared-dev/recibo/internal/config"
)

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "recibo.yaml"

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "recibo",
		Short:   "Issue collection receipts against the remote accounting API",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", DefaultConfigFile, "path to recibo.yaml")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newInitCommand(),
		newClientsCommand(opts),
		newAccountsCommand(opts),
		newIssueCommand(opts),
		newAuditCommand(opts),
		newServeCommand(opts),
	)

	return rootCmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(o.configPath))
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	cfg.ResolvePaths(abs)
	return cfg, nil
}

// openApp loads the config and wires the services. Callers must Close it.
func (o *rootOptions) openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, o.logger(cmd))
}
