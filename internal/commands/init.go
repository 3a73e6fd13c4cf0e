package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recibo/internal/accounts"
	"github.com/cleared-dev/recibo/internal/config"
)

const accountsFileName = "accounts.csv"

func newInitCommand() *cobra.Command {
	var name string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default recibo.yaml and an empty account table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, name, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized recibo in %s\n", absDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Add payment accounts to %s and set %s before issuing receipts.\n", accountsFileName, config.TokenEnv)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "organization name printed on receipts (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing recibo.yaml")

	return cmd
}

func runInit(dir, name string, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfgPath := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default(name)
	cfg.AccountsFile = accountsFileName
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	acctPath := filepath.Join(dir, accountsFileName)
	if _, err := os.Stat(acctPath); err == nil {
		return nil
	}
	f, err := os.Create(acctPath)
	if err != nil {
		return fmt.Errorf("creating account table: %w", err)
	}
	defer f.Close()
	if err := accounts.WriteAccounts(f, nil); err != nil {
		return fmt.Errorf("writing account table: %w", err)
	}
	return nil
}
