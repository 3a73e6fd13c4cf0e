package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recibo/internal/accounts"
)

func newAccountsCommand(opts *rootOptions) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the configured payment accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if asCSV {
				return accounts.WriteAccounts(cmd.OutOrStdout(), a.Accounts.All())
			}
			for _, acct := range a.Accounts.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %d\n", acct.Name, acct.LedgerID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "print as an account table CSV")

	return cmd
}
