package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recibo/internal/directory"
)

func newClientsCommand(opts *rootOptions) *cobra.Command {
	var search string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List the remote client directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if refresh {
				if err := a.Directory.Invalidate(cmd.Context()); err != nil {
					return err
				}
			}
			clients, err := a.Directory.Clients(cmd.Context())
			if err != nil {
				return err
			}

			matches := directory.Search(clients, search)
			out := cmd.OutOrStdout()
			for _, c := range matches {
				fmt.Fprintf(out, "%d\t%s\n", c.ID, c.Label())
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No clients found.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch instead of using the cached directory")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only clients whose label contains this text")

	return cmd
}
