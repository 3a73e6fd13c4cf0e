package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/recibo/internal/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the receipt API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !opts.verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			if addr == "" {
				addr = a.Config.Server.Addr
			}

			srv := server.New(server.Options{
				Directory:   a.Directory,
				Accounts:    a.Accounts.Names,
				Issuer:      a.Receipts,
				CheckSigner: a.CheckSigner,
				Logger:      a.Logger,
			})
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")

	return cmd
}
