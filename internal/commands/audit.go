package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recibo/internal/auditlog"
	"github.com/cleared-dev/recibo/internal/money"
)

func newAuditCommand(opts *rootOptions) *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show or export the receipt audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			entries, err := auditlog.New(cfg.Audit.Path).Read()
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				return exportAudit(cmd, xlsxPath, entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Audit log is empty.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tCLIENT\tMETHOD\tAMOUNT\tTOTAL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Client, e.Method, money.Format(e.Amount), money.Format(e.Total))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "export the log to this spreadsheet instead of printing it")

	return cmd
}

func exportAudit(cmd *cobra.Command, path string, entries []auditlog.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := auditlog.ExportXLSX(f, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d row(s) to %s\n", len(entries), path)
	return nil
}
