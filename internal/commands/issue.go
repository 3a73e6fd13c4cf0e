package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/recibo/internal/collect"
	"github.com/cleared-dev/recibo/internal/money"
)

func newIssueCommand(opts *rootOptions) *cobra.Command {
	var requestPath string
	var outDir string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Submit a collection and write its receipt PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := readForm(requestPath)
			if err != nil {
				return err
			}

			a, err := opts.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.CheckSigner(form.Signer); err != nil {
				return err
			}

			clients, err := a.Directory.Clients(cmd.Context())
			if err != nil {
				return err
			}
			req, err := form.Request(clients, time.Now())
			if err != nil {
				return err
			}

			res, err := a.Receipts.Issue(cmd.Context(), req)
			if err != nil {
				return err
			}

			dir := outDir
			if dir == "" {
				dir = a.Config.Output.Dir
			}
			path, err := writeDocument(dir, res)
			if err != nil {
				return err
			}

			printResult(cmd, res, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "request file (YAML)")
	_ = cmd.MarkFlagRequired("request")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for the PDF (default output.dir)")

	return cmd
}

func readForm(path string) (collect.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return collect.Form{}, fmt.Errorf("reading request: %w", err)
	}
	var form collect.Form
	if err := yaml.Unmarshal(data, &form); err != nil {
		return collect.Form{}, fmt.Errorf("parsing request: %w", err)
	}
	return form, nil
}

func writeDocument(dir string, res *collect.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, res.FileName)
	if err := os.WriteFile(path, res.Document, 0o644); err != nil {
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	return path, nil
}

func printResult(cmd *cobra.Command, res *collect.Result, path string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Receipt %s (%s) for %s\n", res.Number, res.Status(), money.Format(res.Total))
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintf(out, "Audit log: %d row(s)\n", res.AuditRows)

	if !res.Synced() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: receipt generated locally only; it is not synced with the remote system.")
		if detail := res.SubmissionError(); detail != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Submission error: %s\n", detail)
		}
		return
	}
	if body, err := json.Marshal(res.Response); err == nil && res.Response != nil {
		fmt.Fprintf(out, "Remote response: %s\n", body)
	}
	if detail := res.Numbering.Detail(); detail != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: receipt number not resolved: %s\n", detail)
	}
}
