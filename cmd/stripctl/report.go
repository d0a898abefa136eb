package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"stripbot/internal/core"
	"stripbot/internal/export"
)

func reportCmd(opts *options) *cobra.Command {
	var (
		format          string
		date            string
		includeCurrency bool
	)
	cmd := &cobra.Command{
		Use:   "report [file...]",
		Short: "Export classified numbers as CSV or JSON",
		Long: `Build the export document the bot sends for /export_csv and /export_json.

Formats:
  csv, json              one record per number
  columns, columns-json  Amounts, Charges and their sums side by side`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			day := core.DateOf(time.Now())
			if date != "" {
				if day, err = core.ParseDate(date); err != nil {
					return err
				}
			}
			p, err := opts.pipeline()
			if err != nil {
				return err
			}
			msgs, err := readMessages(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				return errors.New("no messages to report")
			}
			batch, issues := p.ProcessBatch(msgs)
			printIssues(cmd.ErrOrStderr(), issues)
			return export.WriteBatch(cmd.OutOrStdout(), f, day, batch, includeCurrency)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv, json, columns or columns-json")
	cmd.Flags().StringVar(&date, "date", "", "date stamped on records (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&includeCurrency, "currency", false, "prefix values with their currency symbol")
	return cmd
}
