package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stripbot/internal/core"
)

func scanCmd(opts *options) *cobra.Command {
	var includeCurrency bool
	cmd := &cobra.Command{
		Use:   "scan [file...]",
		Short: "List the classified numbers found in messages",
		Long: `Scan messages and print every number with its classification.

Examples:
  echo "Paid Rs. 1,250.75 fee 12.50" | stripctl scan
  stripctl scan sms1.txt sms2.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.pipeline()
			if err != nil {
				return err
			}
			msgs, err := readMessages(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			batch, issues := p.ProcessBatch(msgs)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MSG\tKIND\tRAW\tVALUE\tDISPLAY")
			for _, v := range batch {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
					v.MessageIndex+1, v.Kind, v.RawText, v.ValueText(), v.DisplayText(includeCurrency))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			s := core.Summarize(batch)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d numbers (%d amounts, %d charges) from %d messages, total %s\n",
				s.TotalCount, s.AmountCount, s.ChargeCount, len(msgs), s.Total)
			printIssues(cmd.ErrOrStderr(), issues)
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeCurrency, "currency", false, "prefix display values with their currency symbol")
	return cmd
}
