package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"stripbot/internal/config"
	"stripbot/internal/core"
	"stripbot/internal/export"
)

func ledgerCmd(opts *options) *cobra.Command {
	var (
		bank           string
		deposits       []string
		limit          string
		priorRemaining string
		priorLimit     string
		date           string
		format         string
	)
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Compute one day of a bank ledger",
		Long: `Compute opening balance, deposits and remaining limit for one bank and day.

Examples:
  stripctl ledger --bank nabil --limit 1000 --deposit 300 --deposit 200
  stripctl ledger --bank nabil --prior-remaining 500 --prior-limit 1000 --deposit 100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if f != export.FormatCSV && f != export.FormatJSON {
				return fmt.Errorf("ledger format must be csv or json, got %q", format)
			}
			catalog, scanner, err := config.LoadCatalog(opts.catalogFile)
			if err != nil {
				return err
			}

			in := core.LedgerInput{
				BankName: bank,
				Date:     core.DateOf(time.Now()),
				Entries:  deposits,
			}
			if date != "" {
				if in.Date, err = core.ParseDate(date); err != nil {
					return err
				}
			}
			if in.Limit, err = optionalAmount(scanner, "limit", limit); err != nil {
				return err
			}
			if priorRemaining != "" || priorLimit != "" {
				prior := &core.BankLedgerEntry{BankName: bank, Date: in.Date.AddDays(-1)}
				if prior.Remaining, err = optionalAmount(scanner, "prior remaining", priorRemaining); err != nil {
					return err
				}
				if prior.Limit, err = optionalAmount(scanner, "prior limit", priorLimit); err != nil {
					return err
				}
				in.Prior = prior
			}

			entry, issues, err := core.ComputeLedger(catalog, scanner, in)
			if err != nil {
				return err
			}
			for _, is := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped deposit %d %q: %v\n", is.Index+1, is.Text, is.Err)
			}
			if err := export.WriteLedger(cmd.OutOrStdout(), f, []core.LedgerRow{entry.Row()}); err != nil {
				return err
			}
			if entry.OverLimit() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is over its limit by %s\n", entry.BankName, entry.Remaining.Decimal.Neg())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bank, "bank", "", "bank name or alias")
	cmd.Flags().StringArrayVar(&deposits, "deposit", nil, "deposit amount (repeatable)")
	cmd.Flags().StringVar(&limit, "limit", "", "limit for the day (default: the prior day's)")
	cmd.Flags().StringVar(&priorRemaining, "prior-remaining", "", "remaining of the previous entry")
	cmd.Flags().StringVar(&priorLimit, "prior-limit", "", "limit of the previous entry")
	cmd.Flags().StringVar(&date, "date", "", "ledger day (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	_ = cmd.MarkFlagRequired("bank")
	return cmd
}

func optionalAmount(s *core.Scanner, field, text string) (decimal.NullDecimal, error) {
	if text == "" {
		return decimal.NullDecimal{}, nil
	}
	v, err := core.ParseAmountInput(s, field, text)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}
