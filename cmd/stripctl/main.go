// Command stripctl runs the number pipeline and the ledger computation
// offline, without the bot or a database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"stripbot/internal/config"
	"stripbot/internal/core"
	applog "stripbot/internal/log"
)

type options struct {
	catalogFile string
	threshold   string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "stripctl",
		Short: "Separate amounts from charges and compute bank ledgers",
		Long: `stripctl extracts numbers from text, classifies them as Amounts or
Charges and prints reports, using the same rules as the bot.

It can also compute one day of a bank ledger from typed deposits.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := applog.ParseLevel(opts.logLevel)
			applog.SetDefault(applog.New(applog.Config{
				Level:     level,
				Component: applog.ComponentCLI,
				Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
			}))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.catalogFile, "catalog", os.Getenv("CATALOG_FILE"), "TOML file overriding banks and currency symbols")
	cmd.PersistentFlags().StringVar(&opts.threshold, "threshold", "50", "values above this are Amounts")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(scanCmd(opts))
	cmd.AddCommand(reportCmd(opts))
	cmd.AddCommand(ledgerCmd(opts))
	return cmd
}

func (o *options) pipeline() (*core.Pipeline, error) {
	threshold, err := decimal.NewFromString(o.threshold)
	if err != nil {
		return nil, fmt.Errorf("invalid threshold %q: %w", o.threshold, err)
	}
	_, scanner, err := config.LoadCatalog(o.catalogFile)
	if err != nil {
		return nil, err
	}
	return core.NewPipeline(scanner, core.NewClassifier(threshold)), nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
