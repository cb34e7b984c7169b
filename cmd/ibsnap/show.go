package main

import (
	"github.com/spf13/cobra"

	"ibsnap/internal/interfaces/console"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print cached snapshots",
}

var showQuotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Watchlist with cached quotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer sc.Close()

		rows, err := sc.App().WatchlistService().WithQuotes(cmd.Context())
		if err != nil {
			return err
		}
		console.NewRenderer(cmd.OutOrStdout()).Quotes(rows)
		return nil
	},
}

var showPortfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Latest aggregated portfolio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer sc.Close()

		rows, ts, ok, err := sc.App().PortfolioService().Latest(cmd.Context())
		if err != nil {
			return err
		}
		console.NewRenderer(cmd.OutOrStdout()).Portfolio(rows, ts, ok)
		return nil
	},
}

var showAccountCmd = &cobra.Command{
	Use:   "account ACCOUNT",
	Short: "Latest account summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer sc.Close()

		snap, ts, ok, err := sc.App().AccountService().Snapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		console.NewRenderer(cmd.OutOrStdout()).Account(args[0], snap, ts, ok)
		return nil
	},
}

func init() {
	showCmd.AddCommand(showQuotesCmd, showPortfolioCmd, showAccountCmd)
}
