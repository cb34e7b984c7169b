package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ibsnap/internal/application/port"
	"ibsnap/internal/interfaces/console"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Manage the symbols whose quotes are refreshed",
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watchlist symbols",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer sc.Close()

		entries, err := sc.App().WatchlistService().List(cmd.Context())
		if err != nil {
			return err
		}
		console.NewRenderer(cmd.OutOrStdout()).Watchlist(entries)
		return nil
	},
}

var watchlistAddName string

var watchlistAddCmd = &cobra.Command{
	Use:   "add SYMBOL",
	Short: "Add a symbol to the watchlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer sc.Close()

		err = sc.App().WatchlistService().Add(cmd.Context(), args[0], watchlistAddName)
		if errors.Is(err, port.ErrDuplicateSymbol) {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", args[0])
		return nil
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove SYMBOL...",
	Short: "Remove symbols and their cached quotes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer sc.Close()

		n, err := sc.App().WatchlistService().Remove(cmd.Context(), args...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d symbol(s)\n", n)
		return nil
	},
}

func init() {
	watchlistAddCmd.Flags().StringVar(&watchlistAddName, "name", "", "display name (defaults to the symbol)")
	watchlistCmd.AddCommand(watchlistListCmd, watchlistAddCmd, watchlistRemoveCmd)
}
