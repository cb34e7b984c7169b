package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ibsnap/internal/application/usecase/refresh"
	"ibsnap/internal/infrastructure/storage"
	"ibsnap/internal/interfaces/console"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the cache fresh until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sc, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer sc.Close()

		sc.ConnectSession(ctx)
		deps := sc.BuildSchedulerDeps()

		log.Info().
			Str("config", configPath).
			Str("gateway", sc.Config.Gateway.BaseURL).
			Dur("tick", deps.Tick).
			Int("jobs", len(deps.Jobs)).
			Msg("ibsnap started")

		err = refresh.NewScheduler(deps).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run every refresh job once and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sc, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer sc.Close()

		sc.ConnectSession(ctx)
		// first tick: every job is due
		refresh.NewScheduler(sc.BuildSchedulerDeps()).Tick(ctx)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print cache updates published on redis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sc, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer sc.Close()

		rr := sc.RedisRepo()
		if rr == nil {
			return errors.New("watch needs storage.redis.enabled")
		}
		updates, err := rr.Subscribe(ctx)
		if err != nil {
			return err
		}
		r := console.NewRenderer(cmd.OutOrStdout())
		for u := range updates {
			r.Update(u.Kind, u.SubKey, storage.FromMillis(u.UpdatedAt))
		}
		return nil
	},
}
