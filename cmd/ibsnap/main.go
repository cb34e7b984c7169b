package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ibsnap/internal/infrastructure/config"
	"ibsnap/internal/infrastructure/logger"
	"ibsnap/internal/infrastructure/svc"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "ibsnap",
	Short:         "Brokerage snapshot cache for quotes, portfolio and account data",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.toml", "path to config.toml")
	rootCmd.AddCommand(serveCmd, refreshCmd, watchCmd, watchlistCmd, showCmd)
}

// bootstrap loads config, installs the logger and builds the service
// context. The caller owns the returned context's Close.
func bootstrap(ctx context.Context) (*svc.ServiceContext, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.App.LogLevel)
	return svc.New(ctx, cfg)
}

func main() {
	_ = godotenv.Load()
	logger.Setup("info")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Str("config", configPath).Msg("ibsnap failed")
		stop()
		os.Exit(1)
	}
}
