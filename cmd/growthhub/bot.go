package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/bot"
)

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Telegram.Token == "" {
				return errors.New("telegram token is not set (telegram.token or TELEGRAM_TOKEN)")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.serveMetrics(ctx)

			b, err := bot.New(a.cfg.Telegram.Token, a.sessions, a.cfg.Telegram.UpdateTimeout, a.cfg.Telegram.Debug, a.logger)
			if err != nil {
				a.logger.Error("Failed to create bot", zap.Error(err))
				return err
			}

			a.logger.Info("Bot started")
			if err := b.Start(ctx); err != nil {
				a.logger.Error("Bot error", zap.Error(err))
				return err
			}
			a.logger.Info("Bot stopped")
			return nil
		},
	}
}
