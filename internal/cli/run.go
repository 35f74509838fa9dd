package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"postrelay/internal/config"
	"postrelay/internal/pipeline"
	"postrelay/internal/ratelimit"
	"postrelay/internal/store"
	"postrelay/internal/telegram"
	"postrelay/internal/vk"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the relay daemon",
	RunE:  runAction,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Telegram.BotToken == "" {
		return errors.New("telegram bot token is not set (telegram.bot_token_env)")
	}
	if cfg.Delivery.ChatID == 0 {
		return errors.New("delivery.chat_id is required")
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	log := slog.Default()

	limiter := ratelimit.New()
	limiter.SetLimit(ratelimit.ProviderVK, cfg.VK.RequestsPerSecond)
	limiter.SetLimit(ratelimit.ProviderTelegram, cfg.Telegram.RequestsPerSecond)

	botClient := telegram.NewClient(cfg.Telegram.BotToken)
	sender := telegram.NewSender(botClient, cfg.Delivery.ChatID, limiter, log)
	coord := pipeline.NewCoordinator(db, sender, log)

	g, ctx := errgroup.WithContext(cmd.Context())

	if cfg.VK.Token != "" {
		poller := vk.NewPoller(vk.NewClient(cfg.VK.Token), db, limiter, coord, vk.PollerConfig{
			Interval:   cfg.VK.CheckInterval.Duration,
			GroupPause: cfg.VK.GroupPause.Duration,
			FetchCount: cfg.VK.FetchCount,
		}, log)
		g.Go(func() error { return poller.Run(ctx) })
		log.Info("vk lane started", "interval", cfg.VK.CheckInterval.Duration)
	} else {
		log.Warn("vk token is not set, vk lane disabled")
	}

	listener := telegram.NewListener(botClient, db, coord, telegram.ListenerConfig{
		PollTimeoutSec: cfg.Telegram.PollTimeoutSec,
	}, log)
	g.Go(func() error { return listener.Run(ctx) })
	g.Go(func() error { return reloadOnSIGHUP(ctx, listener, log) })
	log.Info("telegram lane started", "delivery_chat", cfg.Delivery.ChatID)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("shutdown complete")
		return nil
	}
	return err
}

// reloadOnSIGHUP re-reads the telegram source list when the process
// receives SIGHUP, so new sources apply without restarting the stream.
func reloadOnSIGHUP(ctx context.Context, listener *telegram.Listener, log *slog.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-hup:
			if err := listener.Reload(ctx); err != nil {
				log.Error("reload telegram sources", "error", err)
			}
		}
	}
}
