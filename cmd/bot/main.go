package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/app"
	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/config"
	"github.com/shmelev/tutor_bot/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk, err := clock.New(cfg.Timezone)
	if err != nil {
		logger.Fatal("Failed to init clock", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool)
	if err != nil {
		logger.Fatal("Failed to init migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	tg, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create telegram bot", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(notify.NewTelegramSender(tg), logger)
	engine := app.NewEngine(pool, cfg, clk, dispatcher, logger)

	// После перезапуска заводим таймеры напоминаний заново
	if err := engine.RearmReminders(ctx); err != nil {
		logger.Error("Failed to rearm reminders", zap.Error(err))
	}

	scheduler := app.NewScheduler(
		engine.Reminders,
		engine.Schedule,
		dispatcher,
		clk,
		cfg.AdminUserID,
		cfg.SummaryHour,
		logger,
	)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logger.Info("Tutor bot started",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Timezone),
		zap.Int("tutors", len(cfg.TutorUserIDs)),
	)

	<-ctx.Done()
	logger.Info("Shutting down")
}
