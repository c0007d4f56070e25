// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/bot"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/config"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/conversation"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/db"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/generator"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/gpt"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/models"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/payment"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/server"
	"github.com/hoomanthewonderman-hub/Fitness-bot/pkg/logger"
)

func main() {
	l := logger.New()
	l.Info("Starting Gym Fitness Bot...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}

	// The transport credential is the one hard requirement.
	if cfg.Telegram.Token == "" {
		l.Fatal("Telegram token is not configured")
	}
	if cfg.GPT.APIKey == "" {
		l.Info("OpenAI key is not configured, programs will use the fallback text")
	}

	// Database connection with bounded retry.
	var database *db.PostgresDB
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = db.NewPostgresDB(cfg.DB)
		if err == nil {
			break
		}
		l.Error("Failed to connect to database, retrying...", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if database == nil {
		l.Fatal("Failed to connect to database after multiple attempts", err)
	}
	defer database.Close()

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()

	if err := database.InitSchema(bootCtx); err != nil {
		l.Fatal("Failed to initialize schema", err)
	}
	if err := database.EnsureGym(bootCtx, &models.Gym{
		GymID:          bot.DefaultGymID,
		GymName:        cfg.Gym.GymName,
		AdminChatID:    cfg.Gym.AdminChatID,
		WelcomeMessage: cfg.Gym.WelcomeMessage,
		PriceToman:     cfg.Gym.PriceToman,
		PriceTon:       cfg.Gym.PriceTon,
		BankCard:       cfg.Gym.BankCard,
		CardOwner:      cfg.Gym.CardOwner,
		TonWallet:      cfg.Gym.TonWallet,
	}); err != nil {
		l.Fatal("Failed to ensure default gym", err)
	}

	gptClient := gpt.NewClient(cfg.GPT.APIKey).
		WithModel(cfg.GPT.Model).
		WithLimits(cfg.GPT.MaxTokens, cfg.GPT.Temperature)

	programs := generator.New(database, gptClient, l)

	sessions := conversation.NewStore()
	machine := conversation.NewMachine(sessions, database, l)

	telegramBot, err := bot.NewTelegramBot(cfg.Telegram.Token, database, machine, programs, l)
	if err != nil {
		l.Fatal("Failed to create Telegram bot", err)
	}

	payments := payment.NewService(database, telegramBot, cfg.AdminIDs(), l)
	telegramBot.SetPaymentService(payments)

	if err := telegramBot.Start(context.Background()); err != nil {
		l.Fatal("Failed to start Telegram bot", err)
	}
	l.Info("Telegram bot started successfully")

	httpServer := server.NewServer(cfg.Server.Port, l)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down bot...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		l.Error("Error during HTTP server shutdown", err)
	}
	if err := telegramBot.Stop(ctx); err != nil {
		l.Error("Error during bot shutdown", err)
	}

	l.Info("Bot stopped successfully")
}
