package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/consultorio-ai/citabot/internal/api/router"
	"github.com/consultorio-ai/citabot/internal/booking"
	"github.com/consultorio-ai/citabot/internal/config"
	"github.com/consultorio-ai/citabot/internal/conversation"
	"github.com/consultorio-ai/citabot/internal/messaging"
	"github.com/consultorio-ai/citabot/internal/observability/metrics"
	"github.com/consultorio-ai/citabot/internal/reminder"
	"github.com/consultorio-ai/citabot/internal/retry"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting citabot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)

	// Conversation history: Redis when configured, in-process otherwise.
	var store conversation.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to reach redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		store = conversation.NewRedisStore(redisClient)
		logger.Info("using redis conversation store", "addr", cfg.RedisAddr)
	} else {
		store = conversation.NewMemoryStore()
		logger.Info("using in-memory conversation store")
	}

	geminiClient, err := conversation.NewGeminiClient(ctx, conversation.GeminiConfig{
		APIKey:        cfg.GeminiAPIKey,
		ModelID:       cfg.GeminiModelID,
		Temperature:   float32(cfg.GeminiTemperature),
		MaxTokens:     int32(cfg.GeminiMaxTokens),
		EnforceSchema: cfg.GeminiEnforceSchema,
	})
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	gateway := conversation.NewGateway(geminiClient, cfg.GeminiEnforceSchema, retry.Policy{
		MaxAttempts: cfg.GeminiMaxAttempts,
		BaseDelay:   cfg.GeminiRetryBaseDelay,
	}, logger, appMetrics)

	airtable, err := booking.NewAirtableClient(cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableTable, logger)
	if err != nil {
		logger.Error("failed to create airtable client", "error", err)
		os.Exit(1)
	}

	// Calendar scheduling is optional; without credentials bookings still
	// land in the record backend.
	var calendar booking.EventScheduler
	if cfg.CalendlyAccessToken != "" {
		calendly, err := booking.NewCalendlyClient(cfg.CalendlyAccessToken, cfg.CalendlyEventTypeURI, cfg.CalendlyUserURI, logger)
		if err != nil {
			logger.Error("failed to create calendly client", "error", err)
			os.Exit(1)
		}
		calendar = calendly
	} else {
		logger.Warn("calendly not configured, skipping calendar events")
	}

	reconciler := booking.NewReconciler(airtable, calendar, appMetrics, logger)

	sender, err := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, retry.Policy{
		MaxAttempts: cfg.TwilioMaxAttempts,
		BaseDelay:   cfg.TwilioRetryBaseDelay,
	}, logger)
	if err != nil {
		logger.Error("failed to create twilio sender", "error", err)
		os.Exit(1)
	}

	service := conversation.NewService(store, gateway, reconciler, sender, logger, appMetrics)
	dispatcher := conversation.NewDispatcher(service, cfg.DispatchBuffer, logger, appMetrics)
	dispatcher.Start(ctx)

	var reminders *reminder.Service
	if cfg.RemindersEnabled {
		reminders = reminder.NewService(airtable, sender, cfg.TwilioFromNumber, cfg.ReminderCronSpec, logger)
		if err := reminders.Start(ctx); err != nil {
			logger.Error("failed to start reminder scheduler", "error", err)
			os.Exit(1)
		}
		defer reminders.Stop()
	}

	webhookToken := ""
	if cfg.TwilioValidateSignature {
		webhookToken = cfg.TwilioAuthToken
	}
	messagingHandler := messaging.NewHandler(dispatcher, webhookToken, logger, appMetrics)
	r := router.New(&router.Config{
		Logger:           logger,
		MessagingHandler: messagingHandler,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// In-flight webhook work drains after the listener closes.
	dispatcher.Wait()
	logger.Info("server stopped")
}
