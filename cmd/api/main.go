package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/clinicadelvalle/clinica-platform/internal/api/router"
	"github.com/clinicadelvalle/clinica-platform/internal/appointments"
	"github.com/clinicadelvalle/clinica-platform/internal/assistant"
	"github.com/clinicadelvalle/clinica-platform/internal/calendar"
	appconfig "github.com/clinicadelvalle/clinica-platform/internal/config"
	"github.com/clinicadelvalle/clinica-platform/internal/dashboard"
	"github.com/clinicadelvalle/clinica-platform/internal/notes"
	"github.com/clinicadelvalle/clinica-platform/internal/observability/metrics"
	"github.com/clinicadelvalle/clinica-platform/internal/patients"
	"github.com/clinicadelvalle/clinica-platform/internal/settings"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinica-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	clinicZone := time.FixedZone(fmt.Sprintf("UTC%+d", cfg.ClinicUTCOffsetHours), cfg.ClinicUTCOffsetHours*3600)

	// Storage. Without DATABASE_URL everything runs in memory, which is only
	// suitable for development.
	var (
		patientsRepo     patients.Repository
		appointmentsRepo appointments.Repository
		notesRepo        notes.Repository
		settingsStore    settings.Store
		dashboardRepo    dashboard.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		patientsRepo = patients.NewPostgresRepository(pool)
		appointmentsRepo = appointments.NewPostgresRepository(pool)
		notesRepo = notes.NewPostgresRepository(pool)
		settingsStore = settings.NewPostgresStore(pool)
		dashboardRepo = dashboard.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		patientsRepo = patients.NewInMemoryRepository()
		appointmentsRepo = appointments.NewInMemoryRepository()
		notesRepo = notes.NewInMemoryRepository()
		settingsStore = settings.NewMemoryStore(map[string]string{
			"system_prompt": "Eres la asistente virtual de la clínica. Atiende en español y usa las herramientas disponibles.",
		})
		dashboardRepo = nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}

	openaiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		openaiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	chatClient := openai.NewClientWithConfig(openaiCfg)

	var cal calendar.Backend
	if cfg.CalendarBaseURL != "" {
		cal = calendar.NewHTTPBackend(cfg.CalendarBaseURL, cfg.CalendarAPIKey, logger)
	} else {
		logger.Warn("CALENDAR_BASE_URL not set, using in-memory calendar")
		cal = calendar.NewMemoryBackend()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	assistantMetrics := metrics.NewAssistantMetrics(registry)

	// Services.
	patientsSvc := patients.NewService(patientsRepo, logger)
	notesSvc := notes.NewService(notesRepo, logger)
	appointmentsSvc := appointments.NewService(
		appointmentsRepo, patientsSvc, cal, settingsStore,
		clinicZone, cfg.SurfaceCalendarErrors, logger,
	)

	// Assistant.
	catalog := assistant.NewCatalog(settingsStore, logger)
	advisor := assistant.NewAdvisor(chatClient, cfg.OpenAIModel, patientsSvc, notesSvc, settingsStore, logger)
	executor := assistant.NewExecutor(catalog, patientsSvc, appointmentsSvc, notesSvc, advisor, logger)
	sessions := assistant.NewSessionStore(redisClient, cfg.SessionTTL)
	controller := assistant.NewController(
		chatClient, cfg.OpenAIModel, catalog, executor, sessions,
		settingsStore, assistantMetrics, clinicZone, logger,
	)

	routerCfg := &router.Config{
		Logger:              logger,
		PatientsHandler:     patients.NewHandler(patientsSvc, notesSvc, logger),
		AppointmentsHandler: appointments.NewHandler(appointmentsSvc, logger),
		NotesHandler:        notes.NewHandler(notesSvc, logger),
		ChatHandler:         assistant.NewHandler(controller, cfg.SessionCookieName, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatRatePerSecond:   cfg.ChatRatePerSecond,
		ChatRateBurst:       cfg.ChatRateBurst,
	}
	if dashboardRepo != nil {
		dashboardSvc := dashboard.NewService(dashboardRepo, clinicZone, logger)
		routerCfg.DashboardHandler = dashboard.NewHandler(dashboardSvc, logger)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
