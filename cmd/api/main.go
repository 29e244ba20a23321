// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/config"
	"github.com/capitalize-ai/event-assistant/internal/dates"
	"github.com/capitalize-ai/event-assistant/internal/handler"
	"github.com/capitalize-ai/event-assistant/internal/items"
	"github.com/capitalize-ai/event-assistant/internal/llm"
	"github.com/capitalize-ai/event-assistant/internal/middleware"
	"github.com/capitalize-ai/event-assistant/internal/model"
	natsclient "github.com/capitalize-ai/event-assistant/internal/nats"
	"github.com/capitalize-ai/event-assistant/internal/orchestrator"
	"github.com/capitalize-ai/event-assistant/internal/planner"
	"github.com/capitalize-ai/event-assistant/internal/service"
	"github.com/capitalize-ai/event-assistant/internal/session"
	"github.com/capitalize-ai/event-assistant/internal/slots"
	"github.com/capitalize-ai/event-assistant/internal/store"
	"github.com/capitalize-ai/event-assistant/internal/store/memory"
	"github.com/capitalize-ai/event-assistant/internal/store/postgres"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
	"github.com/capitalize-ai/event-assistant/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.Development() {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()
	log.Info("starting API server")

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "event-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	strategy, err := orchestrator.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}
	generated := model.EventStatus(cfg.GeneratedStatus)
	if generated != model.EventStatusPendingItems && generated != model.EventStatusCreated {
		return fmt.Errorf("GENERATED_STATUS must be %q or %q", model.EventStatusPendingItems, model.EventStatusCreated)
	}

	completer := newCompleter(cfg, log)

	var (
		natsClient *natsclient.Client
		publisher  *natsclient.Publisher
		events     orchestrator.Publisher
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer natsClient.Close()

		publisher = natsclient.NewPublisher(natsClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		events = publisher
	}

	sessions := session.NewManager(st, st, session.Config{
		Timeout:          cfg.SessionTimeout,
		HistoryLimit:     cfg.HistoryLimit,
		SummaryThreshold: cfg.SummaryThreshold,
	}, log.With(zap.String("component", "session")))

	orch := orchestrator.New(orchestrator.Config{
		Strategy:        strategy,
		GeneratedStatus: generated,
	}, orchestrator.Deps{
		Repo:      st,
		Sessions:  sessions,
		Extractor: slots.NewExtractor(),
		Generator: items.NewGenerator(completer, log.With(zap.String("component", "items")), nil),
		Planner:   planner.New(completer, log.With(zap.String("component", "planner")), nil),
		Dates:     dates.NewValidator(cfg.MinLeadDays),
		Publisher: events,
		Log:       log.With(zap.String("component", "orchestrator")),
	})

	chatSvc := service.NewChatService(orch, sessions, st, log)

	healthHandler := handler.NewHealthHandler(st, natsClient, publisher, log)
	chatHandler := handler.NewChatHandler(chatSvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests*5, cfg.RateLimitWindow))
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(middleware.MaxBodyBytes(64 << 10))
		r.Use(middleware.RequireJSON)

		r.Post("/chat", chatHandler.Chat)
		r.Get("/context", chatHandler.GetContext)
		r.Delete("/context", chatHandler.DeleteContext)
		r.Delete("/history", chatHandler.DeleteHistory)
		r.Get("/events", chatHandler.ListEvents)
		r.Get("/events/name-availability", chatHandler.NameAvailability)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("port", cfg.ServerPort),
			zap.String("strategy", string(strategy)),
			zap.Bool("llm", completer != nil),
			zap.Bool("nats", natsClient != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return memory.New(), nil
	}
	if cfg.MigrationsEnabled {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}
	st, err := postgres.Open(ctx, postgres.Config{
		URL:            cfg.DatabaseURL,
		MaxConnections: int32(cfg.DBMaxConnections),
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// newCompleter returns nil when no provider key is configured; the engine
// then runs on heuristics and fallback lists only.
func newCompleter(cfg *config.Config, log *logger.Logger) llm.Completer {
	provider := llm.Provider(cfg.DefaultLLM)
	key := cfg.AnthropicAPIKey
	if provider == llm.ProviderOpenAI {
		key = cfg.OpenAIAPIKey
	}
	if key == "" {
		// Use whichever provider has a key.
		switch {
		case cfg.AnthropicAPIKey != "":
			provider, key = llm.ProviderAnthropic, cfg.AnthropicAPIKey
		case cfg.OpenAIAPIKey != "":
			provider, key = llm.ProviderOpenAI, cfg.OpenAIAPIKey
		default:
			log.Warn("no LLM API key configured, LLM features disabled")
			return nil
		}
	}

	client, err := llm.NewClient(provider, key, cfg.LLMModel)
	if err != nil {
		log.Warn("failed to create LLM client, LLM features disabled", zap.Error(err))
		return nil
	}
	return llm.NewInstrumented(client, cfg.LLMTimeout, log.With(zap.String("component", "llm")))
}
