package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/config"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/infra/memory"
	pgloader "live-trivia-service/internal/infra/postgres"
	redisstore "live-trivia-service/internal/infra/redis"
	transport "live-trivia-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	configureLogging(cfg.Log)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := bankLoader(cfg, pool)
	if err != nil {
		return err
	}

	bankTTL := config.Duration(cfg.Bank.TTL, 10*time.Minute)
	var banks app.BankRepository
	if redisClient != nil {
		banks = redisstore.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, config.Duration(cfg.Redis.TTL, 2*time.Hour))
	} else {
		store = memory.NewSessionStore()
	}

	defaultBank := cfg.Bank.DefaultID
	if defaultBank == "" {
		defaultBank = "general"
	}

	hub := transport.NewHub(0)
	service := app.NewQuizService(store, banks, hub, app.Options{
		AnswerWindow:  config.Duration(cfg.Quiz.AnswerWindow, app.DefaultAnswerWindow),
		SettlePause:   config.Duration(cfg.Quiz.SettlePause, app.DefaultSettlePause),
		DefaultBankID: defaultBank,
	})

	wsCfg := transport.DefaultWSConfig()
	if cfg.WebSocket.ReadBufferSize > 0 {
		wsCfg.ReadBufferSize = cfg.WebSocket.ReadBufferSize
	}
	if cfg.WebSocket.WriteBufferSize > 0 {
		wsCfg.WriteBufferSize = cfg.WebSocket.WriteBufferSize
	}
	if cfg.WebSocket.MaxMessageSize > 0 {
		wsCfg.MaxMessageSize = cfg.WebSocket.MaxMessageSize
	}
	wsCfg.PingInterval = config.Duration(cfg.WebSocket.PingInterval, wsCfg.PingInterval)
	wsCfg.ReadTimeout = config.Duration(cfg.WebSocket.ReadTimeout, wsCfg.ReadTimeout)
	wsHandler := transport.NewWSHandler(service, hub, wsCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Str("default_bank", defaultBank).Msg("starting trivia service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("sessions not fully torn down")
	}
	return server.Shutdown(shutdownCtx)
}

// bankLoader picks the question bank source: Postgres when configured, then a
// YAML file, then the built-in sample bank.
func bankLoader(cfg config.Config, pool *pgxpool.Pool) (memory.BankLoader, error) {
	if pool != nil {
		return pgloader.NewBankLoader(pool), nil
	}
	if cfg.Bank.File != "" {
		loader, err := memory.NewStaticBankLoaderFromFile(cfg.Bank.File)
		if err == nil {
			return loader, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		log.Warn().Str("file", cfg.Bank.File).Msg("bank file missing, using sample bank")
	}
	return memory.NewStaticBankLoader(sampleBanks()), nil
}

// sampleBanks provides a minimal bank so the server runs without any storage.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"general": {
			ID:    "general",
			Title: "General knowledge",
			Questions: []domain.Question{
				{ID: 1, Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1},
				{ID: 2, Prompt: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter"}, CorrectIndex: 1},
				{ID: 3, Prompt: "How many sides does a hexagon have?", Options: []string{"5", "6", "8"}, CorrectIndex: 1},
			},
		},
	}
}
