package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"policethief/internal/app/chat"
	"policethief/internal/app/db"
	"policethief/internal/app/inquiry"
	"policethief/internal/app/meeting"
	"policethief/internal/app/memstore"
	"policethief/internal/app/metrics"
	"policethief/internal/app/reminder"
	"policethief/internal/app/storage"
	"policethief/internal/app/user"
	"policethief/internal/configs"
	"policethief/internal/handler"
	"policethief/internal/pkg/logx"
)

const shutdownTimeout = 5 * time.Second

// appStore is what both backends implement.
type appStore interface {
	user.Store
	meeting.Store
	reminder.Store
	inquiry.Store
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, the WebSocket rooms and the reminder worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configs.LoadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func openStore(ctx context.Context, cfg *configs.AppConfig) (appStore, func(), error) {
	if cfg.StoreBackend == configs.BackendMemory {
		logx.Warn("Using the in-memory store; data is lost on restart.")
		return memstore.New(), func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	return db.NewStore(pool), pool.Close, nil
}

func serve(ctx context.Context, cfg *configs.AppConfig) error {
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_backend", cfg.StoreBackend).
		Bool("redis", cfg.RedisURL != "").
		Bool("attachments", cfg.Storage().Enabled()).
		Msg("Configuration loaded successfully")

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	var bus chat.Bus = chat.NewLocalBus()
	if cfg.RedisURL != "" {
		rdb, err := chat.OpenRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		bus = chat.NewRedisBus(rdb, chat.DefaultChannel)
	}

	manager, err := chat.NewManager(bus, cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("start chat manager: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var background conc.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer func() {
		stopWorkers()
		background.Wait()
	}()

	reminderHandler := reminder.NewHandler(store, store, manager)
	var queue reminder.Enqueuer
	if cfg.RedisURL != "" {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL for asynq: %w", err)
		}
		client := asynq.NewClient(opt)
		defer client.Close()
		queue = client

		worker := reminder.NewWorker(opt, cfg.ReminderConcurrency, reminderHandler)
		background.Go(func() {
			if err := worker.Run(workerCtx); err != nil {
				logx.Error(err, "Reminder worker stopped")
			}
		})
	} else {
		local := reminder.NewLocalQueue(reminderHandler)
		defer local.Close()
		queue = local
	}

	var objects storage.StorageService
	if cfg.Storage().Enabled() {
		if objects, err = storage.NewStorageService(cfg.Storage()); err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
	}

	deps := &handler.AppDeps{
		Config: cfg,
		Meetings: meeting.NewService(store, store, meeting.Options{
			Publisher:           manager,
			Reminders:           reminder.NewScheduler(queue),
			Recorder:            metrics.NewLifecycle(reg),
			DefaultRoundMinutes: cfg.DefaultRoundMinutes,
		}),
		Users:          store,
		Inquiries:      inquiry.NewService(store, objects),
		Reminders:      store,
		StorageService: objects,
		Manager:        manager,
		Gatherer:       reg,
	}

	router, stopLimiters := handler.Router(deps)
	defer stopLimiters()

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("Police and Thief server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			manager.Shutdown()
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
	return nil
}
