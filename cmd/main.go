package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"groupchat/ai"
	"groupchat/auth"
	"groupchat/moderation"
	"groupchat/observability"
	"groupchat/repositories"
	"groupchat/runtime"
	"groupchat/runtime/workers"
	"groupchat/services"
	"groupchat/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories
	users, err := repositories.NewUserRepository(db)
	if err != nil {
		return fmt.Errorf("user repository: %w", err)
	}
	defer func() { _ = users.Close() }()

	rooms, err := repositories.NewRoomRepository(db)
	if err != nil {
		return fmt.Errorf("room repository: %w", err)
	}
	defer func() { _ = rooms.Close() }()

	messages, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return fmt.Errorf("message repository: %w", err)
	}
	defer func() { _ = messages.Close() }()

	if _, err := rooms.EnsureDefaultRoom(); err != nil {
		return fmt.Errorf("default room: %w", err)
	}

	// 4. Engine
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log)

	words, err := moderation.LoadDefaultWords()
	if err != nil {
		return fmt.Errorf("moderation word list: %w", err)
	}
	moderator, err := moderation.NewModerator(words, config.ModerationCharReplacement, log)
	if err != nil {
		return fmt.Errorf("moderator: %w", err)
	}

	monitor, err := observability.NewMonitor(log)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}

	provider := ai.NewDeepSeekProvider(
		config.DeepSeekAPIKey, config.DeepSeekBaseURL,
		config.DeepSeekModel, config.DeepSeekTemperature,
	)
	coordinator := runtime.NewCoordinator(
		log, router, messages, provider,
		config.AIQueueSize, config.AIBusyBackoff, config.AIGenerationTimeout,
	)
	monitor.SetEngineSource(func() (int, bool, int) {
		return registry.Count(), coordinator.Busy(), coordinator.QueueDepth()
	})

	// 5. Services
	tokens := auth.NewTokenManager(config.JWTSecret, config.JWTTTL)
	authService := services.NewAuthService(users, tokens)
	roomService := services.NewRoomService(rooms)
	chatService := services.NewChatService(
		log, registry, router, coordinator, messages, moderator, monitor,
	)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(coordinator).
		Add(coordinator.Workers(config.AIWorkers)...).
		Add(workers.NewStatsReporterWorker(log, monitor, config.StatsInterval))
	sup.Run(ctx)

	// 8. HTTP Server (websocket endpoint + health)
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(
		log, registry, router, authService, roomService, chatService,
		config.HistoryLimit,
	))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"stats":  monitor.Snapshot(),
		})
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
