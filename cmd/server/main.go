package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"expense-ledger/internal/config"
	"expense-ledger/internal/handlers"
	"expense-ledger/internal/service"
	"expense-ledger/internal/storage"
	"expense-ledger/internal/storage/postgres"
	"expense-ledger/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Stale sessions accumulate between restarts; purge them once on boot.
	if err := store.DeleteExpiredSessions(context.Background()); err != nil {
		log.Printf("Failed to clean expired sessions: %v", err)
	}

	authService := service.NewAuthService(store, cfg.SessionDuration)
	expenseService := service.NewExpenseService(store)
	h := handlers.New(authService, expenseService, cfg.SecureCookie)

	addr := ":" + cfg.Port
	log.Printf("Server listening on %s (driver=%s)", addr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(addr, h.Router()))
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.Open(cfg.DBPath)
	case "postgres":
		return postgres.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}
