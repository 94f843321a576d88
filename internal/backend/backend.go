// Package backend builds the configured record store and messaging client.
package backend

import (
	"fmt"

	"hogar/internal/amqp"
	"hogar/internal/config"
	"hogar/internal/log"
	"hogar/internal/storage"
	"hogar/internal/storage/memory"
)

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result bundles the store with the optional AMQP client.
type Result struct {
	Store   storage.Store
	Events  *amqp.Client // nil when AMQP is not configured
	Cleanup CleanupFunc
}

// Build creates the store selected by DATA_BACKEND plus, when an AMQP URL
// is configured, the messaging client. A failed AMQP dial degrades to
// inline reconciliation instead of failing startup.
func Build(cfg *config.Config, logger *log.Logger) (*Result, error) {
	logger = logger.WithComponent(log.ComponentStorage)

	var store storage.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		store = repo
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case "memory":
		store = memory.New()
		logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, reconcile runs inline",
				log.FieldError, err)
		} else {
			events = client
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	cleanup := func() error {
		if events != nil {
			events.Close()
		}
		return store.Close()
	}

	return &Result{Store: store, Events: events, Cleanup: cleanup}, nil
}
