// Package app wires configuration, storage and services into one process-wide graph.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/evn/grubana/config"
	"github.com/evn/grubana/db"
	"github.com/evn/grubana/internal/repositories"
	"github.com/evn/grubana/internal/services/auth"
	"github.com/evn/grubana/internal/services/realtime"
	"github.com/evn/grubana/internal/services/session"
	"github.com/evn/grubana/internal/services/sweep"
	"github.com/evn/grubana/internal/services/trucks"
	"github.com/evn/grubana/internal/status"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	Store  repositories.Store

	Trucks   *trucks.Service
	Sessions *session.Manager
	Sweeper  *sweep.Sweeper
	Hub      *realtime.Hub
	JWT      *auth.JWTService

	closers []func() error
}

// New opens the configured storage backend and builds the services on top of it.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	store, closer, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := NewWithStore(cfg, log, store)
	a.closers = append(a.closers, closer)
	log.Info("✅ storage ready", zap.String("backend", cfg.StorageBackend))
	return a, nil
}

// NewWithStore builds the service graph over an existing store.
func NewWithStore(cfg *config.Config, log *zap.Logger, store repositories.Store) *App {
	policy := cfg.Policy()

	truckSvc := trucks.NewService(store, status.NewResolver(policy), log)
	hub := realtime.NewHub(truckSvc, cfg.Now, log)
	truckSvc.SetPublisher(hub)

	return &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Trucks:   truckSvc,
		Sessions: session.NewManager(store, policy, truckSvc, log),
		Sweeper:  sweep.NewSweeper(store, policy, truckSvc, log),
		Hub:      hub,
		JWT:      auth.NewJWTService(cfg.JwtSecret, 0),
	}
}

// OpenStore returns the backend selected by STORAGE_BACKEND and a func that releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (repositories.Store, func() error, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		conn, err := db.InitDB(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewPostgresStore(conn), conn.Close, nil

	case config.BackendRedis:
		client := config.NewRedisClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return repositories.NewRedisStore(client), client.Close, nil

	case config.BackendFirestore:
		var opts []option.ClientOption
		if cfg.GoogleCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
		}
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return repositories.NewFirestoreStore(client), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	_ = a.Log.Sync()
	return first
}
