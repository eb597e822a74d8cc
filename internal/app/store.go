package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"rideshare/internal/config"
	"rideshare/internal/repository"
	"rideshare/internal/repository/memory"
	"rideshare/internal/repository/postgres"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Storage bundles the repositories of the configured backend.
type Storage struct {
	Rides      repository.RideRepository
	Vehicles   repository.VehicleRepository
	Ratings    repository.RatingRepository
	Transactor repository.Transactor

	db *sql.DB
}

// Close closes the database, if any.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewStorage builds the repositories for STORE_BACKEND. The memory backend is seeded with the
// fleet from the tables file; the postgres backend applies the schema before use.
func NewStorage(ctx context.Context, cfg *config.Config, tables *config.Tables, nrApp *newrelic.Application, logger *zap.Logger) (*Storage, error) {
	switch cfg.Engine.StoreBackend {
	case StorePostgres:
		db, err := NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("connected to postgres", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
		return &Storage{
			Rides:      postgres.NewRideRepository(db),
			Vehicles:   postgres.NewVehicleRepository(db),
			Ratings:    postgres.NewRatingRepository(db),
			Transactor: postgres.NewTransactor(db),
			db:         db,
		}, nil

	case StoreMemory:
		store := memory.NewStore()
		fleet := tables.FleetVehicles()
		for _, v := range fleet {
			store.PutVehicle(v)
		}
		logger.Info("using in-memory store", zap.Int("vehicles", len(fleet)))
		return &Storage{
			Rides:      store.Rides(),
			Vehicles:   store.Vehicles(),
			Ratings:    store.Ratings(),
			Transactor: store,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Engine.StoreBackend)
	}
}
