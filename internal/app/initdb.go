package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/infra/config"
	"github.com/IT-Nick/testpoint/internal/storage"
	"github.com/IT-Nick/testpoint/internal/storage/memory"
	"github.com/IT-Nick/testpoint/internal/storage/postgres"
	"github.com/IT-Nick/testpoint/internal/storage/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InitDatabase открывает хранилище, выбранное в database.driver, и создает группы из seed_groups
func InitDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Backend, error) {
	const op = "app.InitDatabase"

	var (
		store storage.Backend
		err   error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		store, err = initPostgres(ctx, cfg)
	case config.DriverSQLite:
		store, err = sqlite.Open(cfg.Database.Path)
	case config.DriverJSON:
		store, err = memory.NewJSON(cfg.Database.Path)
	case config.DriverMemory:
		store = memory.New()
	default:
		err = fmt.Errorf("unknown driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open %s storage: %w", op, cfg.Database.Driver, err)
	}

	for _, g := range cfg.Database.SeedGroups {
		if err := store.AddGroup(ctx, model.Group{ID: g.ID, Name: g.Name}); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("%s: failed to seed group %s: %w", op, g.ID, err)
		}
	}

	log.Info("storage connected", "driver", cfg.Database.Driver, "seed_groups", len(cfg.Database.SeedGroups))
	return store, nil
}

func initPostgres(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		connConfig.MaxConns = cfg.Database.MaxConns
	}

	db, err := pgxpool.NewWithConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return postgres.NewStore(db), nil
}
