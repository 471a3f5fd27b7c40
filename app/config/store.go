package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"todo-chat/app/store"
	"todo-chat/app/store/neo4jstore"
	"todo-chat/app/store/postgres"
	"todo-chat/app/store/sqlite"
)

// OpenStore connects the configured backend. The caller closes it.
func OpenStore(ctx context.Context, cfg StoreConfig, logger *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		logger.Info("opening store", zap.String("driver", cfg.Driver), zap.String("path", cfg.SQLite.Path))
		s, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		logger.Info("opening store", zap.String("driver", cfg.Driver))
		s, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverNeo4j:
		logger.Info("opening store", zap.String("driver", cfg.Driver), zap.String("uri", cfg.Neo4j.URI))
		driver, err := NewNeo4jDriver(ctx, cfg.Neo4j)
		if err != nil {
			return nil, err
		}
		return neo4jstore.New(driver, cfg.Neo4j.Database), nil
	default:
		return nil, fmt.Errorf("invalid store driver: %q", cfg.Driver)
	}
}
