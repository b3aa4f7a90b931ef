package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/psds-microservice/delivery-service/internal/config"
	"github.com/psds-microservice/delivery-service/internal/database"
	"github.com/psds-microservice/delivery-service/internal/store"
)

// OpenStore connects the configured backend. PostgreSQL is migrated first.
// The returned func releases the connection.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Gateway, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := store.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		log.Info("store: mongo", "database", cfg.Mongo.Database)
		return store.NewMongoGateway(client, cfg.Mongo.Database), func() error {
			return client.Disconnect(context.Background())
		}, nil
	case config.StoreDriverPostgres:
		if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		log.Info("store: postgres", "host", cfg.DB.Host, "database", cfg.DB.Database)
		return store.NewSQLGateway(db), sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
