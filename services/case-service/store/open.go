package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"resolveit/pkg/config"
	"resolveit/pkg/database"
)

// OpenIdentities returns the identity store selected by cfg.IdentityBackend,
// with its indexes or schema in place. The returned close func releases any
// connection opened here; the Mongo database is owned by the caller.
func OpenIdentities(ctx context.Context, cfg *config.Config, db *mongo.Database) (IdentityStore, func() error, error) {
	switch cfg.IdentityBackend {
	case config.IdentityBackendPostgres:
		gdb, err := database.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		s := NewGormIdentityStore(gdb)
		if err := s.Migrate(); err != nil {
			_ = database.ClosePostgres(gdb)
			return nil, nil, fmt.Errorf("migrate identities: %w", err)
		}
		return s, func() error { return database.ClosePostgres(gdb) }, nil
	default:
		s := NewMongoIdentityStore(db)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}
