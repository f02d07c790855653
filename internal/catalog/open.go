package catalog

import (
	"context"
	"fmt"

	"github.com/mind-engage/moyenne/internal/config"
	"github.com/mind-engage/moyenne/internal/db"
)

// Open loads the catalog from the configured source. The sql source is read
// once and the connection closed; sessions only ever see the loaded copy.
func Open(ctx context.Context, cfg config.Config) (Catalog, error) {
	switch cfg.CatalogSource {
	case "", config.CatalogBuiltin:
		return BuiltinSource{}.Load(ctx)
	case config.CatalogFile:
		return FileSource{Path: cfg.CatalogPath}.Load(ctx)
	case config.CatalogSQL:
		conn, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return Catalog{}, fmt.Errorf("open catalog db: %w", err)
		}
		defer conn.Close()
		seed, err := Builtin()
		if err != nil {
			return Catalog{}, err
		}
		store := NewSQLStore(conn)
		store.Seed = &seed
		return store.Load(ctx)
	default:
		return Catalog{}, fmt.Errorf("unsupported catalog source: %s", cfg.CatalogSource)
	}
}
