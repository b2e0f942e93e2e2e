package app

import (
	"fmt"

	"dashgrid/internal/catalog"
	"dashgrid/internal/config"
	"dashgrid/internal/domain"
	"dashgrid/internal/storage"
)

// OpenCatalog returns the system of record the config points at: the REST
// catalog in remote mode, the SQLite one in db otherwise.
func OpenCatalog(cfg config.CatalogConfig, db *storage.DB) (domain.Catalog, error) {
	switch cfg.Mode {
	case config.ModeRemote:
		return RemoteCatalog(cfg), nil
	case config.ModeLocal:
		if db == nil {
			return nil, fmt.Errorf("local catalog needs a database")
		}
		return storage.NewCatalog(db), nil
	default:
		return nil, fmt.Errorf("unknown catalog mode %q", cfg.Mode)
	}
}

// RemoteCatalog returns a REST client for cfg.BaseURL, authenticated with
// cfg.Token when one is set.
func RemoteCatalog(cfg config.CatalogConfig) *catalog.Client {
	var opts []catalog.Option
	if cfg.Token != "" {
		opts = append(opts, catalog.WithHeader("Authorization", "Bearer "+cfg.Token))
	}
	return catalog.New(cfg.BaseURL, cfg.Timeout, opts...)
}
