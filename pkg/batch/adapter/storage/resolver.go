package storage

import (
	"context"
	"fmt"

	storageConfig "github.com/tigerroll/datalake/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// ConnectionResolver picks the provider for a named connection from the connection's configured type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)

// NewConnectionResolver indexes providers by Type(). A later provider of the same type replaces an earlier one.
func NewConnectionResolver(providers []StorageProvider, cfg *coreConfig.Config) *ConnectionResolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		byType[p.Type()] = p
	}
	return &ConnectionResolver{providers: byType, cfg: cfg}
}

// ResolveStorageConnection resolves the StorageConnection called name.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	storageCfg, err := storageConfig.Lookup(r.cfg.Surfin.Adapter.Storage, name)
	if err != nil {
		return nil, exception.NewBatchError("storage", "unknown storage connection", err, false, false)
	}

	provider, ok := r.providers[storageCfg.Type]
	if !ok {
		return nil, exception.NewBatchError("storage",
			fmt.Sprintf("no storage provider found for type '%s' (connection '%s')", storageCfg.Type, name), nil, false, false)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, exception.NewBatchError("storage",
			fmt.Sprintf("failed to get storage connection '%s' from provider '%s'", name, storageCfg.Type), err, false, false)
	}
	logger.Debugf("Resolved storage connection '%s' (type %s).", name, storageCfg.Type)
	return conn, nil
}

// CloseAll closes every provider's connections.
func (r *ConnectionResolver) CloseAll() error {
	var firstErr error
	for t, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			logger.Warnf("Closing %s storage connections failed: %v", t, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
