package storage

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/datalake/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// ConnectionFactory opens a connection of one backend type from its decoded settings.
type ConnectionFactory func(cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// CachingProvider implements StorageProvider for one backend type.
// Connections are created lazily from surfin.adapter.storage and kept until CloseAll.
type CachingProvider struct {
	cfg          *coreConfig.Config
	providerType string
	factory      ConnectionFactory
	connections  map[string]StorageConnection
	mu           sync.RWMutex
}

var _ StorageProvider = (*CachingProvider)(nil)

// NewCachingProvider creates a provider that builds connections of providerType with factory.
func NewCachingProvider(cfg *coreConfig.Config, providerType string, factory ConnectionFactory) *CachingProvider {
	return &CachingProvider{
		cfg:          cfg,
		providerType: providerType,
		factory:      factory,
		connections:  make(map[string]StorageConnection),
	}
}

// GetConnection retrieves a StorageConnection by the given name.
// It creates a new connection if one does not already exist for the given name.
func (p *CachingProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openLocked(name)
}

func (p *CachingProvider) openLocked(name string) (StorageConnection, error) {
	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}

	storageCfg, err := storageConfig.Lookup(p.cfg.Surfin.Adapter.Storage, name)
	if err != nil {
		return nil, err
	}
	if storageCfg.Type != p.providerType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.providerType, storageCfg.Type)
	}

	newConn, err := p.factory(storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage connection '%s': %w", p.providerType, name, err)
	}

	p.connections[name] = newConn
	logger.Debugf("Created new %s storage connection '%s'.", p.providerType, name)
	return newConn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *CachingProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s storage connection '%s': %w", p.providerType, name, err))
		}
		delete(p.connections, name)
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	logger.Debugf("All %s storage connections closed.", p.providerType)
	return nil
}

// Type returns the backend type handled by this provider.
func (p *CachingProvider) Type() string {
	return p.providerType
}

// ForceReconnect forces the closure and re-establishment of an existing connection with the specified name.
func (p *CachingProvider) ForceReconnect(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		if err := conn.Close(); err != nil {
			logger.Warnf("Failed to gracefully close %s storage connection '%s' during force reconnect: %v", p.providerType, name, err)
		}
		delete(p.connections, name)
	}

	logger.Debugf("Forcing reconnect for %s storage connection '%s'.", p.providerType, name)
	return p.openLocked(name)
}
