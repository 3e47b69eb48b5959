// Package gorm opens the gorm connection backing the SQL job repository.
// Concrete dialects register themselves from the sqlite, postgres and mysql sub-packages.
package gorm

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"

	"gorm.io/gorm"
)

// DialectorFactory generates a gorm.Dialector from a DSN.
type DialectorFactory func(dsn string) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory corresponding to the specified DB type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// RegisteredTypes lists the registered database types in sorted order.
func RegisteredTypes() []string {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	types := make([]string, 0, len(dialectorRegistry))
	for t := range dialectorRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Open establishes a gorm connection for the repository configuration and applies pool settings.
func Open(cfg config.RepositoryConfig) (*gorm.DB, error) {
	const op = "gorm.Open"

	factory, err := GetDialectorFactory(cfg.Type)
	if err != nil {
		return nil, exception.NewBatchError(op, "unsupported repository type", err, false, false)
	}
	dialector, err := factory(cfg.DSN)
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to create dialector for %s", cfg.Type), err, false, false)
	}

	level := cfg.LogLevel
	if level == "" {
		level = config.LogLevelSilent
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(string(level))})
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to open GORM connection", err, false, true)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to get underlying sql.DB", err, false, false)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infof("Established job repository connection (%s).", cfg.Type)
	return db, nil
}
