// Package postgres registers the PostgreSQL dialector for the gorm job repository.
package postgres

import (
	"errors"

	gormadapter "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gormadapter.RegisterDialector("postgres", func(dsn string) (gorm.Dialector, error) {
		if dsn == "" {
			return nil, errors.New("PostgreSQL DSN cannot be empty")
		}
		// e.g. "host=localhost port=5432 user=batch password=... dbname=batch sslmode=disable"
		return postgres.Open(dsn), nil
	})
}
