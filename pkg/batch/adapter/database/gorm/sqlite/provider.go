// Package sqlite registers the SQLite dialector for the gorm job repository.
package sqlite

import (
	"errors"

	gormadapter "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(dsn string) (gorm.Dialector, error) {
		if dsn == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(dsn), nil
	})
}
