// Package mysql registers the MySQL dialector for the gorm job repository.
package mysql

import (
	"errors"

	gormadapter "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(dsn string) (gorm.Dialector, error) {
		if dsn == "" {
			return nil, errors.New("MySQL DSN cannot be empty")
		}
		// parseTime is required so DATETIME columns scan into time.Time.
		return mysql.New(mysql.Config{DSN: dsn, DefaultStringSize: 255}), nil
	})
}
