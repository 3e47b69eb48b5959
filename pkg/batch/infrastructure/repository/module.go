// Package repository selects and wires the JobRepository implementation named by the
// repository section of the configuration.
package repository

import (
	"context"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/datalake/pkg/batch/core/config"
	domainrepo "github.com/tigerroll/datalake/pkg/batch/core/domain/repository"
	"github.com/tigerroll/datalake/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/datalake/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// NewJobRepository builds the repository for cfg.Repository.Type.
func NewJobRepository(cfg *config.Config) (domainrepo.JobRepository, error) {
	if cfg.Repository.Type == "" || cfg.Repository.Type == "inmemory" {
		logger.Debugf("Using in-memory job repository.")
		return inmemory.NewInMemoryJobRepository(), nil
	}
	db, err := gormadapter.Open(cfg.Repository)
	if err != nil {
		return nil, err
	}
	return sqlrepo.NewSQLJobRepository(db)
}

func newJobRepositoryWithLifecycle(lc fx.Lifecycle, cfg *config.Config) (domainrepo.JobRepository, error) {
	repo, err := NewJobRepository(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return repo.Close()
		},
	})
	return repo, nil
}

// Module provides the configured domainrepo.JobRepository.
var Module = fx.Options(
	fx.Provide(newJobRepositoryWithLifecycle),
)
