package storage

import (
	"context"

	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/datalake/pkg/batch/core/config"
)

type resolverParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *coreConfig.Config
	Providers []StorageProvider `group:"storage_providers"`
}

func newResolverWithLifecycle(p resolverParams) StorageConnectionResolver {
	r := NewConnectionResolver(p.Providers, p.Config)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
	return r
}

// Module provides the StorageConnectionResolver built from every provider in group "storage_providers".
// Backend modules (local, s3, gcs) contribute the providers.
var Module = fx.Options(
	fx.Provide(newResolverWithLifecycle),
)
