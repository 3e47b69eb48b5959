package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/datalake/pkg/batch/adapter/storage"
)

// Module contributes the local StorageProvider to group "storage_providers".
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
