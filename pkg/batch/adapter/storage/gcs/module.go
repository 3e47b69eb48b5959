package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/datalake/pkg/batch/adapter/storage"
)

// Module contributes the GCS StorageProvider to group "storage_providers".
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
