package s3

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/datalake/pkg/batch/adapter/storage"
)

// Module contributes the S3 StorageProvider to group "storage_providers".
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewS3Provider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
