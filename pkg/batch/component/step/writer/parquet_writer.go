// Package writer provides the table writers of the batch pipelines.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

const (
	// HiveDefaultPartition names the directory of rows whose partition value is empty.
	HiveDefaultPartition = "__HIVE_DEFAULT_PARTITION__"
	// SuccessMarker is written after every file of a table has been uploaded.
	SuccessMarker = "_SUCCESS"

	parquetContentType = "application/octet-stream"
	// encoderParallelism is the goroutine count parquet-go uses per file; files themselves
	// are encoded concurrently by the engine.
	encoderParallelism = 1
)

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// StorageRef is the name of the storage connection to write to.
	StorageRef string
	// OutputRoot is the object prefix of every table (may be empty).
	OutputRoot string
	// Table is the table name; files go to <OutputRoot>/<Table>/<Table>.parquet/.
	Table string
	// PartitionBy lists the Hive partition columns, outermost first.
	PartitionBy []string
	// CompressionType is "snappy" (default), "gzip" or "uncompressed".
	CompressionType string
	// RunID is embedded in every file name.
	RunID string
}

// PartitionFunc returns the partition values of a row, in PartitionBy order.
type PartitionFunc[T any] func(T) []string

// WriteStats summarizes one Write.
type WriteStats struct {
	Rows       int
	Files      int
	Partitions []string
	Deleted    int
}

// ParquetWriter writes a Dataset as a Hive-partitioned Parquet table in overwrite mode.
type ParquetWriter[T any] struct {
	name     string
	config   ParquetWriterConfig
	resolver storage.StorageConnectionResolver
	engine   *dataset.Engine
	// itemPrototype is a pointer to a zero-value instance of the row type, used for schema reflection.
	itemPrototype *T
	partitionFunc PartitionFunc[T]
	codec         parquet.CompressionCodec
}

// NewParquetWriter creates a new instance of ParquetWriter.
// partitionFunc may be nil when PartitionBy is empty.
func NewParquetWriter[T any](
	name string,
	config ParquetWriterConfig,
	resolver storage.StorageConnectionResolver,
	engine *dataset.Engine,
	itemPrototype *T,
	partitionFunc PartitionFunc[T],
) (*ParquetWriter[T], error) {
	if config.StorageRef == "" {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' requires a storage ref.", name), nil, false, false)
	}
	if config.Table == "" {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' requires a table name.", name), nil, false, false)
	}
	if len(config.PartitionBy) > 0 && partitionFunc == nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' is partitioned by %v but has no partition function.", name, config.PartitionBy), nil, false, false)
	}
	codec, err := getCompressionCodec(config.CompressionType)
	if err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("Invalid compression type '%s' for ParquetWriter '%s'", config.CompressionType, name), err, false, false)
	}
	if config.RunID == "" {
		config.RunID = "00000000-0000-0000-0000-000000000000"
	}
	return &ParquetWriter[T]{
		name:          name,
		config:        config,
		resolver:      resolver,
		engine:        engine,
		itemPrototype: itemPrototype,
		partitionFunc: partitionFunc,
		codec:         codec,
	}, nil
}

// TablePath returns the object prefix the table is written under, without a trailing slash.
func (w *ParquetWriter[T]) TablePath() string {
	return joinObjectPath(w.config.OutputRoot, w.config.Table, w.config.Table+".parquet")
}

// Write replaces the table with the rows of d: every existing object under TablePath is
// deleted, then one file per partition directory is encoded and uploaded, then the
// success marker. Partition failures are collected and returned together.
func (w *ParquetWriter[T]) Write(ctx context.Context, d *dataset.Dataset[T]) (WriteStats, error) {
	var stats WriteStats
	conn, err := w.resolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return stats, exception.NewBatchError("writer", fmt.Sprintf("Failed to resolve storage connection '%s' for ParquetWriter '%s'", w.config.StorageRef, w.name), err, false, false)
	}

	deleted, err := w.clear(ctx, conn)
	stats.Deleted = deleted
	if err != nil {
		return stats, err
	}

	groups, keys, err := w.group(d)
	if err != nil {
		return stats, err
	}

	errs := make([]error, len(keys))
	runErr := w.engine.Run(ctx, len(keys), func(ctx context.Context, i int) error {
		dir := keys[i]
		objectName := joinObjectPath(w.TablePath(), dir, w.fileName(i))
		errs[i] = w.writeFile(ctx, conn, objectName, groups[dir])
		return nil
	})

	var result *multierror.Error
	if runErr != nil {
		result = multierror.Append(result, runErr)
	}
	for i, e := range errs {
		if e != nil {
			result = multierror.Append(result, e)
			continue
		}
		stats.Files++
		stats.Rows += len(groups[keys[i]])
		if keys[i] != "" {
			stats.Partitions = append(stats.Partitions, keys[i])
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return stats, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to write table '%s'", w.name, w.config.Table), err, false, false)
	}

	marker := joinObjectPath(w.TablePath(), SuccessMarker)
	if err := conn.Upload(ctx, "", marker, bytes.NewReader(nil), "text/plain"); err != nil {
		return stats, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to write '%s'", w.name, marker), err, false, false)
	}

	logger.Infof("ParquetWriter '%s': wrote %d rows in %d files to %s/%s.", w.name, stats.Rows, stats.Files, w.config.StorageRef, w.TablePath())
	return stats, nil
}

// clear deletes every object under the table prefix.
func (w *ParquetWriter[T]) clear(ctx context.Context, conn storage.StorageConnection) (int, error) {
	prefix := w.TablePath() + "/"
	var existing []string
	if err := conn.ListObjects(ctx, "", prefix, func(objectName string) error {
		existing = append(existing, objectName)
		return nil
	}); err != nil {
		return 0, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to list '%s'", w.name, prefix), err, false, false)
	}
	for _, objectName := range existing {
		if err := conn.DeleteObject(ctx, "", objectName); err != nil {
			return 0, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to delete '%s'", w.name, objectName), err, false, false)
		}
	}
	if len(existing) > 0 {
		logger.Debugf("ParquetWriter '%s': overwrite removed %d objects under %s.", w.name, len(existing), prefix)
	}
	return len(existing), nil
}

// group buckets rows by partition directory, keeping dataset order inside each bucket.
// Keys are returned sorted; the flat table uses the single key "".
func (w *ParquetWriter[T]) group(d *dataset.Dataset[T]) (map[string][]T, []string, error) {
	groups := make(map[string][]T)
	for _, part := range d.Partitions() {
		for _, row := range part {
			dir := ""
			if len(w.config.PartitionBy) > 0 {
				values := w.partitionFunc(row)
				if len(values) != len(w.config.PartitionBy) {
					return nil, nil, exception.NewBatchError("writer",
						fmt.Sprintf("ParquetWriter '%s': partition function returned %d values for columns %v", w.name, len(values), w.config.PartitionBy), nil, false, false)
				}
				dir = HivePartitionPath(w.config.PartitionBy, values)
			}
			groups[dir] = append(groups[dir], row)
		}
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return groups, keys, nil
}

func (w *ParquetWriter[T]) writeFile(ctx context.Context, conn storage.StorageConnection, objectName string, rows []T) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	started := time.Now()
	buf := new(bytes.Buffer)

	pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, encoderParallelism)
	if err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("Failed to create Parquet writer for '%s'", objectName), err, false, false)
	}
	pw.CompressionType = w.codec

	// parquet-go panics on some schema mismatches instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = exception.NewBatchError("writer", fmt.Sprintf("Parquet writer panicked for '%s': %v", objectName, r), nil, false, false)
			logger.Errorf("ParquetWriter '%s': Recovered from panic while encoding '%s': %v", w.name, objectName, r)
		}
	}()

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("Failed to write row to '%s'", objectName), err, false, false)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("Failed to finalize '%s'", objectName), err, false, false)
	}

	size := buf.Len()
	if err := conn.Upload(ctx, "", objectName, buf, parquetContentType); err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("Failed to upload '%s'", objectName), err, false, true)
	}
	logger.Debugf("ParquetWriter '%s': uploaded %s (%d rows, %d bytes) in %s.", w.name, objectName, len(rows), size, time.Since(started))
	return nil
}

func (w *ParquetWriter[T]) fileName(index int) string {
	return fmt.Sprintf("part-%05d-%s%s", index, w.config.RunID, fileExtension(w.codec))
}

// HivePartitionPath builds "col1=v1/col2=v2". Values are path-escaped; an empty value
// maps to HiveDefaultPartition.
func HivePartitionPath(columns, values []string) string {
	segments := make([]string, len(columns))
	for i, col := range columns {
		v := values[i]
		if v == "" {
			v = HiveDefaultPartition
		} else {
			v = url.PathEscape(v)
		}
		segments[i] = col + "=" + v
	}
	return strings.Join(segments, "/")
}

func joinObjectPath(elems ...string) string {
	var parts []string
	for _, e := range elems {
		if e = strings.Trim(e, "/"); e != "" {
			parts = append(parts, e)
		}
	}
	return path.Join(parts...)
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY", "":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

func fileExtension(codec parquet.CompressionCodec) string {
	switch codec {
	case parquet.CompressionCodec_SNAPPY:
		return ".snappy.parquet"
	case parquet.CompressionCodec_GZIP:
		return ".gz.parquet"
	default:
		return ".parquet"
	}
}
