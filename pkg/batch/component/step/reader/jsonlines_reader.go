// Package reader provides the source readers of the batch pipelines.
package reader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// maxLineBytes caps a single JSON line.
const maxLineBytes = 64 << 20

// DecodeFunc builds one record from the members of a JSON object.
// Type mismatches are reported through fields.Malformed.
type DecodeFunc[T any] func(fields *Fields) T

// JSONLinesReaderConfig holds the configuration for JSONLinesReader.
type JSONLinesReaderConfig struct {
	// StorageRef is the name of the storage connection holding the input.
	StorageRef string
	// Root is the object prefix the glob is relative to (may be empty).
	Root string
	// Glob selects the input objects, e.g. "song_data/*/*/*/*.json". "**" is supported.
	Glob string
}

// ReadStats summarizes one Read.
type ReadStats struct {
	Objects         int
	Lines           int
	MalformedLines  int
	MalformedFields int
}

// JSONLinesReader reads every object matching a glob as newline-delimited JSON.
// Objects are sorted by name and each becomes one partition of the resulting Dataset,
// with rows in file order.
type JSONLinesReader[T any] struct {
	name     string
	config   JSONLinesReaderConfig
	resolver storage.StorageConnectionResolver
	engine   *dataset.Engine
	decode   DecodeFunc[T]
}

// NewJSONLinesReader creates a new instance of JSONLinesReader.
func NewJSONLinesReader[T any](
	name string,
	config JSONLinesReaderConfig,
	resolver storage.StorageConnectionResolver,
	engine *dataset.Engine,
	decode DecodeFunc[T],
) (*JSONLinesReader[T], error) {
	if config.StorageRef == "" {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("JSONLinesReader '%s' requires a storage ref", name), nil, false, false)
	}
	if config.Glob == "" {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("JSONLinesReader '%s' requires a glob", name), nil, false, false)
	}
	if !doublestar.ValidatePattern(config.Glob) {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("JSONLinesReader '%s': invalid glob '%s'", name, config.Glob), doublestar.ErrBadPattern, false, false)
	}
	return &JSONLinesReader[T]{
		name:     name,
		config:   config,
		resolver: resolver,
		engine:   engine,
		decode:   decode,
	}, nil
}

// Pattern returns the glob joined with the root, as matched against object names.
func (r *JSONLinesReader[T]) Pattern() string {
	root := strings.Trim(r.config.Root, "/")
	if root == "" {
		return r.config.Glob
	}
	return path.Join(root, r.config.Glob)
}

// ListInputs returns the sorted names of the objects matching the pattern.
func (r *JSONLinesReader[T]) ListInputs(ctx context.Context, conn storage.StorageConnection) ([]string, error) {
	pattern := r.Pattern()
	base, _ := doublestar.SplitPattern(pattern)
	prefix := ""
	if base != "." && base != "" {
		prefix = base + "/"
	}

	var names []string
	err := conn.ListObjects(ctx, "", prefix, func(objectName string) error {
		ok, err := doublestar.Match(pattern, objectName)
		if err != nil {
			return err
		}
		if ok {
			names = append(names, objectName)
		}
		return nil
	})
	if err != nil {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("JSONLinesReader '%s': failed to list '%s'", r.name, pattern), err, false, true)
	}
	sort.Strings(names)
	return names, nil
}

// Read loads every matching object. Lines that are not JSON objects become zero-value
// records and fields of the wrong type become null; both are counted, neither fails the read.
// No matching object yields an empty Dataset.
func (r *JSONLinesReader[T]) Read(ctx context.Context) (*dataset.Dataset[T], ReadStats, error) {
	var stats ReadStats
	conn, err := r.resolver.ResolveStorageConnection(ctx, r.config.StorageRef)
	if err != nil {
		return nil, stats, exception.NewBatchError("reader", fmt.Sprintf("JSONLinesReader '%s': failed to resolve storage '%s'", r.name, r.config.StorageRef), err, false, false)
	}

	names, err := r.ListInputs(ctx, conn)
	if err != nil {
		return nil, stats, err
	}
	if len(names) == 0 {
		logger.Warnf("JSONLinesReader '%s': no objects match '%s' in '%s'.", r.name, r.Pattern(), r.config.StorageRef)
		return dataset.FromPartitions[T](nil), stats, nil
	}

	partitions := make([][]T, len(names))
	var lines, badLines, badFields atomic.Int64
	err = r.engine.Run(ctx, len(names), func(ctx context.Context, i int) error {
		rows, s, err := r.readObject(ctx, conn, names[i])
		if err != nil {
			return err
		}
		partitions[i] = rows
		lines.Add(int64(s.Lines))
		badLines.Add(int64(s.MalformedLines))
		badFields.Add(int64(s.MalformedFields))
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	stats = ReadStats{
		Objects:         len(names),
		Lines:           int(lines.Load()),
		MalformedLines:  int(badLines.Load()),
		MalformedFields: int(badFields.Load()),
	}
	logger.Infof("JSONLinesReader '%s': read %d records from %d objects (%d malformed lines, %d malformed fields).",
		r.name, stats.Lines, stats.Objects, stats.MalformedLines, stats.MalformedFields)
	return dataset.FromPartitions(partitions), stats, nil
}

func (r *JSONLinesReader[T]) readObject(ctx context.Context, conn storage.StorageConnection, objectName string) ([]T, ReadStats, error) {
	var stats ReadStats
	rc, err := conn.Download(ctx, "", objectName)
	if err != nil {
		return nil, stats, exception.NewBatchError("reader", fmt.Sprintf("JSONLinesReader '%s': failed to download '%s'", r.name, objectName), err, false, true)
	}
	defer rc.Close()

	var rows []T
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var members map[string]json.RawMessage
		if err := json.Unmarshal(line, &members); err != nil || members == nil {
			logger.Debugf("JSONLinesReader '%s': %s:%d is not a JSON object: %v", r.name, objectName, lineNo, err)
			stats.MalformedLines++
			var zero T
			rows = append(rows, zero)
			continue
		}
		fields := NewFields(members)
		rows = append(rows, r.decode(fields))
		stats.MalformedFields += fields.Malformed
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, exception.NewBatchError("reader", fmt.Sprintf("JSONLinesReader '%s': failed to read '%s'", r.name, objectName), err, false, true)
	}
	return rows, stats, nil
}
