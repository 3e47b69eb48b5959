// Package transform holds the pipeline logic of the song-play job: projection and
// deduplication of the dimensions, timestamp decomposition, surrogate keys and the
// songplay join. Every function is a pure transformation of datasets.
package transform

import (
	"cmp"
	"fmt"

	"github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
)

// ValidateDedupPolicy rejects unknown dedup policies.
func ValidateDedupPolicy(policy string) error {
	switch policy {
	case config.DedupFullTuple, config.DedupNaturalKey:
		return nil
	}
	return exception.NewBatchError("transform", fmt.Sprintf("unknown dedup policy '%s'", policy), nil, false, false)
}

// ValidateJoinPolicy rejects unknown join policies.
func ValidateJoinPolicy(policy string) error {
	switch policy {
	case config.JoinFanout, config.JoinLowestSongID:
		return nil
	}
	return exception.NewBatchError("transform", fmt.Sprintf("unknown join policy '%s'", policy), nil, false, false)
}

// compareNullable orders nil before any value.
func compareNullable[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

// nullableValue flattens a nullable float into a comparable pair.
type nullableValue struct {
	Valid bool
	Value float64
}

func nullable(p *float64) nullableValue {
	if p == nil {
		return nullableValue{}
	}
	return nullableValue{Valid: true, Value: *p}
}

// stringValue maps a null string to "".
func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
