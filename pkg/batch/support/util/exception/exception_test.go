package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("bucket not reachable")
	be := exception.NewBatchError("writer", "failed to upload", originalErr, false, true)

	assert.Equal(t, "writer", be.Module)
	assert.Equal(t, "failed to upload", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[writer] failed to upload: bucket not reachable")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("reader", "object %s not found", "song_data/A/A/A/x.json")
	assert.False(t, be1.IsRetryable())
	assert.False(t, be1.IsSkippable())
	assert.Nil(t, be1.Unwrap())
	assert.Contains(t, be1.Error(), "[reader] object song_data/A/A/A/x.json not found")

	// A single trailing bool is the retryable flag.
	be2 := exception.NewBatchErrorf("storage", "timeout listing objects", true)
	assert.True(t, be2.IsRetryable())
	assert.False(t, be2.IsSkippable())

	be3 := exception.NewBatchErrorf("reader", "bad line %d", 5, true, false)
	assert.False(t, be3.IsRetryable())
	assert.True(t, be3.IsSkippable())

	cause := errors.New("unexpected EOF")
	be4 := exception.NewBatchErrorf("reader", "bad line %d", 7, true, true, cause)
	assert.True(t, be4.IsRetryable())
	assert.True(t, be4.IsSkippable())
	assert.Equal(t, cause, be4.Unwrap())
	assert.Equal(t, "bad line 7", be4.Message)
}

func TestIsTemporaryAndIsFatal(t *testing.T) {
	retryable := exception.NewBatchError("storage", "timeout", errors.New("timeout"), false, true)
	assert.True(t, exception.IsTemporary(retryable))
	assert.False(t, exception.IsFatal(retryable))

	fatal := exception.NewBatchError("writer", "encode failed", errors.New("boom"), false, false)
	assert.False(t, exception.IsTemporary(fatal))
	assert.True(t, exception.IsFatal(fatal))

	skippable := exception.NewBatchError("reader", "bad record", nil, true, false)
	assert.False(t, exception.IsFatal(skippable))

	assert.True(t, exception.IsTemporary(errors.New("dial tcp: connection refused")))
	assert.True(t, exception.IsFatal(errors.New("s3: access denied")))
	assert.False(t, exception.IsFatal(nil))
}

func TestWrappedBatchErrorIsDetected(t *testing.T) {
	be := exception.NewBatchError("writer", "upload failed", nil, false, true)
	wrapped := fmt.Errorf("step logDataStep: %w", be)

	assert.True(t, exception.IsBatchError(wrapped))
	assert.True(t, exception.IsTemporary(wrapped))
	assert.Equal(t, "upload failed", exception.ExtractErrorMessage(wrapped))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}
