package artifact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUnreachableS3Store(t *testing.T) *S3Store {
	t.Helper()
	store, err := NewS3Store(S3Config{
		Endpoint:  "127.0.0.1:1",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "bkt",
	})
	require.NoError(t, err)
	return store
}

func TestS3StoreCancelledPutDoesNotPoisonBucketCheck(t *testing.T) {
	store := newUnreachableS3Store(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.Put(cancelled, "42/cusip.csv", []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.ready)

	calls := 0
	store.bootstrap = func(ctx context.Context) error {
		calls++
		return nil
	}
	require.NoError(t, store.ensureBucket(context.Background()))
	assert.Equal(t, 1, calls, "live caller must reach the client")
}

func TestS3StoreBucketCheckRetriesUntilSuccess(t *testing.T) {
	store := newUnreachableS3Store(t)
	errDown := errors.New("connection reset")

	calls := 0
	store.bootstrap = func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errDown
		}
		return nil
	}

	require.ErrorIs(t, store.ensureBucket(context.Background()), errDown)
	require.NoError(t, store.ensureBucket(context.Background()))
	require.NoError(t, store.ensureBucket(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestS3StoreBucketCheckOutlivesCaller(t *testing.T) {
	store := newUnreachableS3Store(t)
	ctx, cancel := context.WithCancel(context.Background())

	store.bootstrap = func(checkCtx context.Context) error {
		cancel()
		return checkCtx.Err()
	}
	require.NoError(t, store.ensureBucket(ctx))
	assert.True(t, store.ready)
}
