package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	body := []byte("universe_id,cusip\n42,037833100")

	require.NoError(t, store.Put(ctx, "42/cusip.csv", body))
	first, err := store.List(ctx, "")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "42/cusip.csv", body))
	second, err := store.List(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	got, err := store.Get(ctx, "42/cusip.csv")
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreOverwriteAndCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	body := []byte("old")
	require.NoError(t, store.Put(ctx, "/1/isin.csv", body))
	body[0] = 'x'

	got, err := store.Get(ctx, "1/isin.csv")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got), "store must copy caller buffers")

	require.NoError(t, store.Put(ctx, "1/isin.csv", []byte("new")))
	got, err = store.Get(ctx, "1/isin.csv")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestMemoryStoreListByPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, key := range []string{"1/a.csv", "1/b.csv", "10/a.csv", "2/a.csv"} {
		require.NoError(t, store.Put(ctx, key, []byte("x")))
	}
	keys, err := store.List(ctx, "1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"1/a.csv", "1/b.csv"}, keys)
}

func TestMemoryStoreErrors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, store.Put(ctx, "  ", []byte("x")))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, store.Put(canceled, "1/a.csv", []byte("x")), context.Canceled)
}

func TestNewS3StoreValidatesConfig(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.Error(t, err)
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", Bucket: "b"})
	assert.Error(t, err)
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.Error(t, err)

	store, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: " risk-artifacts "})
	require.NoError(t, err)
	assert.Equal(t, "risk-artifacts", store.Bucket())
	assert.Equal(t, "us-east-1", store.region)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", contentTypeFor("42/cusip.csv"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("42/blob"))
}
