package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Upload(context.Context, string, []byte, string) error {
	return errors.New("bucket unavailable")
}

func TestImportArchive_Archive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStorage()
	archive := NewImportArchive(store, "imports")
	archive.now = func() time.Time { return time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC) }

	key, err := archive.Archive(ctx, "March batches.csv", []byte("SKU,Expiry Date,Quantity\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "imports/2024/03/01/"), key)
	assert.True(t, strings.HasSuffix(key, "-March_batches.csv"), key)

	data, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "SKU,Expiry Date,Quantity\n", string(data))

	second, err := archive.Archive(ctx, "March batches.csv", []byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, key, second, "every upload gets its own key")
	assert.Len(t, store.Keys(), 2)
}

func TestImportArchive_UploadError(t *testing.T) {
	archive := NewImportArchive(failingStore{}, "")
	_, err := archive.Archive(context.Background(), "a.csv", []byte("x"))
	assert.EqualError(t, err, "bucket unavailable")
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "passwd", safeName("../../etc/passwd"))
	assert.Equal(t, "stock.csv", safeName(`C:\Users\me\stock.csv`))
	assert.Equal(t, "upload.csv", safeName(""))
	assert.Equal(t, "a_b.csv", safeName("a b.csv"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", contentTypeFor("a.CSV"))
	assert.Contains(t, contentTypeFor("a.xlsx"), "spreadsheetml")
	assert.Equal(t, "application/octet-stream", contentTypeFor("a.pdf"))
}

func TestMemoryObjectStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStorage()

	data := []byte("v")
	require.NoError(t, store.Upload(ctx, "k", data, "text/plain"))
	data[0] = 'x'
	got, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got), "upload keeps its own copy")

	_, ok = store.Get("missing")
	assert.False(t, ok)
	assert.ErrorIs(t, store.Upload(ctx, "", nil, ""), errKeyRequired)
}
