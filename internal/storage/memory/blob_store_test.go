package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "reports/run.json", "application/json", payload)
	require.NoError(t, err)
	require.Equal(t, "memory://reports/run.json", uri)

	payload[0] = 'C'
	got, ok := store.Object("reports/run.json")
	require.True(t, ok)
	require.Equal(t, "content", string(got))
	require.Equal(t, []string{"reports/run.json"}, store.Paths())
}

func TestBlobStoreRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().PutObject(context.Background(), "", "application/json", nil)
	require.Error(t, err)

	_, ok := NewBlobStore().Object("missing")
	require.False(t, ok)
}
