package db

import (
	"context"
	"path/filepath"
	"testing"

	"slopefs/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "predictions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := ml.Result{FS: 1.734, Conclusion: ml.Safe, Features: ml.FeatureVector{10, 40, 50, 60, 30, 10, 35}}
	second := ml.Result{FS: 0.812, Conclusion: ml.Dangerous, Features: ml.FeatureVector{1, 2, 3, 4, 5, 6, 7}}

	id1, err := store.Record(ctx, "req-1", first)
	require.NoError(t, err)
	id2, err := store.Record(ctx, "", second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, id2, records[0].ID, "newest first")
	assert.Equal(t, ml.Dangerous, records[0].Conclusion)
	assert.Empty(t, records[0].RequestID)
	assert.Equal(t, "req-1", records[1].RequestID)
	assert.Equal(t, 1.734, records[1].FS)
	assert.Equal(t, 35.0, records[1].Features["beta"])
	assert.False(t, records[1].CreatedAt.IsZero())

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStoreCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, c := range []ml.Classification{ml.Safe, ml.Safe, ml.NeedsReview} {
		_, err := store.Record(ctx, "", ml.Result{FS: 1, Conclusion: c})
		require.NoError(t, err)
	}

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[ml.Safe])
	assert.Equal(t, 1, counts[ml.NeedsReview])
	assert.Zero(t, counts[ml.Dangerous])
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
