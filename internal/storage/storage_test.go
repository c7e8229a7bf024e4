package storage_test

import (
	"context"
	"testing"

	"github.com/iamNilotpal/ignite/internal/codec"
	"github.com/iamNilotpal/ignite/internal/storage"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/iamNilotpal/ignite/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxSegmentSize uint64) *storage.Store {
	t.Helper()

	opts := options.Options{}
	options.WithDefaultOptions()(&opts)
	options.WithDataDir(t.TempDir())(&opts)
	if maxSegmentSize > 0 {
		options.WithSegmentSize(maxSegmentSize)(&opts)
	}

	store, err := storage.Open(context.Background(), &storage.Config{
		Options: &opts,
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	return store
}

func TestOpenStartsAtSegmentZero(t *testing.T) {
	store := newTestStore(t, 0)
	require.EqualValues(t, 0, store.ActiveID())
	require.Empty(t, store.SealedIDs())
}

func TestAppendAndReadAtRoundTrip(t *testing.T) {
	store := newTestStore(t, 0)

	data := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "k", Value: "v"})
	fid, pos, err := store.Append(data)
	require.NoError(t, err)

	got, err := store.ReadAt(fid, pos, uint64(len(data)))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestReopenAlwaysStartsNewActiveSegment(t *testing.T) {
	dir := t.TempDir()
	opts := options.Options{}
	options.WithDefaultOptions()(&opts)
	options.WithDataDir(dir)(&opts)

	store, err := storage.Open(context.Background(), &storage.Config{Options: &opts, Logger: logger.Nop()})
	require.NoError(t, err)

	data := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "k", Value: "v"})
	_, _, err = store.Append(data)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := storage.Open(context.Background(), &storage.Config{Options: &opts, Logger: logger.Nop()})
	require.NoError(t, err)

	require.EqualValues(t, 1, reopened.ActiveID())
	require.Equal(t, []uint64{0}, reopened.SealedIDs())
}

func TestRotateSealsOnceSizeLimitReached(t *testing.T) {
	store := newTestStore(t, options.MinSegmentSize)

	data := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "k", Value: "v"})

	var rotated bool
	for i := 0; i < 1<<20 && !rotated; i++ {
		_, _, err := store.Append(data)
		require.NoError(t, err)
		rotated, err = store.Rotate()
		require.NoError(t, err)
	}

	require.True(t, rotated)
	require.Len(t, store.SealedIDs(), 1)
	require.EqualValues(t, 1, store.ActiveID())
}

func TestIterateYieldsRecordsInOrder(t *testing.T) {
	store := newTestStore(t, 0)

	first := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "a", Value: "1"})
	second := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "b", Value: "2"})
	_, _, err := store.Append(first)
	require.NoError(t, err)
	_, _, err = store.Append(second)
	require.NoError(t, err)

	var keys []string
	err = store.Iterate(store.ActiveID(), func(rec codec.Record, pos uint64, length uint64) error {
		keys = append(keys, rec.Key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keys)
}

func TestPruneBelowDeletesOlderSegments(t *testing.T) {
	store := newTestStore(t, options.MinSegmentSize)

	data := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "k", Value: "v"})
	_, _, err := store.Append(data)
	require.NoError(t, err)

	rotated, err := store.Rotate()
	require.NoError(t, err)
	require.False(t, rotated)

	newID := store.NextFreeID()
	w, err := store.CreateSealedSegment(newID)
	require.NoError(t, err)
	require.NoError(t, store.SealSegment(newID, w))
	require.NoError(t, store.ReplaceActive(newID+1))

	genBefore := store.Generation()
	require.NoError(t, store.PruneBelow(newID))
	require.Greater(t, store.Generation(), genBefore)
	require.Equal(t, []uint64{newID}, store.SealedIDs())
}
