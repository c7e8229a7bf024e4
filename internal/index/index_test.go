package index_test

import (
	"context"
	"testing"

	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.New(context.Background(), &index.Config{
		DataDir: t.TempDir(),
		Logger:  logger.New("index-test"),
	})
	require.NoError(t, err)
	return idx
}

func TestInsertGetRoundTrip(t *testing.T) {
	idx := newTestIndex(t)

	delta := idx.Insert("k", index.CmdPos{SegmentID: 0, Pos: 0, Len: 10})
	require.Zero(t, delta)

	pos, ok := idx.Get("k")
	require.True(t, ok)
	require.Equal(t, index.CmdPos{SegmentID: 0, Pos: 0, Len: 10}, pos)
}

func TestInsertOverwriteReturnsPriorLength(t *testing.T) {
	idx := newTestIndex(t)

	idx.Insert("k", index.CmdPos{SegmentID: 0, Pos: 0, Len: 10})
	delta := idx.Insert("k", index.CmdPos{SegmentID: 0, Pos: 10, Len: 20})
	require.EqualValues(t, 10, delta)

	pos, ok := idx.Get("k")
	require.True(t, ok)
	require.EqualValues(t, 10, pos.Pos)
}

func TestRemoveAbsentKeyReportsNotExisted(t *testing.T) {
	idx := newTestIndex(t)
	delta, existed := idx.Remove("missing")
	require.False(t, existed)
	require.Zero(t, delta)
}

func TestRemoveDeletesEntry(t *testing.T) {
	idx := newTestIndex(t)
	idx.Insert("k", index.CmdPos{SegmentID: 0, Pos: 0, Len: 10})

	delta, existed := idx.Remove("k")
	require.True(t, existed)
	require.EqualValues(t, 10, delta)

	_, ok := idx.Get("k")
	require.False(t, ok)
}

func TestStaleBytesAccumulateAndReset(t *testing.T) {
	idx := newTestIndex(t)
	require.Zero(t, idx.StaleBytes())

	idx.AddStale(5)
	idx.AddStale(7)
	require.EqualValues(t, 12, idx.StaleBytes())

	idx.ResetStale()
	require.Zero(t, idx.StaleBytes())
}

func TestSnapshotIsPointInTime(t *testing.T) {
	idx := newTestIndex(t)
	idx.Insert("a", index.CmdPos{SegmentID: 0, Pos: 0, Len: 1})
	idx.Insert("b", index.CmdPos{SegmentID: 0, Pos: 1, Len: 1})

	snap := idx.Snapshot()
	require.Len(t, snap, 2)

	idx.Insert("c", index.CmdPos{SegmentID: 0, Pos: 2, Len: 1})
	require.Len(t, snap, 2)
	require.Equal(t, 3, idx.Len())
}

func TestReplaceSwapsEntireSet(t *testing.T) {
	idx := newTestIndex(t)
	idx.Insert("a", index.CmdPos{SegmentID: 0, Pos: 0, Len: 1})

	idx.Replace(map[string]index.CmdPos{"b": {SegmentID: 1, Pos: 0, Len: 2}})

	_, ok := idx.Get("a")
	require.False(t, ok)
	pos, ok := idx.Get("b")
	require.True(t, ok)
	require.EqualValues(t, 1, pos.SegmentID)
}

func TestCloseIsNotIdempotent(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())
	require.ErrorIs(t, idx.Close(), index.ErrIndexClosed)
}
