// Package compaction implements log compaction: rewriting a segment
// store's live records into a single fresh sealed segment and discarding
// everything that came before it.
//
// A record becomes stale the moment a later Set or Remove for the same key
// lands in the log — the old bytes are still on disk but the index no
// longer points at them. Left unchecked, stale bytes accumulate forever.
// Compaction reclaims them by copying only what the index currently
// considers live into a brand-new segment, then pruning every older
// segment away.
package compaction

import (
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/storage"
	"go.uber.org/zap"
)

// Compactor runs the compaction algorithm against a segment store and the
// index that describes which of its records are still live.
type Compactor struct {
	store *storage.Store
	index *index.Index
	log   *zap.SugaredLogger
}

// Config holds the parameters needed to build a Compactor.
type Config struct {
	Store *storage.Store
	Index *index.Index
	Log   *zap.SugaredLogger
}

// New builds a Compactor over the given store and index. Both are shared
// with the engine that owns them — compaction does not take ownership of
// their lifecycle.
func New(config *Config) *Compactor {
	return &Compactor{store: config.Store, index: config.Index, log: config.Log}
}

// Run performs one full compaction pass:
//
//  1. Snapshot the index so the live set is fixed for the duration of the pass.
//  2. Copy every live record into a new sealed segment.
//  3. Fsync and seal that segment.
//  4. Open a new active segment one id past it.
//  5. Atomically swap the index to point at the new positions and reset
//     the stale byte counter.
//  6. Delete every segment the new one superseded.
//
// This runs unconditionally, even when the index is empty — an empty live
// set just produces an empty new segment, but steps 4-6 still need to run
// to actually reclaim whatever garbage the removed keys left behind and to
// reset the stale byte counter. Skipping them when nothing is live would
// leave that garbage on disk forever.
//
// Callers are expected to hold the engine's writer lock for the duration of
// Run — compaction and ordinary writes must never interleave, since both
// mutate the index and the segment set.
func (c *Compactor) Run() error {
	entries := c.index.Snapshot()

	newSegmentID := c.store.NextFreeID()
	c.log.Infow("Starting compaction", "liveKeys", len(entries), "newSegmentID", newSegmentID)

	writer, err := c.store.CreateSealedSegment(newSegmentID)
	if err != nil {
		return err
	}

	rewritten := make(map[string]index.CmdPos, len(entries))
	var offset uint64
	for _, entry := range entries {
		data, err := c.store.ReadAt(entry.Pos.SegmentID, entry.Pos.Pos, entry.Pos.Len)
		if err != nil {
			return err
		}

		n, err := writer.WriteAt(data, int64(offset))
		if err != nil {
			return err
		}

		rewritten[entry.Key] = index.CmdPos{SegmentID: newSegmentID, Pos: offset, Len: entry.Pos.Len}
		offset += uint64(n)
	}

	if err := c.store.SealSegment(newSegmentID, writer); err != nil {
		return err
	}

	if err := c.store.ReplaceActive(newSegmentID + 1); err != nil {
		return err
	}

	c.index.Replace(rewritten)
	c.index.ResetStale()

	if err := c.store.PruneBelow(newSegmentID); err != nil {
		return err
	}

	c.log.Infow("Compaction complete", "liveKeys", len(rewritten), "newActiveID", newSegmentID+1)
	return nil
}
