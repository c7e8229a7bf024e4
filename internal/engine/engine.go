// Package engine provides the core database engine implementation for the Ignite storage system.
//
// The engine serves as the central coordinator and entry point for all database operations.
// It orchestrates the interaction between three main subsystems:
//   - Index: an in-memory hash table mapping every live key to its disk location.
//   - Storage: the append-only segment log that actually holds record bytes.
//   - Compaction: the process that reclaims stale bytes, run synchronously
//     from Set and Remove once the stale byte count crosses its threshold.
//
// Concurrency follows a single rule: any number of readers may run at
// once, but writers — Set, Remove, and compaction — are strictly
// serialized against one another. Readers that want to avoid contending
// on shared state entirely call Clone to get their own private read path.
package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ignite/internal/codec"
	"github.com/iamNilotpal/ignite/internal/compaction"
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/storage"
	igniteerrors "github.com/iamNilotpal/ignite/pkg/errors"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
	ErrEngineClosed = errors.New("operation failed: cannot access closed engine")
)

// New creates and initializes a new Engine instance with the provided configuration.
//
// Initialization opens the segment store — which always starts a fresh
// active segment, sealing whatever was found on disk — then replays every
// segment from the lowest id to the highest, applying Set and Remove
// records in log order to rebuild the index exactly as it stood before
// the previous shutdown.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, igniteerrors.NewValidationError(
			nil, igniteerrors.ErrorCodeInvalidInput, "Engine configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	idx, err := index.New(ctx, &index.Config{DataDir: config.Options.DataDir, Logger: config.Logger})
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, &storage.Config{Logger: config.Logger, Options: config.Options})
	if err != nil {
		return nil, err
	}

	if err := rebuildIndex(store, idx); err != nil {
		return nil, err
	}

	compactor := compaction.New(&compaction.Config{Store: store, Index: idx, Log: config.Logger})

	return &Engine{
		options:    config.Options,
		log:        config.Logger,
		index:      idx,
		store:      store,
		compaction: compactor,
		writeMu:    &sync.Mutex{},
		swapMu:     &sync.RWMutex{},
		closed:     &atomic.Bool{},
		cache:      newReaderCache(),
	}, nil
}

// rebuildIndex replays every segment, oldest first, applying each Set and
// Remove record to the index. Because segments are visited in increasing
// id order and records within a segment in write order, the last Insert or
// Remove seen for a key always wins — the same resolution the log itself
// encodes.
//
// Open always seals whatever segment was active before the previous
// shutdown, so that segment's last record may be a torn write if the
// process died mid-append. Only that one segment — the highest sealed id —
// tolerates a truncated trailing record; an undecodable record anywhere
// else is a hard failure, since every older segment is immutable and a bad
// byte there always means real corruption, not a torn write.
func rebuildIndex(store *storage.Store, idx *index.Index) error {
	sealed := store.SealedIDs()
	ids := append(sealed, store.ActiveID())

	var newestSealed uint64
	var hasSealed bool
	if len(sealed) > 0 {
		newestSealed, hasSealed = sealed[len(sealed)-1], true
	}

	for _, fid := range ids {
		err := store.Iterate(fid, func(rec codec.Record, pos uint64, length uint64) error {
			switch rec.Kind {
			case codec.KindSet:
				staleDelta := idx.Insert(rec.Key, index.CmdPos{SegmentID: fid, Pos: pos, Len: length})
				idx.AddStale(staleDelta)
			case codec.KindRemove:
				staleDelta, existed := idx.Remove(rec.Key)
				if existed {
					idx.AddStale(staleDelta + length)
				} else {
					idx.AddStale(length)
				}
			}
			return nil
		})

		if err != nil {
			if hasSealed && fid == newestSealed && isTrailingTruncation(err) {
				continue
			}
			return err
		}
	}

	return nil
}

// isTrailingTruncation reports whether err is a codec decode failure caused
// by a record that stopped partway through, as opposed to well-formed bytes
// that simply don't decode (an unknown tag, for instance).
//
// A torn write can leave either shape on disk: io.ReadFull returns
// io.ErrUnexpectedEOF when it read part of the payload before running out of
// bytes, but returns bare io.EOF when it read none at all (the header made
// it to disk, the value never did). DecodeOne wraps both inside a
// *CodecError, so a wrapped io.EOF here is unambiguous — the clean
// end-of-segment case is filtered out by Iterate before rebuildIndex ever
// sees it, and never reaches this function wrapped.
func isTrailingTruncation(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// Set stores value under key, appending a new record to the log and
// pointing the index at it. If the key already had a value, the old
// record's bytes become stale; if the running stale byte count crosses
// the configured threshold, compaction runs before Set returns.
func (e *Engine) Set(ctx context.Context, key string, value string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	data := codec.Encode(codec.Record{Kind: codec.KindSet, Key: key, Value: value})
	fid, pos, err := e.store.Append(data)
	if err != nil {
		return err
	}

	staleDelta := e.index.Insert(key, index.CmdPos{SegmentID: fid, Pos: pos, Len: uint64(len(data))})
	e.index.AddStale(staleDelta)

	return e.maintainLocked()
}

// Get returns the current value stored under key and whether it was
// found. A miss is reported by a false ok, never by an error — only a
// decode failure or an inconsistency between the index and the log
// itself is.
func (e *Engine) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	if e.closed.Load() {
		return "", false, ErrEngineClosed
	}

	// Hold swapMu for the whole lookup-then-read span so compaction can't
	// prune the segment a position just resolved to out from under us
	// between the index lookup and the read that follows it.
	e.swapMu.RLock()
	defer e.swapMu.RUnlock()

	pos, found := e.index.Get(key)
	if !found {
		return "", false, nil
	}

	data, err := e.readRecordBytes(pos)
	if err != nil {
		return "", false, err
	}

	rec, _, err := codec.DecodeOne(bytes.NewReader(data))
	if err != nil {
		return "", false, err
	}
	if rec.Key != key {
		return "", false, igniteerrors.NewCodecError(
			nil, igniteerrors.ErrorCodeCorrupt, "index points at a record for a different key",
		).WithSegmentID(pos.SegmentID).WithOffset(pos.Pos)
	}

	return rec.Value, true, nil
}

// readRecordBytes fetches the raw encoded bytes at pos, preferring this
// clone's private reader cache for any segment other than the one
// currently active.
func (e *Engine) readRecordBytes(pos index.CmdPos) ([]byte, error) {
	if pos.SegmentID == e.store.ActiveID() {
		return e.store.ReadAt(pos.SegmentID, pos.Pos, pos.Len)
	}
	return e.cache.get(e.store, pos.SegmentID, pos.Pos, pos.Len)
}

// Remove deletes key from the store by appending a tombstone record and
// dropping the key from the index. Removing an absent key is an error —
// callers that don't care whether a key existed should call Get first.
func (e *Engine) Remove(ctx context.Context, key string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if _, ok := e.index.Get(key); !ok {
		return igniteerrors.NewKeyNotFoundError(key)
	}

	data := codec.Encode(codec.Record{Kind: codec.KindRemove, Key: key})
	if _, _, err := e.store.Append(data); err != nil {
		return err
	}

	staleDelta, _ := e.index.Remove(key)
	e.index.AddStale(staleDelta + uint64(len(data)))

	return e.maintainLocked()
}

// maintainLocked runs compaction if accumulated stale bytes have crossed
// the configured threshold, then checks whether the active segment has
// grown past its size limit and needs to roll over. Callers must hold
// writeMu.
func (e *Engine) maintainLocked() error {
	if e.index.StaleBytes() >= e.options.CompactionThreshold {
		// Exclude readers for the whole of Run: it rewrites live records
		// into a new segment, replaces the active segment, and prunes the
		// ones it superseded. A reader that resolved a CmdPos
		// just before this lock is taken must finish its read before Run
		// is allowed to delete the segment that position names.
		e.swapMu.Lock()
		err := e.compaction.Run()
		e.swapMu.Unlock()
		if err != nil {
			return err
		}
	}

	if _, err := e.store.Rotate(); err != nil {
		return err
	}

	return nil
}

// Clone returns a new Engine sharing this one's index, segment store, and
// writer lock, but with its own private reader cache. Goroutines that want
// to read without contending on shared state take a clone each; writes
// through any clone are still serialized against every other clone,
// since the writer lock is shared.
func (e *Engine) Clone() *Engine {
	return &Engine{
		options:    e.options,
		log:        e.log,
		index:      e.index,
		store:      e.store,
		compaction: e.compaction,
		writeMu:    e.writeMu,
		swapMu:     e.swapMu,
		closed:     e.closed,
		cache:      newReaderCache(),
	}
}

// ReleaseClone releases this clone's private reader cache without
// affecting the shared index, store, or any other clone. Call this when a
// goroutine that took a Clone is done with it; call Close, instead, on the
// original Engine once every clone is finished, to tear down the shared
// subsystems.
func (e *Engine) ReleaseClone() {
	e.cache.Close()
}

// Close gracefully shuts down the engine and releases all associated
// resources. It closes the shared index and segment store, so it must
// only be called once every clone taken from this Engine is done with it.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	e.cache.Close()

	var firstErr error
	if err := e.index.Close(); err != nil {
		firstErr = err
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
