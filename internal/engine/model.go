package engine

import (
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ignite/internal/compaction"
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/storage"
	"github.com/iamNilotpal/ignite/pkg/options"
	"go.uber.org/zap"
)

// Engine is the façade every IgniteDB operation goes through. It owns the
// three subsystems a Bitcask-style store is built from — the segment
// store, the in-memory index, and the compactor that reclaims space
// between them — and enforces the store's one concurrency rule: any
// number of readers may run at once, but writers (Set, Remove, and
// compaction) are strictly serialized against each other.
//
// Engine itself is shared, immutable state once constructed. A goroutine
// that wants its own private read-path file-handle cache calls Clone,
// which returns a new *Engine pointing at the same index, store, and
// writer lock but with an empty cache of its own.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger

	index      *index.Index
	store      *storage.Store
	compaction *compaction.Compactor

	// writeMu serializes Set, Remove, and Run (compaction). Reads never
	// take it — they only ever touch the index (its own RWMutex) and the
	// store (whose reads are lock-free against the sealed set and use
	// plain positional reads against the still-growing active segment).
	writeMu *sync.Mutex

	// swapMu coordinates a read against the moment compaction swaps in a
	// new segment set. Get holds a read lock for the span between looking
	// up a position in the index and finishing the read of the bytes it
	// points at; compaction holds the write lock only around Run, the call
	// that replaces the active segment and prunes the ones it superseded.
	// This is deliberately separate from writeMu — readers still never
	// take the writer mutex, they only ever briefly exclude compaction's
	// swap.
	swapMu *sync.RWMutex

	// closed guards against double-close and against operating on a shut
	// down engine. It is shared across clones: closing any clone closes
	// the whole engine.
	closed *atomic.Bool

	cache *readerCache
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}
