package storage

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ignite/pkg/options"
	"github.com/tysonmote/gommap"
	"go.uber.org/zap"
)

// sealedSegment is an immutable, fully-written segment file. Its contents
// never change again, so it is read through a read-only memory mapping
// rather than per-call ReadAt syscalls.
type sealedSegment struct {
	id   uint64
	path string
	file *os.File
	mmap gommap.MMap
	size int64
}

// Store is the segment store: the collection of append-only log files that
// hold every record ever written, plus the bookkeeping needed to append to
// the current one, read from any of them, and replace the set wholesale
// during compaction.
//
// Exactly one segment is active (open for appends) at a time; every other
// discovered segment is sealed. Mutation of the active segment and of the
// sealed set is guarded by mu; generation is bumped only when compaction
// installs a new sealed set, giving long-lived readers (see the engine's
// per-clone cache) a cheap way to notice their cached handles are stale.
type Store struct {
	mu              sync.RWMutex
	activeSegmentId uint64
	activeSegment   *os.File
	size            int64
	sealed          map[uint64]*sealedSegment
	generation      atomic.Uint64
	closed          atomic.Bool

	options *options.Options
	log     *zap.SugaredLogger
}

// Config encapsulates all the configuration parameters required to
// initialize a Store instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}
