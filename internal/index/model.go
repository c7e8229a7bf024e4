package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// CmdPos is the triple an index entry resolves a key to: which segment
// holds its latest record, where that record starts, and how long it is.
// It is the only piece of information a read needs to go straight to the
// bytes on disk without scanning anything.
type CmdPos struct {
	SegmentID uint64
	Pos       uint64
	Len       uint64
}

// Entry pairs a key with its current position, as yielded by Snapshot.
type Entry struct {
	Key string
	Pos CmdPos
}

// Index is the in-memory hash table mapping every live key to its disk
// location. Any number of readers may call Get concurrently; mutation
// (Insert/Remove/Replace) is expected to come from a single writer at a
// time, serialized upstream by the engine's writer mutex. A running count
// of stale bytes accumulated by superseded records is kept alongside the
// map — the signal compaction watches.
type Index struct {
	log     *zap.SugaredLogger
	dataDir string
	mu      sync.RWMutex
	entries map[string]CmdPos
	stale   atomic.Uint64
	closed  atomic.Bool
}

// Config encapsulates the configuration parameters required to initialize
// an Index.
type Config struct {
	DataDir string
	Logger  *zap.SugaredLogger
}
