package engine

import (
	"os"
	"sync"

	"github.com/iamNilotpal/ignite/internal/storage"
	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/tysonmote/gommap"
)

// cachedSegment is one clone's private, read-only view onto a sealed
// segment file — its own file descriptor and memory mapping, independent
// of the one the shared segment store holds.
type cachedSegment struct {
	file *os.File
	mmap gommap.MMap
	size int64
}

// readerCache is the per-clone cache of sealed-segment handles that lets
// concurrent readers satisfy Get without ever contending on the segment
// store's lock. It is realized per Clone rather than per OS thread, since
// Go's goroutines — not threads — are the unit of concurrency here; any
// goroutine that wants lock-free reads takes its own Engine clone.
//
// The cache is invalidated in bulk whenever the store's generation counter
// advances, which only happens when compaction installs a new sealed set —
// a plain size-triggered rotation never invalidates it, since rotation
// only ever adds a new sealed segment, never removes or renumbers one a
// cache might already hold open.
type readerCache struct {
	mu         sync.Mutex
	generation uint64
	segments   map[uint64]*cachedSegment
}

func newReaderCache() *readerCache {
	return &readerCache{segments: make(map[uint64]*cachedSegment)}
}

// get returns length bytes at pos in sealed segment fid, opening and
// caching a private mapping for fid on first use.
func (c *readerCache) get(store *storage.Store, fid uint64, pos, length uint64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen := store.Generation(); gen != c.generation {
		c.invalidateLocked()
		c.generation = gen
	}

	seg, ok := c.segments[fid]
	if !ok {
		opened, err := c.openLocked(store, fid)
		if err != nil {
			return nil, err
		}
		seg = opened
		c.segments[fid] = seg
	}

	end := pos + length
	if end > uint64(seg.size) {
		return nil, errors.NewStorageError(
			nil, errors.ErrorCodeCorrupt, "Read past end of cached sealed segment",
		).WithPath(store.SegmentPath(fid)).WithDetail("offset", pos).WithDetail("length", length)
	}

	out := make([]byte, length)
	copy(out, seg.mmap[pos:end])
	return out, nil
}

func (c *readerCache) openLocked(store *storage.Store, fid uint64) (*cachedSegment, error) {
	path := store.SegmentPath(fid)

	file, err := os.OpenFile(path, os.O_RDONLY, 0644)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open sealed segment for reader cache").
			WithPath(path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to stat sealed segment for reader cache").
			WithPath(path)
	}

	var mmap gommap.MMap
	if stat.Size() > 0 {
		mmap, err = gommap.Map(file.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
		if err != nil {
			file.Close()
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to map sealed segment for reader cache").
				WithPath(path)
		}
	}

	return &cachedSegment{file: file, mmap: mmap, size: stat.Size()}, nil
}

func (c *readerCache) invalidateLocked() {
	for _, seg := range c.segments {
		if seg.mmap != nil {
			seg.mmap.UnsafeUnmap()
		}
		seg.file.Close()
	}
	c.segments = make(map[uint64]*cachedSegment)
}

// Close releases every handle this clone's cache is holding open.
func (c *readerCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}
