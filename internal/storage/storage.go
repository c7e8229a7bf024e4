// Package storage implements the on-disk segment log: the append-only
// files that hold every record IgniteDB has ever written.
//
// Records live in numbered segment files named "<fid>.log". Exactly one
// segment is active — open for appends — at any moment; every other
// segment on disk is sealed and immutable. A sealed segment is read
// through a read-only memory mapping since its bytes never change again;
// the active segment is read with plain positional reads since it is
// still growing.
//
// On Open, the store always begins a brand-new active segment one id
// past whatever the highest existing segment id is, even if a previous
// run left an active segment with spare capacity — every segment the
// store discovers on disk is therefore sealed from the moment the store
// opens it. During normal operation the active segment rotates into a
// sealed segment once it crosses the configured size limit.
package storage

import (
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/iamNilotpal/ignite/internal/codec"
	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/filesys"
	"github.com/iamNilotpal/ignite/pkg/options"
	"github.com/iamNilotpal/ignite/pkg/seginfo"
	"github.com/tysonmote/gommap"
	"go.uber.org/zap"
)

var (
	ErrSegmentClosed  = stdErrors.New("operation failed: cannot access closed segment store")
	ErrSegmentMissing = stdErrors.New("operation failed: segment id not found in store")
)

// Open discovers every existing segment file in the configured segment
// directory, maps each of them read-only as sealed, and starts a fresh
// active segment one id past the highest one found.
func Open(ctx context.Context, config *Config) (*Store, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, fmt.Errorf("invalid configuration")
	}

	config.Logger.Infow(
		"Initializing segment store",
		"dataDir", config.Options.DataDir,
		"maxSegmentSize", config.Options.SegmentOptions.Size,
		"segmentDir", config.Options.SegmentOptions.Directory,
	)

	segmentDirPath := filepath.Join(config.Options.DataDir, config.Options.SegmentOptions.Directory)
	if err := filesys.CreateDir(segmentDirPath, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, segmentDirPath)
	}

	store := &Store{
		options: config.Options,
		log:     config.Logger,
		sealed:  make(map[uint64]*sealedSegment),
	}

	paths, err := filesys.ReadDir(filepath.Join(segmentDirPath, "*"+seginfo.Extension))
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to list segment directory").
			WithPath(segmentDirPath)
	}

	for _, path := range paths {
		id, err := seginfo.ParseSegmentID(path)
		if err != nil {
			config.Logger.Warnw("Skipping unparseable segment file", "path", path, "error", err)
			continue
		}

		seg, err := store.openSealedSegment(id, path)
		if err != nil {
			return nil, err
		}
		store.sealed[id] = seg
	}

	// The next active segment always starts one id past whatever the highest
	// existing segment is, so the directory's last segment (if any) is
	// resolved through the same helper seginfo exposes for that purpose.
	maxID, lastInfo, err := seginfo.GetLastSegmentInfo(config.Options.DataDir, config.Options.SegmentOptions.Directory)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to determine last segment").
			WithPath(segmentDirPath)
	}
	nextID := uint64(0)
	if lastInfo != nil {
		nextID = maxID + 1
	}

	active, err := store.openActiveFile(nextID)
	if err != nil {
		return nil, err
	}
	store.activeSegment = active
	store.activeSegmentId = nextID
	store.size = 0

	config.Logger.Infow(
		"Segment store initialized",
		"sealedCount", len(store.sealed),
		"activeSegmentID", nextID,
	)

	return store, nil
}

// openSealedSegment opens an existing, already-complete segment file
// read-only and maps it into memory.
func (s *Store) openSealedSegment(id uint64, path string) (*sealedSegment, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.GenerateName(id))
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to stat sealed segment").
			WithPath(path)
	}

	var mmap gommap.MMap
	if stat.Size() > 0 {
		mmap, err = gommap.Map(file.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
		if err != nil {
			file.Close()
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to map sealed segment").
				WithPath(path)
		}
	}

	return &sealedSegment{id: id, path: path, file: file, mmap: mmap, size: stat.Size()}, nil
}

// openActiveFile opens (creating if necessary) the file for segment id in
// read-write mode, positioned for explicit offset-based writes.
func (s *Store) openActiveFile(id uint64) (*os.File, error) {
	path := s.segmentPath(id)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.GenerateName(id))
	}
	return file, nil
}

func (s *Store) segmentPath(id uint64) string {
	return filepath.Join(s.options.DataDir, s.options.SegmentOptions.Directory, seginfo.GenerateName(id))
}

// SegmentPath returns the on-disk path of segment id. It lets a caller
// (the engine's per-clone reader cache) open its own independent read-only
// handle onto a sealed segment instead of going through the store's
// shared lock on every read.
func (s *Store) SegmentPath(id uint64) string {
	return s.segmentPath(id)
}

// Append writes data to the end of the active segment and returns the
// segment id and byte offset the caller should remember to read it back.
func (s *Store) Append(data []byte) (fid uint64, pos uint64, err error) {
	if s.closed.Load() {
		return 0, 0, ErrSegmentClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset := s.size
	n, err := s.activeSegment.WriteAt(data, offset)
	if err != nil {
		return 0, 0, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to append record").
			WithPath(s.segmentPath(s.activeSegmentId)).WithDetail("offset", offset)
	}
	s.size += int64(n)

	if err := s.activeSegment.Sync(); err != nil {
		return 0, 0, errors.ClassifySyncError(
			err, seginfo.GenerateName(s.activeSegmentId), s.segmentPath(s.activeSegmentId), int(offset),
		)
	}

	return s.activeSegmentId, uint64(offset), nil
}

// ReadAt returns the length bytes stored at pos in segment fid.
func (s *Store) ReadAt(fid uint64, pos uint64, length uint64) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSegmentClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if fid == s.activeSegmentId {
		buf := make([]byte, length)
		if _, err := s.activeSegment.ReadAt(buf, int64(pos)); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read from active segment").
				WithPath(s.segmentPath(fid)).WithDetail("offset", pos).WithDetail("length", length)
		}
		return buf, nil
	}

	seg, ok := s.sealed[fid]
	if !ok {
		return nil, ErrSegmentMissing
	}
	end := pos + length
	if end > uint64(seg.size) {
		return nil, errors.NewStorageError(
			nil, errors.ErrorCodeCorrupt, "Read past end of sealed segment",
		).WithPath(seg.path).WithDetail("offset", pos).WithDetail("length", length)
	}
	out := make([]byte, length)
	copy(out, seg.mmap[pos:end])
	return out, nil
}

// Iterate decodes every record in segment fid, front to back, invoking fn
// with each record, the offset it starts at, and its total encoded length.
// It is used once, at startup, to rebuild the in-memory index from
// whatever is on disk.
func (s *Store) Iterate(fid uint64, fn func(rec codec.Record, pos uint64, length uint64) error) error {
	s.mu.RLock()
	r, size, err := s.readerFor(fid)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	sr := io.NewSectionReader(r, 0, size)
	var offset uint64
	for {
		rec, n, err := codec.DecodeOne(sr)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(rec, offset, n); err != nil {
			return err
		}
		offset += n
	}
}

func (s *Store) readerFor(fid uint64) (io.ReaderAt, int64, error) {
	if fid == s.activeSegmentId {
		return s.activeSegment, s.size, nil
	}
	seg, ok := s.sealed[fid]
	if !ok {
		return nil, 0, ErrSegmentMissing
	}
	return bytes.NewReader(seg.mmap), seg.size, nil
}

// NextFreeID returns the segment id one past the highest id currently in
// use by the store (sealed or active).
func (s *Store) NextFreeID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextFreeIDLocked()
}

func (s *Store) nextFreeIDLocked() uint64 {
	max := s.activeSegmentId
	for id := range s.sealed {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// SealedIDs returns the ids of every sealed segment, sorted ascending.
func (s *Store) SealedIDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.sealed))
	for id := range s.sealed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ActiveID returns the id of the currently active segment.
func (s *Store) ActiveID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSegmentId
}

// Generation returns a counter bumped every time compaction installs a new
// sealed set, letting long-lived readers notice their cached handles are
// stale without locking the store on every read.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Rotate seals the active segment and opens a fresh one if the active
// segment has reached the configured size limit. It reports whether a
// rotation happened.
func (s *Store) Rotate() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uint64(s.size) < s.options.SegmentOptions.Size {
		return false, nil
	}

	if err := s.sealActiveLocked(); err != nil {
		return false, err
	}

	newID := s.nextFreeIDLocked()
	active, err := s.openActiveFile(newID)
	if err != nil {
		return false, err
	}
	s.activeSegment = active
	s.activeSegmentId = newID
	s.size = 0

	s.log.Infow("Rotated active segment", "newActiveID", newID)
	return true, nil
}

// sealActiveLocked closes the active segment's write handle and reopens it
// read-only, memory-mapped, as a sealed segment. Callers must hold mu.
func (s *Store) sealActiveLocked() error {
	path := s.segmentPath(s.activeSegmentId)
	if err := s.activeSegment.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to close active segment before sealing").
			WithPath(path)
	}

	seg, err := s.openSealedSegment(s.activeSegmentId, path)
	if err != nil {
		return err
	}
	s.sealed[s.activeSegmentId] = seg
	return nil
}

// CreateSealedSegment opens a brand-new file at id for writing. Compaction
// uses this to stream the rewritten, live-only log before sealing it with
// SealSegment.
func (s *Store) CreateSealedSegment(id uint64) (*os.File, error) {
	return s.openActiveFile(id)
}

// SealSegment fsyncs and closes a file opened with CreateSealedSegment,
// then reopens it read-only and maps it into the sealed set.
func (s *Store) SealSegment(id uint64, file *os.File) error {
	if err := file.Sync(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to fsync compacted segment").
			WithPath(s.segmentPath(id))
	}
	if err := file.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to close compacted segment").
			WithPath(s.segmentPath(id))
	}

	seg, err := s.openSealedSegment(id, s.segmentPath(id))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sealed[id] = seg
	s.mu.Unlock()
	return nil
}

// ReplaceActive discards the current active segment's write handle (its
// live records have already been copied elsewhere by compaction) and opens
// newID as the new active segment.
func (s *Store) ReplaceActive(newID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeSegment.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to close superseded active segment").
			WithPath(s.segmentPath(s.activeSegmentId))
	}

	active, err := s.openActiveFile(newID)
	if err != nil {
		return err
	}
	s.activeSegment = active
	s.activeSegmentId = newID
	s.size = 0
	return nil
}

// PruneBelow deletes every segment file — sealed or a leftover, already
// superseded active file — whose id is less than floor. It also bumps the
// generation counter so cached reader handles elsewhere know to refresh.
func (s *Store) PruneBelow(floor uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, seg := range s.sealed {
		if id >= floor {
			continue
		}
		if seg.mmap != nil {
			if err := seg.mmap.UnsafeUnmap(); err != nil {
				s.log.Warnw("Failed to unmap pruned segment", "id", id, "error", err)
			}
		}
		if err := seg.file.Close(); err != nil {
			s.log.Warnw("Failed to close pruned segment", "id", id, "error", err)
		}
		if err := os.Remove(seg.path); err != nil && !os.IsNotExist(err) {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to delete pruned segment").
				WithPath(seg.path)
		}
		delete(s.sealed, id)
	}

	// Sweep the segment directory for any file below floor that wasn't in
	// the in-memory sealed set — the just-superseded former active file,
	// closed by ReplaceActive but never tracked as sealed.
	dir := filepath.Join(s.options.DataDir, s.options.SegmentOptions.Directory)
	paths, err := filesys.ReadDir(filepath.Join(dir, "*"+seginfo.Extension))
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to list segment directory during prune").
			WithPath(dir)
	}
	for _, path := range paths {
		id, err := seginfo.ParseSegmentID(path)
		if err != nil || id >= floor || id == s.activeSegmentId {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to delete stale segment file").
				WithPath(path)
		}
	}

	s.generation.Add(1)
	return nil
}

// Close closes the active segment and every sealed segment's file handle
// and memory mapping.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSegmentClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if err := s.activeSegment.Close(); err != nil {
		firstErr = err
	}
	for _, seg := range s.sealed {
		if seg.mmap != nil {
			if err := seg.mmap.UnsafeUnmap(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := seg.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return errors.NewStorageError(firstErr, errors.ErrorCodeIO, "Failed to close segment store cleanly")
	}
	return nil
}
