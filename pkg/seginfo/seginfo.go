// Package seginfo provides utilities for naming and discovering segment
// files in the on-disk log.
//
// Filename format: <fid>.log
//
// Where fid is the segment's unqualified decimal id (0, 1, 2, ...), with no
// zero-padding, no prefix, and no timestamp — ids are assigned by the
// storage layer in strictly increasing order, so lexicographic sorting of
// filenames is not relied on; every filename is parsed back to its integer
// id before comparison.
//
// Example filenames:
//
//	0.log
//	1.log
//	42.log
package seginfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iamNilotpal/ignite/pkg/filesys"
)

// Extension is the fixed suffix every segment file carries.
const Extension = ".log"

// GetLastSegmentInfo discovers the highest-numbered segment file in the
// given segment directory.
//
// Returns:
//   - uint64: the id of the latest segment (0 if no segments exist yet).
//   - os.FileInfo: metadata for that segment (nil if no segments exist).
//   - error: if the directory cannot be read or the latest segment file
//     cannot be opened. Files whose names do not parse as an id are skipped.
func GetLastSegmentInfo(dataDir, segmentDir string) (uint64, os.FileInfo, error) {
	if dataDir == "" || segmentDir == "" {
		return 0, nil, fmt.Errorf("both parameters (dataDir, segmentDir) must be non-empty")
	}

	lastSegmentPath, err := GetLastSegmentName(dataDir, segmentDir)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to discover latest segment: %w", err)
	}

	if lastSegmentPath == "" {
		return 0, nil, nil
	}

	segmentID, err := ParseSegmentID(lastSegmentPath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse segment ID from %s: %w", lastSegmentPath, err)
	}

	fileInfo, err := GetFileInfo(lastSegmentPath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to retrieve file info for %s: %w", lastSegmentPath, err)
	}

	return segmentID, fileInfo, nil
}

// GetLastSegmentName searches the segment directory and returns the full
// path of the segment file with the highest id. Filenames carry no
// zero-padding, so the comparison is numeric, not lexicographic.
//
// Returns:
//   - string: full path to the highest-id segment file (empty if none found).
//   - error: if directory reading fails.
func GetLastSegmentName(dataDir, segmentDir string) (string, error) {
	if dataDir == "" || segmentDir == "" {
		return "", fmt.Errorf("both parameters (dataDir, segmentDir) must be non-empty")
	}

	searchPattern := filepath.Join(dataDir, segmentDir, "*"+Extension)
	matchingFiles, err := filesys.ReadDir(searchPattern)
	if err != nil {
		return "", fmt.Errorf("failed to read segment directory with pattern %s: %w", searchPattern, err)
	}

	if len(matchingFiles) == 0 {
		return "", nil
	}

	var (
		best   string
		bestID uint64
		found  bool
	)
	for _, path := range matchingFiles {
		id, err := ParseSegmentID(path)
		if err != nil {
			continue
		}
		if !found || id > bestID {
			best, bestID, found = path, id, true
		}
	}

	return best, nil
}

// GenerateName creates the filename for segment id.
func GenerateName(id uint64) string {
	return strconv.FormatUint(id, 10) + Extension
}

// ParseSegmentID extracts the integer id from a segment filename or path.
func ParseSegmentID(fullPath string) (uint64, error) {
	_, filename := filepath.Split(fullPath)

	if !strings.HasSuffix(filename, Extension) {
		return 0, fmt.Errorf("filename %s does not have expected extension %s", filename, Extension)
	}

	idStr := strings.TrimSuffix(filename, Extension)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse segment ID '%s' as integer: %w", idStr, err)
	}

	return id, nil
}

// GetFileInfo safely retrieves file system metadata for a given path.
func GetFileInfo(filePath string) (os.FileInfo, error) {
	file, err := os.OpenFile(filePath, os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filePath, closeErr)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info for %s: %w", filePath, err)
	}

	return stat, nil
}
