package options

const (
	// Specifies the default base directory where IgniteDB will store its data files.
	// If no other directory is specified during initialization, this path will be used.
	DefaultDataDir = "/var/lib/ignitedb"

	// Defines the default number of stale bytes a log must accumulate
	// before a write that crosses the threshold triggers compaction.
	DefaultCompactionThreshold uint64 = 1 * 1024 * 1024

	// Represents the minimum allowed size for a segment file in bytes (1MB).
	MinSegmentSize uint64 = 1 * 1024 * 1024

	// Represents the maximum allowed size for a segment file in bytes (4GB).
	MaxSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// Specifies the default target size for a new segment file in bytes (1GB).
	DefaultSegmentSize uint64 = 1 * 1024 * 1024 * 1024

	// Specifies the default subdirectory within the main data directory
	// where segment files will be stored.
	DefaultSegmentDirectory = "/segments"
)

// Holds the default configuration settings for an IgniteDB instance.
var defaultOptions = Options{
	DataDir:             DefaultDataDir,
	CompactionThreshold: DefaultCompactionThreshold,
	SegmentOptions: &segmentOptions{
		Size:      DefaultSegmentSize,
		Directory: DefaultSegmentDirectory,
	},
}

func NewDefaultOptions() Options {
	return defaultOptions
}
