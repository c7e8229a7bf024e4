// Package options provides data structures and functions for configuring
// the Ignite database. It defines various parameters that control Ignite's
// storage behavior and maintenance operations, such as directory paths,
// segment characteristics, and the compaction trigger.
package options

import "strings"

// Defines configurable parameters for each segment.
// It provides fine-grained control over segment behavior, performance, and resource utilization.
type segmentOptions struct {
	// Defines the maximum size a segment can grow to before rotation.
	// When a segment reaches this size, a new segment will be created.
	// Larger segments mean fewer files but slower compaction and recovery.
	//
	//  - Default: 1GB
	//  - Maximum: 4GB
	//  - Minimum: 1MB
	Size uint64 `json:"maxSegmentSize"`

	// Specifies where segment files are stored, relative to DataDir.
	//
	// Default: "/segments"
	Directory string `json:"directory"`
}

// Defines the configuration parameters for Ignite DB.
// It provides control over storage and compaction behavior.
type Options struct {
	// Specifies the base path where files will be stored.
	//
	// Default: "/var/lib/ignitedb"
	DataDir string `json:"dataDir"`

	// Defines the total stale bytes a log must accumulate before a set or
	// remove that crosses it triggers compaction.
	//
	// Default: 1MiB
	CompactionThreshold uint64 `json:"compactionThreshold"`

	// Configures segment management including size limits.
	SegmentOptions *segmentOptions `json:"segmentOptions"`
}

// OptionFunc is a function type that modifies the Ignite system's configuration.
type OptionFunc func(*Options)

// Applies a predefined set of default configuration values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		o.DataDir = opts.DataDir
		o.SegmentOptions = opts.SegmentOptions
		o.CompactionThreshold = opts.CompactionThreshold
	}
}

// Sets the primary data directory for Ignite.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// Sets the stale-byte threshold that triggers compaction.
func WithCompactionThreshold(threshold uint64) OptionFunc {
	return func(o *Options) {
		if threshold > 0 {
			o.CompactionThreshold = threshold
		}
	}
}

// Sets the directory specifically for storing segment files.
func WithSegmentDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.SegmentOptions.Directory = directory
		}
	}
}

// Sets the maximum size of individual segment files.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSize && size <= MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}
