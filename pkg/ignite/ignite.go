// Package ignite provides a high-performance key/value data store
// designed for fast read and write operations, inspired by Bitcask.
// It combines an in-memory hash table (KeyDir/Index) with an append-only log
// structure on disk to achieve high throughput. It is designed for applications
// requiring fast read and write operations, such as caching, session management,
// and real-time data processing, aiming to provide a simple, efficient, and
// reliable solution for persistent key/value storage in Go applications.
package ignite

import (
	"context"

	"github.com/iamNilotpal/ignite/internal/engine"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/iamNilotpal/ignite/pkg/options"
)

// Store is the capability interface an Ignite-backed caller depends on
// instead of the concrete *Instance type — useful for swapping in a fake
// store in tests that exercise code built on top of this package.
type Store interface {
	Set(ctx context.Context, key string, value string) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

var _ Store = (*Instance)(nil)

// Represents an instance of the Ignite key/value data store.
// It encapsulates the core engine responsible for data handling and
// the configuration options for this specific database instance.
//
// Instance is the primary entry point for interacting with the Ignite store,
// providing methods for setting, getting, and deleting key-value pairs.
type Instance struct {
	engine  *engine.Engine   // The underlying database engine handling read/write operations.
	options *options.Options // Configuration options applied to this DB instance.
}

// Creates and initializes a new Ignite DB instance.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	// Initialize a logger for the given service.
	log := logger.New(service)

	// Initialize default options.
	defaultOpts := options.NewDefaultOptions()

	// Apply any provided functional options to override defaults.
	if len(opts) > 0 {
		for _, opt := range opts {
			opt(&defaultOpts)
		}
	}

	// Create a new internal engine with the initialized logger.
	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// Clone returns a new Instance sharing this one's engine state but reading
// through its own private cache. Hand one to each goroutine that reads
// concurrently so readers never contend on shared locks with each other.
func (i *Instance) Clone() *Instance {
	return &Instance{engine: i.engine.Clone(), options: i.options}
}

// Set stores a key-value pair in the database.
// If the key already exists, its value will be updated.
// The operation is durable and will be written to the append-only log.
func (i *Instance) Set(ctx context.Context, key string, value string) error {
	return i.engine.Set(ctx, key, value)
}

// Get retrieves the value associated with the given key. A missing key is
// reported by a false ok, not an error.
func (i *Instance) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	return i.engine.Get(ctx, key)
}

// Delete removes a key-value pair from the database. Deleting a key that
// has no live value is an error.
func (i *Instance) Delete(ctx context.Context, key string) error {
	return i.engine.Remove(ctx, key)
}

// Close gracefully shuts down the Ignite DB instance, releasing all
// associated resources, flushing any pending writes, and ensuring data
// durability. Call this only on the original Instance, once every clone
// taken from it is done — it tears down state shared with every clone.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}

// ReleaseClone releases resources private to a cloned Instance (its reader
// cache) without affecting the shared engine. Call this, not Close, when a
// goroutine holding a clone is finished with it.
func (i *Instance) ReleaseClone() {
	i.engine.ReleaseClone()
}
