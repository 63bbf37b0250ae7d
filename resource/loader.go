// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "sync"

// File is a resolved resource file, ready to be read by a loader.
type File interface {

	// Name returns the path the file was resolved from.
	Name() string

	// ReadAll returns the entire contents of the file.
	ReadAll() ([]byte, error)
}

// Resolver locates the file behind a requested resource path. Resolve
// is called at most once per identity, its result is memoized for the
// identity's lifetime.
type Resolver interface {
	Resolve(path string) (File, error)
}

// SyncLoader turns a resolved file into a resource entirely on the
// driving goroutine.
type SyncLoader interface {

	// Dependencies returns the resources that must be cached before
	// Load runs, in the order they should load. It must be idempotent
	// for the same arguments.
	Dependencies(path string, file File, params interface{}) ([]ID, error)

	// Load produces the resource. It runs on the driving goroutine
	// only after every declared dependency is cached.
	Load(path string, file File, params interface{}) (interface{}, error)
}

// AsyncLoader splits loading into a slow part that runs on a
// background worker and a finalize part that runs on the driving
// goroutine. Dependencies also runs on a worker, exactly once per
// loading task.
type AsyncLoader interface {

	// Dependencies behaves as in SyncLoader but runs off the driving
	// goroutine.
	Dependencies(path string, file File, params interface{}) ([]ID, error)

	// Prefetch performs the slow part of loading off the driving
	// goroutine, after every declared dependency is cached. Its
	// result is handed to Load. Prefetch must not share mutable state
	// between calls, independent tasks may run it concurrently.
	Prefetch(path string, file File, params interface{}) (interface{}, error)

	// Load finalizes the resource on the driving goroutine from the
	// value Prefetch produced.
	Load(prefetched interface{}, path string, file File, params interface{}) (interface{}, error)
}

// loaderEntry is the tagged loader variant stored per resource type.
// Exactly one of the fields is set.
type loaderEntry struct {
	sync  SyncLoader
	async AsyncLoader
}

func newLoaderRegistry() *loaderRegistry {
	return &loaderRegistry{loaders: make(map[string]loaderEntry)}
}

// loaderRegistry maps a resource type to its loader. Registering a
// type again replaces the previous loader.
type loaderRegistry struct {
	mu      sync.RWMutex
	loaders map[string]loaderEntry
}

func (r *loaderRegistry) registerSync(typ string, l SyncLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[typ] = loaderEntry{sync: l}
}

func (r *loaderRegistry) registerAsync(typ string, l AsyncLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[typ] = loaderEntry{async: l}
}

// lookup returns the loader registered for typ, or a
// ConfigurationError when there is none.
func (r *loaderRegistry) lookup(typ string) (loaderEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	le, ok := r.loaders[typ]
	if !ok {
		return loaderEntry{}, ConfigurationError{Type: typ}
	}
	return le, nil
}
