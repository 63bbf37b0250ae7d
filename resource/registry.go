// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "sync"

// Releasable defines any memory-occupying item that can be freed.
// Cached resources that implement it are released when their last
// reference is unloaded.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

type entry struct {
	id       ID
	resource interface{}
	refs     int
}

// NewRegistry creates an empty resource registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]*entry)}
}

// Registry is the reference counted store of loaded resources. An
// entry exists only while its reference count is positive. A Registry
// is safe for concurrent use and can be shared between Managers.
type Registry struct {
	mu      sync.Mutex
	entries map[key]*entry
}

// Put stores resource under id with a reference count of one. When an
// entry for id already exists it is kept along with its count.
func (r *Registry) Put(id ID, resource interface{}) error {
	if resource == nil {
		return ErrNoResource
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id.key()]; !ok {
		r.entries[id.key()] = &entry{id: id, resource: resource, refs: 1}
	}
	return nil
}

// Get returns the cached resource for id.
func (r *Registry) Get(id ID) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id.key()]
	if !ok {
		return nil, ErrNotLoaded
	}
	return e.resource, nil
}

// Retain increments the reference count of id. It reports whether an
// entry was present to retain.
func (r *Registry) Retain(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id.key()]
	if ok {
		e.refs++
	}
	return ok
}

// Release decrements the reference count of id. When the count
// reaches zero the entry is removed and the resource is freed through
// Releasable. Reports whether the entry was removed.
func (r *Registry) Release(id ID) (bool, error) {
	r.mu.Lock()
	e, ok := r.entries[id.key()]
	if !ok {
		r.mu.Unlock()
		return false, ErrNotLoaded
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return false, nil
	}
	delete(r.entries, id.key())
	r.mu.Unlock()

	if rel, ok := e.resource.(Releasable); ok {
		rel.Release()
	}
	return true, nil
}

// Contains reports whether id is cached.
func (r *Registry) Contains(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id.key()]
	return ok
}

// RefCount returns the current reference count of id, zero when the
// resource is not cached.
func (r *Registry) RefCount(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id.key()]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of cached entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the identities of all cached entries.
func (r *Registry) IDs() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]ID, 0, len(r.entries))
	for _, e := range r.entries {
		ids = append(ids, e.id)
	}
	return ids
}
