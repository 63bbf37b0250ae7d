// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"errors"
	"fmt"
)

// package errors
var (
	// ErrNotLoaded is returned when a queried resource is not in the cache.
	ErrNotLoaded = errors.New("resource is not loaded")

	// ErrNoResource signals an attempt to cache a nil resource.
	ErrNoResource = errors.New("no resource given")

	// ErrInvalidArgument signals a malformed resource type or path.
	ErrInvalidArgument = errors.New("invalid resource identity")
)

// ConfigurationError reports a resource type that has no registered
// loader. It is fatal for the request that triggered it, the request
// is never retried.
type ConfigurationError struct {
	Type string
}

func (e ConfigurationError) Error() string {
	return "no loader registered for resource type " + e.Type
}

// LoadError wraps an error from one of the loader phases. Any
// LoadError aborts the whole outstanding batch.
type LoadError struct {
	ID  ID
	Err error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.ID, e.Err)
}

// Unwrap returns the loader's original error.
func (e LoadError) Unwrap() error {
	return e.Err
}
