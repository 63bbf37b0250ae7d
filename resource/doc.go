// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource implements incremental loading and reference counted
// caching of engine resources. Resources are requested by type and path,
// resolved to files through a Resolver, turned into usable objects by
// per-type loaders and kept in a cache until every reference to them is
// unloaded. Loading happens in small steps driven by the owner of the
// Manager, so a control loop can interleave loading with its other work
// and never block longer than it chooses to. Loaders may declare
// dependencies on other resources, which are loaded first and tied to
// the lifetime of the resource that declared them.
package resource
