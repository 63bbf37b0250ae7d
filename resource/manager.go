// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"errors"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Configuration configures a Manager.
type Configuration struct {

	// Resolver locates files for requested paths. Required.
	Resolver Resolver

	// Registry is the resource store the Manager works against. When
	// nil the Manager owns a fresh one. Passing a Registry lets
	// several Managers share one cache.
	Registry *Registry
}

// Request is one top-level load request.
type Request struct {
	ID ID

	// OnLoaded, when set, is called exactly once on the driving
	// goroutine right after the resource is cached, with no Manager
	// lock held, so it may call back into the Manager. It is skipped
	// when the request was cancelled before completion.
	OnLoaded func(ID, interface{})
}

// completion is a due OnLoaded call, collected during a step and fired
// after the Manager's lock is released.
type completion struct {
	fn  func(ID, interface{})
	id  ID
	res interface{}
}

// NewManager creates a Manager ready to accept loader registrations
// and load requests.
func NewManager(cfg Configuration) (*Manager, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("resource.NewManager(): Configuration.Resolver is required")
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		resolver: cfg.Resolver,
		loaders:  newLoaderRegistry(),
		registry: registry,
		graph:    newDepGraph(),
		files:    make(map[key]File),
	}, nil
}

// Manager is the incremental loading driver. A single goroutine, the
// driving goroutine, is expected to call Step, RunFor,
// RunToCompletion and Clear. Every other method is safe to call
// concurrently with stepping.
type Manager struct {

	// mu serializes every mutation of queue, stack, cache, graph and
	// progress counters. Background loader phases never touch
	// Manager state, they report through their task's one-shot
	// channel, so mu is never held across a suspension.
	mu sync.Mutex

	resolver Resolver
	loaders  *loaderRegistry
	registry *Registry
	graph    *depGraph

	queue []Request
	stack []*task

	// files memoizes Resolver results so a path is resolved at most
	// once per identity. Dropped when the identity's entry goes away.
	files map[key]File

	// progress counters for the current batch
	total      int
	completed  int
	batchStart time.Time

	// callbacks due after the current step, fired once the lock is
	// released
	callbacks []completion
}

// RegisterLoader registers a synchronous loader for resources of the
// given type, replacing any previous registration.
func (m *Manager) RegisterLoader(typ string, l SyncLoader) {
	m.loaders.registerSync(typ, l)
}

// RegisterAsyncLoader registers an asynchronous loader for resources
// of the given type, replacing any previous registration.
func (m *Manager) RegisterAsyncLoader(typ string, l AsyncLoader) {
	m.loaders.registerAsync(typ, l)
}

// Schedule enqueues a load request for the resource named by typ,
// path and params. The request is not worked on until the driving
// goroutine steps the Manager.
func (m *Manager) Schedule(typ, path string, params interface{}) error {
	return m.ScheduleRequest(Request{ID: NewID(typ, path, params)})
}

// ScheduleRequest enqueues req. The request's identity is normalized
// before it is compared against the cache.
func (m *Manager) ScheduleRequest(req Request) error {
	req.ID = NewID(req.ID.Type, req.ID.Path, req.ID.Params)
	if err := req.ID.validate(); err != nil {
		return err
	}
	if _, err := m.loaders.lookup(req.ID.Type); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 && len(m.stack) == 0 {
		m.total = 0
		m.completed = 0
		m.batchStart = time.Now()
	}
	m.queue = append(m.queue, req)
	m.total++
	log.WithField("id", req.ID.String()).Debug("resource scheduled")
	return nil
}

// Unload undoes one Schedule of the identity. A still queued request
// is dropped, an in-flight one is cancelled, a cached one has one
// reference released, cascading through its recorded dependencies
// when the count reaches zero. Returns ErrNotLoaded when the identity
// is unknown.
func (m *Manager) Unload(typ, path string, params interface{}) error {
	id := NewID(typ, path, params)
	if err := id.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, req := range m.queue {
		if req.ID.key() == id.key() {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			m.total--
			log.WithField("id", id.String()).Debug("queued request dropped")
			return nil
		}
	}

	for _, t := range m.stack {
		if t.id.key() == id.key() {
			t.cancelled = true
			log.WithField("id", id.String()).Debug("in-flight load cancelled")
			return nil
		}
	}

	return m.release(id)
}

// Get returns the cached resource for the identity.
func (m *Manager) Get(typ, path string, params interface{}) (interface{}, error) {
	id := NewID(typ, path, params)
	if err := id.validate(); err != nil {
		return nil, err
	}
	return m.registry.Get(id)
}

// IsLoaded reports whether the identity is cached.
func (m *Manager) IsLoaded(typ, path string, params interface{}) bool {
	return m.registry.Contains(NewID(typ, path, params))
}

// RefCount returns the identity's reference count, zero when it is
// not cached.
func (m *Manager) RefCount(typ, path string, params interface{}) int {
	return m.registry.RefCount(NewID(typ, path, params))
}

// LoadedCount returns the number of cached resources, dependencies
// included.
func (m *Manager) LoadedCount() int {
	return m.registry.Len()
}

// QueuedCount returns the number of requests not yet taken off the
// queue.
func (m *Manager) QueuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Progress returns the completed fraction of the current batch of
// top-level requests. It is 1.0 exactly when queue and stack are both
// empty.
func (m *Manager) Progress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 && len(m.stack) == 0 {
		return 1.0
	}
	if m.total == 0 {
		return 1.0
	}
	return float64(m.completed) / float64(m.total)
}

// Step advances loading by one transition of one task. It reports
// whether queue and stack are both empty. A failing loader phase
// aborts the whole outstanding batch and its error is returned from
// the Step call that observed it.
func (m *Manager) Step() (bool, error) {
	m.mu.Lock()
	done, err := m.step(false)
	callbacks := m.callbacks
	m.callbacks = nil
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb.fn(cb.id, cb.res)
	}
	if len(callbacks) > 0 {
		// A callback may have scheduled more work.
		m.mu.Lock()
		done = len(m.queue) == 0 && len(m.stack) == 0
		m.mu.Unlock()
	}
	return done, err
}

// RunFor calls Step until loading finishes or the wall-clock budget
// elapses. The budget is only honored between steps, a long loader
// phase can overrun it.
func (m *Manager) RunFor(budget time.Duration) (bool, error) {
	deadline := time.Now().Add(budget)
	for {
		done, err := m.Step()
		if done || err != nil {
			return done, err
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
	}
}

// RunToCompletion steps until queue and stack are empty, yielding the
// driving goroutine between steps.
func (m *Manager) RunToCompletion() error {
	for {
		done, err := m.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		runtime.Gosched()
	}
}

// Clear drains the queue, finishes in-flight tasks while discarding
// their results, then tears the cache down in dependency-safe order,
// roots first, until it is empty.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = nil
	for len(m.stack) > 0 {
		top := m.stack[len(m.stack)-1]
		top.cancelled = true
		if _, err := m.step(true); err != nil {
			log.WithField("err", err).Debug("load aborted during clear")
		}
	}

	for m.registry.Len() > 0 {
		var roots []ID
		for _, id := range m.registry.IDs() {
			if !m.graph.isDependency(id) {
				roots = append(roots, id)
			}
		}
		if len(roots) == 0 {
			log.Warn("dependency cycle in resource cache, forcing release")
			roots = m.registry.IDs()
		}
		for _, id := range roots {
			for m.registry.Contains(id) {
				if err := m.release(id); err != nil {
					break
				}
			}
		}
	}

	m.files = make(map[key]File)
	m.total = 0
	m.completed = 0
	m.callbacks = nil
}

// step advances by one transition. Caller holds m.mu. With wait set,
// background phases are waited for instead of polled, used by Clear
// to force in-flight tasks to finish.
func (m *Manager) step(wait bool) (bool, error) {
	if len(m.stack) == 0 {
		for len(m.stack) == 0 && len(m.queue) > 0 {
			req := m.queue[0]
			m.queue = m.queue[1:]
			if m.registry.Contains(req.ID) {
				m.retain(req.ID)
				m.completed++
				if req.OnLoaded != nil {
					res, _ := m.registry.Get(req.ID)
					m.callbacks = append(m.callbacks, completion{fn: req.OnLoaded, id: req.ID, res: res})
				}
				continue
			}
			le, err := m.loaders.lookup(req.ID.Type)
			if err != nil {
				return m.abort(err)
			}
			m.stack = append(m.stack, &task{
				id:       req.ID,
				loader:   le,
				topLevel: true,
				onLoaded: req.OnLoaded,
			})
		}
		if len(m.stack) == 0 {
			if m.total > 0 {
				log.WithFields(log.Fields{
					"requests": m.total,
					"elapsed":  time.Since(m.batchStart),
				}).Debug("batch finished")
				m.total = 0
				m.completed = 0
			}
			return true, nil
		}
		return false, nil
	}

	t := m.stack[len(m.stack)-1]
	if t.cancelled {
		return m.discard(t, wait)
	}
	if t.loader.sync != nil {
		return m.advanceSync(t)
	}
	return m.advanceAsync(t, wait)
}

// advanceSync moves a synchronous task one transition forward.
func (m *Manager) advanceSync(t *task) (bool, error) {
	switch t.phase {
	case phaseCreated:
		t.started = true
		file, err := m.resolveFile(t.id)
		if err != nil {
			return m.fail(t, err)
		}
		t.file = file
		deps, err := t.loader.sync.Dependencies(t.id.Path, file, t.id.Params)
		if err != nil {
			return m.fail(t, err)
		}
		if len(deps) == 0 {
			return m.finalize(t)
		}
		if err := m.inject(t, deps); err != nil {
			return m.fail(t, err)
		}
		return false, t.transition(phaseWaiting)
	case phaseWaiting:
		// The task resurfaced, every injected dependency completed.
		return m.finalize(t)
	default:
		return false, t.transition(phaseDone)
	}
}

// advanceAsync moves an asynchronous task one transition forward.
// Background phases are polled, the driving goroutine does not block
// on them unless wait is set.
func (m *Manager) advanceAsync(t *task, wait bool) (bool, error) {
	switch t.phase {
	case phaseCreated:
		t.started = true
		file, err := m.resolveFile(t.id)
		if err != nil {
			return m.fail(t, err)
		}
		t.file = file
		t.signal = make(chan phaseResult, 1)
		go discover(t.loader.async, t.id, file, t.signal)
		return false, t.transition(phaseDiscovering)
	case phaseDiscovering:
		res, ok := m.poll(t, wait)
		if !ok {
			return false, nil
		}
		if res.err != nil {
			return m.fail(t, res.err)
		}
		if len(res.deps) == 0 {
			return false, m.startPrefetch(t)
		}
		if err := m.inject(t, res.deps); err != nil {
			return m.fail(t, err)
		}
		return false, t.transition(phaseWaiting)
	case phaseWaiting:
		return false, m.startPrefetch(t)
	case phasePrefetching:
		res, ok := m.poll(t, wait)
		if !ok {
			return false, nil
		}
		if res.err != nil {
			return m.fail(t, res.err)
		}
		t.prefetched = res.prefetched
		return false, t.transition(phaseReady)
	case phaseReady:
		return m.finalize(t)
	default:
		return false, t.transition(phaseDone)
	}
}

func (m *Manager) poll(t *task, wait bool) (phaseResult, bool) {
	if wait {
		return <-t.signal, true
	}
	select {
	case res := <-t.signal:
		return res, true
	default:
		return phaseResult{}, false
	}
}

func (m *Manager) startPrefetch(t *task) error {
	t.signal = make(chan phaseResult, 1)
	go prefetch(t.loader.async, t.id, t.file, t.signal)
	return t.transition(phasePrefetching)
}

func discover(l AsyncLoader, id ID, file File, out chan<- phaseResult) {
	deps, err := l.Dependencies(id.Path, file, id.Params)
	out <- phaseResult{deps: deps, err: err}
}

func prefetch(l AsyncLoader, id ID, file File, out chan<- phaseResult) {
	v, err := l.Prefetch(id.Path, file, id.Params)
	out <- phaseResult{prefetched: v, err: err}
}

// inject records dependency edges from t and schedules whatever is
// not yet cached. Pushed dependency tasks sit above t on the stack,
// so they complete before t resurfaces.
func (m *Manager) inject(t *task, deps []ID) error {
	normalized := make([]ID, 0, len(deps))
	for _, dep := range deps {
		normalized = append(normalized, NewID(dep.Type, dep.Path, dep.Params))
	}
	normalized = dedup(normalized)

	t.deps = t.deps[:0]
	for _, dep := range normalized {
		if dep.key() == t.id.key() {
			continue
		}
		if err := dep.validate(); err != nil {
			return err
		}
		t.deps = append(t.deps, dep)
	}

	for _, dep := range t.deps {
		m.graph.record(t.id, dep)
	}

	// Push in reverse so the first declared dependency loads first.
	// Claims are recorded one by one, so a failure part way leaves
	// only the claims actually taken to roll back.
	for i := len(t.deps) - 1; i >= 0; i-- {
		dep := t.deps[i]

		if m.registry.Contains(dep) {
			m.retain(dep)
			t.claimed = append(t.claimed, dep)
			continue
		}
		if existing := m.findTask(dep); existing != nil {
			existing.pendingRefs++
			t.claimed = append(t.claimed, dep)
			if !existing.started {
				m.moveToTop(existing)
			}
			continue
		}
		le, err := m.loaders.lookup(dep.Type)
		if err != nil {
			return err
		}
		m.stack = append(m.stack, &task{id: dep, loader: le})
		t.claimed = append(t.claimed, dep)
	}
	return nil
}

// finalize runs the loader's synchronous phase and commits the
// result.
func (m *Manager) finalize(t *task) (bool, error) {
	var (
		res interface{}
		err error
	)
	if t.loader.sync != nil {
		res, err = t.loader.sync.Load(t.id.Path, t.file, t.id.Params)
	} else {
		res, err = t.loader.async.Load(t.prefetched, t.id.Path, t.file, t.id.Params)
	}
	if err != nil {
		return m.fail(t, err)
	}
	if res == nil {
		return m.fail(t, ErrNoResource)
	}
	return m.complete(t, res)
}

// complete pops t, commits its resource and applies every reference
// claimed against the task while it was in flight.
func (m *Manager) complete(t *task, res interface{}) (bool, error) {
	if err := t.transition(phaseDone); err != nil {
		return m.abort(err)
	}
	m.pop(t)
	if err := m.registry.Put(t.id, res); err != nil {
		return m.abort(err)
	}
	for i := 0; i < t.pendingRefs; i++ {
		m.retain(t.id)
	}
	if t.topLevel {
		m.completed++
	}
	log.WithField("id", t.id.String()).Debug("resource loaded")

	if t.cancelled {
		// The unload raced the final step, drop the fresh claim.
		if err := m.release(t.id); err != nil {
			return m.abort(err)
		}
		return len(m.queue) == 0 && len(m.stack) == 0, nil
	}
	if t.onLoaded != nil {
		m.callbacks = append(m.callbacks, completion{fn: t.onLoaded, id: t.id, res: res})
	}
	return len(m.queue) == 0 && len(m.stack) == 0, nil
}

// discard pops a cancelled task without finalizing it. References it
// already took on its dependencies are given back and whatever the
// prefetch produced is freed.
func (m *Manager) discard(t *task, wait bool) (bool, error) {
	if t.phase == phaseDiscovering || t.phase == phasePrefetching {
		// Let the background worker finish, its result is dropped.
		res, ok := m.poll(t, wait)
		if !ok {
			return false, nil
		}
		t.prefetched = res.prefetched
	}
	if err := t.transition(phaseDone); err != nil {
		return m.abort(err)
	}
	m.pop(t)
	m.rollback(t)
	if rel, ok := t.prefetched.(Releasable); ok {
		rel.Release()
	}
	if t.topLevel {
		m.completed++
	}
	log.WithField("id", t.id.String()).Debug("cancelled load discarded")
	return len(m.queue) == 0 && len(m.stack) == 0, nil
}

// rollback gives back every reference t claimed while injecting its
// dependencies and drops the edges it recorded. Entries the task never
// claimed are left alone.
func (m *Manager) rollback(t *task) {
	for _, dep := range t.claimed {
		if m.registry.Contains(dep) {
			if err := m.release(dep); err != nil {
				log.WithFields(log.Fields{
					"id":  dep.String(),
					"err": err,
				}).Debug("rollback release failed")
			}
			continue
		}
		if in := m.findTask(dep); in != nil && in.pendingRefs > 0 {
			in.pendingRefs--
		}
	}
	t.claimed = nil
	m.graph.remove(t.id)
}

// fail aborts the outstanding batch because of a loader error. The
// failing task's dependency claims are rolled back, entries committed
// before the failing task stay cached.
func (m *Manager) fail(t *task, err error) (bool, error) {
	m.pop(t)
	m.rollback(t)

	var cerr ConfigurationError
	if !errors.As(err, &cerr) {
		err = LoadError{ID: t.id, Err: err}
	}
	return m.abort(err)
}

// abort ends the batch: every task still on the stack gives back the
// references it claimed, then queue and stack are cleared and err
// surfaces to the caller of the step.
func (m *Manager) abort(err error) (bool, error) {
	log.WithField("err", err).Debug("aborting batch")
	for i := len(m.stack) - 1; i >= 0; i-- {
		m.rollback(m.stack[i])
	}
	m.queue = nil
	m.stack = nil
	m.total = 0
	m.completed = 0
	return true, err
}

// retain takes one more reference on id and, through its recorded
// dependency edges, on everything its lifetime covers. Caller holds
// m.mu.
func (m *Manager) retain(id ID) {
	if !m.registry.Retain(id) {
		return
	}
	for _, dep := range m.graph.dependencies(id) {
		m.retain(dep)
	}
}

// release gives back one reference on id and, through its recorded
// dependency edges, on everything its lifetime covers. The entry is
// disposed of when its count reaches zero. Caller holds m.mu.
func (m *Manager) release(id ID) error {
	deps := m.graph.dependencies(id)
	removed, err := m.registry.Release(id)
	if err != nil {
		return err
	}
	if removed {
		m.graph.remove(id)
		delete(m.files, id.key())
		log.WithField("id", id.String()).Debug("resource released")
	}
	for _, dep := range deps {
		if rerr := m.release(dep); rerr != nil && rerr != ErrNotLoaded {
			return rerr
		}
	}
	return nil
}

// resolveFile resolves the file behind id, at most once per identity.
func (m *Manager) resolveFile(id ID) (File, error) {
	if f, ok := m.files[id.key()]; ok {
		return f, nil
	}
	f, err := m.resolver.Resolve(id.Path)
	if err != nil {
		return nil, err
	}
	m.files[id.key()] = f
	return f, nil
}

func (m *Manager) findTask(id ID) *task {
	for _, t := range m.stack {
		if t.id.key() == id.key() {
			return t
		}
	}
	return nil
}

// moveToTop lifts a not yet started task to the top of the stack so
// it completes before the dependent that just claimed it.
func (m *Manager) moveToTop(t *task) {
	for i, st := range m.stack {
		if st == t {
			m.stack = append(m.stack[:i], m.stack[i+1:]...)
			m.stack = append(m.stack, t)
			return
		}
	}
}

func (m *Manager) pop(t *task) {
	if n := len(m.stack); n > 0 && m.stack[n-1] == t {
		m.stack = m.stack[:n-1]
	}
}
