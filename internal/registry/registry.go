// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package registry keeps the normalized tables of each (user, repo) seed
// document in memory, loading them on first use and evicting them by age
// and by capacity.
package registry

import (
	"context"
	"sync"
	"time"

	"seedapi/internal/table"
)

type Key struct {
	User string
	Repo string
}

func (k Key) String() string { return k.User + "/" + k.Repo }

// Tables is a normalized seed document.
type Tables map[string]*table.Table

// Loader builds the tables of key.
type Loader func(ctx context.Context, key Key) (Tables, error)

type Options struct {
	// TTL drops entries loaded longer ago than this; zero never expires.
	TTL time.Duration
	// MaxEntries bounds the registry; the least recently used entry goes
	// first. Zero is unbounded.
	MaxEntries int
	// SweepInterval runs the expiry sweep in the background; zero disables
	// it and leaves expiry to lookups.
	SweepInterval time.Duration

	Now func() time.Time
}

type entry struct {
	mu     sync.Mutex
	tables Tables
	loaded time.Time

	// guarded by Registry.mu
	used time.Time
}

type Registry struct {
	load Loader
	opts Options

	mu      sync.Mutex
	entries map[Key]*entry

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func New(load Loader, opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Registry{
		load:    load,
		opts:    opts,
		entries: map[Key]*entry{},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if opts.SweepInterval > 0 {
		go r.sweepLoop()
	} else {
		close(r.done)
	}
	return r
}

// Do runs fn with the tables of key, loading them first when absent or
// expired. Calls for the same key are serialized, so fn may mutate the
// tables in place.
func (r *Registry) Do(ctx context.Context, key Key, fn func(Tables) error) error {
	e := r.acquire(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tables == nil || r.expired(e) {
		tables, err := r.load(ctx, key)
		if err != nil {
			r.remove(key, e)
			return err
		}
		e.tables = tables
		e.loaded = r.opts.Now()
	}

	return fn(e.tables)
}

func (r *Registry) acquire(key Key) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.Now()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
		r.evictOverflow(key)
	}
	e.used = now
	return e
}

// evictOverflow drops least recently used entries other than keep until
// the registry fits. Callers hold r.mu.
func (r *Registry) evictOverflow(keep Key) {
	if r.opts.MaxEntries <= 0 {
		return
	}
	for len(r.entries) > r.opts.MaxEntries {
		var (
			oldest   Key
			oldestAt time.Time
			found    bool
		)
		for k, e := range r.entries {
			if k == keep {
				continue
			}
			if !found || e.used.Before(oldestAt) {
				oldest, oldestAt, found = k, e.used, true
			}
		}
		if !found {
			return
		}
		delete(r.entries, oldest)
	}
}

// expired reports whether e outlived the TTL. Callers hold e.mu.
func (r *Registry) expired(e *entry) bool {
	return r.opts.TTL > 0 && !e.loaded.IsZero() && r.opts.Now().Sub(e.loaded) > r.opts.TTL
}

func (r *Registry) remove(key Key, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[key] == e {
		delete(r.entries, key)
	}
}

// Evict forgets key; the next Do reloads it.
func (r *Registry) Evict(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops every expired entry and returns how many were dropped.
func (r *Registry) Sweep() int {
	if r.opts.TTL <= 0 {
		return 0
	}

	r.mu.Lock()
	candidates := make(map[Key]*entry, len(r.entries))
	for k, e := range r.entries {
		candidates[k] = e
	}
	r.mu.Unlock()

	dropped := 0
	for k, e := range candidates {
		// an entry busy with a request is left for the next sweep
		if !e.mu.TryLock() {
			continue
		}
		stale := r.expired(e)
		e.mu.Unlock()

		if stale {
			r.remove(k, e)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) sweepLoop() {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close stops the background sweep and drops every entry.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done

		r.mu.Lock()
		r.entries = map[Key]*entry{}
		r.mu.Unlock()
	})
	return nil
}
