// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package registry_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"seedapi/internal/apierror"
	"seedapi/internal/registry"
	"seedapi/internal/source"
	"seedapi/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingLoader(calls *atomic.Int32) registry.Loader {
	return func(ctx context.Context, key registry.Key) (registry.Tables, error) {
		calls.Add(1)
		t := table.New("posts", "")
		t.Rows = append(t.Rows, table.RowFrom(map[string]any{"id": int64(1)}))
		return registry.Tables{"posts": t}, nil
	}
}

var ann = registry.Key{User: "ann", Repo: "blog"}

func TestDo_LoadsOnce(t *testing.T) {
	var calls atomic.Int32
	r := registry.New(countingLoader(&calls), registry.Options{})
	defer r.Close()

	for range 3 {
		err := r.Do(context.Background(), ann, func(tables registry.Tables) error {
			assert.Contains(t, tables, "posts")
			return nil
		})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, r.Len())
}

func TestDo_MutationsPersistWithinEntry(t *testing.T) {
	var calls atomic.Int32
	r := registry.New(countingLoader(&calls), registry.Options{})
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Do(ctx, ann, func(tables registry.Tables) error {
		tables["posts"].Rows = nil
		return nil
	}))
	require.NoError(t, r.Do(ctx, ann, func(tables registry.Tables) error {
		assert.Empty(t, tables["posts"].Rows)
		return nil
	}))
}

func TestDo_TTLReloads(t *testing.T) {
	var calls atomic.Int32
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := registry.New(countingLoader(&calls), registry.Options{TTL: time.Minute, Now: clock.Now})
	defer r.Close()

	noop := func(registry.Tables) error { return nil }
	ctx := context.Background()

	require.NoError(t, r.Do(ctx, ann, noop))
	clock.Advance(30 * time.Second)
	require.NoError(t, r.Do(ctx, ann, noop))
	assert.EqualValues(t, 1, calls.Load())

	clock.Advance(2 * time.Minute)
	require.NoError(t, r.Do(ctx, ann, noop))
	assert.EqualValues(t, 2, calls.Load())
}

func TestSweep(t *testing.T) {
	var calls atomic.Int32
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := registry.New(countingLoader(&calls), registry.Options{TTL: time.Minute, Now: clock.Now})
	defer r.Close()

	noop := func(registry.Tables) error { return nil }
	require.NoError(t, r.Do(context.Background(), ann, noop))

	assert.Equal(t, 0, r.Sweep())
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 0, r.Len())
}

func TestDo_EvictsLeastRecentlyUsed(t *testing.T) {
	var calls atomic.Int32
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := registry.New(countingLoader(&calls), registry.Options{MaxEntries: 2, Now: clock.Now})
	defer r.Close()

	noop := func(registry.Tables) error { return nil }
	ctx := context.Background()
	a := registry.Key{User: "a", Repo: "r"}
	b := registry.Key{User: "b", Repo: "r"}
	c := registry.Key{User: "c", Repo: "r"}

	require.NoError(t, r.Do(ctx, a, noop))
	clock.Advance(time.Second)
	require.NoError(t, r.Do(ctx, b, noop))
	clock.Advance(time.Second)
	require.NoError(t, r.Do(ctx, a, noop))
	clock.Advance(time.Second)
	require.NoError(t, r.Do(ctx, c, noop))

	assert.Equal(t, 2, r.Len())
	assert.EqualValues(t, 3, calls.Load())

	// b was evicted, a was kept
	require.NoError(t, r.Do(ctx, a, noop))
	assert.EqualValues(t, 3, calls.Load())
	require.NoError(t, r.Do(ctx, b, noop))
	assert.EqualValues(t, 4, calls.Load())
}

func TestDo_LoadErrorIsNotCached(t *testing.T) {
	var calls atomic.Int32
	failing := func(ctx context.Context, key registry.Key) (registry.Tables, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}
	r := registry.New(failing, registry.Options{})
	defer r.Close()

	noop := func(registry.Tables) error { return nil }
	assert.Error(t, r.Do(context.Background(), ann, noop))
	assert.Error(t, r.Do(context.Background(), ann, noop))
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 0, r.Len())
}

func TestDo_SerializesPerKey(t *testing.T) {
	var calls atomic.Int32
	r := registry.New(countingLoader(&calls), registry.Options{})
	defer r.Close()

	var (
		wg      sync.WaitGroup
		active  atomic.Int32
		overlap atomic.Bool
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Do(context.Background(), ann, func(registry.Tables) error {
				if active.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	assert.EqualValues(t, 1, calls.Load())
}

func TestEvictAndClose(t *testing.T) {
	var calls atomic.Int32
	r := registry.New(countingLoader(&calls), registry.Options{SweepInterval: time.Millisecond, TTL: time.Hour})

	noop := func(registry.Tables) error { return nil }
	require.NoError(t, r.Do(context.Background(), ann, noop))
	r.Evict(ann)
	assert.Equal(t, 0, r.Len())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

type stubSource struct {
	data []byte
	err  error
}

func (s stubSource) Fetch(context.Context, string, string) ([]byte, error) {
	return s.data, s.err
}

func TestSourceLoader(t *testing.T) {
	ctx := context.Background()

	tables, err := registry.SourceLoader(stubSource{data: []byte(`{"posts":[{"id":1,"tags":["a"]}]}`)})(ctx, ann)
	require.NoError(t, err)
	assert.Contains(t, tables, "posts")
	assert.Contains(t, tables, "tags")

	_, err = registry.SourceLoader(stubSource{err: source.ErrNotFound})(ctx, ann)
	assert.Equal(t, http.StatusNotFound, apierror.StatusOf(err))

	_, err = registry.SourceLoader(stubSource{data: []byte(`{"posts":`)})(ctx, ann)
	assert.Equal(t, http.StatusInternalServerError, apierror.StatusOf(err))

	_, err = registry.SourceLoader(stubSource{data: []byte(`[]`)})(ctx, ann)
	assert.Equal(t, http.StatusInternalServerError, apierror.StatusOf(err))
}
