// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store_test

import (
	"context"
	"testing"

	"seedapi/internal/db"
	"seedapi/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]store.Store {
	t.Helper()

	gdb, err := db.Open(db.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	return map[string]store.Store{
		"memory": store.NewMemoryStore(),
		"sqlite": store.NewGormStore(gdb),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "ann", "seed")
			assert.ErrorIs(t, err, store.ErrNotFound)

			require.NoError(t, s.Put(ctx, store.NewDocument("ann", "seed", []byte(`{"posts":[]}`))))
			require.NoError(t, s.Put(ctx, store.NewDocument("bob", "seed", []byte(`{"a":{}}`))))

			got, err := s.Get(ctx, "ann", "seed")
			require.NoError(t, err)
			assert.Equal(t, "ann/seed", got.ID)
			assert.JSONEq(t, `{"posts":[]}`, string(got.Content))
			created := got.CreatedAt

			require.NoError(t, s.Put(ctx, store.NewDocument("ann", "seed", []byte(`{"posts":[{"id":1}]}`))))
			got, err = s.Get(ctx, "ann", "seed")
			require.NoError(t, err)
			assert.JSONEq(t, `{"posts":[{"id":1}]}`, string(got.Content))
			assert.True(t, got.CreatedAt.Equal(created))

			all, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "ann/seed", all[0].ID)
			assert.Equal(t, "bob/seed", all[1].ID)

			require.NoError(t, s.Delete(ctx, "ann", "seed"))
			_, err = s.Get(ctx, "ann", "seed")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}
