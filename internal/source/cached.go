// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package source

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"seedapi/internal/store"

	"go.uber.org/zap"
)

// Cached consults a store before the inner source and writes fetched
// documents back. A document older than ttl is refetched; when that fails
// the stale copy is served.
type Cached struct {
	inner Source
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewCached(inner Source, s store.Store, ttl time.Duration) *Cached {
	return &Cached{inner: inner, store: s, ttl: ttl, now: time.Now}
}

func (c *Cached) Fetch(ctx context.Context, user, repo string) ([]byte, error) {
	doc, err := c.store.Get(ctx, user, repo)
	switch {
	case err == nil:
		if c.fresh(doc) {
			return doc.Content, nil
		}
	case errors.Is(err, store.ErrNotFound):
		doc = nil
	default:
		zap.L().Warn("seed cache lookup failed",
			zap.String("user", user),
			zap.String("repo", repo),
			zap.Error(err),
		)
		doc = nil
	}

	data, err := c.inner.Fetch(ctx, user, repo)
	if err != nil {
		if doc != nil && !errors.Is(err, ErrNotFound) {
			zap.L().Warn("serving stale seed document",
				zap.String("user", user),
				zap.String("repo", repo),
				zap.Error(err),
			)
			return doc.Content, nil
		}
		return nil, err
	}

	if !json.Valid(data) {
		return data, nil
	}

	if err := c.store.Put(ctx, store.NewDocument(user, repo, data)); err != nil {
		zap.L().Warn("seed cache write failed",
			zap.String("user", user),
			zap.String("repo", repo),
			zap.Error(err),
		)
	}
	return data, nil
}

func (c *Cached) fresh(doc *store.Document) bool {
	return c.ttl <= 0 || c.now().Sub(doc.UpdatedAt) < c.ttl
}
