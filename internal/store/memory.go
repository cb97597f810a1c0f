// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: map[string]Document{},
		now:  time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, user, repo string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[Key(user, repo)]
	if !ok {
		return nil, ErrNotFound
	}
	d.Content = slices.Clone(d.Content)
	return &d, nil
}

func (s *MemoryStore) Put(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = Key(doc.User, doc.Repo)
	}

	now := s.now()
	d := *doc
	d.Content = slices.Clone(doc.Content)
	if prev, ok := s.docs[d.ID]; ok {
		d.CreatedAt = prev.CreatedAt
	} else {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	s.docs[d.ID] = d
	doc.CreatedAt, doc.UpdatedAt = d.CreatedAt, d.UpdatedAt
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		d.Content = slices.Clone(d.Content)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, user, repo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, Key(user, repo))
	return nil
}
