// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package store caches fetched seed documents, keyed by (user, repo).
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

var ErrNotFound = errors.New("store: document not found")

// Document is one cached seed document.
type Document struct {
	ID        string         `gorm:"primaryKey"`
	User      string         `gorm:"index; not null"`
	Repo      string         `gorm:"index; not null"`
	Content   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key is the primary key of the document for user/repo.
func Key(user, repo string) string {
	return user + "/" + repo
}

func NewDocument(user, repo string, content []byte) *Document {
	return &Document{
		ID:      Key(user, repo),
		User:    user,
		Repo:    repo,
		Content: datatypes.JSON(content),
	}
}

// Store persists seed documents. Get reports ErrNotFound for unknown keys.
type Store interface {
	Get(ctx context.Context, user, repo string) (*Document, error)
	Put(ctx context.Context, doc *Document) error
	List(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, user, repo string) error
}
