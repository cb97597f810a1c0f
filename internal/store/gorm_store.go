// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db}
}

func (s *GormStore) Get(ctx context.Context, user, repo string) (*Document, error) {
	var d Document
	err := s.db.WithContext(ctx).
		Where("id = ?", Key(user, repo)).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", Key(user, repo), err)
	}
	return &d, nil
}

// Put inserts doc or replaces the content of the existing row.
func (s *GormStore) Put(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = Key(doc.User, doc.Repo)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).
		Create(doc).Error
	if err != nil {
		return fmt.Errorf("put document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context) ([]Document, error) {
	var out []Document
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (s *GormStore) Delete(ctx context.Context, user, repo string) error {
	return s.db.WithContext(ctx).
		Where("id = ?", Key(user, repo)).
		Delete(&Document{}).Error
}
