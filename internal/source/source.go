// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package source fetches raw seed documents.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var ErrNotFound = errors.New("source: seed document not found")

// Internal user and repo name the seed file served under /api and /~.
const (
	InternalUser = "username"
	InternalRepo = "repository"
)

// Source returns the raw JSON seed document of user/repo.
type Source interface {
	Fetch(ctx context.Context, user, repo string) ([]byte, error)
}

// File serves one local seed file for every key.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Fetch(ctx context.Context, _, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, f.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return data, nil
}

// Mux sends the internal key to Internal and everything else to External.
type Mux struct {
	Internal Source
	External Source
}

func (m *Mux) Fetch(ctx context.Context, user, repo string) ([]byte, error) {
	if user == InternalUser && repo == InternalRepo {
		return m.Internal.Fetch(ctx, user, repo)
	}
	return m.External.Fetch(ctx, user, repo)
}
