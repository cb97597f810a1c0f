// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package registry

import (
	"context"
	"errors"
	"net/http"

	"seedapi/internal/apierror"
	"seedapi/internal/document"
	"seedapi/internal/normalizer"
	"seedapi/internal/source"
)

// SourceLoader fetches a seed document from src and normalizes it.
func SourceLoader(src source.Source, opts ...normalizer.Option) Loader {
	return func(ctx context.Context, key Key) (Tables, error) {
		raw, err := src.Fetch(ctx, key.User, key.Repo)
		if errors.Is(err, source.ErrNotFound) {
			return nil, apierror.Wrap(http.StatusNotFound, "Seed document not found", err)
		}
		if err != nil {
			return nil, apierror.Wrap(http.StatusInternalServerError, "Seed document could not be fetched", err)
		}

		doc, err := document.Parse(raw)
		if err != nil {
			return nil, apierror.Wrap(http.StatusInternalServerError, "Seed document is not valid JSON", err)
		}

		tables, err := normalizer.Normalize(doc, opts...)
		if err != nil {
			return nil, apierror.Wrap(http.StatusInternalServerError, "Seed document must be a JSON object", err)
		}
		return tables, nil
	}
}
