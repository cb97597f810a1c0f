// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package rest serves the tables of a seed document as a REST API.
package rest

import (
	"io"
	"net/http"

	"seedapi/internal/apierror"
	"seedapi/internal/params"
	"seedapi/internal/registry"
	"seedapi/internal/resource"
	"seedapi/internal/responses"
	"seedapi/internal/store"
	"seedapi/internal/table"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Context keys read by the access log.
const (
	CtxUser   = "seedapi.user"
	CtxRepo   = "seedapi.repo"
	CtxTable  = "seedapi.table"
	CtxAction = "seedapi.action"
)

type Options struct {
	IDPolicy resource.IDPolicy
	// Validate type-checks store and update input against the table's
	// attributes.
	Validate bool
	// PersistWrites keeps mutations in the registry so later requests
	// see them.
	PersistWrites bool
}

type Handler struct {
	Registry *registry.Registry
	// Cache holds fetched seed documents; nil when nothing is cached.
	Cache   store.Store
	Options Options
}

func NewHandler(reg *registry.Registry, cache store.Store, opts Options) *Handler {
	return &Handler{Registry: reg, Cache: cache, Options: opts}
}

// Dispatch routes /{user}/{repo}/{table}/{key} and the /api and /~ forms
// to the matching resource operation.
func (h *Handler) Dispatch(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return apierror.Wrap(http.StatusBadRequest, "Request body could not be read", err)
	}
	input, err := params.ParseBody(req.Header.Get(echo.HeaderContentType), body)
	if err != nil {
		return err
	}

	p := params.New(req.URL, req.Method, input)
	c.Set(CtxUser, p.User)
	c.Set(CtxRepo, p.Repo)
	c.Set(CtxTable, p.Table)
	c.Set(CtxAction, string(p.Action))

	if p.User == "" || p.Repo == "" {
		return apierror.NotFound("")
	}
	if p.Table == "" {
		if p.Method == http.MethodDelete {
			return h.reload(c, p)
		}
		return h.stats(c, p)
	}
	if p.Action == "" {
		return apierror.MethodNotAllowed()
	}

	var res *resource.Result
	err = h.Registry.Do(req.Context(), registry.Key{User: p.User, Repo: p.Repo}, func(tables registry.Tables) error {
		t, ok := tables[p.Table]
		if !ok {
			return apierror.NotFound("Table " + p.Table + " not found")
		}

		var err error
		res, err = h.run(t, p)
		return err
	})
	if err != nil {
		return err
	}

	return responses.WriteJSON(c.Response(), res.Status, res)
}

func (h *Handler) run(t *table.Table, p *params.Params) (*resource.Result, error) {
	r := resource.New(t, resource.WithIDPolicy(h.Options.IDPolicy))

	if h.Options.Validate && (p.Action == params.ActionStore || p.Action == params.ActionUpdate) {
		if err := r.Validate(p.Input); err != nil {
			return nil, err
		}
	}

	var (
		res *resource.Result
		err error
	)
	switch p.Action {
	case params.ActionIndex:
		res, err = r.Index(resource.QueryFromInput(p.Input))
	case params.ActionShow:
		res, err = r.Show(p.Key)
	case params.ActionStore:
		res, err = r.Store(p.Input)
	case params.ActionUpdate:
		res, err = r.Update(p.Key, p.Input)
	case params.ActionDelete:
		res, err = r.Delete(p.Key)
	default:
		return nil, apierror.MethodNotAllowed()
	}
	if err != nil {
		return nil, err
	}

	if h.Options.PersistWrites && mutates(p.Action, res.Status) {
		t.ReplaceRows(r.Rows())
		zap.L().Debug("rows persisted",
			zap.String("table", t.Name),
			zap.String("action", string(p.Action)),
			zap.Int("rows", len(t.Rows)),
		)
	}
	return res, nil
}

func mutates(action params.Action, status int) bool {
	if status == http.StatusNotModified {
		return false
	}
	switch action {
	case params.ActionStore, params.ActionUpdate, params.ActionDelete:
		return true
	}
	return false
}

// stats serves GET /{user}/{repo} with a summary of every table.
func (h *Handler) stats(c echo.Context, p *params.Params) error {
	if p.Method != http.MethodGet && p.Method != http.MethodHead {
		return apierror.MethodNotAllowed()
	}

	data := map[string]table.Summary{}
	err := h.Registry.Do(c.Request().Context(), registry.Key{User: p.User, Repo: p.Repo}, func(tables registry.Tables) error {
		for name, t := range tables {
			data[name] = t.Summary()
		}
		return nil
	})
	if err != nil {
		return err
	}

	return responses.WriteJSON(c.Response(), http.StatusOK, map[string]any{"data": data})
}

// reload serves DELETE /{user}/{repo}: the loaded tables and the cached
// document are dropped so the next request fetches the seed again.
func (h *Handler) reload(c echo.Context, p *params.Params) error {
	h.Registry.Evict(registry.Key{User: p.User, Repo: p.Repo})

	if h.Cache != nil {
		if err := h.Cache.Delete(c.Request().Context(), p.User, p.Repo); err != nil {
			return apierror.Internal(err)
		}
	}

	zap.L().Info("seed document evicted",
		zap.String("user", p.User),
		zap.String("repo", p.Repo),
	)
	return responses.WriteEmpty(c.Response(), http.StatusNoContent)
}
