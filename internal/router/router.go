// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package router

import (
	"net/http"

	"seedapi/internal/api/rest"
	"seedapi/internal/responses"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Options struct {
	// Development exposes error causes in response bodies.
	Development bool
}

// New wires every route onto a single echo instance. All paths share one
// catch-all handler because table names come from the seed document:
//
//	GET    /{user}/{repo}               → table summary
//	DELETE /{user}/{repo}               → drop loaded and cached seed
//	GET    /{user}/{repo}/{table}       → index
//	POST   /{user}/{repo}/{table}       → store
//	GET    /{user}/{repo}/{table}/{key} → show
//	PUT    /{user}/{repo}/{table}/{key} → update
//	PATCH  /{user}/{repo}/{table}/{key} → update
//	DELETE /{user}/{repo}/{table}/{key} → delete
//
// /api/... and /~/... address the local seed file.
func New(h *rest.Handler, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = rest.ErrorHandler(opts.Development)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    responses.NewRequestID,
		TargetHeader: responses.HeaderRequestID,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	e.Use(AccessLog())

	e.Any("/*", h.Dispatch)

	return e
}
