// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package router

import (
	"time"

	"seedapi/internal/api/rest"
	"seedapi/internal/responses"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AccessLog prints a concise line per request.
func AccessLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			query := req.URL.RawQuery
			if query != "" {
				query = "?" + query
			}

			zap.L().Info("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("query", query),
				zap.Int("status", res.Status),
				zap.Int64("size", res.Size),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", res.Header().Get(responses.HeaderRequestID)),
				zap.String("user", contextString(c, rest.CtxUser)),
				zap.String("repo", contextString(c, rest.CtxRepo)),
				zap.String("table", contextString(c, rest.CtxTable)),
				zap.String("action", contextString(c, rest.CtxAction)),
			)
			return nil
		}
	}
}

func contextString(c echo.Context, key string) string {
	s, _ := c.Get(key).(string)
	return s
}
