// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package rest

import (
	"errors"
	"net/http"

	"seedapi/internal/apierror"
	"seedapi/internal/responses"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorBody struct {
	Message string                `json:"message"`
	Errors  []apierror.FieldError `json:"errors,omitempty"`
	Detail  string                `json:"detail,omitempty"`
}

// ErrorHandler renders failures as {"message": ..., "errors": [...]}.
// With development set, the underlying cause is returned as "detail".
func ErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := errorBody{}
		status := http.StatusInternalServerError

		var he *echo.HTTPError
		if apiErr, ok := apierror.As(err); ok {
			status = apiErr.Status
			body.Message = apiErr.Message
			body.Errors = apiErr.Errors
			if cause := errors.Unwrap(apiErr); cause != nil && development {
				body.Detail = cause.Error()
			}
		} else if errors.As(err, &he) {
			status = he.Code
			body.Message = http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok && m != "" {
				body.Message = m
			}
		} else {
			body.Message = http.StatusText(status)
			if development {
				body.Detail = err.Error()
			}
		}

		if status >= http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		if err := responses.WriteJSON(c.Response(), status, body); err != nil {
			zap.L().Warn("error response not written", zap.Error(err))
		}
	}
}
