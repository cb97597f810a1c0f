// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package params maps an inbound request onto the seed document, table,
// key, action and input it addresses.
package params

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"seedapi/internal/source"
)

type Action string

const (
	ActionIndex  Action = "index"
	ActionStore  Action = "store"
	ActionShow   Action = "show"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var integerPattern = regexp.MustCompile(`^-?\d+$`)

// Params describes one request. Paths look like /{user}/{repo}/{table}/{key};
// a leading "api" or "~" segment addresses the local seed file instead of
// a user's repository.
type Params struct {
	Internal bool
	User     string
	Repo     string
	Table    string
	// Key is nil, an int64 for numeric segments, or a string.
	Key    any
	Method string
	// Action is empty when the method does not apply to the path.
	Action Action
	Input  map[string]any
}

// New reads params from the request URL and method. body holds the decoded
// request body and is overridden by query string values.
func New(u *url.URL, method string, body map[string]any) *Params {
	p := &Params{Method: strings.ToUpper(method)}

	var paths []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			paths = append(paths, seg)
		}
	}

	if len(paths) > 0 && (paths[0] == "api" || paths[0] == "~") {
		p.Internal = true
		p.User, p.Repo = source.InternalUser, source.InternalRepo
		paths = paths[1:]
	} else {
		p.User, p.Repo = at(paths, 0), at(paths, 1)
		if len(paths) >= 2 {
			paths = paths[2:]
		} else {
			paths = nil
		}
	}

	p.Table = at(paths, 0)
	if key := at(paths, 1); key != "" {
		p.Key = coerceKey(key)
	}

	p.Input = map[string]any{}
	for k, v := range body {
		p.Input[k] = v
	}
	for k, v := range ParseQuery(u.RawQuery) {
		p.Input[k] = v
	}

	p.Action = resolveAction(p.Method, p.Key != nil)
	return p
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

func coerceKey(key string) any {
	if integerPattern.MatchString(key) {
		if n, err := strconv.ParseInt(key, 10, 64); err == nil {
			return n
		}
	}
	return key
}

func resolveAction(method string, hasKey bool) Action {
	switch {
	case (method == http.MethodGet || method == http.MethodHead) && !hasKey:
		return ActionIndex
	case method == http.MethodPost && !hasKey:
		return ActionStore
	case (method == http.MethodGet || method == http.MethodHead) && hasKey:
		return ActionShow
	case (method == http.MethodPut || method == http.MethodPatch) && hasKey:
		return ActionUpdate
	case method == http.MethodDelete && hasKey:
		return ActionDelete
	default:
		return ""
	}
}

// Coerce turns integer strings into int64 and yes/no style strings into
// booleans. Other values are returned unchanged.
func Coerce(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if integerPattern.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	switch strings.ToLower(s) {
	case "true", "yes", "y", "t":
		return true
	case "false", "no", "n", "f":
		return false
	}
	return s
}
