// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"strconv"
	"strings"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 15
)

// Query selects, orders and pages the rows returned by Index.
type Query struct {
	// Page and PerPage are 1-indexed; a negative value in either returns
	// every row. Zero means the default.
	Page    int
	PerPage int

	// Sort defaults to the primary key, descending.
	Sort Sort

	// Deleted selects soft-deleted rows instead of live ones.
	Deleted bool

	// Filters keep rows whose attribute loosely equals the value.
	Filters map[string]any

	// Expr is an optional boolean expression evaluated against each row.
	Expr string
}

// reserved input keys that are not attribute filters
var reserved = map[string]bool{
	"page":     true,
	"per_page": true,
	"perPage":  true,
	"sort":     true,
	"deleted":  true,
	"filter":   true,
}

// QueryFromInput reads a Query from request input. Keys other than the
// reserved paging, sort, deleted and filter keys become equality filters.
func QueryFromInput(input map[string]any) Query {
	q := Query{
		Page:    intValue(input["page"], DefaultPage),
		PerPage: DefaultPerPage,
		Sort:    ParseSort(input["sort"]),
		Deleted: boolValue(input["deleted"]),
	}

	if v, ok := input["per_page"]; ok {
		q.PerPage = intValue(v, DefaultPerPage)
	} else if v, ok := input["perPage"]; ok {
		q.PerPage = intValue(v, DefaultPerPage)
	}

	if s, ok := input["filter"].(string); ok {
		q.Expr = strings.TrimSpace(s)
	}

	for k, v := range input {
		if reserved[k] {
			continue
		}
		if q.Filters == nil {
			q.Filters = map[string]any{}
		}
		q.Filters[k] = v
	}

	return q
}

func intValue(v any, def int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

func boolValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(t) {
		case "true", "yes", "y", "t", "1":
			return true
		}
	}
	return false
}
