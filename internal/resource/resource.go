// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package resource serves one table with index, show, store, update and
// delete semantics: paging, multi-key sorting, soft deletes and timestamp
// bookkeeping.
//
// A Resource works on its own copy of the table's rows. Mutations are only
// visible to that instance until the caller writes Rows back.
package resource

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"seedapi/internal/apierror"
	"seedapi/internal/table"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// IDPolicy decides the primary key of stored rows.
type IDPolicy int

const (
	// IDCount assigns row count + 1. After a hard delete the freed id is
	// handed out again.
	IDCount IDPolicy = iota
	// IDMax assigns the highest numeric id + 1.
	IDMax
)

func (p IDPolicy) String() string {
	if p == IDMax {
		return "max"
	}
	return "count"
}

func ParseIDPolicy(s string) (IDPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "count":
		return IDCount, nil
	case "max":
		return IDMax, nil
	default:
		return IDCount, fmt.Errorf("unknown id policy %q (want count or max)", s)
	}
}

type event int

const (
	created event = iota
	updated
	deleted
)

type Resource struct {
	table *table.Table
	rows  []*table.Row
	now   func() time.Time
	ids   IDPolicy

	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
}

type Option func(*Resource)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resource) {
		if now != nil {
			r.now = now
		}
	}
}

func WithIDPolicy(p IDPolicy) Option {
	return func(r *Resource) { r.ids = p }
}

// New builds a Resource over a private copy of t's rows.
func New(t *table.Table, opts ...Option) *Resource {
	r := &Resource{
		table: t,
		rows:  t.CloneRows(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rows returns a copy of the working row sequence, including every
// mutation made through this Resource.
func (r *Resource) Rows() []*table.Row {
	return table.CloneRows(r.rows)
}

// Pagination is reported by Index only.
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"perPage"`
	Total   int  `json:"total"`
	Sort    Sort `json:"sort"`
}

type Meta struct {
	*Pagination

	PrimaryKey      string            `json:"primaryKey"`
	SoftDelete      bool              `json:"softDelete"`
	Timestamps      bool              `json:"timestamps"`
	CreateTimestamp bool              `json:"createTimestamp"`
	UpdateTimestamp bool              `json:"updateTimestamp"`
	Attributes      *table.Attributes `json:"attributes"`
}

// Result is the {data, meta} envelope of a successful operation.
type Result struct {
	Status int   `json:"-"`
	Data   any   `json:"data"`
	Meta   *Meta `json:"meta,omitempty"`
}

func (r *Resource) result(status int, data any, page *Pagination) *Result {
	t := r.table
	return &Result{
		Status: status,
		Data:   data,
		Meta: &Meta{
			Pagination:      page,
			PrimaryKey:      t.PrimaryKey,
			SoftDelete:      t.HasSoftDelete,
			Timestamps:      t.Timestamps(),
			CreateTimestamp: t.HasCreateTimestamp,
			UpdateTimestamp: t.HasUpdateTimestamp,
			Attributes:      t.Attributes,
		},
	}
}

// Index filters, sorts and pages the rows. An empty result reports
// 404 with an empty data list.
func (r *Resource) Index(q Query) (*Result, error) {
	pred, err := compileFilter(q.Expr)
	if err != nil {
		return nil, err
	}

	matched := make([]*table.Row, 0, len(r.rows))
	for _, row := range r.rows {
		if r.table.HasSoftDelete && isDeleted(row) != q.Deleted {
			continue
		}
		if !r.matches(row, q.Filters) {
			continue
		}
		if pred != nil {
			ok, err := pred(row)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, row)
	}

	order := q.Sort
	if len(order) == 0 {
		order = Sort{{Field: r.table.PrimaryKey, Direction: Desc}}
	}
	cmp := comparator(r.table.Attributes, order)
	sort.SliceStable(matched, func(i, j int) bool {
		return cmp(matched[i], matched[j]) < 0
	})

	page := &Pagination{Total: len(matched), Sort: order}
	data := matched

	if q.Page >= 0 && q.PerPage >= 0 {
		page.Page, page.PerPage = q.Page, q.PerPage
		if page.Page == 0 {
			page.Page = DefaultPage
		}
		if page.PerPage == 0 {
			page.PerPage = DefaultPerPage
		}
		data = pageOf(matched, page.Page, page.PerPage)
	}

	status := http.StatusOK
	if page.Total == 0 {
		status = http.StatusNotFound
	}

	return r.result(status, table.CloneRows(data), page), nil
}

// pageOf returns the 1-indexed page of rows. Page bounds are compared
// by division so huge page sizes cannot overflow.
func pageOf(rows []*table.Row, page, perPage int) []*table.Row {
	n := len(rows)
	if page-1 > n/perPage {
		return rows[n:]
	}
	start := min((page-1)*perPage, n)
	if perPage > n-start {
		return rows[start:]
	}
	return rows[start : start+perPage]
}

func (r *Resource) matches(row *table.Row, filters map[string]any) bool {
	for field, want := range filters {
		if !r.table.Attributes.Has(field) {
			continue
		}
		if !table.LooseEqual(row.Value(field), want) {
			return false
		}
	}
	return true
}

func isDeleted(row *table.Row) bool {
	return row.Value(table.DeletedAt) != nil
}

// Show returns the row whose primary key loosely equals id, so "3"
// finds 3.
func (r *Resource) Show(id any) (*Result, error) {
	_, row, err := r.find(id)
	if err != nil {
		return nil, err
	}
	return r.result(http.StatusOK, row.Clone(), nil), nil
}

func (r *Resource) find(id any) (int, *table.Row, error) {
	pk := r.table.PrimaryKey
	for i, row := range r.rows {
		if table.LooseEqual(row.Value(pk), id) {
			return i, row, nil
		}
	}
	return -1, nil, apierror.NotFound(fmt.Sprintf("%s %v not found", r.table.Name, id))
}

// Store appends a row built from the declared attributes. Fields missing
// from input are null.
func (r *Resource) Store(input map[string]any) (*Result, error) {
	pk := r.table.PrimaryKey

	row := table.NewRow()
	row.Set(pk, r.nextID())
	for _, key := range r.table.Attributes.Keys() {
		if key == pk {
			continue
		}
		row.Set(key, input[key])
	}

	r.rows = append(r.rows, row)
	r.timestamp(created, row)

	return r.result(http.StatusCreated, row.Clone(), nil), nil
}

func (r *Resource) nextID() int64 {
	if r.ids == IDCount {
		return int64(len(r.rows) + 1)
	}

	var highest float64
	for _, row := range r.rows {
		if f, ok := table.ToFloat(row.Value(r.table.PrimaryKey)); ok && f > highest {
			highest = f
		}
	}
	return int64(highest) + 1
}

// Update overwrites the declared fields present in input. When nothing
// differs the row is left as is and the status is 304.
func (r *Resource) Update(id any, input map[string]any) (*Result, error) {
	_, row, err := r.find(id)
	if err != nil {
		return nil, err
	}

	changed := false
	for _, key := range r.table.Attributes.Keys() {
		if key == r.table.PrimaryKey {
			continue
		}
		v, ok := input[key]
		if !ok {
			continue
		}
		if cur, has := row.Get(key); has && table.LooseEqual(cur, v) {
			continue
		}
		row.Set(key, v)
		changed = true
	}

	status := http.StatusNotModified
	if changed {
		r.timestamp(updated, row)
		status = http.StatusOK
	}

	return r.result(status, row.Clone(), nil), nil
}

// Delete soft deletes the row when the table declares deleted_at and
// removes it otherwise. A row that was already soft deleted reports 304.
func (r *Resource) Delete(id any) (*Result, error) {
	i, row, err := r.find(id)
	if err != nil {
		return nil, err
	}

	var removed bool
	if r.table.HasSoftDelete {
		removed = r.timestamp(deleted, row)
	} else {
		before := len(r.rows)
		r.rows = append(r.rows[:i:i], r.rows[i+1:]...)
		removed = len(r.rows) < before
	}

	status := http.StatusNotModified
	if removed {
		status = http.StatusNoContent
	}
	return &Result{Status: status}, nil
}

// timestamp stamps row for ev and reports whether anything was written.
// A deletion stamp is only written once.
func (r *Resource) timestamp(ev event, row *table.Row) bool {
	t := r.table
	stamp := r.now().UTC().Format(time.RFC3339)

	switch ev {
	case created:
		if !t.HasCreateTimestamp {
			return false
		}
		row.Set(table.CreatedAt, stamp)
		if t.HasUpdateTimestamp {
			row.Set(table.UpdatedAt, stamp)
		}
		return true
	case updated:
		if !t.HasUpdateTimestamp {
			return false
		}
		row.Set(table.UpdatedAt, stamp)
		return true
	case deleted:
		if !t.HasSoftDelete || isDeleted(row) {
			return false
		}
		row.Set(table.DeletedAt, stamp)
		return true
	}
	return false
}
