// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource_test

import (
	"encoding/json"
	"math"
	"net/http"
	"testing"
	"time"

	"seedapi/internal/apierror"
	"seedapi/internal/resource"
	"seedapi/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func clock() time.Time { return fixedNow }

// newTable builds a table whose schema is inferred from the first row.
func newTable(name string, rows ...map[string]any) *table.Table {
	t := table.New(name, "")
	if len(rows) > 0 {
		first := table.RowFrom(rows[0])
		for _, k := range first.Keys() {
			t.Attributes.Add(table.Infer(k, first.Value(k), t.PrimaryKey))
		}
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, table.RowFrom(r))
	}
	t.RefreshFlags()
	return t
}

func people() *table.Table {
	return newTable("people",
		map[string]any{"id": int64(1), "name": "John Doe"},
		map[string]any{"id": int64(2), "name": "Jane Doe"},
		map[string]any{"id": int64(3), "name": "Sally Doe"},
	)
}

func numbered(n int) *table.Table {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"id": int64(i + 1), "name": "row"}
	}
	return newTable("numbered", rows...)
}

func ids(t *testing.T, res *resource.Result) []int64 {
	t.Helper()
	rows, ok := res.Data.([]*table.Row)
	require.True(t, ok, "index data should be rows, got %T", res.Data)
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Value("id").(int64)
	}
	return out
}

func TestIndex_DefaultsToPrimaryKeyDescending(t *testing.T) {
	res, err := resource.New(numbered(3)).Index(resource.Query{})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, []int64{3, 2, 1}, ids(t, res))
	assert.Equal(t, 1, res.Meta.Page)
	assert.Equal(t, 15, res.Meta.PerPage)
	assert.Equal(t, 3, res.Meta.Total)
}

func TestIndex_SecondPage(t *testing.T) {
	res, err := resource.New(numbered(5)).Index(resource.Query{Page: 2, PerPage: 2})
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 2}, ids(t, res))
	assert.Equal(t, 5, res.Meta.Total)
}

func TestIndex_PageBeyondEnd(t *testing.T) {
	res, err := resource.New(numbered(5)).Index(resource.Query{Page: 9, PerPage: 2})
	require.NoError(t, err)

	assert.Empty(t, ids(t, res))
	assert.Equal(t, 5, res.Meta.Total)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestIndex_HugePageSizes(t *testing.T) {
	cases := []struct {
		page, perPage int
		want          int
	}{
		{1, math.MaxInt, 5},
		{2, math.MaxInt, 0},
		{math.MaxInt, 2, 0},
		{math.MaxInt, math.MaxInt, 0},
		{3, 2, 1},
	}
	for _, tc := range cases {
		res, err := resource.New(numbered(5)).Index(resource.Query{Page: tc.page, PerPage: tc.perPage})
		require.NoError(t, err)
		assert.Len(t, ids(t, res), tc.want, "page %d per_page %d", tc.page, tc.perPage)
		assert.Equal(t, 5, res.Meta.Total)
	}
}

func TestIndex_NegativePagingReturnsEverything(t *testing.T) {
	res, err := resource.New(numbered(20)).Index(resource.Query{Page: -1})
	require.NoError(t, err)

	assert.Len(t, ids(t, res), 20)
	assert.Equal(t, 20, res.Meta.Total)
	assert.Equal(t, 0, res.Meta.Page)
}

func TestIndex_EmptyIsNotFound(t *testing.T) {
	res, err := resource.New(newTable("empty")).Index(resource.Query{})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Empty(t, ids(t, res))

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"data":[]`)
}

func TestIndex_TextSortIsCaseInsensitive(t *testing.T) {
	tbl := newTable("fruit",
		map[string]any{"id": int64(1), "name": "apple"},
		map[string]any{"id": int64(2), "name": "Banana"},
		map[string]any{"id": int64(3), "name": "banana"},
		map[string]any{"id": int64(4), "name": "Cherry"},
	)

	res, err := resource.New(tbl).Index(resource.Query{
		Sort: resource.Sort{{Field: "name", Direction: resource.Desc}},
	})
	require.NoError(t, err)

	// equal names keep their original order
	assert.Equal(t, []int64{4, 2, 3, 1}, ids(t, res))

	res, err = resource.New(tbl).Index(resource.Query{
		Sort: resource.Sort{{Field: "name", Direction: resource.Asc}, {Field: "id", Direction: resource.Desc}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 2, 4}, ids(t, res))
}

func TestIndex_SortByTimestampAndNumber(t *testing.T) {
	tbl := newTable("events",
		map[string]any{"id": int64(1), "score": int64(10), "happened_at": "2021-01-03T00:00:00Z"},
		map[string]any{"id": int64(2), "score": int64(2), "happened_at": "2021-01-01T00:00:00Z"},
		map[string]any{"id": int64(3), "score": int64(30), "happened_at": "2021-01-02T00:00:00Z"},
	)

	res, err := resource.New(tbl).Index(resource.Query{Sort: resource.ParseSort(map[string]any{"happened_at": "asc"})})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, ids(t, res))

	res, err = resource.New(tbl).Index(resource.Query{Sort: resource.ParseSort("score")})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids(t, res))
}

func TestIndex_UndeclaredSortFieldIsIgnored(t *testing.T) {
	res, err := resource.New(numbered(3)).Index(resource.Query{Sort: resource.ParseSort("nope")})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(t, res))
}

func TestIndex_Filters(t *testing.T) {
	tbl := newTable("products",
		map[string]any{"id": int64(1), "kind": "tool", "price": int64(5)},
		map[string]any{"id": int64(2), "kind": "toy", "price": int64(15)},
		map[string]any{"id": int64(3), "kind": "tool", "price": int64(25)},
	)

	q := resource.QueryFromInput(map[string]any{"kind": "tool", "unknown": "x"})
	res, err := resource.New(tbl).Index(q)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(t, res))

	q = resource.QueryFromInput(map[string]any{"filter": "price > 10 && kind == 'tool'"})
	res, err = resource.New(tbl).Index(q)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(t, res))

	_, err = resource.New(tbl).Index(resource.Query{Expr: "price >"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apierror.StatusOf(err))

	_, err = resource.New(tbl).Index(resource.Query{Expr: "price + 1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apierror.StatusOf(err))
}

func TestShow(t *testing.T) {
	r := resource.New(people())

	res, err := r.Show(int64(1))
	require.NoError(t, err)
	out, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"John Doe"}`, string(out))

	res, err = r.Show("2")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", res.Data.(*table.Row).Value("name"))

	_, err = r.Show(int64(4))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apierror.StatusOf(err))
}

func TestStore(t *testing.T) {
	r := resource.New(people())

	res, err := r.Store(map[string]any{"name": "Foo Bar", "extra": "dropped"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)

	out, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"name":"Foo Bar"}`, string(out))

	list, err := r.Index(resource.Query{})
	require.NoError(t, err)
	assert.Len(t, ids(t, list), 4)
}

func TestStore_MissingFieldsAreNullAndFalsyKept(t *testing.T) {
	tbl := newTable("flags",
		map[string]any{"id": int64(1), "name": "a", "count": int64(3)},
	)
	res, err := resource.New(tbl).Store(map[string]any{"count": int64(0)})
	require.NoError(t, err)

	row := res.Data.(*table.Row)
	assert.Nil(t, row.Value("name"))
	assert.True(t, row.Has("name"))
	assert.Equal(t, int64(0), row.Value("count"))
}

func TestStore_ReusesFreedIDByDefault(t *testing.T) {
	r := resource.New(people())

	_, err := r.Delete(int64(3))
	require.NoError(t, err)

	res, err := r.Store(map[string]any{"name": "New"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Data.(*table.Row).Value("id"))
}

func TestStore_MaxPolicy(t *testing.T) {
	r := resource.New(people(), resource.WithIDPolicy(resource.IDMax))

	_, err := r.Delete(int64(2))
	require.NoError(t, err)

	res, err := r.Store(map[string]any{"name": "New"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Data.(*table.Row).Value("id"))
}

func TestStore_Timestamps(t *testing.T) {
	tbl := newTable("posts", map[string]any{
		"id": int64(1), "title": "a", "created_at": "2020-01-01T00:00:00Z", "updated_at": "2020-01-01T00:00:00Z",
	})
	r := resource.New(tbl, resource.WithClock(clock))

	res, err := r.Store(map[string]any{"title": "b"})
	require.NoError(t, err)

	row := res.Data.(*table.Row)
	assert.Equal(t, "2024-05-06T07:08:09Z", row.Value("created_at"))
	assert.Equal(t, "2024-05-06T07:08:09Z", row.Value("updated_at"))
}

func TestUpdate(t *testing.T) {
	r := resource.New(people())

	res, err := r.Update(int64(2), map[string]any{"name": "Foo Bar"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "Foo Bar", res.Data.(*table.Row).Value("name"))

	res, err = r.Update(int64(2), map[string]any{"name": "Foo Bar"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, res.Status)

	list, err := r.Index(resource.Query{})
	require.NoError(t, err)
	assert.Len(t, ids(t, list), 3)

	_, err = r.Update(int64(5), map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, apierror.StatusOf(err))
}

func TestUpdate_UnchangedKeepsTimestamp(t *testing.T) {
	tbl := newTable("posts", map[string]any{
		"id": int64(1), "views": int64(3), "updated_at": "2020-01-01T00:00:00Z",
	})
	r := resource.New(tbl, resource.WithClock(clock))

	res, err := r.Update(int64(1), map[string]any{"views": "3"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, res.Status)
	assert.Equal(t, "2020-01-01T00:00:00Z", res.Data.(*table.Row).Value("updated_at"))

	res, err = r.Update(int64(1), map[string]any{"views": int64(4)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "2024-05-06T07:08:09Z", res.Data.(*table.Row).Value("updated_at"))
}

func TestDelete(t *testing.T) {
	tbl := people()
	r := resource.New(tbl)

	res, err := r.Delete(int64(3))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.Status)

	list, err := r.Index(resource.Query{})
	require.NoError(t, err)
	assert.Len(t, ids(t, list), 2)

	_, err = r.Delete(int64(3))
	assert.Equal(t, http.StatusNotFound, apierror.StatusOf(err))

	assert.Len(t, tbl.Rows, 3, "source table must not be mutated")
	assert.Len(t, r.Rows(), 2)
}

func TestSoftDelete(t *testing.T) {
	tbl := newTable("people",
		map[string]any{"id": int64(1), "name": "John Doe", "deleted_at": nil},
		map[string]any{"id": int64(2), "name": "Jane Doe", "deleted_at": nil},
		map[string]any{"id": int64(3), "name": "Sally Doe", "deleted_at": nil},
	)
	require.True(t, tbl.HasSoftDelete)

	r := resource.New(tbl, resource.WithClock(clock))

	res, err := r.Delete(int64(3))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.Status)

	shown, err := r.Show(int64(3))
	require.NoError(t, err)
	stamp := shown.Data.(*table.Row).Value("deleted_at")
	assert.Equal(t, "2024-05-06T07:08:09Z", stamp)

	later := resource.WithClock(func() time.Time { return fixedNow.Add(time.Hour) })
	later(r)
	res, err = r.Delete(int64(3))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, res.Status)

	shown, err = r.Show(int64(3))
	require.NoError(t, err)
	assert.Equal(t, stamp, shown.Data.(*table.Row).Value("deleted_at"))

	live, err := r.Index(resource.Query{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(t, live))
	assert.Equal(t, 2, live.Meta.Total)

	gone, err := r.Index(resource.QueryFromInput(map[string]any{"deleted": true}))
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(t, gone))
}

func TestSoftDelete_MissingColumnCountsAsLive(t *testing.T) {
	tbl := newTable("people",
		map[string]any{"id": int64(1), "deleted_at": nil},
	)
	tbl.Rows = append(tbl.Rows, table.RowFrom(map[string]any{"id": int64(2)}))

	res, err := resource.New(tbl).Index(resource.Query{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(t, res))
}

func TestValidate(t *testing.T) {
	tbl := newTable("products",
		map[string]any{"id": int64(1), "name": "a", "price": 1.5, "active": true},
	)
	r := resource.New(tbl)

	assert.NoError(t, r.Validate(map[string]any{"name": "b", "price": int64(2), "active": nil, "other": 1}))

	err := r.Validate(map[string]any{"price": "cheap", "active": "yes"})
	require.Error(t, err)

	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	fields := map[string]bool{}
	for _, fe := range apiErr.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["price"])
	assert.True(t, fields["active"])
}

func TestMetaJSON(t *testing.T) {
	res, err := resource.New(numbered(1)).Index(resource.Query{})
	require.NoError(t, err)

	out, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded struct {
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	for _, k := range []string{"page", "perPage", "total", "sort", "primaryKey", "softDelete", "timestamps", "attributes"} {
		assert.Contains(t, decoded.Meta, k)
	}
	assert.Equal(t, map[string]any{"id": "desc"}, decoded.Meta["sort"])

	shown, err := resource.New(numbered(1)).Show(int64(1))
	require.NoError(t, err)
	out, err = json.Marshal(shown)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"page"`)
}
