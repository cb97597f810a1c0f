// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package table_test

import (
	"encoding/json"
	"testing"
	"time"

	"seedapi/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer(t *testing.T) {
	cases := []struct {
		key      string
		value    any
		typ      table.AttributeType
		sortable bool
		visible  bool
		primary  bool
	}{
		{"id", int64(1), table.TypeNumber, true, true, true},
		{"created_at", "2020-01-01", table.TypeTimestamp, true, false, false},
		{"updated_at", "2020-01-01", table.TypeTimestamp, true, true, false},
		{"deleted_at", nil, table.TypeTimestamp, true, false, false},
		{"count", int64(3), table.TypeNumber, true, true, false},
		{"count", "-42", table.TypeNumber, true, true, false},
		{"price", 9.99, table.TypeCurrency, true, true, false},
		{"active", true, table.TypeBoolean, false, true, false},
		{"avatar", "http://x/y.png", table.TypeImage, false, true, false},
		{"thumbnail", "http://x/y.png", table.TypeImage, false, true, false},
		{"slug", "hello-world", table.TypeText, true, false, false},
		{"contents", "...", table.TypeText, true, false, false},
		{"title", "Hello", table.TypeText, true, true, false},
		{"ratio", "1.5", table.TypeText, true, true, false},
	}

	for _, tc := range cases {
		attr := table.Infer(tc.key, tc.value, "id")
		assert.Equal(t, tc.typ, attr.Type, tc.key)
		assert.Equal(t, tc.sortable, attr.Sortable, tc.key)
		assert.Equal(t, tc.visible, attr.Visible, tc.key)
		assert.Equal(t, tc.primary, attr.Primary, tc.key)
	}
}

func TestInfer_CustomPrimaryKey(t *testing.T) {
	attr := table.Infer("uuid", "abc", "uuid")
	assert.True(t, attr.Primary)
	assert.Equal(t, table.TypeNumber, attr.Type)

	attr = table.Infer("id", "abc", "uuid")
	assert.False(t, attr.Primary)
	assert.Equal(t, table.TypeText, attr.Type)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "ID", table.Label("id"))
	assert.Equal(t, "Created", table.Label("created_at"))
	assert.Equal(t, "User", table.Label("user_id"))
	assert.Equal(t, "First Name", table.Label("first-name"))
	assert.Equal(t, "Post Title", table.Label("POST_TITLE"))
}

func TestLooseEqual(t *testing.T) {
	assert.True(t, table.LooseEqual(int64(3), "3"))
	assert.True(t, table.LooseEqual("3", 3.0))
	assert.True(t, table.LooseEqual(true, int64(1)))
	assert.True(t, table.LooseEqual("abc", "abc"))
	assert.True(t, table.LooseEqual(nil, nil))
	assert.False(t, table.LooseEqual(nil, int64(0)))
	assert.False(t, table.LooseEqual("abc", int64(3)))
	assert.False(t, table.LooseEqual("a", "b"))
}

func TestParseTime(t *testing.T) {
	ts, ok := table.ParseTime("2021-03-04T05:06:07Z")
	require.True(t, ok)
	assert.Equal(t, 2021, ts.Year())

	ts, ok = table.ParseTime("Thu Mar 04 2021 05:06:07 GMT+0000 (Coordinated Universal Time)")
	require.True(t, ok)
	assert.Equal(t, time.March, ts.Month())

	_, ok = table.ParseTime("not a date")
	assert.False(t, ok)
}

func TestRow_OrderAndClone(t *testing.T) {
	r := table.NewRow()
	r.Set("id", int64(1))
	r.Set("name", "a")
	r.Set("id", int64(2))

	c := r.Clone()
	c.Set("name", "b")
	c.Delete("id")

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"id":2,"name":"a"}`, string(out))

	out, err = json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"b"}`, string(out))
}

func TestTable_RelationsAndFlags(t *testing.T) {
	tbl := table.New("posts", "")
	assert.Equal(t, "id", tbl.PrimaryKey)

	rel := table.Relation{Parent: "posts", Child: "comments", ForeignKey: "posts_id"}
	tbl.AddRelation(rel)
	tbl.AddRelation(rel)
	assert.Len(t, tbl.Relations, 1)

	got, ok := tbl.ChildRelation("comments")
	require.True(t, ok)
	assert.Equal(t, rel, got)

	_, ok = tbl.ParentRelation("comments")
	assert.False(t, ok)

	tbl.Attributes.Set(table.Infer("created_at", nil, "id"))
	tbl.Attributes.Set(table.Infer("updated_at", nil, "id"))
	tbl.RefreshFlags()
	assert.True(t, tbl.Timestamps())
	assert.False(t, tbl.HasSoftDelete)
}

func TestAttributes_JSON(t *testing.T) {
	attrs := table.NewAttributes()
	attrs.Set(table.Infer("name", "x", "id"))
	attrs.Prepend(table.PrimaryAttribute("id"))

	assert.False(t, attrs.Add(table.Infer("name", int64(1), "id")))
	assert.Equal(t, []string{"id", "name"}, attrs.Keys())

	out, err := json.Marshal(attrs)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": {"key":"id","label":"ID","type":"number","sortable":true,"visible":true,"primary":true},
		"name": {"key":"name","label":"Name","type":"text","sortable":true,"visible":true}
	}`, string(out))
}
