// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"seedapi/internal/document"
	"seedapi/internal/table"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func parseDirection(v any) Direction {
	if s, ok := v.(string); ok && Direction(strings.ToLower(s)) == Asc {
		return Asc
	}
	return Desc
}

type SortKey struct {
	Field     string
	Direction Direction
}

// Sort is an ordered field → direction mapping. Earlier keys win; later
// keys break ties.
type Sort []SortKey

func (s Sort) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Quote(string(k.Direction)))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseSort reads the accepted sort shapes:
//
//	"name,title"            each field descending
//	["name", "title"]       each field descending
//	{"name": "asc"}         explicit directions, anything but asc is desc
//	{"0": "name"}           numeric keys name the field, descending
func ParseSort(v any) Sort {
	var s Sort
	add := func(field string, dir Direction) {
		field = strings.TrimSpace(field)
		if field == "" {
			return
		}
		for i := range s {
			if s[i].Field == field {
				s[i].Direction = dir
				return
			}
		}
		s = append(s, SortKey{Field: field, Direction: dir})
	}

	switch t := v.(type) {
	case nil:
	case string:
		for _, f := range strings.Split(t, ",") {
			add(f, Desc)
		}
	case []string:
		for _, f := range t {
			add(f, Desc)
		}
	case []any:
		for _, f := range t {
			add(fmt.Sprint(f), Desc)
		}
	case Sort:
		for _, k := range t {
			add(k.Field, k.Direction)
		}
	case *document.Object:
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			addMapped(add, k, val.Interface())
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			addMapped(add, k, t[k])
		}
	default:
		add(fmt.Sprint(t), Desc)
	}
	return s
}

func addMapped(add func(string, Direction), key string, val any) {
	if _, err := strconv.Atoi(key); err == nil {
		add(fmt.Sprint(val), Desc)
		return
	}
	add(key, parseDirection(val))
}

// comparator builds a multi-key row ordering. Keys naming undeclared
// attributes are ignored.
func comparator(attrs *table.Attributes, keys Sort) func(a, b *table.Row) int {
	type sortField struct {
		field string
		typ   table.AttributeType
		desc  bool
	}

	var fields []sortField
	for _, k := range keys {
		attr, ok := attrs.Get(k.Field)
		if !ok {
			continue
		}
		fields = append(fields, sortField{field: k.Field, typ: attr.Type, desc: k.Direction == Desc})
	}

	return func(a, b *table.Row) int {
		for _, f := range fields {
			c := compareValues(f.typ, a.Value(f.field), b.Value(f.field))
			if f.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
}

// compareValues orders two values of an attribute. Missing values sort
// before present ones.
func compareValues(typ table.AttributeType, a, b any) int {
	switch typ {
	case table.TypeTimestamp:
		ta, okA := table.ParseTime(a)
		tb, okB := table.ParseTime(b)
		if c := comparePresence(okA, okB); c != 0 || !okA {
			return c
		}
		return ta.Compare(tb)
	case table.TypeNumber, table.TypeCurrency:
		return compareNumbers(a, b)
	case table.TypeText:
		return strings.Compare(upper(a), upper(b))
	default:
		_, okA := table.ToFloat(a)
		_, okB := table.ToFloat(b)
		if okA || okB {
			return compareNumbers(a, b)
		}
		return strings.Compare(upper(a), upper(b))
	}
}

func compareNumbers(a, b any) int {
	fa, okA := table.ToFloat(a)
	fb, okB := table.ToFloat(b)
	if c := comparePresence(okA, okB); c != 0 || !okA {
		return c
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

func comparePresence(okA, okB bool) int {
	switch {
	case okA == okB:
		return 0
	case okA:
		return 1
	default:
		return -1
	}
}

func upper(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(fmt.Sprint(v))
}
