// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AttributeType is the closed set of column types a seed can produce.
type AttributeType int

const (
	TypeText AttributeType = iota
	TypeNumber
	TypeBoolean
	TypeTimestamp
	TypeCurrency
	TypeImage
	TypeRelation
)

var typeNames = map[AttributeType]string{
	TypeText:      "text",
	TypeNumber:    "number",
	TypeBoolean:   "boolean",
	TypeTimestamp: "timestamp",
	TypeCurrency:  "currency",
	TypeImage:     "image",
	TypeRelation:  "relation",
}

func (t AttributeType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("AttributeType(%d)", int(t))
}

func (t AttributeType) MarshalText() ([]byte, error) {
	name, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown attribute type %d", int(t))
	}
	return []byte(name), nil
}

func (t *AttributeType) UnmarshalText(b []byte) error {
	for typ, name := range typeNames {
		if name == string(b) {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown attribute type %q", string(b))
}

// Attribute describes one column of a table.
type Attribute struct {
	Key          string        `json:"key"`
	Label        string        `json:"label"`
	Type         AttributeType `json:"type"`
	Sortable     bool          `json:"sortable"`
	Visible      bool          `json:"visible"`
	Primary      bool          `json:"primary,omitempty"`
	RelatedTable string        `json:"relatedTable,omitempty"`
}

// Attributes is an ordered field → Attribute mapping.
type Attributes struct {
	keys  []string
	attrs map[string]Attribute
}

func NewAttributes() *Attributes {
	return &Attributes{attrs: map[string]Attribute{}}
}

func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	return a.keys
}

func (a *Attributes) Get(key string) (Attribute, bool) {
	if a == nil {
		return Attribute{}, false
	}
	attr, ok := a.attrs[key]
	return attr, ok
}

func (a *Attributes) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Set stores attr, replacing an existing definition in place.
func (a *Attributes) Set(attr Attribute) {
	if _, ok := a.attrs[attr.Key]; !ok {
		a.keys = append(a.keys, attr.Key)
	}
	a.attrs[attr.Key] = attr
}

// Add stores attr only if the key is not defined yet. The first definition
// of a column wins.
func (a *Attributes) Add(attr Attribute) bool {
	if a.Has(attr.Key) {
		return false
	}
	a.Set(attr)
	return true
}

// Prepend stores attr as the first column.
func (a *Attributes) Prepend(attr Attribute) {
	if a.Has(attr.Key) {
		a.attrs[attr.Key] = attr
		return
	}
	a.keys = append([]string{attr.Key}, a.keys...)
	a.attrs[attr.Key] = attr
}

func (a *Attributes) List() []Attribute {
	out := make([]Attribute, 0, a.Len())
	for _, k := range a.Keys() {
		out = append(out, a.attrs[k])
	}
	return out
}

func (a *Attributes) Clone() *Attributes {
	out := NewAttributes()
	for _, k := range a.Keys() {
		out.Set(a.attrs[k])
	}
	return out
}

func (a *Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.attrs[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
