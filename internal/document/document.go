// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package document decodes seed JSON into an ordered tree whose nodes carry
// an explicit kind, so callers switch on Kind instead of probing Go types.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one node of a decoded document. Scalar holds nil, bool, int64,
// float64 or string.
type Value struct {
	Kind   Kind
	Scalar any
	List   []*Value
	Object *Object
}

// Object is a JSON object that remembers key order.
type Object struct {
	keys   []string
	fields map[string]*Value
}

func NewObject() *Object {
	return &Object{fields: map[string]*Value{}}
}

func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

func (o *Object) Get(key string) (*Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Set stores v under key, appending the key when it is new.
func (o *Object) Set(key string, v *Value) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

func (o *Object) Delete(key string) {
	if _, ok := o.fields[key]; !ok {
		return
	}
	delete(o.fields, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

// Clone copies the object and every nested value.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	out := NewObject()
	for _, k := range o.keys {
		out.Set(k, o.fields[k].Clone())
	}
	return out
}

func Scalar(v any) *Value {
	return &Value{Kind: KindScalar, Scalar: v}
}

func List(items ...*Value) *Value {
	return &Value{Kind: KindList, List: items}
}

func ObjectValue(o *Object) *Value {
	if o == nil {
		o = NewObject()
	}
	return &Value{Kind: KindObject, Object: o}
}

func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindList:
		items := make([]*Value, len(v.List))
		for i, item := range v.List {
			items[i] = item.Clone()
		}
		return List(items...)
	case KindObject:
		return ObjectValue(v.Object.Clone())
	default:
		return Scalar(v.Scalar)
	}
}

// Interface converts the value back into plain Go values
// (map[string]any, []any and scalars). Key order is lost.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.Object.Len())
		for _, k := range v.Object.keys {
			out[k] = v.Object.fields[k].Interface()
		}
		return out
	default:
		return v.Scalar
	}
}

// FromAny builds a Value from plain Go values. Map keys are sorted since
// Go maps carry no order.
func FromAny(in any) *Value {
	switch t := in.(type) {
	case *Value:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			o.Set(k, FromAny(t[k]))
		}
		return ObjectValue(o)
	case []any:
		items := make([]*Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return List(items...)
	case []map[string]any:
		items := make([]*Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return List(items...)
	case int:
		return Scalar(int64(t))
	case int32:
		return Scalar(int64(t))
	case float32:
		return Scalar(float64(t))
	case json.Number:
		return Scalar(number(t))
	default:
		return Scalar(in)
	}
}

var ErrTrailingData = errors.New("document: unexpected data after top-level value")

// Parse decodes JSON text keeping object key order. Integral numbers become
// int64, all other numbers float64.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("document: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("document: object key %v is not a string", keyTok)
				}
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				o.Set(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("document: %w", err)
			}
			return ObjectValue(o), nil
		case '[':
			items := []*Value{}
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("document: %w", err)
			}
			return List(items...), nil
		default:
			return nil, fmt.Errorf("document: unexpected delimiter %q", t)
		}
	case json.Number:
		return Scalar(number(t)), nil
	default:
		// nil, bool, string
		return Scalar(t), nil
	}
}

func number(n json.Number) any {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

// MarshalJSON writes the value with its original key order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Object) MarshalJSON() ([]byte, error) {
	return ObjectValue(o).MarshalJSON()
}

func (v *Value) encode(buf *bytes.Buffer) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch v.Kind {
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.Object.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(k)
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.Object.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		out, err := json.Marshal(v.Scalar)
		if err != nil {
			return err
		}
		buf.Write(out)
	}
	return nil
}
