// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package params

import (
	"net/url"
	"strings"

	"seedapi/internal/document"
)

// ParseQuery decodes a query string or form body. Bracket and dot keys
// build nested values in the order they appear:
//
//	sort[name]=asc&sort.id=desc  → sort: {name: asc, id: desc}
//	sort[]=name&sort[]=id        → sort: [name, id]
//	tag=a&tag=b                  → tag: [a, b]
//
// Top-level scalars are coerced with Coerce; nested objects stay
// *document.Object so their key order survives.
func ParseQuery(raw string) map[string]any {
	root := document.NewObject()

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			key = k
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			val = v
		}
		if key == "" {
			continue
		}
		assign(root, splitKey(key), val)
	}

	out := make(map[string]any, root.Len())
	for _, k := range root.Keys() {
		v, _ := root.Get(k)
		switch v.Kind {
		case document.KindObject:
			out[k] = v.Object
		case document.KindList:
			out[k] = v.Interface()
		default:
			out[k] = Coerce(v.Scalar)
		}
	}
	return out
}

func assign(obj *document.Object, segs []string, val string) {
	for i := 0; i < len(segs)-1; i++ {
		seg, next := segs[i], segs[i+1]

		if next == "" && i+1 == len(segs)-1 {
			appendValue(obj, seg, val)
			return
		}

		v, ok := obj.Get(seg)
		if !ok || v.Kind != document.KindObject {
			v = document.ObjectValue(document.NewObject())
			obj.Set(seg, v)
		}
		obj = v.Object
	}

	last := segs[len(segs)-1]
	if existing, ok := obj.Get(last); ok && existing.Kind != document.KindObject {
		appendValue(obj, last, val)
		return
	}
	obj.Set(last, document.Scalar(val))
}

// appendValue adds val to the list under key, promoting a scalar to a list.
func appendValue(obj *document.Object, key, val string) {
	v, ok := obj.Get(key)
	switch {
	case !ok || v.Kind == document.KindObject:
		obj.Set(key, document.List(document.Scalar(val)))
	case v.Kind == document.KindScalar:
		obj.Set(key, document.List(v, document.Scalar(val)))
	default:
		v.List = append(v.List, document.Scalar(val))
	}
}

// splitKey splits "a[b][c]" and "a.b.c" into [a b c]; "a[]" yields [a ""].
func splitKey(key string) []string {
	i := strings.IndexAny(key, "[.")
	if i <= 0 {
		return []string{key}
	}

	segs := []string{key[:i]}
	rest := key[i:]
	for rest != "" {
		switch rest[0] {
		case '[':
			j := strings.IndexByte(rest, ']')
			if j < 0 {
				segs[len(segs)-1] += rest
				return segs
			}
			segs = append(segs, rest[1:j])
			rest = rest[j+1:]
		case '.':
			rest = rest[1:]
			j := strings.IndexAny(rest, "[.")
			if j < 0 {
				j = len(rest)
			}
			segs = append(segs, rest[:j])
			rest = rest[j:]
		default:
			j := strings.IndexAny(rest, "[.")
			if j < 0 {
				j = len(rest)
			}
			segs[len(segs)-1] += rest[:j]
			rest = rest[j:]
		}
	}
	return segs
}
