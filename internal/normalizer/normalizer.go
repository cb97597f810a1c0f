// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package normalizer turns a denormalized seed document into related flat
// tables.
//
// Normalization runs in two passes. The first pass infers each table's
// schema from its first row and registers relations: arrays become
// one-to-many children, embedded objects and "*_id" fields become
// belongs-to parents. The second pass walks every row, moves nested arrays
// and objects into their tables and leaves foreign keys behind.
package normalizer

import (
	"errors"
	"strings"

	"seedapi/internal/document"
	"seedapi/internal/table"
)

// ScalarField holds the value of a list element that is not an object.
const ScalarField = "value"

var ErrNotObject = errors.New("normalizer: seed document must be a JSON object")

type Options struct {
	PrimaryKey string
}

type Option func(*Options)

func WithPrimaryKey(key string) Option {
	return func(o *Options) {
		if key != "" {
			o.PrimaryKey = key
		}
	}
}

type normalizer struct {
	pk          string
	doc         *document.Object
	tables      map[string]*table.Table
	discovering map[string]bool
}

// Normalize builds every table reachable from the document's top-level keys.
// Top-level values that are neither lists nor objects are not tables and
// are skipped.
func Normalize(doc *document.Value, opts ...Option) (map[string]*table.Table, error) {
	if doc == nil || doc.Kind != document.KindObject {
		return nil, ErrNotObject
	}

	o := Options{PrimaryKey: table.DefaultPrimaryKey}
	for _, opt := range opts {
		opt(&o)
	}

	n := &normalizer{
		pk:          o.PrimaryKey,
		doc:         doc.Object,
		tables:      map[string]*table.Table{},
		discovering: map[string]bool{},
	}

	var names []string
	for _, name := range doc.Object.Keys() {
		v, _ := doc.Object.Get(name)
		if v.Kind == document.KindScalar {
			continue
		}
		names = append(names, name)
		n.table(name)
		n.discover(name, sample(v))
	}

	for _, name := range names {
		v, _ := doc.Object.Get(name)
		for _, raw := range rows(v) {
			n.insertRow(name, raw)
		}
	}

	for _, t := range n.tables {
		t.RefreshFlags()
	}

	return n.tables, nil
}

func (n *normalizer) table(name string) *table.Table {
	t, ok := n.tables[name]
	if !ok {
		t = table.New(name, n.pk)
		n.tables[name] = t
	}
	return t
}

// ─────────────────────────────────────────────────────────────
// Pass 1: schema discovery
// ─────────────────────────────────────────────────────────────

func (n *normalizer) discover(name string, sample *document.Object) {
	t := n.table(name)
	if n.discovering[name] {
		return
	}
	n.discovering[name] = true
	defer delete(n.discovering, name)

	for _, field := range sample.Keys() {
		v, _ := sample.Get(field)
		n.classify(t, field, v)
	}

	if !t.Attributes.Has(n.pk) {
		t.Attributes.Prepend(table.PrimaryAttribute(n.pk))
	}
}

func (n *normalizer) classify(t *table.Table, field string, v *document.Value) {
	switch {
	case v.Kind == document.KindScalar && n.isForeignKey(field):
		parent := strings.TrimSuffix(field, "_id")
		n.belongsTo(t, parent, n.lookup(parent, v.Scalar))
	case v.Kind == document.KindList:
		n.hasMany(t, field, v)
	case v.Kind == document.KindObject:
		n.belongsTo(t, field, v.Object)
	default:
		t.Attributes.Add(table.Infer(field, v.Scalar, n.pk))
	}
}

func (n *normalizer) isForeignKey(field string) bool {
	return field != n.pk && len(field) > len("_id") && strings.HasSuffix(field, "_id")
}

// lookup finds the raw row of table parent whose primary key equals id.
// A missing table or row yields an empty object.
func (n *normalizer) lookup(parent string, id any) *document.Object {
	v, ok := n.doc.Get(parent)
	if !ok {
		return document.NewObject()
	}
	for _, raw := range rows(v) {
		key, ok := raw.Get(n.pk)
		if ok && key.Kind == document.KindScalar && table.LooseEqual(key.Scalar, id) {
			return raw
		}
	}
	return document.NewObject()
}

func (n *normalizer) belongsTo(child *table.Table, parent string, sample *document.Object) {
	n.discover(parent, sample)
	n.relate(parent, child.Name)
}

func (n *normalizer) hasMany(parent *table.Table, child string, list *document.Value) {
	n.discover(child, sample(list))
	n.relate(parent.Name, child)
}

func (n *normalizer) relate(parent, child string) {
	rel := table.Relation{
		Parent:     parent,
		Child:      child,
		ForeignKey: table.ForeignKey(parent),
	}
	n.table(parent).AddRelation(rel)
	c := n.table(child)
	c.AddRelation(rel)
	c.Attributes.Add(table.ForeignKeyAttribute(parent))
}

// ─────────────────────────────────────────────────────────────
// Pass 2: flattening
// ─────────────────────────────────────────────────────────────

func (n *normalizer) insertRow(name string, raw *document.Object) {
	t := n.tables[name]

	var id any = n.nextID(t)
	if v, ok := raw.Get(n.pk); ok && v.Kind == document.KindScalar {
		id = v.Scalar
	}

	row := n.appendRow(t, id)
	n.copyInto(row, n.resolve(t, raw, false))
	n.insertLists(t, raw, id)
}

// insertChildren stores every list element as a row of the child table,
// with a fresh sequential id and the parent's id as foreign key.
func (n *normalizer) insertChildren(parent *table.Table, field string, list *document.Value, parentID any) {
	rel, ok := parent.ChildRelation(field)
	if !ok {
		n.hasMany(parent, field, list)
		rel, _ = parent.ChildRelation(field)
	}
	child := n.tables[field]

	for _, item := range list.List {
		raw := asObject(item)
		id := n.nextID(child)

		row := n.appendRow(child, id)
		n.copyInto(row, n.resolve(child, raw, false))
		row.Set(rel.ForeignKey, parentID)
		n.insertLists(child, raw, id)
	}
}

// insertParent stores an embedded object in table parent unless an equal
// row already exists. The object keeps its own id when no row holds it yet
// and gets the next free sequential id otherwise. It returns the foreign key column and value the
// holding row should carry.
func (n *normalizer) insertParent(child *table.Table, parentName string, raw *document.Object) (string, any) {
	rel, ok := child.ParentRelation(parentName)
	if !ok {
		n.belongsTo(child, parentName, raw)
		rel, _ = child.ParentRelation(parentName)
	}
	parent := n.tables[parentName]

	candidate := n.resolve(parent, raw, true)
	if existing := findEqual(parent.Rows, candidate); existing != nil {
		return rel.ForeignKey, existing.Value(n.pk)
	}

	var id any = n.freeID(parent)
	if v, ok := raw.Get(n.pk); ok && v.Kind == document.KindScalar && truthy(v.Scalar) && !n.taken(parent, v.Scalar) {
		id = v.Scalar
	}

	row := n.appendRow(parent, id)
	candidate.Delete(n.pk)
	n.copyInto(row, candidate)
	n.insertLists(parent, raw, id)

	return rel.ForeignKey, id
}

// resolve flattens the scalar part of raw: scalars are copied, embedded
// objects are replaced by foreign keys. Lists are left to insertLists.
func (n *normalizer) resolve(t *table.Table, raw *document.Object, keepPK bool) *table.Row {
	out := table.NewRow()
	for _, field := range raw.Keys() {
		if field == n.pk && !keepPK {
			continue
		}
		v, _ := raw.Get(field)
		switch v.Kind {
		case document.KindList:
			continue
		case document.KindObject:
			fk, id := n.insertParent(t, field, v.Object)
			out.Set(fk, id)
		default:
			if _, isChild := t.ChildRelation(field); isChild && v.Scalar == nil {
				continue
			}
			out.Set(field, v.Scalar)
		}
	}
	return out
}

func (n *normalizer) insertLists(t *table.Table, raw *document.Object, id any) {
	for _, field := range raw.Keys() {
		v, _ := raw.Get(field)
		if v.Kind == document.KindList {
			n.insertChildren(t, field, v, id)
		}
	}
}

func (n *normalizer) appendRow(t *table.Table, id any) *table.Row {
	row := table.NewRow()
	row.Set(n.pk, id)
	t.Rows = append(t.Rows, row)
	return row
}

func (n *normalizer) copyInto(row *table.Row, from *table.Row) {
	for _, k := range from.Keys() {
		row.Set(k, from.Value(k))
	}
}

// nextID is the row-count based id: count + 1.
func (n *normalizer) nextID(t *table.Table) int64 {
	return int64(len(t.Rows) + 1)
}

// freeID is the first sequential id from count + 1 that no row of t holds.
func (n *normalizer) freeID(t *table.Table) int64 {
	id := n.nextID(t)
	for n.taken(t, id) {
		id++
	}
	return id
}

func (n *normalizer) taken(t *table.Table, id any) bool {
	for _, r := range t.Rows {
		if table.LooseEqual(r.Value(n.pk), id) {
			return true
		}
	}
	return false
}

// findEqual returns the first row carrying every field of candidate with
// an identical value.
func findEqual(rows []*table.Row, candidate *table.Row) *table.Row {
	for _, r := range rows {
		equal := true
		for _, k := range candidate.Keys() {
			v, ok := r.Get(k)
			if !ok || v != candidate.Value(k) {
				equal = false
				break
			}
		}
		if equal {
			return r
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────

// sample returns the schema sample of a table value: the first element of a
// list, or the object itself for a singleton.
func sample(v *document.Value) *document.Object {
	switch v.Kind {
	case document.KindList:
		if len(v.List) == 0 {
			return document.NewObject()
		}
		return asObject(v.List[0])
	case document.KindObject:
		return v.Object
	default:
		return document.NewObject()
	}
}

func rows(v *document.Value) []*document.Object {
	switch v.Kind {
	case document.KindList:
		out := make([]*document.Object, len(v.List))
		for i, item := range v.List {
			out[i] = asObject(item)
		}
		return out
	case document.KindObject:
		return []*document.Object{v.Object}
	default:
		return nil
	}
}

// asObject wraps non-object list elements as {"value": element}.
func asObject(v *document.Value) *document.Object {
	if v.Kind == document.KindObject {
		return v.Object
	}
	o := document.NewObject()
	o.Set(ScalarField, v)
	return o
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
