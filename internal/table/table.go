// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package table holds the relational model synthesized from a seed document:
// tables, their attributes, relations and flat rows.
package table

const (
	DefaultPrimaryKey = "id"

	CreatedAt = "created_at"
	UpdatedAt = "updated_at"
	DeletedAt = "deleted_at"
)

// Relation links a parent table to a child table through a foreign key
// column on the child, named "<parent>_id" by convention.
type Relation struct {
	Parent     string `json:"parentTable"`
	Child      string `json:"childTable"`
	ForeignKey string `json:"foreignKeyField"`
}

// ForeignKey returns the conventional foreign key column for parent.
func ForeignKey(parent string) string {
	return parent + "_id"
}

type Table struct {
	Name       string
	PrimaryKey string
	Attributes *Attributes
	Relations  []Relation
	Rows       []*Row

	HasCreateTimestamp bool
	HasUpdateTimestamp bool
	HasSoftDelete      bool
}

func New(name, primaryKey string) *Table {
	if primaryKey == "" {
		primaryKey = DefaultPrimaryKey
	}
	return &Table{
		Name:       name,
		PrimaryKey: primaryKey,
		Attributes: NewAttributes(),
	}
}

// Timestamps reports whether both created_at and updated_at are declared.
func (t *Table) Timestamps() bool {
	return t.HasCreateTimestamp && t.HasUpdateTimestamp
}

// RefreshFlags recomputes the timestamp and soft delete flags from the
// declared attributes.
func (t *Table) RefreshFlags() {
	t.HasCreateTimestamp = t.Attributes.Has(CreatedAt)
	t.HasUpdateTimestamp = t.Attributes.Has(UpdatedAt)
	t.HasSoftDelete = t.Attributes.Has(DeletedAt)
}

// AddRelation registers rel once.
func (t *Table) AddRelation(rel Relation) {
	for _, r := range t.Relations {
		if r == rel {
			return
		}
	}
	t.Relations = append(t.Relations, rel)
}

// ChildRelation finds the one-to-many relation from t to child.
func (t *Table) ChildRelation(child string) (Relation, bool) {
	for _, r := range t.Relations {
		if r.Parent == t.Name && r.Child == child {
			return r, true
		}
	}
	return Relation{}, false
}

// ParentRelation finds the belongs-to relation from t to parent.
func (t *Table) ParentRelation(parent string) (Relation, bool) {
	for _, r := range t.Relations {
		if r.Child == t.Name && r.Parent == parent {
			return r, true
		}
	}
	return Relation{}, false
}

// CloneRows returns an independent copy of the rows.
func (t *Table) CloneRows() []*Row {
	return CloneRows(t.Rows)
}

// ReplaceRows swaps in a revised row sequence.
func (t *Table) ReplaceRows(rows []*Row) {
	t.Rows = rows
}

// Summary is the per-table overview served by the stats endpoint.
type Summary struct {
	PrimaryKey string      `json:"primaryKey"`
	Rows       int         `json:"rows"`
	Attributes *Attributes `json:"attributes"`
	Relations  []Relation  `json:"relations"`
}

func (t *Table) Summary() Summary {
	rels := t.Relations
	if rels == nil {
		rels = []Relation{}
	}
	return Summary{
		PrimaryKey: t.PrimaryKey,
		Rows:       len(t.Rows),
		Attributes: t.Attributes,
		Relations:  rels,
	}
}
