// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package table

import (
	"regexp"
	"strings"
)

var (
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	labelSuffix    = regexp.MustCompile(`_(id|at)$`)
	labelSeparator = regexp.MustCompile(`[_\-]`)
)

var imageFields = map[string]bool{
	"thumbnail": true,
	"image":     true,
	"avatar":    true,
}

var hiddenTextFields = map[string]bool{
	"contents": true,
	"slug":     true,
}

// Infer types a scalar field from its name and sample value.
// Rules apply in priority order: primary key, *_at timestamps, numbers
// (price is currency), booleans, image fields, text.
func Infer(key string, value any, primaryKey string) Attribute {
	if primaryKey == "" {
		primaryKey = DefaultPrimaryKey
	}

	attr := Attribute{
		Key:      key,
		Label:    Label(key),
		Sortable: true,
		Visible:  true,
	}

	_, isBool := value.(bool)

	switch {
	case key == primaryKey:
		attr.Type = TypeNumber
		attr.Primary = true
	case strings.HasSuffix(key, "_at"):
		attr.Type = TypeTimestamp
		attr.Visible = key == UpdatedAt
	case IsNumeric(value):
		attr.Type = TypeNumber
		if key == "price" {
			attr.Type = TypeCurrency
		}
	case isBool:
		attr.Type = TypeBoolean
		attr.Sortable = false
	case imageFields[key]:
		attr.Type = TypeImage
		attr.Sortable = false
	default:
		attr.Type = TypeText
		if hiddenTextFields[key] {
			attr.Visible = false
		}
	}

	return attr
}

// PrimaryAttribute is the descriptor of a synthesized primary key column.
func PrimaryAttribute(primaryKey string) Attribute {
	return Infer(primaryKey, int64(0), primaryKey)
}

// ForeignKeyAttribute describes the "<parent>_id" column on a child table.
func ForeignKeyAttribute(parent string) Attribute {
	key := ForeignKey(parent)
	return Attribute{
		Key:          key,
		Label:        Label(key),
		Type:         TypeRelation,
		Sortable:     true,
		Visible:      true,
		RelatedTable: parent,
	}
}

// IsNumeric reports whether v is a number or an integer-looking string.
func IsNumeric(v any) bool {
	switch t := v.(type) {
	case int, int32, int64, float32, float64:
		return true
	case string:
		return integerPattern.MatchString(t)
	default:
		return false
	}
}

// Label turns a column key into a human readable label:
// "id" → "ID", "created_at" → "Created", "first-name" → "First Name".
func Label(key string) string {
	if key == "id" {
		return "ID"
	}

	words := strings.ToLower(key)
	words = labelSuffix.ReplaceAllString(words, "")
	words = labelSeparator.ReplaceAllString(words, " ")

	parts := strings.Split(words, " ")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
