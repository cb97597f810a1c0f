// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"seedapi/internal/apierror"
	"seedapi/internal/table"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "resource.schema.json"

// Validate type-checks input against the declared attributes. Every field is
// nullable and undeclared fields are allowed; only a value of the wrong JSON
// type is rejected.
func (r *Resource) Validate(input map[string]any) error {
	r.schemaOnce.Do(func() {
		r.schema, r.schemaErr = compileSchema(r.table)
	})
	if r.schemaErr != nil {
		return apierror.Internal(r.schemaErr)
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return apierror.Wrap(http.StatusBadRequest, "input is not valid JSON", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return apierror.Wrap(http.StatusBadRequest, "input is not valid JSON", err)
	}

	err = r.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return apierror.Wrap(http.StatusBadRequest, "Validation Error", err)
	}

	var fields []apierror.FieldError
	collectFieldErrors(ve, &fields)
	return apierror.Validation(fields)
}

func collectFieldErrors(ve *jsonschema.ValidationError, out *[]apierror.FieldError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, apierror.FieldError{
			Field:   strings.ReplaceAll(strings.TrimPrefix(ve.InstanceLocation, "/"), "/", "."),
			Message: ve.Message,
		})
		return
	}
	for _, c := range ve.Causes {
		collectFieldErrors(c, out)
	}
}

func compileSchema(t *table.Table) (*jsonschema.Schema, error) {
	props := map[string]any{}
	for _, attr := range t.Attributes.List() {
		if attr.Key == t.PrimaryKey {
			continue
		}
		props[attr.Key] = map[string]any{"type": jsonTypes(attr.Type)}
	}

	schema, err := json.Marshal(map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", t.Name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema for %s: %w", t.Name, err)
	}
	return compiler.Compile(schemaURL)
}

func jsonTypes(typ table.AttributeType) []string {
	switch typ {
	case table.TypeNumber, table.TypeCurrency:
		return []string{"number", "null"}
	case table.TypeBoolean:
		return []string{"boolean", "null"}
	case table.TypeRelation:
		return []string{"number", "string", "null"}
	case table.TypeTimestamp:
		return []string{"string", "number", "null"}
	default:
		return []string{"string", "null"}
	}
}
