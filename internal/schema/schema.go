// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package schema maps decoded remote records to typed relational rows.
// A table's declared columns are compiled into a Plan once, at definition
// time, using the wrapper's column resolver; a column the remote object can
// never provide fails compilation instead of failing mid-scan. At scan time
// the plan maps each record to one row, producing NULL for absent fields and
// aborting with a type_coercion error for values that do not fit their
// declared type.
package schema

import (
	"fmt"

	"rowbridge/cli/internal/wraperr"
)

// Type is a declared column type.
type Type string

const (
	TypeText      Type = "text"
	TypeBigint    Type = "bigint"
	TypeNumeric   Type = "numeric"
	TypeBoolean   Type = "boolean"
	TypeTimestamp Type = "timestamp"
	TypeJSONB     Type = "jsonb"
)

// ParseType parses a catalog type name.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeText, TypeBigint, TypeNumeric, TypeBoolean, TypeTimestamp, TypeJSONB:
		return Type(s), nil
	}
	return "", wraperr.Newf(wraperr.InvalidOption,
		"unknown column type %q (valid: text, bigint, numeric, boolean, timestamp, jsonb)", s)
}

// Column is one declared column of a foreign table.
type Column struct {
	Name string
	Type Type
}

// Extractor pulls a column's raw value out of one decoded record.
// The boolean result reports whether the field was present at all;
// an absent field becomes NULL, never an error.
type Extractor func(rec map[string]any) (any, bool)

// FieldExtractor returns the standard extractor for a top-level record field.
func FieldExtractor(field string) Extractor {
	return func(rec map[string]any) (any, bool) {
		v, ok := rec[field]
		return v, ok
	}
}

// Resolver maps a declared column to an extractor. Wrappers return an
// error for columns the remote object cannot provide, which makes the
// table definition fail before any scan runs.
type Resolver func(col Column) (Extractor, error)

// Plan is a compiled column mapping for one table.
type Plan struct {
	cols    []Column
	extract []Extractor
}

// Compile resolves every declared column and freezes the mapping.
func Compile(cols []Column, resolve Resolver) (*Plan, error) {
	if len(cols) == 0 {
		return nil, wraperr.New(wraperr.InvalidOption, "table declares no columns")
	}
	seen := make(map[string]struct{}, len(cols))
	p := &Plan{
		cols:    make([]Column, 0, len(cols)),
		extract: make([]Extractor, 0, len(cols)),
	}
	for _, col := range cols {
		if _, dup := seen[col.Name]; dup {
			return nil, wraperr.Newf(wraperr.InvalidOption, "duplicate column %q", col.Name)
		}
		seen[col.Name] = struct{}{}

		ext, err := resolve(col)
		if err != nil {
			return nil, err
		}
		p.cols = append(p.cols, col)
		p.extract = append(p.extract, ext)
	}
	return p, nil
}

// Columns returns the planned columns in declaration order.
func (p *Plan) Columns() []Column { return p.cols }

// Names returns the planned column names in declaration order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.cols))
	for i, c := range p.cols {
		names[i] = c.Name
	}
	return names
}

// MapRecord maps one decoded record to a row, one value per planned
// column. Absent fields and JSON nulls map to nil.
func (p *Plan) MapRecord(rec map[string]any) ([]any, error) {
	row := make([]any, len(p.cols))
	for i, col := range p.cols {
		raw, ok := p.extract[i](rec)
		if !ok || raw == nil {
			continue // NULL
		}
		v, err := coerce(col, raw)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func coercionError(col Column, v any, detail error) error {
	msg := fmt.Sprintf("column %q: cannot coerce %s to %s", col.Name, valueLabel(v), col.Type)
	if detail != nil {
		return wraperr.Wrap(wraperr.TypeCoercion, msg, detail)
	}
	return wraperr.New(wraperr.TypeCoercion, msg)
}

// valueLabel renders a short description of a value for error messages.
func valueLabel(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return fmt.Sprintf("%q (%T)", s, v)
}
