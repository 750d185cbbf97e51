// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"rowbridge/cli/internal/wraperr"
)

// fieldResolver resolves every column to a plain top-level field lookup.
func fieldResolver(col Column) (Extractor, error) {
	return FieldExtractor(col.Name), nil
}

func TestParseType(t *testing.T) {
	for _, valid := range []string{"text", "bigint", "numeric", "boolean", "timestamp", "jsonb"} {
		if _, err := ParseType(valid); err != nil {
			t.Errorf("ParseType(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseType("varchar"); err == nil || !wraperr.Is(err, wraperr.InvalidOption) {
		t.Errorf("ParseType(varchar) = %v, want invalid_option", err)
	}
}

func TestCoerce(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		typ     Type
		value   any
		want    any
		wantErr bool
	}{
		{name: "text from string", typ: TypeText, value: "hello", want: "hello"},
		{name: "text from number", typ: TypeText, value: json.Number("7"), want: "7"},
		{name: "text from bool", typ: TypeText, value: true, want: "true"},
		{name: "text from array renders JSON", typ: TypeText, value: []any{"a", "b"}, want: `["a","b"]`},
		{name: "text from object renders JSON", typ: TypeText, value: map[string]any{"k": "v"}, want: `{"k":"v"}`},

		{name: "bigint from number", typ: TypeBigint, value: json.Number("42"), want: int64(42)},
		{name: "bigint from numeric string", typ: TypeBigint, value: "42", want: int64(42)},
		{name: "bigint from integral float", typ: TypeBigint, value: float64(42), want: int64(42)},
		{name: "bigint from fractional number", typ: TypeBigint, value: json.Number("42.5"), wantErr: true},
		{name: "bigint from word", typ: TypeBigint, value: "forty-two", wantErr: true},

		{name: "numeric from number", typ: TypeNumeric, value: json.Number("3.25"), want: 3.25},
		{name: "numeric from numeric string", typ: TypeNumeric, value: "42", want: float64(42)},
		{name: "numeric from bool", typ: TypeNumeric, value: true, wantErr: true},
		{name: "numeric from object", typ: TypeNumeric, value: map[string]any{}, wantErr: true},

		{name: "boolean from bool", typ: TypeBoolean, value: false, want: false},
		{name: "boolean from string rejected", typ: TypeBoolean, value: "true", wantErr: true},
		{name: "boolean from number rejected", typ: TypeBoolean, value: json.Number("1"), wantErr: true},

		{name: "timestamp from RFC3339", typ: TypeTimestamp, value: "2024-01-01T00:00:00Z", want: ts},
		{name: "timestamp from epoch seconds", typ: TypeTimestamp, value: json.Number("1704067200"), want: ts},
		{name: "timestamp from offset form", typ: TypeTimestamp, value: "2024-01-01T02:00:00+02:00", want: ts},
		{name: "timestamp from word", typ: TypeTimestamp, value: "yesterday", wantErr: true},

		{name: "jsonb from object", typ: TypeJSONB, value: map[string]any{"amount": json.Number("5")}, want: json.RawMessage(`{"amount":5}`)},
		{name: "jsonb from string is quoted", typ: TypeJSONB, value: "x", want: json.RawMessage(`"x"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := Column{Name: "c", Type: tt.typ}
			got, err := coerce(col, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("coerce() = %v, want error", got)
				}
				if !wraperr.Is(err, wraperr.TypeCoercion) {
					t.Errorf("coerce() kind = %v, want type_coercion", err)
				}
				if !strings.Contains(err.Error(), `column "c"`) {
					t.Errorf("coerce() error %q does not name the column", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("coerce() error = %v", err)
			}
			if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", tt.want) {
				t.Errorf("coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCompileRejectsBadDefinitions(t *testing.T) {
	cols := []Column{{Name: "id", Type: TypeText}, {Name: "id", Type: TypeText}}
	if _, err := Compile(cols, fieldResolver); err == nil || !strings.Contains(err.Error(), `duplicate column "id"`) {
		t.Errorf("Compile() = %v, want duplicate column error", err)
	}

	if _, err := Compile(nil, fieldResolver); err == nil {
		t.Error("Compile() accepted an empty column list")
	}

	unresolvable := func(col Column) (Extractor, error) {
		return nil, wraperr.Newf(wraperr.InvalidOption, "object has no field %q", col.Name)
	}
	if _, err := Compile([]Column{{Name: "ghost", Type: TypeText}}, unresolvable); err == nil {
		t.Error("Compile() accepted an unresolvable column")
	}
}

func TestMapRecord(t *testing.T) {
	plan, err := Compile([]Column{
		{Name: "id", Type: TypeText},
		{Name: "amount", Type: TypeBigint},
		{Name: "paid", Type: TypeBoolean},
		{Name: "note", Type: TypeText},
	}, fieldResolver)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	row, err := plan.MapRecord(map[string]any{
		"id":     "ch_1",
		"amount": json.Number("1200"),
		"paid":   true,
		"note":   nil, // JSON null
		"extra":  "ignored",
	})
	if err != nil {
		t.Fatalf("MapRecord() error = %v", err)
	}
	want := []any{"ch_1", int64(1200), true, nil}
	if fmt.Sprintf("%v", row) != fmt.Sprintf("%v", want) {
		t.Errorf("MapRecord() = %v, want %v", row, want)
	}

	// Absent field maps to NULL, same as an explicit null.
	row, err = plan.MapRecord(map[string]any{"id": "ch_2"})
	if err != nil {
		t.Fatalf("MapRecord() error = %v", err)
	}
	for i := 1; i < len(row); i++ {
		if row[i] != nil {
			t.Errorf("MapRecord() col %d = %v, want nil", i, row[i])
		}
	}

	// A value that does not fit its column type aborts the mapping.
	_, err = plan.MapRecord(map[string]any{"id": "ch_3", "amount": "a lot"})
	if !wraperr.Is(err, wraperr.TypeCoercion) {
		t.Errorf("MapRecord() = %v, want type_coercion", err)
	}
}
