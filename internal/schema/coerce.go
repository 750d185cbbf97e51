// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// coerce converts one non-nil raw JSON value to the Go representation of
// the declared column type. Numbers arrive as json.Number when the page
// decoder uses UseNumber; plain Go numerics are accepted as well so
// synthesized records behave the same.
//
// Conversions are deliberate, not clever: numeric strings convert to
// numbers, RFC 3339 strings and epoch seconds convert to timestamps, and
// everything else that does not fit the declared type is a type_coercion
// error that aborts the scan.
func coerce(col Column, v any) (any, error) {
	switch col.Type {
	case TypeText:
		return coerceText(col, v)
	case TypeBigint:
		return coerceBigint(col, v)
	case TypeNumeric:
		return coerceNumeric(col, v)
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, coercionError(col, v, nil)
	case TypeTimestamp:
		return coerceTimestamp(col, v)
	case TypeJSONB:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, coercionError(col, v, err)
		}
		return json.RawMessage(b), nil
	}
	return nil, coercionError(col, v, nil)
}

func coerceText(col Column, v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		// Arrays and objects render as their JSON form.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, coercionError(col, v, err)
		}
		return string(b), nil
	}
}

func coerceBigint(col Column, v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return nil, coercionError(col, v, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil, coercionError(col, v, err)
		}
		return n, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, coercionError(col, v, nil)
		}
		return int64(x), nil
	}
	return nil, coercionError(col, v, nil)
}

func coerceNumeric(col Column, v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, coercionError(col, v, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, coercionError(col, v, err)
		}
		return f, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return nil, coercionError(col, v, nil)
}

func coerceTimestamp(col Column, v any) (any, error) {
	switch x := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339, x)
		if err != nil {
			return nil, coercionError(col, v, err)
		}
		return t.UTC(), nil
	case json.Number:
		// Payment APIs send creation times as integer epoch seconds.
		if n, err := x.Int64(); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, coercionError(col, v, err)
		}
		return epochFloat(f), nil
	case int:
		return time.Unix(int64(x), 0).UTC(), nil
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case float64:
		return epochFloat(x), nil
	}
	return nil, coercionError(col, v, nil)
}

func epochFloat(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
