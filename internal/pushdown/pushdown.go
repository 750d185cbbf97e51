// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pushdown splits query predicates between the remote API and local
// evaluation. Wrappers declare what their API can express (equality filters
// on certain fields, point lookup by id, field projection); everything the
// API cannot express stays in the remainder and is applied to fetched rows
// locally. The planner never rejects a predicate, it only decides where the
// predicate runs, so pushdown is an optimization and never changes results.
package pushdown

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rowbridge/cli/internal/wraperr"
)

// Op is a predicate operator.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

// Qual is one predicate over a single column, with literal operands in
// their text form.
type Qual struct {
	Column string
	Op     Op
	Values []string
}

func (q Qual) String() string {
	if q.Op == OpIn {
		return fmt.Sprintf("%s in (%s)", q.Column, strings.Join(q.Values, ", "))
	}
	return fmt.Sprintf("%s = %s", q.Column, q.Values[0])
}

// Matches evaluates the predicate against one row value locally.
// NULL matches nothing, mirroring SQL comparison semantics.
func (q Qual) Matches(v any) bool {
	if v == nil {
		return false
	}
	s := renderValue(v)
	for _, want := range q.Values {
		if s == want {
			return true
		}
	}
	return false
}

// Capability declares what one wrapper's API can evaluate remotely.
// The zero value pushes nothing, which is the correct default for a
// wrapper that declares nothing.
type Capability struct {
	// EqualityFields lists columns whose single-value equality quals
	// become request parameters.
	EqualityFields []string
	// SingleObjectID allows an `id = literal` qual to rewrite the whole
	// fetch into a point lookup of that object.
	SingleObjectID bool
	// Projection allows sending the requested column list to the remote
	// so unneeded fields are never transferred.
	Projection bool
}

// Plan is the outcome of splitting quals against a capability.
type Plan struct {
	// Pushed quals are satisfied by the remote request itself.
	Pushed []Qual
	// Remainder quals must be applied locally to every fetched row.
	Remainder []Qual
	// PointID is set when the fetch collapses to a single-object lookup.
	PointID string
	// Fields is the projection sent to the remote, empty for "all".
	Fields []string
}

// Split plans where each qual runs. requested is the projected column
// list, forwarded to the remote only when the capability supports it.
func Split(quals []Qual, requested []string, c Capability) Plan {
	var plan Plan
	if c.Projection {
		plan.Fields = requested
	}

	if c.SingleObjectID {
		for i, q := range quals {
			if q.Column == "id" && q.Op == OpEq && len(q.Values) == 1 {
				plan.PointID = q.Values[0]
				plan.Pushed = []Qual{q}
				plan.Remainder = append(plan.Remainder, quals[:i]...)
				plan.Remainder = append(plan.Remainder, quals[i+1:]...)
				return plan
			}
		}
	}

	pushable := make(map[string]struct{}, len(c.EqualityFields))
	for _, f := range c.EqualityFields {
		pushable[f] = struct{}{}
	}

	pushed := make(map[string]struct{})
	for _, q := range quals {
		_, ok := pushable[q.Column]
		if !ok || q.Op != OpEq || len(q.Values) != 1 {
			plan.Remainder = append(plan.Remainder, q)
			continue
		}
		// One request parameter per column; a second equality qual on the
		// same column stays local.
		if _, dup := pushed[q.Column]; dup {
			plan.Remainder = append(plan.Remainder, q)
			continue
		}
		pushed[q.Column] = struct{}{}
		plan.Pushed = append(plan.Pushed, q)
	}
	return plan
}

// ParseWhere parses a command-line predicate. Accepted forms:
//
//	col=value
//	col in v1,v2,v3
func ParseWhere(s string) (Qual, error) {
	if i := strings.Index(s, "="); i > 0 && !strings.Contains(s[:i], " ") {
		col := strings.TrimSpace(s[:i])
		val := strings.TrimSpace(s[i+1:])
		if val == "" {
			return Qual{}, wraperr.Newf(wraperr.InvalidOption, "predicate %q has no value", s)
		}
		return Qual{Column: col, Op: OpEq, Values: []string{val}}, nil
	}

	fields := strings.SplitN(s, " ", 3)
	if len(fields) == 3 && strings.EqualFold(fields[1], "in") {
		col := strings.TrimSpace(fields[0])
		var values []string
		for _, v := range strings.Split(fields[2], ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if col != "" && len(values) > 0 {
			return Qual{Column: col, Op: OpIn, Values: values}, nil
		}
	}

	return Qual{}, wraperr.Newf(wraperr.InvalidOption,
		"cannot parse predicate %q (use col=value or \"col in v1,v2\")", s)
}

// renderValue gives row values the same text form qual literals use.
func renderValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.RawMessage:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
