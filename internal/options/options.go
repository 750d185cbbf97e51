// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package options validates server and table option maps at definition time.
// Each wrapper declares its accepted options as a RuleSet; the catalog loader
// evaluates the rules synchronously, so a bad definition is rejected before
// any credential resolution or network traffic happens.
//
// Violations carry the invalid_option error kind and always name the
// offending key, so a catalog with several bad definitions can be reported
// key by key.
package options

import (
	"fmt"
	"sort"

	"rowbridge/cli/internal/wraperr"
)

// CheckFunc validates a single option value.
type CheckFunc func(value string) error

// Rule describes one accepted option key.
type Rule struct {
	Key      string
	Required bool
	Default  string // filled in by Apply when the key is absent
	Check    CheckFunc
}

// RuleSet is the full option contract for one definition scope
// (one wrapper's server options, or its table options).
type RuleSet struct {
	// Scope names the definition being validated in error messages,
	// e.g. `server wrapper "stripe"`.
	Scope string
	Rules []Rule
	// ExactlyOne lists groups of keys where exactly one member must be
	// set. Group members do not also need to be listed as Required.
	ExactlyOne [][]string
}

// Validate checks opts against the rule set and returns the first
// violation found, or nil. Keys are checked in deterministic order.
func (rs RuleSet) Validate(opts map[string]string) error {
	known := make(map[string]Rule, len(rs.Rules))
	for _, r := range rs.Rules {
		known[r.Key] = r
	}

	for _, r := range rs.Rules {
		v, ok := opts[r.Key]
		if !ok {
			if r.Required {
				return wraperr.Newf(wraperr.InvalidOption, "%s: option %q is required", rs.Scope, r.Key)
			}
			continue
		}
		if v == "" {
			return wraperr.Newf(wraperr.InvalidOption, "%s: option %q must not be empty", rs.Scope, r.Key)
		}
		if r.Check != nil {
			if err := r.Check(v); err != nil {
				return wraperr.Wrap(wraperr.InvalidOption, fmt.Sprintf("%s: option %q", rs.Scope, r.Key), err)
			}
		}
	}

	for _, group := range rs.ExactlyOne {
		var set []string
		for _, key := range group {
			if _, ok := opts[key]; ok {
				set = append(set, key)
			}
		}
		switch len(set) {
		case 1:
		case 0:
			return wraperr.Newf(wraperr.InvalidOption, "%s: exactly one of %v must be set", rs.Scope, group)
		default:
			return wraperr.Newf(wraperr.InvalidOption, "%s: options %v are mutually exclusive", rs.Scope, set)
		}
	}

	// Reject keys no rule accepts, in sorted order so the message is stable.
	var unknown []string
	for key := range opts {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return wraperr.Newf(wraperr.InvalidOption, "%s: unknown option %q", rs.Scope, unknown[0])
	}

	return nil
}

// Apply validates opts and returns a copy with rule defaults filled in for
// absent keys. The input map is never mutated.
func (rs RuleSet) Apply(opts map[string]string) (map[string]string, error) {
	if err := rs.Validate(opts); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(opts)+len(rs.Rules))
	for k, v := range opts {
		out[k] = v
	}
	for _, r := range rs.Rules {
		if r.Default == "" {
			continue
		}
		if _, ok := out[r.Key]; !ok {
			out[r.Key] = r.Default
		}
	}
	return out, nil
}
