// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package wrapper adapts vendor HTTP APIs to the engine. Each adapter
// declares its options, resolves declared columns to record fields,
// advertises what filtering its API can evaluate remotely, builds page
// requests, and parses page responses.
//
// Adapters never perform I/O themselves; the scan iterator owns the HTTP
// client and calls the adapter to shape each request and interpret each
// response.
package wrapper

import (
	"rowbridge/cli/internal/options"
	"rowbridge/cli/internal/pushdown"
	"rowbridge/cli/internal/remote"
	"rowbridge/cli/internal/schema"
	"rowbridge/cli/internal/wraperr"
)

// Page is one fetched slice of a remote collection.
type Page struct {
	Records []map[string]any
	// Cursor resumes the scan after this page. Empty means the
	// collection is exhausted.
	Cursor string
}

// Wrapper adapts one vendor API to the engine.
type Wrapper interface {
	// Name is the wrapper kind as written in server definitions.
	Name() string
	// BaseURL resolves the API root from validated server options.
	BaseURL(serverOpts map[string]string) string
	// ServerRules and TableRules declare the accepted options.
	ServerRules() options.RuleSet
	TableRules() options.RuleSet
	// ResolveColumn maps a declared column to a record extractor, or
	// fails when the remote object cannot provide the column.
	ResolveColumn(tableOpts map[string]string, col schema.Column) (schema.Extractor, error)
	// Capability reports what filtering the API can evaluate remotely.
	Capability(tableOpts map[string]string) pushdown.Capability
	// BuildRequest shapes the fetch for one page.
	BuildRequest(tableOpts map[string]string, plan pushdown.Plan, pageSize int, cursor string) (remote.Request, error)
	// ParsePage decodes one response body into records plus the cursor
	// that resumes after them.
	ParsePage(tableOpts map[string]string, body []byte) (*Page, error)
	// EmptyOnNotFound reports whether a 404 means "no rows" for this
	// vendor rather than a broken definition.
	EmptyOnNotFound() bool
}

// Kinds lists the supported wrapper kinds.
func Kinds() []string { return []string{"airtable", "stripe"} }

// New returns the adapter registered under kind.
func New(kind string) (Wrapper, error) {
	switch kind {
	case "airtable":
		return NewAirtable(), nil
	case "stripe":
		return NewStripe(), nil
	}
	return nil, wraperr.Newf(wraperr.InvalidOption, "unknown wrapper %q (valid: airtable, stripe)", kind)
}

// credentialRules is the server-option contract shared by every adapter:
// exactly one of a literal api_key or a vault api_key_id.
func credentialRules(scope, defaultPageSize string) options.RuleSet {
	return options.RuleSet{
		Scope: scope,
		Rules: []options.Rule{
			{Key: "api_url", Check: options.BaseURL},
			{Key: "api_key"},
			{Key: "api_key_id", Check: options.Identifier},
			{Key: "timeout", Check: options.Duration},
			{Key: "page_size", Default: defaultPageSize, Check: options.IntRange(1, 100)},
		},
		ExactlyOne: [][]string{{"api_key", "api_key_id"}},
	}
}
