// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package wrapper

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"

	"rowbridge/cli/internal/options"
	"rowbridge/cli/internal/pushdown"
	"rowbridge/cli/internal/remote"
	"rowbridge/cli/internal/schema"
	"rowbridge/cli/internal/wraperr"
)

const airtableDefaultBaseURL = "https://api.airtable.com/v0"

// Airtable adapts the Airtable-style grid API: bases of tables whose
// records carry a dynamic field map plus id and creation time metadata.
type Airtable struct{}

func NewAirtable() *Airtable { return &Airtable{} }

func (a *Airtable) Name() string { return "airtable" }

func (a *Airtable) BaseURL(serverOpts map[string]string) string {
	if u := serverOpts["api_url"]; u != "" {
		return u
	}
	return airtableDefaultBaseURL
}

func (a *Airtable) ServerRules() options.RuleSet {
	return credentialRules(`server wrapper "airtable"`, "100")
}

func (a *Airtable) TableRules() options.RuleSet {
	return options.RuleSet{
		Scope: `table wrapper "airtable"`,
		Rules: []options.Rule{
			{Key: "base_id", Required: true, Check: options.Identifier},
			{Key: "table_id", Required: true, Check: options.Identifier},
			{Key: "view", Check: options.Identifier},
		},
	}
}

// ResolveColumn treats id and created_time as record metadata; every other
// column reads the identically named record field, case-sensitively. Grid
// fields are dynamic, so unknown names resolve and surface as NULL rather
// than failing the definition.
func (a *Airtable) ResolveColumn(_ map[string]string, col schema.Column) (schema.Extractor, error) {
	switch col.Name {
	case "id":
		if col.Type != schema.TypeText {
			return nil, wraperr.Newf(wraperr.InvalidOption, `column "id" must be text, not %s`, col.Type)
		}
		return schema.FieldExtractor("id"), nil
	case "created_time":
		if col.Type != schema.TypeTimestamp && col.Type != schema.TypeText {
			return nil, wraperr.Newf(wraperr.InvalidOption,
				`column "created_time" must be timestamp or text, not %s`, col.Type)
		}
		return schema.FieldExtractor("createdTime"), nil
	}

	name := col.Name
	return func(rec map[string]any) (any, bool) {
		fields, ok := rec["fields"].(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := fields[name]
		return v, ok
	}, nil
}

// Capability: the records endpoint has no per-field equality parameters
// (filtering needs the formula language), so only projection is forwarded.
func (a *Airtable) Capability(_ map[string]string) pushdown.Capability {
	return pushdown.Capability{Projection: true}
}

func (a *Airtable) BuildRequest(tableOpts map[string]string, plan pushdown.Plan, pageSize int, cursor string) (remote.Request, error) {
	q := url.Values{}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if view := tableOpts["view"]; view != "" {
		q.Set("view", view)
	}
	for _, f := range plan.Fields {
		// id and createdTime ride along on every record regardless.
		if f == "id" || f == "created_time" {
			continue
		}
		q.Add("fields[]", f)
	}
	if cursor != "" {
		q.Set("offset", cursor)
	}
	return remote.Request{
		Path:  []string{tableOpts["base_id"], tableOpts["table_id"]},
		Query: q,
	}, nil
}

func (a *Airtable) ParsePage(_ map[string]string, body []byte) (*Page, error) {
	var env struct {
		Records []struct {
			ID          string         `json:"id"`
			CreatedTime string         `json:"createdTime"`
			Fields      map[string]any `json:"fields"`
		} `json:"records"`
		Offset string `json:"offset"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, wraperr.Wrap(wraperr.DecodeFailure, "grid page payload", err)
	}

	page := &Page{Cursor: env.Offset}
	for _, r := range env.Records {
		rec := map[string]any{"id": r.ID}
		if r.CreatedTime != "" {
			rec["createdTime"] = r.CreatedTime
		}
		if r.Fields != nil {
			rec["fields"] = r.Fields
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

// EmptyOnNotFound: a 404 from the grid API means the base or table id in
// the definition is wrong, which is an error, not an empty table.
func (a *Airtable) EmptyOnNotFound() bool { return false }
