// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package wrapper

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"rowbridge/cli/internal/options"
	"rowbridge/cli/internal/pushdown"
	"rowbridge/cli/internal/remote"
	"rowbridge/cli/internal/schema"
	"rowbridge/cli/internal/wraperr"
)

const stripeDefaultBaseURL = "https://api.stripe.com/v1/"

// Stripe adapts the Stripe-style payments API: a fixed catalog of objects
// with known fields, listed through a common envelope and paginated by the
// id of the last record seen.
type Stripe struct{}

func NewStripe() *Stripe { return &Stripe{} }

func (s *Stripe) Name() string { return "stripe" }

// BaseURL keeps a trailing slash on configured roots so the version
// segment survives path joins.
func (s *Stripe) BaseURL(serverOpts map[string]string) string {
	u := serverOpts["api_url"]
	if u == "" {
		return stripeDefaultBaseURL
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

func (s *Stripe) ServerRules() options.RuleSet {
	return credentialRules(`server wrapper "stripe"`, "100")
}

func (s *Stripe) TableRules() options.RuleSet {
	return options.RuleSet{
		Scope: `table wrapper "stripe"`,
		Rules: []options.Rule{
			{Key: "object", Required: true, Check: options.Enum(StripeObjects()...)},
		},
	}
}

// ResolveColumn accepts the object's canonical fields plus the special
// attrs column, which carries the whole record as jsonb. Anything else is
// a definition error.
func (s *Stripe) ResolveColumn(tableOpts map[string]string, col schema.Column) (schema.Extractor, error) {
	object := tableOpts["object"]
	spec, ok := stripeObjects[object]
	if !ok {
		return nil, wraperr.Newf(wraperr.InvalidOption, "unsupported object %q", object)
	}

	if col.Name == "attrs" {
		if col.Type != schema.TypeJSONB {
			return nil, wraperr.Newf(wraperr.InvalidOption, `column "attrs" must be jsonb, not %s`, col.Type)
		}
		return func(rec map[string]any) (any, bool) { return rec, true }, nil
	}

	if !spec.hasField(col.Name) {
		return nil, wraperr.Newf(wraperr.InvalidOption, "object %q has no column %q", object, col.Name)
	}
	return schema.FieldExtractor(col.Name), nil
}

func (s *Stripe) Capability(tableOpts map[string]string) pushdown.Capability {
	spec := stripeObjects[tableOpts["object"]]
	return pushdown.Capability{
		EqualityFields: spec.pushable,
		SingleObjectID: spec.hasField("id"),
	}
}

func (s *Stripe) BuildRequest(tableOpts map[string]string, plan pushdown.Plan, pageSize int, cursor string) (remote.Request, error) {
	object := tableOpts["object"]
	segments := strings.Split(object, "/") // checkout/sessions spans two

	// A point lookup fetches exactly one object and takes no parameters.
	if plan.PointID != "" {
		return remote.Request{Path: append(segments, plan.PointID)}, nil
	}

	q := url.Values{}
	if object != "balance" {
		// The balance endpoint returns one document and ignores paging.
		if pageSize > 0 {
			q.Set("limit", strconv.Itoa(pageSize))
		}
		if cursor != "" {
			q.Set("starting_after", cursor)
		}
	}
	for _, qual := range plan.Pushed {
		q.Set(qual.Column, qual.Values[0])
	}
	return remote.Request{Path: segments, Query: q}, nil
}

func (s *Stripe) ParsePage(tableOpts map[string]string, body []byte) (*Page, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, wraperr.Wrap(wraperr.DecodeFailure, "payments payload", err)
	}

	if tableOpts["object"] == "balance" {
		return balancePage(payload), nil
	}

	if kind, _ := payload["object"].(string); kind == "list" {
		data, ok := payload["data"].([]any)
		if !ok {
			return nil, wraperr.New(wraperr.DecodeFailure, `list payload has no "data" array`)
		}
		page := &Page{}
		for i, entry := range data {
			rec, ok := entry.(map[string]any)
			if !ok {
				return nil, wraperr.Newf(wraperr.DecodeFailure, "list entry %d is not an object", i)
			}
			page.Records = append(page.Records, rec)
		}
		// Pagination resumes after the last record of this page.
		if hasMore, _ := payload["has_more"].(bool); hasMore && len(page.Records) > 0 {
			if id, _ := page.Records[len(page.Records)-1]["id"].(string); id != "" {
				page.Cursor = id
			}
		}
		return page, nil
	}

	// A point lookup answers with the object itself.
	return &Page{Records: []map[string]any{payload}}, nil
}

// balancePage flattens the balance document into one record per fund
// state, with a synthesized balance_type discriminator.
func balancePage(payload map[string]any) *Page {
	page := &Page{}
	for _, group := range []string{"available", "pending"} {
		entries, _ := payload[group].([]any)
		for _, entry := range entries {
			rec, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			expanded := make(map[string]any, len(rec)+1)
			for k, v := range rec {
				expanded[k] = v
			}
			expanded["balance_type"] = group
			page.Records = append(page.Records, expanded)
		}
	}
	return page
}

// EmptyOnNotFound: the payments API answers 404 for filters that match
// nothing in some modes; treat that as an empty result, not a failure.
func (s *Stripe) EmptyOnNotFound() bool { return true }
