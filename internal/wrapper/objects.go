// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package wrapper

import (
	"sort"

	"rowbridge/cli/internal/schema"
)

// Field is one canonical column of a payments object.
type Field struct {
	Name string
	Type schema.Type
}

// stripeObjectSpec describes one payments object: the columns a table may
// declare against it and the fields whose equality filters the list
// endpoint accepts as request parameters.
type stripeObjectSpec struct {
	fields   []Field
	pushable []string
}

func (s stripeObjectSpec) hasField(name string) bool {
	for _, f := range s.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// stripeObjects is the supported object catalog. Timestamps arrive as
// epoch seconds; amounts are integer minor units.
var stripeObjects = map[string]stripeObjectSpec{
	"balance": {
		fields: []Field{
			{"balance_type", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
		},
	},
	"balance_transactions": {
		fields: []Field{
			{"id", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"description", schema.TypeText},
			{"fee", schema.TypeBigint},
			{"net", schema.TypeBigint},
			{"status", schema.TypeText},
			{"type", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"type"},
	},
	"charges": {
		fields: []Field{
			{"id", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"customer", schema.TypeText},
			{"description", schema.TypeText},
			{"invoice", schema.TypeText},
			{"payment_intent", schema.TypeText},
			{"status", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"customer"},
	},
	"customers": {
		fields: []Field{
			{"id", schema.TypeText},
			{"email", schema.TypeText},
			{"name", schema.TypeText},
			{"description", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"email"},
	},
	"disputes": {
		fields: []Field{
			{"id", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"charge", schema.TypeText},
			{"payment_intent", schema.TypeText},
			{"reason", schema.TypeText},
			{"status", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"charge", "payment_intent"},
	},
	"events": {
		fields: []Field{
			{"id", schema.TypeText},
			{"type", schema.TypeText},
			{"api_version", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"type"},
	},
	"files": {
		fields: []Field{
			{"id", schema.TypeText},
			{"filename", schema.TypeText},
			{"purpose", schema.TypeText},
			{"title", schema.TypeText},
			{"size", schema.TypeBigint},
			{"type", schema.TypeText},
			{"url", schema.TypeText},
			{"created", schema.TypeTimestamp},
			{"expires_at", schema.TypeTimestamp},
		},
		pushable: []string{"purpose"},
	},
	"file_links": {
		fields: []Field{
			{"id", schema.TypeText},
			{"file", schema.TypeText},
			{"url", schema.TypeText},
			{"created", schema.TypeTimestamp},
			{"expired", schema.TypeBoolean},
			{"expires_at", schema.TypeTimestamp},
		},
	},
	"mandates": {
		fields: []Field{
			{"id", schema.TypeText},
			{"payment_method", schema.TypeText},
			{"status", schema.TypeText},
			{"type", schema.TypeText},
		},
	},
	"payment_intents": {
		fields: []Field{
			{"id", schema.TypeText},
			{"customer", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"payment_method", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"customer"},
	},
	"payouts": {
		fields: []Field{
			{"id", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"arrival_date", schema.TypeTimestamp},
			{"description", schema.TypeText},
			{"statement_descriptor", schema.TypeText},
			{"status", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"status"},
	},
	"refunds": {
		fields: []Field{
			{"id", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"charge", schema.TypeText},
			{"payment_intent", schema.TypeText},
			{"reason", schema.TypeText},
			{"status", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"charge", "payment_intent"},
	},
	"setup_attempts": {
		fields: []Field{
			{"id", schema.TypeText},
			{"application", schema.TypeText},
			{"customer", schema.TypeText},
			{"on_behalf_of", schema.TypeText},
			{"payment_method", schema.TypeText},
			{"setup_intent", schema.TypeText},
			{"status", schema.TypeText},
			{"usage", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"setup_intent"},
	},
	"setup_intents": {
		fields: []Field{
			{"id", schema.TypeText},
			{"client_secret", schema.TypeText},
			{"customer", schema.TypeText},
			{"description", schema.TypeText},
			{"payment_method", schema.TypeText},
			{"status", schema.TypeText},
			{"usage", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"customer", "payment_method"},
	},
	"tokens": {
		fields: []Field{
			{"id", schema.TypeText},
			{"type", schema.TypeText},
			{"client_ip", schema.TypeText},
			{"used", schema.TypeBoolean},
			{"created", schema.TypeTimestamp},
		},
	},
	"products": {
		fields: []Field{
			{"id", schema.TypeText},
			{"name", schema.TypeText},
			{"active", schema.TypeBoolean},
			{"default_price", schema.TypeText},
			{"description", schema.TypeText},
			{"created", schema.TypeTimestamp},
			{"updated", schema.TypeTimestamp},
		},
		pushable: []string{"active"},
	},
	"prices": {
		fields: []Field{
			{"id", schema.TypeText},
			{"active", schema.TypeBoolean},
			{"currency", schema.TypeText},
			{"product", schema.TypeText},
			{"unit_amount", schema.TypeBigint},
			{"type", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"active", "currency", "product", "type"},
	},
	"coupons": {
		fields: []Field{
			{"id", schema.TypeText},
			{"amount_off", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"duration", schema.TypeText},
			{"duration_in_months", schema.TypeBigint},
			{"max_redemptions", schema.TypeBigint},
			{"name", schema.TypeText},
			{"percent_off", schema.TypeNumeric},
			{"created", schema.TypeTimestamp},
		},
	},
	"promotion_codes": {
		fields: []Field{
			{"id", schema.TypeText},
			{"code", schema.TypeText},
			{"coupon", schema.TypeText},
			{"active", schema.TypeBoolean},
			{"created", schema.TypeTimestamp},
		},
	},
	"tax_codes": {
		fields: []Field{
			{"id", schema.TypeText},
			{"description", schema.TypeText},
			{"name", schema.TypeText},
		},
	},
	"tax_rates": {
		fields: []Field{
			{"id", schema.TypeText},
			{"active", schema.TypeBoolean},
			{"country", schema.TypeText},
			{"description", schema.TypeText},
			{"display_name", schema.TypeText},
			{"inclusive", schema.TypeBoolean},
			{"percentage", schema.TypeNumeric},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"active"},
	},
	"shipping_rates": {
		fields: []Field{
			{"id", schema.TypeText},
			{"active", schema.TypeBoolean},
			{"display_name", schema.TypeText},
			{"amount", schema.TypeText},
			{"type", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"active", "created", "currency"},
	},
	"checkout/sessions": {
		fields: []Field{
			{"id", schema.TypeText},
			{"customer", schema.TypeText},
			{"payment_intent", schema.TypeText},
			{"subscription", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"customer", "payment_intent", "subscription"},
	},
	"invoices": {
		fields: []Field{
			{"id", schema.TypeText},
			{"customer", schema.TypeText},
			{"subscription", schema.TypeText},
			{"status", schema.TypeText},
			{"total", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"period_start", schema.TypeTimestamp},
			{"period_end", schema.TypeTimestamp},
		},
		pushable: []string{"customer", "status", "subscription"},
	},
	"subscriptions": {
		fields: []Field{
			{"id", schema.TypeText},
			{"customer", schema.TypeText},
			{"currency", schema.TypeText},
			{"current_period_start", schema.TypeTimestamp},
			{"current_period_end", schema.TypeTimestamp},
		},
		pushable: []string{"customer", "price", "status"},
	},
	"accounts": {
		fields: []Field{
			{"id", schema.TypeText},
			{"business_type", schema.TypeText},
			{"country", schema.TypeText},
			{"email", schema.TypeText},
			{"type", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
	},
	"topups": {
		fields: []Field{
			{"id", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"description", schema.TypeText},
			{"status", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"status"},
	},
	"transfers": {
		fields: []Field{
			{"id", schema.TypeText},
			{"amount", schema.TypeBigint},
			{"currency", schema.TypeText},
			{"description", schema.TypeText},
			{"destination", schema.TypeText},
			{"created", schema.TypeTimestamp},
		},
		pushable: []string{"destination"},
	},
}

// StripeObjects lists the supported payments objects in sorted order.
func StripeObjects() []string {
	names := make([]string, 0, len(stripeObjects))
	for name := range stripeObjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StripeObjectFields returns the canonical columns of one payments object.
func StripeObjectFields(object string) ([]Field, bool) {
	spec, ok := stripeObjects[object]
	if !ok {
		return nil, false
	}
	return spec.fields, true
}
