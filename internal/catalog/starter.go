// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package catalog

import (
	"encoding/json"
	"strings"

	"rowbridge/cli/internal/wrapper"
)

// Starter renders a catalog template: one grid server with a sample table
// and one payments server whose tables carry the canonical columns for a
// few common objects. Placeholder ids validate, so `rowbridge check`
// passes on a fresh file; scans need the placeholders replaced.
func Starter() ([]byte, error) {
	c := Catalog{
		Servers: []Server{
			{
				Name:    "grid",
				Wrapper: "airtable",
				Options: map[string]string{"api_key_id": "airtable_main"},
				Tables: []Table{
					{
						Name: "orders",
						Options: map[string]string{
							"base_id":  "appREPLACE_ME",
							"table_id": "tblREPLACE_ME",
						},
						Columns: []Column{
							{Name: "id", Type: "text"},
							{Name: "created_time", Type: "timestamp"},
							{Name: "Name", Type: "text"},
							{Name: "Amount", Type: "numeric"},
						},
					},
				},
			},
			{
				Name:    "payments",
				Wrapper: "stripe",
				Options: map[string]string{"api_key_id": "stripe_main"},
				Tables: []Table{
					stripeStarterTable("customers"),
					stripeStarterTable("charges"),
					stripeStarterTable("balance"),
				},
			},
		},
	}
	return json.MarshalIndent(&c, "", "  ")
}

// stripeStarterTable declares every canonical column of an object plus the
// whole-record attrs column.
func stripeStarterTable(object string) Table {
	fields, _ := wrapper.StripeObjectFields(object)
	cols := make([]Column, 0, len(fields)+1)
	for _, f := range fields {
		cols = append(cols, Column{Name: f.Name, Type: string(f.Type)})
	}
	cols = append(cols, Column{Name: "attrs", Type: "jsonb"})
	return Table{
		Name:    strings.ReplaceAll(object, "/", "_"),
		Options: map[string]string{"object": object},
		Columns: cols,
	}
}
