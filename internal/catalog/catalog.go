// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package catalog loads and validates the definitions file: servers that
// name a wrapper and its connection options, and foreign tables that bind
// remote objects to declared, typed columns.
//
// Parsing and validation are separate steps so `rowbridge check` can report
// every problem in one pass. Load refuses a catalog with any invalid
// definition, which keeps bad definitions out of scans entirely, the same
// way a relational engine rejects bad DDL at definition time.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rowbridge/cli/internal/credential"
	"rowbridge/cli/internal/schema"
	"rowbridge/cli/internal/wraperr"
	"rowbridge/cli/internal/wrapper"
	"rowbridge/cli/internal/xdg"
)

// EnvCatalog overrides the catalog location when set.
const EnvCatalog = "ROWBRIDGE_CATALOG"

// FileName is the catalog file name under the config directory.
const FileName = "catalog.json"

// Column is one declared column of a foreign table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table binds one remote object to a declared column list.
type Table struct {
	Name    string            `json:"name"`
	Options map[string]string `json:"options"`
	Columns []Column          `json:"columns"`
}

// Server names a wrapper plus the options shared by its tables.
type Server struct {
	Name    string            `json:"name"`
	Wrapper string            `json:"wrapper"`
	Options map[string]string `json:"options,omitempty"`
	Tables  []Table           `json:"tables,omitempty"`
}

// Catalog is the whole definitions file.
type Catalog struct {
	Servers []Server `json:"servers"`
}

// DefaultPath resolves the catalog location: the ROWBRIDGE_CATALOG
// environment variable when set, otherwise catalog.json in the XDG config
// directory.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvCatalog); p != "" {
		return p, nil
	}
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Parse decodes catalog JSON strictly; unknown keys are definition typos.
func Parse(data []byte) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, wraperr.Wrap(wraperr.InvalidOption, "catalog file", err)
	}
	return &c, nil
}

// Load reads, parses, and validates the catalog. A catalog containing any
// invalid definition does not load at all.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if problems := c.Problems(); len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return c, nil
}

// Problems validates every definition and returns one error per problem.
// An empty result means the catalog is sound.
func (c *Catalog) Problems() []error {
	var problems []error
	seenServers := make(map[string]struct{})

	for si := range c.Servers {
		srv := &c.Servers[si]
		if srv.Name == "" {
			problems = append(problems, fmt.Errorf("server #%d: name is required", si+1))
			continue
		}
		if strings.Contains(srv.Name, ".") {
			problems = append(problems, fmt.Errorf("server %q: name must not contain '.'", srv.Name))
		}
		if _, dup := seenServers[srv.Name]; dup {
			problems = append(problems, fmt.Errorf("server %q: duplicate server name", srv.Name))
		}
		seenServers[srv.Name] = struct{}{}

		w, err := wrapper.New(srv.Wrapper)
		if err != nil {
			problems = append(problems, fmt.Errorf("server %q: %w", srv.Name, err))
			continue
		}
		if err := w.ServerRules().Validate(srv.Options); err != nil {
			problems = append(problems, fmt.Errorf("server %q: %w", srv.Name, err))
		}

		seenTables := make(map[string]struct{})
		for ti := range srv.Tables {
			tbl := &srv.Tables[ti]
			if tbl.Name == "" {
				problems = append(problems, fmt.Errorf("server %q: table #%d: name is required", srv.Name, ti+1))
				continue
			}
			ref := srv.Name + "." + tbl.Name
			if _, dup := seenTables[tbl.Name]; dup {
				problems = append(problems, fmt.Errorf("table %s: duplicate table name", ref))
			}
			seenTables[tbl.Name] = struct{}{}

			if err := w.TableRules().Validate(tbl.Options); err != nil {
				problems = append(problems, fmt.Errorf("table %s: %w", ref, err))
				continue // column resolution needs valid options
			}

			cols, err := tbl.SchemaColumns()
			if err != nil {
				problems = append(problems, fmt.Errorf("table %s: %w", ref, err))
				continue
			}
			_, err = schema.Compile(cols, func(col schema.Column) (schema.Extractor, error) {
				return w.ResolveColumn(tbl.Options, col)
			})
			if err != nil {
				problems = append(problems, fmt.Errorf("table %s: %w", ref, err))
			}
		}
	}
	return problems
}

// Lookup resolves a "server.table" reference.
func (c *Catalog) Lookup(ref string) (*Server, *Table, error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, nil, wraperr.Newf(wraperr.InvalidOption, "table reference %q must be server.table", ref)
	}
	for si := range c.Servers {
		srv := &c.Servers[si]
		if srv.Name != parts[0] {
			continue
		}
		for ti := range srv.Tables {
			if srv.Tables[ti].Name == parts[1] {
				return srv, &srv.Tables[ti], nil
			}
		}
		return nil, nil, wraperr.Newf(wraperr.InvalidOption, "server %q has no table %q", parts[0], parts[1])
	}
	return nil, nil, wraperr.Newf(wraperr.InvalidOption, "no server named %q in the catalog", parts[0])
}

// CredentialRef extracts the server's credential declaration.
func (s *Server) CredentialRef() credential.Reference {
	return credential.Reference{
		Literal: s.Options["api_key"],
		KeyID:   s.Options["api_key_id"],
	}
}

// SchemaColumns converts the declared columns to their typed form.
func (t *Table) SchemaColumns() ([]schema.Column, error) {
	cols := make([]schema.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return nil, wraperr.New(wraperr.InvalidOption, "column with empty name")
		}
		typ, err := schema.ParseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		cols = append(cols, schema.Column{Name: c.Name, Type: typ})
	}
	return cols, nil
}
