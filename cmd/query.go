// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"rowbridge/cli/internal/catalog"
	"rowbridge/cli/internal/logging"
	"rowbridge/cli/internal/pushdown"
	"rowbridge/cli/internal/scan"
	"rowbridge/cli/internal/schema"
	"rowbridge/cli/internal/wrapper"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	queryWhere   []string
	queryColumns string
	queryLimit   int64
	queryOutput  string
)

// queryCmd runs one scan session against a foreign table and renders the
// rows. Predicates the remote cannot evaluate are applied locally, so the
// result is the same whichever side filtered.
var queryCmd = &cobra.Command{
	Use:   "query <server.table>",
	Short: "Scan a foreign table and print its rows",
	Long: `The query command runs a scan against a foreign table: it resolves the
credential, validates the definition, plans which predicates the remote API
can evaluate, and pulls rows page by page. Output formats: table (default),
json, csv.

Predicates take the form --where "col=value" or --where "col in a,b,c".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := args[0]
		if queryOutput != "table" && queryOutput != "json" && queryOutput != "csv" {
			return fmt.Errorf("unknown output format %q (use table, json, or csv)", queryOutput)
		}

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		srv, tbl, err := cat.Lookup(ref)
		if err != nil {
			return err
		}
		cols, err := tbl.SchemaColumns()
		if err != nil {
			return err
		}

		quals, projection, err := parseScanFlags(ref, tbl, queryWhere, queryColumns)
		if err != nil {
			return err
		}

		w, err := wrapper.New(srv.Wrapper)
		if err != nil {
			return err
		}

		it, err := scan.Begin(cmd.Context(), scan.Config{
			ServerName: srv.Name,
			Wrapper:    w,
			ServerOpts: srv.Options,
			TableOpts:  tbl.Options,
			Columns:    cols,
			Resolver:   vaultResolver(),
			Quals:      quals,
			Projection: projection,
			Limit:      queryLimit,
			UserAgent:  "rowbridge/" + Version,
		})
		if err != nil {
			pterm.Println(logging.FormatScanError(err))
			return err
		}
		defer it.Close()

		names, picks := displayColumns(it.Columns(), projection)

		var stopSpin func()
		if queryOutput == "table" {
			cursor.Hide()
			defer cursor.Show()
			stopSpin = startInlineSpinner(os.Stderr, "scanning "+ref)
		}

		start := time.Now()
		var rows [][]any
		for it.Next() {
			vals, err := it.Values()
			if err != nil {
				break
			}
			picked := make([]any, len(picks))
			for i, j := range picks {
				picked[i] = vals[j]
			}
			rows = append(rows, picked)
		}
		if stopSpin != nil {
			stopSpin()
		}
		if err := it.Err(); err != nil {
			pterm.Println(logging.FormatScanError(err))
			return errors.New("scan failed")
		}
		elapsed := time.Since(start).Round(time.Millisecond)

		switch queryOutput {
		case "json":
			return writeJSON(os.Stdout, names, rows)
		case "csv":
			return writeCSV(os.Stdout, names, rows)
		}

		if len(rows) == 0 {
			pterm.Println("No rows.")
			return nil
		}
		if err := renderTable(names, rows); err != nil {
			return err
		}
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("%d rows in %s", len(rows), elapsed))
		return nil
	},
}

// parseScanFlags turns --where and --columns values into validated quals
// and a projection list. Both may only name declared columns.
func parseScanFlags(ref string, tbl *catalog.Table, whereExprs []string, columnList string) ([]pushdown.Qual, []string, error) {
	declared := make(map[string]bool, len(tbl.Columns))
	for _, c := range tbl.Columns {
		declared[c.Name] = true
	}

	var quals []pushdown.Qual
	for _, expr := range whereExprs {
		q, err := pushdown.ParseWhere(expr)
		if err != nil {
			return nil, nil, err
		}
		if !declared[q.Column] {
			return nil, nil, fmt.Errorf("predicate column %q is not declared on %s", q.Column, ref)
		}
		quals = append(quals, q)
	}

	var projection []string
	if columnList != "" {
		for _, name := range strings.Split(columnList, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !declared[name] {
				return nil, nil, fmt.Errorf("column %q is not declared on %s", name, ref)
			}
			projection = append(projection, name)
		}
	}
	return quals, projection, nil
}

// displayColumns maps the projection onto the planned column order,
// returning display names and their indexes into each scanned row.
func displayColumns(planned []schema.Column, projection []string) ([]string, []int) {
	if len(projection) == 0 {
		names := make([]string, len(planned))
		picks := make([]int, len(planned))
		for i, col := range planned {
			names[i] = col.Name
			picks[i] = i
		}
		return names, picks
	}
	index := make(map[string]int, len(planned))
	for i, col := range planned {
		index[col.Name] = i
	}
	picks := make([]int, len(projection))
	for i, name := range projection {
		picks[i] = index[name]
	}
	return projection, picks
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringArrayVar(&queryWhere, "where", nil, `Predicate, "col=value" or "col in a,b" (repeatable)`)
	queryCmd.Flags().StringVar(&queryColumns, "columns", "", "Comma-separated columns to fetch and print")
	queryCmd.Flags().Int64Var(&queryLimit, "limit", 0, "Stop after this many rows (0 = no limit)")
	queryCmd.Flags().StringVar(&queryOutput, "output", "table", "Output format: table, json, csv")
}
