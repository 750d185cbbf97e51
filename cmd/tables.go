// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// tablesCmd lists every table the catalog defines.
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List defined servers and tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		data := pterm.TableData{{"TABLE", "WRAPPER", "COLUMNS", "SOURCE"}}
		for i := range cat.Servers {
			srv := &cat.Servers[i]
			for j := range srv.Tables {
				tbl := &srv.Tables[j]
				data = append(data, []string{
					srv.Name + "." + tbl.Name,
					srv.Wrapper,
					fmt.Sprintf("%d", len(tbl.Columns)),
					sourceSummary(tbl.Options),
				})
			}
		}
		if len(data) == 1 {
			pterm.Println("No tables defined. Edit the catalog and run 'rowbridge check'.")
			return nil
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

// sourceSummary renders table options as a compact key=value list.
func sourceSummary(opts map[string]string) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+opts[k])
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
