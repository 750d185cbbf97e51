// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"sort"
	"strings"

	"rowbridge/cli/internal/logging"
	"rowbridge/cli/internal/wrapper"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// describeCmd shows one table's columns, options, and remote capability.
// Credential values never appear unmasked.
var describeCmd = &cobra.Command{
	Use:   "describe <server.table>",
	Short: "Show columns, options, and capability of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		srv, tbl, err := cat.Lookup(args[0])
		if err != nil {
			return err
		}

		w, err := wrapper.New(srv.Wrapper)
		if err != nil {
			return err
		}
		serverOpts, err := w.ServerRules().Apply(srv.Options)
		if err != nil {
			return err
		}
		tableOpts, err := w.TableRules().Apply(tbl.Options)
		if err != nil {
			return err
		}

		label := pterm.NewStyle(pterm.FgLightCyan)
		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(srv.Name + "." + tbl.Name))
		pterm.Println(label.Sprint("→ Wrapper:    ") + srv.Wrapper)
		pterm.Println(label.Sprint("→ Endpoint:   ") + w.BaseURL(serverOpts))
		pterm.Println(label.Sprint("→ Credential: ") + credentialSummary(serverOpts))
		pterm.Println(label.Sprint("→ Page size:  ") + serverOpts["page_size"])
		pterm.Println(label.Sprint("→ Source:     ") + sourceSummary(tbl.Options))
		pterm.Println()

		data := pterm.TableData{{"COLUMN", "TYPE"}}
		for _, col := range tbl.Columns {
			data = append(data, []string{col.Name, col.Type})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}

		cap := w.Capability(tableOpts)
		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("Remote capability"))
		items := []pterm.BulletListItem{
			{Level: 0, Text: "Point lookup by id: " + yesNo(cap.SingleObjectID)},
			{Level: 0, Text: "Column projection: " + yesNo(cap.Projection)},
		}
		if len(cap.EqualityFields) > 0 {
			fields := append([]string(nil), cap.EqualityFields...)
			sort.Strings(fields)
			items = append(items, pterm.BulletListItem{Level: 0, Text: "Remote equality filters: " + strings.Join(fields, ", ")})
		} else {
			items = append(items, pterm.BulletListItem{Level: 0, Text: "Remote equality filters: none (evaluated locally)"})
		}
		return pterm.DefaultBulletList.WithItems(items).Render()
	},
}

func credentialSummary(serverOpts map[string]string) string {
	if id := serverOpts["api_key_id"]; id != "" {
		return "vault entry " + pterm.NewStyle(pterm.FgCyan).Sprint(id)
	}
	return "inline key " + logging.MaskSecret(serverOpts["api_key"])
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
