// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"rowbridge/cli/internal/catalog"
	"rowbridge/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// checkCmd validates every definition in the catalog and reports all
// problems at once, the same checks a scan runs before touching the
// network.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the catalog definitions",
	Long: `The check command parses the catalog and validates every server and table
definition: option shapes, credential references, wrapper names, column
types, and column-to-field bindings. All problems are reported in one pass
and the command exits non-zero when any definition is invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := catalogFile()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no catalog found at %s; run 'rowbridge init' to create one", path)
		}
		if err != nil {
			return err
		}

		cat, err := catalog.Parse(data)
		if err != nil {
			pterm.Println("❌ Catalog does not parse")
			pterm.Println(logging.PresentError("", err))
			return err
		}

		problems := cat.Problems()
		if len(problems) > 0 {
			pterm.Println(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprintf("Found %d problems in %s", len(problems), path))
			var items []pterm.BulletListItem
			for _, p := range problems {
				items = append(items, pterm.BulletListItem{Level: 0, Text: p.Error()})
			}
			_ = pterm.DefaultBulletList.WithItems(items).Render()
			return errors.New("catalog validation failed")
		}

		tables := 0
		for i := range cat.Servers {
			tables += len(cat.Servers[i].Tables)
		}
		pterm.Printf("✅ Catalog is valid: %d servers, %d tables\n", len(cat.Servers), tables)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
