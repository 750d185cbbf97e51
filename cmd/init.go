// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"os"
	"path/filepath"

	"rowbridge/cli/internal/catalog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var initForce bool

// initCmd writes a starter catalog with one server per supported wrapper,
// ready to fill in with real identifiers and vault entries.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter catalog file",
	Long: `The init command writes a starter catalog to the config directory (or the
path given with --catalog). The starter declares one Airtable server and one
Stripe server with placeholder identifiers and vault-backed credentials, so
no secret ever lands in the file itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := catalogFile()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			pterm.Println("⚠️  A catalog already exists at " + path)
			pterm.Println("   Pass --force to overwrite it.")
			return errors.New("catalog already exists")
		}

		data, err := catalog.Starter()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return err
		}

		pterm.Println("✅ Catalog created at " + path)
		pterm.Println()
		pterm.Println("Next steps:")
		items := []pterm.BulletListItem{
			{Level: 0, Text: "Replace the appREPLACE_ME and tblREPLACE_ME placeholders"},
			{Level: 0, Text: "Store credentials: rowbridge secret set airtable_main"},
			{Level: 0, Text: "Validate the catalog: rowbridge check"},
		}
		_ = pterm.DefaultBulletList.WithItems(items).Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing catalog")
}
