// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"rowbridge/cli/internal/keychain"
	"rowbridge/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// secretCmd groups vault entry management. Catalog servers reference these
// entries through the api_key_id option, so API keys never touch the
// catalog file.
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage vault entries referenced by api_key_id",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <key-id>",
	Short: "Store a secret in the OS keychain",
	Long: `Stores a secret under the given key id. The secret is read from stdin when
piped, otherwise from an interactive prompt that is wiped from the terminal
afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system.")
			return err
		}

		secret, err := readSecret(args[0])
		if err != nil {
			return err
		}
		if secret == "" {
			return errors.New("secret is empty")
		}

		if err := km.Set(args[0], secret); err != nil {
			pterm.Println("❌ Failed to store the secret.")
			return err
		}
		pterm.Println("✅ Secret stored as " + args[0])
		pterm.Println("   Reference it from a server with \"api_key_id\": \"" + args[0] + "\"")
		return nil
	},
}

var secretRmCmd = &cobra.Command{
	Use:   "rm <key-id>",
	Short: "Remove a secret from the OS keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system.")
			return err
		}
		if err := km.Delete(args[0]); err != nil {
			return err
		}
		pterm.Println("✅ Secret removed: " + args[0])
		return nil
	},
}

var secretLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored key ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system.")
			return err
		}
		keys, err := km.Keys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			pterm.Println("No vault entries. Store one with: rowbridge secret set <key-id>")
			return nil
		}
		sort.Strings(keys)
		var items []pterm.BulletListItem
		for _, k := range keys {
			items = append(items, pterm.BulletListItem{Level: 0, Text: k})
		}
		return pterm.DefaultBulletList.WithItems(items).Render()
	},
}

// readSecret takes the secret from stdin when piped, otherwise from a
// prompt that is cleared from the screen once entered.
func readSecret(keyID string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	promptText := fmt.Sprintf("Enter secret for %q: ", keyID)
	fmt.Print(promptText)
	reader := bufio.NewReader(os.Stdin)
	raw, err := reader.ReadString('\n')
	if err != nil && raw == "" {
		return "", err
	}
	secret := strings.TrimSpace(raw)

	// Wipe the prompt and the typed secret from the terminal.
	terminal.ClearPreviousLines(len(promptText) + len(secret))
	return secret, nil
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretRmCmd)
	secretCmd.AddCommand(secretLsCmd)
}
