// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"

	"github.com/pterm/pterm"

	"rowbridge/cli/internal/wraperr"
)

// FormatScanError formats a scan or definition failure in a user-friendly
// way, keyed on the error kind.
func FormatScanError(err error) string {
	kind, _ := wraperr.KindOf(err)

	var builder strings.Builder

	switch kind {
	case wraperr.InvalidOption:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Invalid Definition"))
		builder.WriteString("\n\n")
		builder.WriteString("A server or table definition in the catalog is not valid.\n")
		builder.WriteString("Common causes:\n")
		builder.WriteString("  • A required option is missing\n")
		builder.WriteString("  • api_key and api_key_id are both set\n")
		builder.WriteString("  • A column names a field the remote object does not have\n")
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Run 'rowbridge check' to see every problem"))

	case wraperr.CredentialFailure:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Credential Problem"))
		builder.WriteString("\n\n")
		builder.WriteString("The API credential for this server could not be resolved.\n")
		builder.WriteString("Common causes:\n")
		builder.WriteString("  • The api_key_id names a vault entry that does not exist\n")
		builder.WriteString("  • The OS keychain is locked or unavailable\n")
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Store the key with 'rowbridge secret set <id>' and try again"))

	case wraperr.TransientRemote:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Remote API Unavailable"))
		builder.WriteString("\n\n")
		builder.WriteString("The remote API stayed unavailable after several retries.\n")
		builder.WriteString("Possible reasons:\n")
		builder.WriteString("  • The API is throttling this key\n")
		builder.WriteString("  • The vendor has an outage\n")
		builder.WriteString("  • Your network path to the API is disrupted\n")
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Wait a moment and run the query again"))

	case wraperr.RemoteRequest:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Request Rejected"))
		builder.WriteString("\n\n")
		builder.WriteString("The remote API rejected the request outright.\n")
		builder.WriteString("Common causes:\n")
		builder.WriteString("  • The API key lacks access to this base or object\n")
		builder.WriteString("  • base_id, table_id, or object points at something that does not exist\n")
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Check the table options with 'rowbridge describe'"))

	case wraperr.DecodeFailure:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Unexpected Response"))
		builder.WriteString("\n\n")
		builder.WriteString("The remote API answered with something this wrapper cannot decode.\n")
		builder.WriteString("Common causes:\n")
		builder.WriteString("  • api_url points at the wrong service or version\n")
		builder.WriteString("  • A proxy rewrote the response\n")

	case wraperr.TypeCoercion:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Type Mismatch"))
		builder.WriteString("\n\n")
		builder.WriteString("A remote value does not fit its declared column type, so the scan stopped.\n")
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Adjust the column type in the catalog (text and jsonb accept anything)"))

	default:
		builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Scan Failed"))
		builder.WriteString("\n\n")
		builder.WriteString("The scan was interrupted before completing.\n")
	}

	builder.WriteString("\n")

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(msg)))
	}

	return builder.String()
}
