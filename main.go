// Package main is the entry point for the Rowbridge CLI application.
// It projects remote REST APIs onto relational tables.
package main

import (
	"rowbridge/cli/cmd"
)

func main() {
	cmd.Execute()
}
