// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"time"

	"rowbridge/cli/internal/catalog"
	"rowbridge/cli/internal/credential"
	"rowbridge/cli/internal/keychain"
)

// catalogFile resolves the catalog path from the --catalog flag or defaults.
func catalogFile() (string, error) {
	if catalogPath != "" {
		return catalogPath, nil
	}
	return catalog.DefaultPath()
}

// loadCatalog reads and validates the catalog, translating a missing file
// into a hint to run init.
func loadCatalog() (*catalog.Catalog, error) {
	path, err := catalogFile()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no catalog found at %s; run 'rowbridge init' to create one", path)
	}
	return cat, err
}

// vaultResolver builds the credential resolver backed by the OS keychain.
// When no secure backend is available, key references fail at resolve time
// with a pointer to 'rowbridge secret'.
func vaultResolver() *credential.Resolver {
	cache := credential.NewCache()
	km, err := keychain.GetManager()
	if err != nil {
		return credential.NewResolver(nil, cache)
	}
	return credential.NewResolver(km, cache)
}

// startInlineSpinner starts a single-line spinner animation and returns a
// function that stops it and clears the line. Writes go to w so output
// meant for pipes stays clean.
func startInlineSpinner(w io.Writer, text string) func() {
	frames := []string{"|", "/", "-", "\\"}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], text)
				i++
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
	}
}
