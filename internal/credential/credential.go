// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package credential resolves server credential references into bearer
// tokens. A server definition carries exactly one of a literal api_key or
// an api_key_id naming a vault entry; resolution happens once per server
// per process run, with results held in an explicit cache owned by the
// caller. Resolved tokens render redacted everywhere except the
// Authorization header.
package credential

import (
	"context"
	"fmt"
	"sync"

	"rowbridge/cli/internal/logging"
	"rowbridge/cli/internal/wraperr"
)

// Vault looks up stored secrets by identifier. The OS keychain backs the
// real implementation; tests substitute fakes.
type Vault interface {
	Lookup(ctx context.Context, keyID string) (string, error)
}

// Reference is a server's credential declaration. Exactly one field is
// set; option validation enforces that before a Reference is ever built.
type Reference struct {
	// Literal is the api_key option value.
	Literal string
	// KeyID is the api_key_id option value, naming a vault entry.
	KeyID string
}

// Credential is a resolved bearer token. The token is reachable only
// through Token(); fmt verbs and log encoders see the redacted form.
type Credential struct {
	token string
}

// Token returns the secret for use in an Authorization header.
func (c Credential) Token() string { return c.token }

func (c Credential) String() string   { return logging.MaskSecret(c.token) }
func (c Credential) GoString() string { return fmt.Sprintf("credential.Credential{%s}", c.String()) }

// Cache holds resolved credentials for the life of one process run,
// keyed by server name. Entries are immutable once stored; concurrent
// scans may read while another resolution inserts.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Credential
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]Credential)}
}

func (c *Cache) get(server string) (Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cred, ok := c.entries[server]
	return cred, ok
}

func (c *Cache) put(server string, cred Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[server] = cred
}

// Clear drops every cached credential. Called at teardown so secrets do
// not outlive the run that resolved them.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Credential)
}

// Resolver turns credential references into credentials, consulting the
// cache before the vault.
type Resolver struct {
	vault Vault
	cache *Cache
}

// NewResolver builds a resolver around a vault and a cache. The vault may
// be nil when every server uses literal keys; resolving a vault reference
// without a vault is a credential error, not a panic.
func NewResolver(vault Vault, cache *Cache) *Resolver {
	return &Resolver{vault: vault, cache: cache}
}

// Resolve returns the credential for a server. Literal references resolve
// without any vault traffic; vault references hit the vault once per
// server and are then served from the cache.
func (r *Resolver) Resolve(ctx context.Context, server string, ref Reference) (Credential, error) {
	if cred, ok := r.cache.get(server); ok {
		return cred, nil
	}

	cred, err := r.lookup(ctx, server, ref)
	if err != nil {
		return Credential{}, err
	}
	r.cache.put(server, cred)
	return cred, nil
}

func (r *Resolver) lookup(ctx context.Context, server string, ref Reference) (Credential, error) {
	switch {
	case ref.Literal != "" && ref.KeyID != "":
		return Credential{}, wraperr.Newf(wraperr.InvalidOption,
			"server %q: options api_key and api_key_id are mutually exclusive", server)
	case ref.Literal != "":
		return Credential{token: ref.Literal}, nil
	case ref.KeyID != "":
		if r.vault == nil {
			return Credential{}, wraperr.Newf(wraperr.CredentialFailure,
				"server %q: no vault available to resolve api_key_id %q", server, ref.KeyID)
		}
		secret, err := r.vault.Lookup(ctx, ref.KeyID)
		if err != nil {
			return Credential{}, wraperr.Wrap(wraperr.CredentialFailure,
				fmt.Sprintf("server %q: vault entry %q", server, ref.KeyID), err)
		}
		if secret == "" {
			return Credential{}, wraperr.Newf(wraperr.CredentialFailure,
				"server %q: vault entry %q is empty", server, ref.KeyID)
		}
		return Credential{token: secret}, nil
	}
	return Credential{}, wraperr.Newf(wraperr.CredentialFailure,
		"server %q: no credential configured", server)
}
