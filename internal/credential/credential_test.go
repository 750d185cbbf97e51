// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"rowbridge/cli/internal/wraperr"
)

// fakeVault counts lookups so caching behavior is observable.
type fakeVault struct {
	entries map[string]string
	calls   int
}

func (f *fakeVault) Lookup(ctx context.Context, keyID string) (string, error) {
	f.calls++
	secret, ok := f.entries[keyID]
	if !ok {
		return "", errors.New("no such entry")
	}
	return secret, nil
}

func TestResolveLiteral(t *testing.T) {
	r := NewResolver(nil, NewCache())

	cred, err := r.Resolve(context.Background(), "grid_prod", Reference{Literal: "patXh9secret00"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cred.Token() != "patXh9secret00" {
		t.Errorf("Token() = %q", cred.Token())
	}
}

func TestResolveVaultReference(t *testing.T) {
	vault := &fakeVault{entries: map[string]string{"stripe_prod": "sk_live_4242424242"}}
	r := NewResolver(vault, NewCache())
	ctx := context.Background()

	cred, err := r.Resolve(ctx, "payments", Reference{KeyID: "stripe_prod"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cred.Token() != "sk_live_4242424242" {
		t.Errorf("Token() = %q", cred.Token())
	}

	// Second resolution for the same server is served from the cache.
	if _, err := r.Resolve(ctx, "payments", Reference{KeyID: "stripe_prod"}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if vault.calls != 1 {
		t.Errorf("vault lookups = %d, want 1", vault.calls)
	}

	// A different server resolves independently.
	vault.entries["stripe_test"] = "sk_test_1"
	if _, err := r.Resolve(ctx, "payments_test", Reference{KeyID: "stripe_test"}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if vault.calls != 2 {
		t.Errorf("vault lookups = %d, want 2", vault.calls)
	}
}

func TestResolveFailures(t *testing.T) {
	vault := &fakeVault{entries: map[string]string{"empty": ""}}

	tests := []struct {
		name     string
		vault    Vault
		ref      Reference
		wantKind wraperr.Kind
	}{
		{
			name:     "missing vault entry",
			vault:    vault,
			ref:      Reference{KeyID: "nope"},
			wantKind: wraperr.CredentialFailure,
		},
		{
			name:     "empty vault entry",
			vault:    vault,
			ref:      Reference{KeyID: "empty"},
			wantKind: wraperr.CredentialFailure,
		},
		{
			name:     "vault reference without a vault",
			vault:    nil,
			ref:      Reference{KeyID: "stripe_prod"},
			wantKind: wraperr.CredentialFailure,
		},
		{
			name:     "no credential at all",
			vault:    vault,
			ref:      Reference{},
			wantKind: wraperr.CredentialFailure,
		},
		{
			name:     "both fields set",
			vault:    vault,
			ref:      Reference{Literal: "sk", KeyID: "stripe_prod"},
			wantKind: wraperr.InvalidOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.vault, NewCache())
			_, err := r.Resolve(context.Background(), "payments", tt.ref)
			if err == nil {
				t.Fatal("Resolve() = nil, want error")
			}
			if !wraperr.Is(err, tt.wantKind) {
				t.Errorf("Resolve() = %v, want kind %s", err, tt.wantKind)
			}
		})
	}
}

func TestCredentialRedaction(t *testing.T) {
	r := NewResolver(nil, NewCache())
	cred, err := r.Resolve(context.Background(), "payments", Reference{Literal: "sk_live_4242424242"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	for _, rendered := range []string{
		fmt.Sprintf("%v", cred),
		fmt.Sprintf("%s", cred),
		fmt.Sprintf("%#v", cred),
	} {
		if strings.Contains(rendered, "4242424242") {
			t.Errorf("rendered credential leaks the token: %q", rendered)
		}
		if !strings.Contains(rendered, "sk_l") {
			t.Errorf("rendered credential lost its recognizable prefix: %q", rendered)
		}
	}
}

func TestCacheClear(t *testing.T) {
	vault := &fakeVault{entries: map[string]string{"k": "secret11111"}}
	cache := NewCache()
	r := NewResolver(vault, cache)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "s", Reference{KeyID: "k"}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	cache.Clear()
	if _, err := r.Resolve(ctx, "s", Reference{KeyID: "k"}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if vault.calls != 2 {
		t.Errorf("vault lookups after Clear = %d, want 2", vault.calls)
	}
}
