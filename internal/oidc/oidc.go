package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/middleware"
)

// Verifier checks Clerk session tokens against the issuer's published JWKS.
type Verifier struct {
	issuer   string
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the Clerk frontend API issuer. Clerk session tokens carry
// no audience unless a JWT template adds one, so an empty audience skips that check.
func NewVerifier(ctx context.Context, issuer, audience string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	cfg := &oidc.Config{ClientID: audience, SkipClientIDCheck: audience == ""}
	return &Verifier{issuer: issuer, verifier: provider.Verifier(cfg)}, nil
}

// Issuer returns the configured issuer URL.
func (v *Verifier) Issuer() string { return v.issuer }

// Verify verifies the raw session token and returns it as a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
