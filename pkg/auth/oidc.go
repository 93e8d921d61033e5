package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/jnury/regis/pkg/logger"
)

// IssuerMetadata is the subset of provider configuration surfaced to the
// user while an authentication flow is pending.
type IssuerMetadata struct {
	Issuer   string
	Endpoint oauth2.Endpoint
}

// resolveIssuerMetadata fetches the OIDC discovery document for an auth
// method's issuer. The CLI drives the actual flow, so a failure here only
// degrades what can be shown about the provider.
func resolveIssuerMetadata(ctx context.Context, issuer string) (*IssuerMetadata, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve OIDC issuer %s: %w", issuer, err)
	}
	logger.Debugw("resolved OIDC issuer metadata", "issuer", issuer)
	return &IssuerMetadata{
		Issuer:   issuer,
		Endpoint: provider.Endpoint(),
	}, nil
}
