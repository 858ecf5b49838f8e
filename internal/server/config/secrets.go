package config

import (
	"context"
	"fmt"
)

// SecretResolver looks secrets up by parameter name.
type SecretResolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// ResolveSecrets replaces SecretKey and GoogleClientSecret with values from r.
// The Google secret is only fetched when the google provider is selected.
func (c *Config) ResolveSecrets(ctx context.Context, r SecretResolver) error {
	if c.JWTSecretParam != "" {
		v, err := r.GetSecret(ctx, c.JWTSecretParam)
		if err != nil {
			return fmt.Errorf("resolve jwt secret: %w", err)
		}
		c.SecretKey = v
	}

	if c.IdentityProvider == "google" && c.GoogleClientSecretParam != "" {
		v, err := r.GetSecret(ctx, c.GoogleClientSecretParam)
		if err != nil {
			return fmt.Errorf("resolve google client secret: %w", err)
		}
		c.GoogleClientSecret = v
	}

	return nil
}
