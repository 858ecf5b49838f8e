// Package secret retrieves server secrets from SSM Parameter Store or from
// environment variables.
package secret

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMClient is the subset of *ssm.Client used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver reads SecureString parameters with decryption.
type SSMResolver struct {
	client SSMClient
}

func NewSSMResolver(client SSMClient) *SSMResolver {
	return &SSMResolver{client: client}
}

func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver maps a parameter path to an environment variable:
// "/sendit/jwt-secret" is read from SENDIT_JWT_SECRET.
type EnvResolver struct {
	Prefix string
}

func NewEnvResolver(prefix string) *EnvResolver {
	return &EnvResolver{Prefix: prefix}
}

func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := r.envName(name)
	val := os.Getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
	}
	return val, nil
}

func (r *EnvResolver) envName(name string) string {
	parts := strings.Split(name, "/")
	last := strings.ToUpper(strings.ReplaceAll(parts[len(parts)-1], "-", "_"))
	if r.Prefix == "" {
		return last
	}
	return r.Prefix + "_" + last
}

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = config.LoadDefaultConfig

// New returns the resolver for backend ("env" or "ssm").
func New(ctx context.Context, backend, region, envPrefix string) (Resolver, error) {
	switch backend {
	case "env":
		return NewEnvResolver(envPrefix), nil
	case "ssm":
		cfg, err := loadDefaultAWSConfig(ctx, config.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSSMResolver(ssm.NewFromConfig(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", backend)
	}
}
