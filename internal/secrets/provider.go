// Package secrets lists the contents of the secret and key stores the health
// endpoints report on.  The service never reads secret values; it only needs
// to know that the stores answer and what they hold.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/diagram-service/internal/config"
	"github.com/iliyamo/diagram-service/internal/logger"
)

// Common errors
var (
	ErrInvalidConfig      = errors.New("invalid secrets provider configuration")
	ErrProviderNotEnabled = errors.New("secrets provider not enabled")
)

// SecretProperties describes one secret without its value.
type SecretProperties struct {
	Name      string     `json:"name"`
	Enabled   bool       `json:"enabled"`
	CreatedOn *time.Time `json:"created_on"`
	UpdatedOn *time.Time `json:"updated_on"`
}

// KeyProperties describes one key in the key store.
type KeyProperties struct {
	Name      string     `json:"name"`
	Enabled   bool       `json:"enabled"`
	CreatedOn *time.Time `json:"created_on"`
	UpdatedOn *time.Time `json:"updated_on"`
}

// Provider lists the secrets held by a secret store.
type Provider interface {
	ListSecrets(ctx context.Context) ([]SecretProperties, error)

	// Name returns the provider's identifier (e.g., "env", "aws")
	Name() string

	Close() error
}

// KeyLister lists the keys held by a key store.
type KeyLister interface {
	ListKeys(ctx context.Context) ([]KeyProperties, error)
}

// ProviderType represents the type of secrets provider
type ProviderType string

// Provider type constants
const (
	ProviderTypeEnv   ProviderType = "env"
	ProviderTypeAWS   ProviderType = "aws"
	ProviderTypeAzure ProviderType = "azure"
)

// NewProvider builds the secret store and key store named by cfg.  An empty
// provider falls back to environment variables.
func NewProvider(ctx context.Context, cfg config.SecretsConfig) (Provider, KeyLister, error) {
	if cfg.Provider == "" {
		logger.L.Info("no secrets provider configured, using environment variables")
		p := NewEnvProvider(cfg.EnvPrefix, cfg.KeysPrefix)
		return p, p, nil
	}

	logger.L.Info("initializing secrets provider", "provider", cfg.Provider, "vault", cfg.VaultURL)

	switch ProviderType(cfg.Provider) {
	case ProviderTypeEnv:
		p := NewEnvProvider(cfg.EnvPrefix, cfg.KeysPrefix)
		return p, p, nil

	case ProviderTypeAWS:
		if cfg.AWSRegion == "" {
			return nil, nil, fmt.Errorf("%w: AWS secrets provider requires a region", ErrInvalidConfig)
		}
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		return NewAWSProvider(awsCfg), NewKMSKeyLister(awsCfg), nil

	case ProviderTypeAzure:
		return nil, nil, fmt.Errorf("%w: Azure Key Vault provider not yet implemented", ErrProviderNotEnabled)

	default:
		return nil, nil, fmt.Errorf("%w: unknown provider type: %s", ErrInvalidConfig, cfg.Provider)
	}
}
