package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/iliyamo/diagram-service/internal/logger"
)

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// AWSProvider lists the secrets in AWS Secrets Manager.  A secret scheduled
// for deletion is reported as disabled.
type AWSProvider struct {
	client secretsmanager.ListSecretsAPIClient
	region string
}

// NewAWSProvider creates a Secrets Manager provider from a loaded AWS config.
func NewAWSProvider(cfg aws.Config) *AWSProvider {
	logger.L.Info("AWS Secrets Manager provider initialized", "region", cfg.Region)
	return &AWSProvider{client: secretsmanager.NewFromConfig(cfg), region: cfg.Region}
}

// ListSecrets pages through every secret in the region.
func (p *AWSProvider) ListSecrets(ctx context.Context) ([]SecretProperties, error) {
	out := make([]SecretProperties, 0)
	pager := secretsmanager.NewListSecretsPaginator(p.client, &secretsmanager.ListSecretsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list secrets: %w", err)
		}
		for _, s := range page.SecretList {
			props := SecretProperties{
				Name:      aws.ToString(s.Name),
				Enabled:   s.DeletedDate == nil,
				CreatedOn: s.CreatedDate,
				UpdatedOn: s.LastChangedDate,
			}
			out = append(out, props)
		}
	}
	return out, nil
}

// Name returns the provider name
func (p *AWSProvider) Name() string {
	return string(ProviderTypeAWS)
}

// Close is a no-op; the SDK client holds no long-lived resources.
func (p *AWSProvider) Close() error {
	return nil
}
