package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// kmsAPI is the part of the KMS client the key lister calls.
type kmsAPI interface {
	kms.ListKeysAPIClient
	DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
}

// KMSKeyLister lists customer keys in AWS KMS.
type KMSKeyLister struct {
	client kmsAPI
}

// NewKMSKeyLister creates a key lister from a loaded AWS config.
func NewKMSKeyLister(cfg aws.Config) *KMSKeyLister {
	return &KMSKeyLister{client: kms.NewFromConfig(cfg)}
}

// ListKeys pages through every key and describes each one.  KMS does not
// track a modification time, so UpdatedOn is always nil.
func (l *KMSKeyLister) ListKeys(ctx context.Context) ([]KeyProperties, error) {
	out := make([]KeyProperties, 0)
	pager := kms.NewListKeysPaginator(l.client, &kms.ListKeysInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		for _, k := range page.Keys {
			desc, err := l.client.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: k.KeyId})
			if err != nil {
				return nil, fmt.Errorf("describe key %s: %w", aws.ToString(k.KeyId), err)
			}
			props := KeyProperties{Name: aws.ToString(k.KeyId)}
			if md := desc.KeyMetadata; md != nil {
				props.Enabled = md.Enabled
				props.CreatedOn = md.CreationDate
			}
			out = append(out, props)
		}
	}
	return out, nil
}
