package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const defaultAWSRegion = "us-east-1"

// AWSKeys is a discovered access key pair.
type AWSKeys struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// CallerIdentityFunc resolves an access key pair to the ARN it belongs to.
type CallerIdentityFunc func(ctx context.Context, keys AWSKeys, region string) (string, error)

// stsCallerIdentity calls sts:GetCallerIdentity with only the discovered
// keys; the user's own AWS profile and environment are never consulted.
func (p *Prober) stsCallerIdentity(ctx context.Context, keys AWSKeys, region string) (string, error) {
	if region == "" {
		region = defaultAWSRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(keys.AccessKeyID, keys.SecretAccessKey, keys.SessionToken),
		),
		awsconfig.WithHTTPClient(p.client),
		awsconfig.WithSharedConfigFiles([]string{}),
		awsconfig.WithSharedCredentialsFiles([]string{}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sts.NewFromConfig(cfg, func(o *sts.Options) {
		if endpoint := p.opts.BaseURLs["aws_bedrock"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Arn), nil
}

func isUnauthorizedAWS(err error) bool {
	msg := err.Error()
	for _, code := range []string{"InvalidClientTokenId", "SignatureDoesNotMatch", "AccessDenied", "ExpiredToken"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
