package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	log "github.com/sirupsen/logrus"
)

// SecretsManagerAPI is the subset of the Secrets Manager client in use.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSConfig selects the secret and how to reach Secrets Manager.
type AWSConfig struct {
	SecretName string
	Region     string
	// Endpoint overrides the service endpoint (e.g. LocalStack).
	Endpoint string
	// AccessKeyID and SecretAccessKey switch to static credentials when both are set.
	AccessKeyID     string
	SecretAccessKey string
}

// AWSProvider reads credentials from AWS Secrets Manager.
type AWSProvider struct {
	client     SecretsManagerAPI
	secretName string
}

// NewAWSProvider builds a Secrets Manager client from the default AWS
// configuration chain.
func NewAWSProvider(ctx context.Context, cfg AWSConfig) (*AWSProvider, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewAWSProviderWithClient(client, cfg.SecretName), nil
}

// NewAWSProviderWithClient wires an existing client.
func NewAWSProviderWithClient(client SecretsManagerAPI, secretName string) *AWSProvider {
	return &AWSProvider{client: client, secretName: secretName}
}

// Fetch retrieves and decodes the secret.
func (p *AWSProvider) Fetch(ctx context.Context) (*Credentials, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		log.WithError(err).WithField("secret", p.secretName).Error("Failed to retrieve secret")
		return nil, fmt.Errorf("error retrieving secret %q from AWS Secrets Manager: %w", p.secretName, err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return nil, fmt.Errorf("secret %q has no string value", p.secretName)
	}

	creds, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("secret %q: %w", p.secretName, err)
	}
	log.WithField("secret", p.secretName).Info("Successfully retrieved secret from AWS Secrets Manager")
	return creds, nil
}
