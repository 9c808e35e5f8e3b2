package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the subset of the Secrets Manager client we call.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ResolveAPIKey returns the API key for the HTTP server. A literal apiKey in
// the config wins; otherwise the key is fetched from Secrets Manager using
// apiKeySecretArn. The secret may be a raw string or a JSON object with an
// "apiKey" field.
func ResolveAPIKey(ctx context.Context, client SecretsAPI, apiKey, secretARN string) (string, error) {
	if apiKey != "" {
		return apiKey, nil
	}
	if secretARN == "" {
		return "", nil
	}
	if client == nil {
		return "", fmt.Errorf("apiKeySecretArn set but no secrets client configured")
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretARN),
	})
	if err != nil {
		return "", fmt.Errorf("fetching api key secret: %w", err)
	}
	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return "", fmt.Errorf("secret %s has no string value", secretARN)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err == nil {
		if key, ok := fields["apiKey"]; ok && key != "" {
			return key, nil
		}
		return "", fmt.Errorf("secret %s is JSON but has no apiKey field", secretARN)
	}
	return raw, nil
}
