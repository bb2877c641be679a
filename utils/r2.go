// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"virtual-campus/config"
)

// R2Uploader puts export objects into a Cloudflare R2 bucket through the S3 API.
type R2Uploader struct {
	Client     *s3.Client
	Bucket     string
	CDNBaseURL string
}

func r2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

func NewR2Uploader(ctx context.Context, cfg *config.Config) (*R2Uploader, error) {
	if !cfg.R2Enabled() {
		return nil, fmt.Errorf("R2 is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2AccessKeyID, cfg.R2AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(r2Endpoint(cfg.CloudflareAccountID))
	})

	cdn := cfg.CDNBaseURL
	if cdn == "" {
		cdn = r2Endpoint(cfg.CloudflareAccountID)
	}

	return &R2Uploader{Client: client, Bucket: cfg.R2BucketName, CDNBaseURL: cdn}, nil
}

// Upload stores body under key and returns the public CDN URL.
func (u *R2Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return PublicURL(u.CDNBaseURL, key), nil
}

// PublicURL joins a base URL and an object key with exactly one slash.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
