// Package archive uploads billing artefacts to S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"society-billing/internal/config"
	"society-billing/internal/logger"
	"society-billing/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrDisabled is returned by New when no bucket is configured
var ErrDisabled = errors.New("archive bucket not configured")

// ObjectPutter is the slice of the S3 client the archiver needs
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewArchiver(client ObjectPutter, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// New builds an archiver from config against the configured endpoint
func New(ctx context.Context, cfg *config.Config) (*Archiver, error) {
	ac := cfg.Archive
	if ac.Bucket == "" {
		return nil, ErrDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			ac.AccessKey,
			ac.SecretKey,
			"",
		)),
		awsconfig.WithRegion(ac.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("archive client config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ac.Endpoint != "" {
			o.BaseEndpoint = aws.String(ac.Endpoint)
		}
	})
	return NewArchiver(client, ac.Bucket, ac.Prefix), nil
}

// InvoiceBundleKey is where a period's invoice bundle lives, e.g.
// invoices/society-7/2025-04.zip
func (a *Archiver) InvoiceBundleKey(societyID int64, period models.Period) string {
	return path.Join(a.prefix, fmt.Sprintf("society-%d", societyID), fmt.Sprintf("%04d-%02d.zip", period.Year, period.Month))
}

// PutInvoiceBundle uploads a zip of invoice PDFs and returns its object key.
// Re-archiving a period overwrites the previous bundle.
func (a *Archiver) PutInvoiceBundle(ctx context.Context, societyID int64, period models.Period, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &models.ValidationError{Field: "bundle", Message: "nothing to archive"}
	}

	key := a.InvoiceBundleKey(societyID, period)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/zip"),
		Metadata: map[string]string{
			"society-id": fmt.Sprintf("%d", societyID),
			"period":     fmt.Sprintf("%04d-%02d", period.Year, period.Month),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	logger.FromContext(ctx).Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("invoice bundle archived")
	return key, nil
}
