// Package storage keeps uploaded profile pictures in Amazon S3 (or an
// S3-compatible service such as MinIO).
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AvatarStore saves an image and returns the URL browsers load it from.
type AvatarStore interface {
	PutAvatar(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Options configures the S3 store.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string // non-empty for S3-compatible services; enables path-style URLs
	KeyPrefix string
}

// S3Store uploads avatars with the transfer manager, which switches to
// multipart uploads for large bodies on its own.
type S3Store struct {
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
}

var _ AvatarStore = (*S3Store)(nil)

func NewS3Store(client *s3.Client, bucket, keyPrefix string) *S3Store {
	return &S3Store{
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

// NewS3Client loads AWS credentials the standard way (env, shared config,
// instance role) and builds a client for opts.
func NewS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("storage: loading aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// PutAvatar uploads body under keyPrefix/key with a public-read ACL so the
// returned URL can be used directly as a profile image.
func (s *S3Store) PutAvatar(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	fullKey := key
	if s.keyPrefix != "" {
		fullKey = s.keyPrefix + "/" + key
	}

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(fullKey),
		Body:         body,
		ContentType:  aws.String(contentType),
		ACL:          types.ObjectCannedACLPublicRead,
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("storage: uploading %s: %w", fullKey, err)
	}
	return out.Location, nil
}
