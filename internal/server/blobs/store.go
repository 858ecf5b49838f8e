// Package blobs issues presigned URLs for user files in S3-compatible
// object storage.
package blobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/sendit/internal/common"
)

const (
	UploadURLValidity      = 15 * time.Minute
	MaxDownloadURLValidity = 7 * 24 * time.Hour
)

// Store is the blob boundary used by the transport layer.
type Store interface {
	CreateUploadURL(ctx context.Context, key string) (string, error)
	GetDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Options configure an S3Store.
type Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	// DownloadValidity is capped at MaxDownloadURLValidity.
	DownloadValidity time.Duration
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) error {
		_, err := c.HeadObject(ctx, in)
		return err
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		_, err := c.DeleteObject(ctx, in)
		return err
	}
)

// S3Store talks to S3 or MinIO with static credentials.
type S3Store struct {
	client           *s3.Client
	presign          *s3.PresignClient
	bucket           string
	downloadValidity time.Duration
}

func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	validity := opts.DownloadValidity
	if validity <= 0 || validity > MaxDownloadURLValidity {
		validity = MaxDownloadURLValidity
	}

	return &S3Store{
		client:           client,
		presign:          s3.NewPresignClient(client),
		bucket:           opts.Bucket,
		downloadValidity: validity,
	}, nil
}

// CreateUploadURL presigns a PUT for key.
func (s *S3Store) CreateUploadURL(ctx context.Context, key string) (string, error) {
	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(UploadURLValidity))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// GetDownloadURL presigns a GET for an existing object. A missing object
// returns common.ErrorNotFound.
func (s *S3Store) GetDownloadURL(ctx context.Context, key string) (string, error) {
	err := headObject(s.client, ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("head object: %w", err)
	}

	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.downloadValidity))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// DeleteObject removes key. S3 treats a missing key as success.
func (s *S3Store) DeleteObject(ctx context.Context, key string) error {
	if err := deleteObject(s.client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

// CheckPath verifies that path is "<email>/<name>" for the caller's email.
func CheckPath(path, email string) error {
	owner, name, ok := strings.Cut(path, "/")
	switch {
	case !ok || name == "" || name == "." || name == "..":
		return fmt.Errorf("%w: path must be <email>/<name>", common.ErrorInvalidArgument)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: file name must not contain separators", common.ErrorInvalidArgument)
	case owner != email:
		return common.ErrorForbidden
	}
	return nil
}

// Path builds the storage key for a user's file.
func Path(email, name string) string {
	return email + "/" + name
}
