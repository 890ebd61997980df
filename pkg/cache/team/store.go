package team

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectStore is the cache's view of the remote object store. The production
// implementation is S3Store; tests substitute an in-memory fake.
//
// Get returns ErrObjectNotFound (via the classified error chain) for missing
// keys; Head reports absence as (false, nil).
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Head(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// S3Config configures the S3-backed object store.
type S3Config struct {
	// Bucket is the bucket name. Required.
	Bucket string

	// Region is the bucket region. Empty means the SDK default chain.
	Region string

	// AWSProfile is the shared-config profile used for credentials.
	// Empty means the default chain.
	AWSProfile string

	// SSEAlgorithm enables server-side encryption on writes when set
	// (e.g., "AES256", "aws:kms").
	SSEAlgorithm string
}

// S3Store implements ObjectStore against S3.
type S3Store struct {
	client *s3.Client
	bucket string
	sse    s3types.ServerSideEncryption
}

// NewS3Store builds an S3-backed object store from the default AWS config
// chain plus the given settings.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, NewCacheError(KindInvalidConfiguration, "configure", "",
			errors.New("bucket name is required"))
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, NewCacheError(KindInvalidConfiguration, "configure", "",
			fmt.Errorf("failed to load AWS config: %w", err))
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		sse:    s3types.ServerSideEncryption(cfg.SSEAlgorithm),
	}, nil
}

// Get downloads an object.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error("get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, NewCacheError(KindNetworkError, "get", key, err)
	}
	return data, nil
}

// Put uploads an object, overwriting any existing one (last write wins).
func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if s.sse != "" {
		input.ServerSideEncryption = s.sse
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return classifyS3Error("put", key, err)
	}
	return nil
}

// Head reports whether an object exists.
func (s *S3Store) Head(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classifyS3Error("head", key, err)
		if errors.Is(err, ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyS3Error("delete", key, err)
	}
	return nil
}

// List returns all keys under prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error("list", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// classifyS3Error maps SDK errors into the cache error taxonomy. Missing
// objects come back as ErrObjectNotFound so callers can treat them as a
// cache status rather than a failure.
func classifyS3Error(op, key string, err error) error {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%s %q: %w", op, key, ErrObjectNotFound)
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("%s %q: %w", op, key, ErrObjectNotFound)
	}
	var noSuchBucket *s3types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return NewCacheError(KindBucketNotFound, op, key, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%s %q: %w", op, key, ErrObjectNotFound)
		case "NoSuchBucket":
			return NewCacheError(KindBucketNotFound, op, key, err)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return NewCacheError(KindAccessDenied, op, key, err)
		}
	}
	return NewCacheError(KindNetworkError, op, key, err)
}
