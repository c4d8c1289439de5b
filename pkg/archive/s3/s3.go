package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/statutelab/lexgraph/pkg/archive"
)

// S3Store archives canonical text as <prefix>/<digest>.txt objects. Existing
// objects are never rewritten, matching the filesystem store's write-once
// contract.
type S3Store struct {
	client *awss3.Client
	bucket string
	prefix string
}

var _ archive.Store = (*S3Store)(nil)

// NewS3StoreParams configures an S3Store. Endpoint is optional and supports
// S3-compatible services (MinIO, Ceph); AccessKey/SecretKey fall back to the
// SDK's default credential chain when empty.
type NewS3StoreParams struct {
	Region    string
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// NewS3Store creates an S3Store from params.
func NewS3Store(ctx context.Context, params NewS3StoreParams) (*S3Store, error) {
	if params.Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires a bucket")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}
	if params.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.UsePathStyle = true
	})

	return &S3Store{
		client: client,
		bucket: params.Bucket,
		prefix: strings.Trim(params.Prefix, "/"),
	}, nil
}

func (s *S3Store) key(digest string) string {
	if s.prefix == "" {
		return digest + ".txt"
	}
	return s.prefix + "/" + digest + ".txt"
}

// Put uploads text under its digest key unless the object already exists.
func (s *S3Store) Put(ctx context.Context, digest string, text string) error {
	if digest == "" {
		return fmt.Errorf("archive digest is empty")
	}
	key := s.key(digest)

	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check archive object %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive object %s: %w", key, err)
	}
	return nil
}
