package source

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3FolderConfig holds configuration for S3Folder.
type S3FolderConfig struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack)
}

// S3Folder lists objects directly under a bucket prefix.
type S3Folder struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Folder creates an S3 client from the default AWS credential chain.
func NewS3Folder(ctx context.Context, cfg S3FolderConfig) (*S3Folder, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS config: %v", ErrCredentials, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3FolderWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3FolderWithClient wraps an existing client.
func NewS3FolderWithClient(client *s3.Client, bucket, prefix string) *S3Folder {
	return &S3Folder{client: client, bucket: bucket, prefix: dirPrefix(prefix)}
}

// Name implements Folder.
func (s *S3Folder) Name() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

// List implements Folder.
func (s *S3Folder) List(ctx context.Context) ([]Entry, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	var entries []Entry
	p := s3.NewListObjectsV2Paginator(s.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == s.prefix {
				continue
			}
			entries = append(entries, Entry{
				ID:           key,
				Name:         path.Base(key),
				ModifiedTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return entries, nil
}

// Read implements Folder.
func (s *S3Folder) Read(ctx context.Context, e Entry) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(e.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed for %s: %w", e.ID, err)
	}
	defer func() { _ = result.Body.Close() }()

	return io.ReadAll(result.Body)
}
