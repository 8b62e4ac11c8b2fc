package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3ObjectStore struct {
	client     *s3.Client
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

var _ ObjectStore = (*S3ObjectStore)(nil)

func NewS3ObjectStore(cfg S3ClientConfig, bucket, prefix string) (*S3ObjectStore, error) {
	client, err := initializeS3Client(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	if _, err := client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to verify access to s3://%s: %w", bucket, err)
	}

	return &S3ObjectStore{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		prefix:     prefix,
	}, nil
}

func (s *S3ObjectStore) IterObjects(ctx context.Context) ObjectIterator {
	return func(yield func(obj Object, err error) bool) {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(s.prefix),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(Object{}, fmt.Errorf("failed to list objects in s3://%s/%s: %w", s.bucket, s.prefix, err))
				return
			}

			for _, obj := range page.Contents {
				name := strings.TrimPrefix(*obj.Key, s.prefix)
				name = strings.TrimPrefix(name, "/")
				if name == "" {
					continue
				}
				if !yield(Object{Name: name, Size: *obj.Size}, nil) {
					return
				}
			}
		}
	}
}

func (s *S3ObjectStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	fullKey := key
	if s.prefix != "" {
		fullKey = strings.TrimSuffix(s.prefix, "/") + "/" + key
	}

	buf := manager.NewWriteAtBuffer(nil)
	if _, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	}); err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", s.bucket, fullKey, err)
	}

	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}
