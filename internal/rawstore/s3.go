package rawstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/models"
)

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store keeps raw captures in an S3 bucket using the same key layout as FileStore.
type S3Store struct {
	client S3API
	bucket string
	prefix string
	loc    *time.Location
	logger *logrus.Entry
}

// NewS3Store creates an S3-backed store
func NewS3Store(client S3API, bucket, prefix string, loc *time.Location, logger *logrus.Logger) *S3Store {
	if logger == nil {
		logger = logrus.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		loc:    loc,
		logger: logger.WithFields(logrus.Fields{"component": "rawstore", "bucket": bucket}),
	}
}

func (s *S3Store) objectKey(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

// Put uploads the payload unless the key already exists
func (s *S3Store) Put(ctx context.Context, key Key, payload []byte) error {
	objectKey := s.objectKey(key.Path())

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err == nil {
		return fmt.Errorf("%w: %s", models.ErrCaptureExists, key)
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to check %s: %w", objectKey, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	return nil
}

// Get downloads one capture
func (s *S3Store) Get(ctx context.Context, key Key) ([]byte, error) {
	objectKey := s.objectKey(key.Path())
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to download %s: %w", objectKey, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// List pages through the category/date prefix
func (s *S3Store) List(ctx context.Context, category, date string) ([]Key, error) {
	prefix := s.objectKey(path.Join(category, date)) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []Key
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if strings.Contains(name, "/") {
				continue
			}
			identifier, capturedAt, err := ParseFileName(name, s.loc)
			if err != nil {
				s.logger.WithField("object", aws.ToString(obj.Key)).WithError(err).Warn("Ignoring object outside key layout")
				continue
			}
			keys = append(keys, Key{
				Category:   category,
				Date:       date,
				Identifier: identifier,
				CapturedAt: capturedAt,
			})
		}
	}

	sortKeys(keys)
	return keys, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
