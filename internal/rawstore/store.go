package rawstore

import (
	"context"
	"fmt"
	"sort"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/config"
)

// Store is append-only storage of raw payloads.
// Put never overwrites: a second write of the same key returns models.ErrCaptureExists.
type Store interface {
	Put(ctx context.Context, key Key, payload []byte) error
	Get(ctx context.Context, key Key) ([]byte, error)
	// List returns the keys of one category and date, sorted by path.
	List(ctx context.Context, category, date string) ([]Key, error)
}

// NewStore creates the configured backend
func NewStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Store, error) {
	loc := cfg.Location()
	switch cfg.Storage.Backend {
	case "filesystem":
		return NewFileStore(cfg.Storage.BronzePath, loc, logger), nil
	case "s3":
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Storage.S3Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Storage.S3Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return NewS3Store(s3.NewFromConfig(awsCfg), cfg.Storage.S3Bucket, cfg.Storage.S3Prefix, loc, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Path() < keys[j].Path()
	})
}
