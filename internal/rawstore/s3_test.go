package rawstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racecapture/internal/models"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	out := &s3.ListObjectsV2Output{}
	for _, n := range names {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(n)})
	}
	return out, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "bronze/", time.UTC, nil)

	key := NewKey(CategoryGames, "2026-02-05", "V75_2026-02-05_6_1", time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC), time.UTC)
	require.NoError(t, store.Put(ctx, key, []byte(`{"id":"V75"}`)))

	_, ok := fake.objects["bronze/games/2026-02-05/V75_2026-02-05_6_1_20260205_120000.json"]
	assert.True(t, ok)

	err := store.Put(ctx, key, []byte(`{}`))
	assert.True(t, errors.Is(err, models.ErrCaptureExists))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"V75"}`, string(data))

	keys, err := store.List(ctx, CategoryGames, "2026-02-05")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.Path(), keys[0].Path())
}

func TestS3StoreGetMissing(t *testing.T) {
	store := NewS3Store(newFakeS3(), "bucket", "", time.UTC, nil)
	_, err := store.Get(context.Background(), NewKey(CategoryGames, "2026-02-05", "x", time.Now(), time.UTC))
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
