package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   []string
}

func (b *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	b.calls = append(b.calls, path)
	data, ok := b.objects[path]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ok":true}`), 0o600))

	f := NewFetcher(nil, zap.NewNop())
	data, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	_, err = f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFetchFromBucket(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{
		"models/mov_pred_1/classifier.json": []byte("clf"),
	}}
	f := NewFetcher(bucket, zap.NewNop())

	data, err := f.Fetch(context.Background(), "s3://models/mov_pred_1/classifier.json")
	require.NoError(t, err)
	assert.Equal(t, "clf", string(data))
	assert.Equal(t, []string{"models/mov_pred_1/classifier.json"}, bucket.calls)

	_, err = f.Fetch(context.Background(), "s3://models/missing.json")
	assert.Error(t, err)
}

func TestFetchRemoteWithoutClient(t *testing.T) {
	f := NewFetcher(nil, zap.NewNop())
	_, err := f.Fetch(context.Background(), "s3://models/a.json")
	assert.Error(t, err)
}

func TestParseS3(t *testing.T) {
	bucket, key, err := parseS3("s3://b/k/with/slashes.json")
	require.NoError(t, err)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "k/with/slashes.json", key)

	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, err := parseS3(bad)
		assert.Error(t, err, bad)
	}
}

func TestFetchAllKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "pre.json")
	require.NoError(t, os.WriteFile(local, []byte("pre"), 0o600))

	bucket := &fakeBucket{objects: map[string][]byte{"m/clf.json": []byte("clf")}}
	f := NewFetcher(bucket, zap.NewNop())

	got, err := f.FetchAll(context.Background(), local, "s3://m/clf.json", local)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "pre", string(got[0]))
	assert.Equal(t, "clf", string(got[1]))
	assert.Equal(t, "pre", string(got[2]))
}

func TestFetchAllFailsOnAnyError(t *testing.T) {
	f := NewFetcher(&fakeBucket{objects: map[string][]byte{}}, zap.NewNop())

	_, err := f.FetchAll(context.Background(), "s3://m/missing.json", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("s3://bucket/key"))
	assert.False(t, IsRemote("artifacts/model.json"))
}

func TestNewR2ClientRequiresBothKeys(t *testing.T) {
	_, err := NewR2Client(context.Background(), R2Options{AccessKey: "id"})
	assert.Error(t, err)

	client, err := NewR2Client(context.Background(), R2Options{
		Endpoint:  "https://account.r2.cloudflarestorage.com",
		AccessKey: "id",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
