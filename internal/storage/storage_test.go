package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStorage) info(key string) (ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, errors.New("no such key")
	}
	sum := md5.Sum(data)
	return ObjectInfo{Key: key, Size: int64(len(data)), ETag: hex.EncodeToString(sum[:])}, nil
}

func (m *memStorage) StatObject(_ context.Context, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info(key)
}

func (m *memStorage) GetObject(_ context.Context, key string) ([]byte, ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, err := m.info(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return append([]byte(nil), m.objects[key]...), info, nil
}

func (m *memStorage) PutObject(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func TestObjectBlob_FingerprintTracksContent(t *testing.T) {
	store := &memStorage{objects: map[string][]byte{"sheet.xlsx": []byte("v1")}}
	blob := NewObjectBlob(store, "sheet.xlsx")
	ctx := context.Background()

	fp1, err := blob.Fingerprint(ctx)
	require.NoError(t, err)

	data, fetched, err := blob.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.Equal(t, fp1, fetched)

	require.NoError(t, blob.Store(ctx, []byte("v2")))
	fp2, err := blob.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)
	assert.Equal(t, "sheet.xlsx", blob.Name())
}

func TestObjectBlob_MissingObject(t *testing.T) {
	blob := NewObjectBlob(&memStorage{objects: map[string][]byte{}}, "absent.xlsx")

	_, err := blob.Fingerprint(context.Background())
	assert.ErrorContains(t, err, "absent.xlsx")
	_, _, err = blob.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFingerprint_FallsBackToSize(t *testing.T) {
	assert.Equal(t, "size-42", fingerprint(ObjectInfo{Size: 42}))
	assert.Equal(t, "abc", fingerprint(ObjectInfo{Size: 42, ETag: "abc"}))
}

func TestNewMinioClient_Validation(t *testing.T) {
	_, err := NewMinioClient(MinioConfig{})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewMinioClient(MinioConfig{Endpoint: "s3.local"})
	assert.ErrorContains(t, err, "credentials")

	_, err = NewMinioClient(MinioConfig{Endpoint: "s3.local", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")

	c, err := NewMinioClient(MinioConfig{Endpoint: "http://s3.local:9000", AccessKey: "a", SecretKey: "b", Bucket: "sheets"})
	require.NoError(t, err)
	assert.Equal(t, "sheets", c.bucket)
}

func TestSplitEndpoint(t *testing.T) {
	host, secure := splitEndpoint("https://s3.example.com/", false)
	assert.Equal(t, "s3.example.com", host)
	assert.True(t, secure)

	host, secure = splitEndpoint("http://minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.False(t, secure)

	host, secure = splitEndpoint("minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)
}
