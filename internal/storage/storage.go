package storage

import (
	"context"
	"fmt"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

// ObjectStorage captures the minimal S3-compatible operations the workbook upstream needs.
type ObjectStorage interface {
	StatObject(ctx context.Context, key string) (ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	PutObject(ctx context.Context, key string, data []byte) error
}

// ObjectBlob is a workbook stored as a single object. The ETag is its fingerprint.
type ObjectBlob struct {
	store ObjectStorage
	key   string
}

func NewObjectBlob(store ObjectStorage, key string) *ObjectBlob {
	return &ObjectBlob{store: store, key: key}
}

func (b *ObjectBlob) Name() string { return b.key }

func (b *ObjectBlob) Fingerprint(ctx context.Context) (string, error) {
	info, err := b.store.StatObject(ctx, b.key)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", b.key, err)
	}
	return fingerprint(info), nil
}

func (b *ObjectBlob) Fetch(ctx context.Context) ([]byte, string, error) {
	data, info, err := b.store.GetObject(ctx, b.key)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", b.key, err)
	}
	return data, fingerprint(info), nil
}

func (b *ObjectBlob) Store(ctx context.Context, data []byte) error {
	if err := b.store.PutObject(ctx, b.key, data); err != nil {
		return fmt.Errorf("upload %s: %w", b.key, err)
	}
	return nil
}

func fingerprint(info ObjectInfo) string {
	if info.ETag != "" {
		return info.ETag
	}
	return fmt.Sprintf("size-%d", info.Size)
}
