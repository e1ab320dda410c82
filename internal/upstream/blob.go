package upstream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Blob is a single workbook file held somewhere: local disk, an S3 bucket, Google Drive.
// The fingerprint changes whenever the content does (mtime, ETag, revision time).
type Blob interface {
	// Name describes the blob for logs, e.g. "file:./data/sheet.xlsx"
	Name() string

	// Fingerprint returns the current content fingerprint without downloading
	Fingerprint(ctx context.Context) (string, error)

	// Fetch downloads the content together with its fingerprint
	Fetch(ctx context.Context) ([]byte, string, error)

	// Store replaces the content. Read-only blobs return ErrReadOnly.
	Store(ctx context.Context, data []byte) error
}

// FileBlob is a workbook on the local filesystem
type FileBlob struct {
	Path string
}

// NewFileBlob creates a blob for the file at path
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{Path: path}
}

func (b *FileBlob) Name() string { return "file:" + b.Path }

func (b *FileBlob) Fingerprint(_ context.Context) (string, error) {
	info, err := os.Stat(b.Path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", b.Path, err)
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}

func (b *FileBlob) Fetch(ctx context.Context) ([]byte, string, error) {
	fp, err := b.Fingerprint(ctx)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", b.Path, err)
	}
	return data, fp, nil
}

// Store writes to a temporary file next to the target and renames it into place,
// so a concurrent reader sees either the old or the new workbook.
func (b *FileBlob) Store(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.Path)
	tmp, err := os.CreateTemp(dir, ".workbook-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, b.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", b.Path, err)
	}
	return nil
}
