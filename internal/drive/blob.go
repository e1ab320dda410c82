package drive

import (
	"bytes"
	"context"

	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

// FileBlob is a workbook kept as one Drive file. Its modifiedTime is the fingerprint.
// Native Google Sheets are exported as xlsx on fetch and cannot be written back.
type FileBlob struct {
	service *Service
	fileID  string
}

func NewFileBlob(service *Service, fileID string) *FileBlob {
	return &FileBlob{service: service, fileID: fileID}
}

func (b *FileBlob) Name() string { return "drive:" + b.fileID }

func (b *FileBlob) Fingerprint(ctx context.Context) (string, error) {
	f, err := b.service.Stat(ctx, b.fileID)
	if err != nil {
		return "", err
	}
	return f.ModifiedTime, nil
}

func (b *FileBlob) Fetch(ctx context.Context) ([]byte, string, error) {
	f, err := b.service.Stat(ctx, b.fileID)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := b.service.DownloadFile(ctx, f, &buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), f.ModifiedTime, nil
}

func (b *FileBlob) Store(ctx context.Context, data []byte) error {
	f, err := b.service.Stat(ctx, b.fileID)
	if err != nil {
		return err
	}
	if f.IsNativeSheet() {
		return upstream.ErrReadOnly
	}

	_, err = b.service.UploadFile(ctx, b.fileID, data)
	return err
}
