package backends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vendbees/backend-go/internal/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		up      config.UpstreamConfig
		kind    string
		wantErr string
	}{
		{name: "workbook", up: config.UpstreamConfig{Kind: config.UpstreamWorkbook, WorkbookPath: "sheet.xlsx"}, kind: "workbook"},
		{name: "default kind", up: config.UpstreamConfig{WorkbookPath: "sheet.xlsx"}, kind: "workbook"},
		{name: "workbook without path", up: config.UpstreamConfig{Kind: config.UpstreamWorkbook}, wantErr: "UPSTREAM_WORKBOOK_PATH"},
		{name: "http", up: config.UpstreamConfig{Kind: config.UpstreamHTTP, URL: "http://localhost:3001"}, kind: "http"},
		{name: "http without url", up: config.UpstreamConfig{Kind: config.UpstreamHTTP}, wantErr: "UPSTREAM_URL"},
		{name: "s3", up: config.UpstreamConfig{Kind: config.UpstreamS3, S3: config.S3Config{
			Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b", Bucket: "sheets", Object: "ventory_sheet.xlsx",
		}}, kind: "workbook"},
		{name: "s3 without bucket", up: config.UpstreamConfig{Kind: config.UpstreamS3, S3: config.S3Config{
			Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b",
		}}, wantErr: "bucket"},
		{name: "drive without file", up: config.UpstreamConfig{Kind: config.UpstreamDrive}, wantErr: "UPSTREAM_DRIVE_FILE_ID"},
		{name: "unknown", up: config.UpstreamConfig{Kind: "ftp"}, wantErr: "unknown UPSTREAM_KIND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := Open(ctx, &config.Config{Upstream: tc.up}, time.UTC)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, src.Kind())
		})
	}
}
