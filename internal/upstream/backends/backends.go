// Package backends builds the configured upstream Source
package backends

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vendbees/backend-go/internal/config"
	"github.com/andresuchdata/vendbees/backend-go/internal/drive"
	"github.com/andresuchdata/vendbees/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/vendbees/backend-go/internal/storage"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

// Open returns the Source selected by cfg.Upstream.Kind. Sources that log rows are dated
// in loc.
func Open(ctx context.Context, cfg *config.Config, loc *time.Location) (upstream.Source, error) {
	up := cfg.Upstream
	clock := upstream.WithWorkbookClock(time.Now, loc)

	switch up.Kind {
	case config.UpstreamWorkbook, "":
		if up.WorkbookPath == "" {
			return nil, fmt.Errorf("UPSTREAM_WORKBOOK_PATH is required for the workbook upstream")
		}
		log.Info().Str("path", up.WorkbookPath).Msg("upstream: local workbook")
		return upstream.NewWorkbookSource(upstream.NewFileBlob(up.WorkbookPath), clock), nil

	case config.UpstreamHTTP:
		if up.URL == "" {
			return nil, fmt.Errorf("UPSTREAM_URL is required for the http upstream")
		}
		log.Info().Str("url", up.URL).Msg("upstream: http")
		return upstream.NewHTTPSource(up.URL), nil

	case config.UpstreamS3:
		client, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  up.S3.Endpoint,
			AccessKey: up.S3.AccessKey,
			SecretKey: up.S3.SecretKey,
			Bucket:    up.S3.Bucket,
			Region:    up.S3.Region,
			UseSSL:    up.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("bucket", up.S3.Bucket).Str("object", up.S3.Object).Msg("upstream: s3 workbook")
		return upstream.NewWorkbookSource(storage.NewObjectBlob(client, up.S3.Object), clock), nil

	case config.UpstreamDrive:
		if up.DriveFileID == "" || up.DriveCredentialsJSON == "" {
			return nil, fmt.Errorf("UPSTREAM_DRIVE_FILE_ID and GOOGLE_DRIVE_CREDENTIALS_JSON are required for the drive upstream")
		}
		svc, err := drive.NewService(ctx, up.DriveCredentialsJSON, false)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file_id", up.DriveFileID).Msg("upstream: google drive workbook")
		return upstream.NewWorkbookSource(drive.NewFileBlob(svc, up.DriveFileID), clock), nil

	case config.UpstreamPostgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("upstream: postgres")
		return postgres.NewSource(db, postgres.WithClock(time.Now, loc)), nil
	}

	return nil, fmt.Errorf("unknown UPSTREAM_KIND %q", up.Kind)
}
