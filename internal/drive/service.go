package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	xlsxMimeType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	googleSheetMimeType = "application/vnd.google-apps.spreadsheet"
	folderMimeType      = "application/vnd.google-apps.folder"
)

type Service struct {
	srv *drive.Service
}

// NewService authenticates with a service account. readOnly limits the token scope,
// in which case commands against the workbook are refused by Drive.
func NewService(ctx context.Context, credentialsJSON string, readOnly bool) (*Service, error) {
	scope := drive.DriveScope
	if readOnly {
		scope = drive.DriveReadonlyScope
	}

	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), scope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	return NewServiceWithOptions(ctx, option.WithHTTPClient(config.Client(ctx)))
}

// NewServiceWithOptions builds the Drive client from raw client options
func NewServiceWithOptions(ctx context.Context, opts ...option.ClientOption) (*Service, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
	MD5          string `json:"md5Checksum,omitempty"`
}

// IsNativeSheet reports whether the file is a Google Sheets document rather than an xlsx upload
func (f *File) IsNativeSheet() bool {
	return f.MimeType == googleSheetMimeType
}

func fromDrive(f *drive.File) *File {
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Size:         f.Size,
		MD5:          f.Md5Checksum,
	}
}

// ListFiles lists the spreadsheets of a folder ("root" when empty)
func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if folderID == "" {
		folderID = "root"
	}

	result, err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false and (mimeType='%s' or mimeType='%s')",
			folderID, xlsxMimeType, googleSheetMimeType)).
		Fields("files(id, name, mimeType, modifiedTime, size, md5Checksum)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	files := make([]*File, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, fromDrive(f))
	}
	return files, nil
}

func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	currentID := "root"
	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, strings.ReplaceAll(folder, "'", `\'`), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}

// Stat fetches the metadata of one file
func (s *Service) Stat(ctx context.Context, fileID string) (*File, error) {
	f, err := s.srv.Files.Get(fileID).
		Fields("id", "name", "mimeType", "modifiedTime", "size", "md5Checksum").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to stat file %s: %w", fileID, err)
	}
	return fromDrive(f), nil
}

// DownloadFile writes the xlsx content of a file. Native sheets are exported as xlsx.
func (s *Service) DownloadFile(ctx context.Context, file *File, w io.Writer) error {
	var body io.ReadCloser
	if file.IsNativeSheet() {
		resp, err := s.srv.Files.Export(file.ID, xlsxMimeType).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("unable to export file: %w", err)
		}
		body = resp.Body
	} else {
		resp, err := s.srv.Files.Get(file.ID).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("unable to download file: %w", err)
		}
		body = resp.Body
	}
	defer body.Close()

	_, err := io.Copy(w, body)
	return err
}

// UploadFile replaces the content of an xlsx file
func (s *Service) UploadFile(ctx context.Context, fileID string, data []byte) (*File, error) {
	f, err := s.srv.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(data), googleapi.ContentType(xlsxMimeType)).
		Fields("id", "name", "mimeType", "modifiedTime", "size", "md5Checksum").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to upload file %s: %w", fileID, err)
	}
	return fromDrive(f), nil
}
