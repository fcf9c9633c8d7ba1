package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	caseDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/cases"
)

// FileUpload is one file sent to the static file store.
type FileUpload struct {
	Filename    string
	Content     io.Reader
	UploadedFor string
	EntityType  string
	Description string
	Tags        string
	IsPublic    bool
}

func (c *Client) UploadFile(ctx context.Context, f FileUpload) (*caseDatamodel.UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", f.Filename)
	if err != nil {
		return nil, fmt.Errorf("backend files.upload: %w", err)
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return nil, fmt.Errorf("backend files.upload: copy %s: %w", f.Filename, err)
	}

	fields := []struct{ name, value string }{
		{"uploadedFor", f.UploadedFor},
		{"entityType", f.EntityType},
		{"description", f.Description},
		{"tags", f.Tags},
		{"isPublic", strconv.FormatBool(f.IsPublic)},
	}
	for _, field := range fields {
		if err := mw.WriteField(field.name, field.value); err != nil {
			return nil, fmt.Errorf("backend files.upload: field %s: %w", field.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("backend files.upload: %w", err)
	}

	var env Envelope[caseDatamodel.UploadedFile]
	_, err = c.do(ctx, call{
		op:          "files.upload",
		method:      http.MethodPost,
		path:        "/v1/files/static/upload",
		raw:         buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, &env)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}
