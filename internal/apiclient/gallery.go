package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

// FilePart is the binary part of a multipart upload.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// Field is one string part of a multipart upload, kept in order.
type Field struct {
	Name  string
	Value string
}

// Multipart is an upload body.
type Multipart struct {
	File   FilePart
	Fields []Field
}

// Upload posts form as multipart/form-data with the bearer token attached.
func (c *Client) Upload(ctx context.Context, endpoint string, form Multipart, out interface{}) error {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, form.File.Field, form.File.Filename))
	contentType := form.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upload body")
	}
	if _, err := part.Write(form.File.Content); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upload body")
	}
	for _, f := range form.Fields {
		if err := writer.WriteField(f.Name, f.Value); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upload body")
		}
	}
	if err := writer.Close(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upload body")
	}

	return c.send(ctx, http.MethodPost, endpoint, nil, buf, writer.FormDataContentType(), true, out)
}

// ListGallery fetches the public gallery listing.
func (c *Client) ListGallery(ctx context.Context, q models.GalleryQuery) (*models.GalleryList, error) {
	query := listQuery(0, q.Limit, "category", q.Category, "sortBy", q.SortBy, "sortOrder", q.SortOrder)
	if q.IsActive != nil {
		query.Set("isActive", strconv.FormatBool(*q.IsActive))
	}
	var env models.Envelope[models.GalleryList]
	if err := c.Do(ctx, Request{Endpoint: "/gallery", Query: query}, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// UploadGalleryImage creates one gallery image from form.
func (c *Client) UploadGalleryImage(ctx context.Context, form Multipart) (*models.GalleryImage, error) {
	var env models.Envelope[models.GalleryImageData]
	if err := c.Upload(ctx, "/gallery", form, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, appErrors.Clone(appErrors.ErrUpstream, firstNonEmpty(env.Message, "Upload failed"))
	}
	return &env.Data.Image, nil
}

// UpdateGalleryImage applies a partial update.
func (c *Client) UpdateGalleryImage(ctx context.Context, id string, patch models.GalleryPatch) (*models.GalleryImage, error) {
	var env models.Envelope[models.GalleryImageData]
	if err := c.Do(ctx, Request{Endpoint: "/gallery/" + url.PathEscape(id), Method: http.MethodPut, Body: patch, RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data.Image, nil
}

// DeleteGalleryImage removes an image.
func (c *Client) DeleteGalleryImage(ctx context.Context, id string) error {
	return c.Do(ctx, Request{Endpoint: "/gallery/" + url.PathEscape(id), Method: http.MethodDelete, RequireAuth: true}, nil)
}

// GalleryStats returns aggregate gallery figures.
func (c *Client) GalleryStats(ctx context.Context) (*models.GalleryStats, error) {
	var env models.Envelope[models.GalleryStats]
	if err := c.Do(ctx, Request{Endpoint: "/gallery/stats", RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// CleanTags trims tags and drops empty ones.
func CleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return cleaned
}
