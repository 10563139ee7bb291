package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/gallery"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/response"
)

type uploadQueue interface {
	AddFiles(files []gallery.SelectedFile) ([]gallery.Item, []gallery.Skipped)
	UpdateFile(id string, patch gallery.Patch) (gallery.Item, error)
	RemoveFile(id string) error
	Snapshot() gallery.Snapshot
	UploadAll(ctx context.Context) (gallery.BatchResult, error)
}

type previewSource interface {
	Open(id string) (string, []byte, bool)
}

// UploadSelection is the answer to a file drop.
type UploadSelection struct {
	Added   []gallery.Item    `json:"added"`
	Skipped []gallery.Skipped `json:"skipped"`
}

// UploadHandler exposes the gallery upload queue.
type UploadHandler struct {
	batch     uploadQueue
	previews  previewSource
	maxMemory int64
	logger    *zap.Logger
}

// NewUploadHandler constructs the handler. maxMemory bounds the part of a
// multipart request kept in memory while parsing.
func NewUploadHandler(batch uploadQueue, previews previewSource, maxMemory int64, logger *zap.Logger) *UploadHandler {
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{batch: batch, previews: previews, maxMemory: maxMemory, logger: logger}
}

// Add godoc
// @Summary Select files for upload
// @Description Queues the image files of the multipart field "files". Non-images and oversized files are skipped.
// @Tags Gallery Uploads
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Image files"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/gallery/uploads [post]
func (h *UploadHandler) Add(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxMemory); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multipart payload"))
		return
	}
	headers := c.Request.MultipartForm.File["files"]
	if len(headers) == 0 {
		response.Error(c, appErrors.Validation("no files selected", map[string]string{"files": "Select at least one image"}))
		return
	}

	files := make([]gallery.SelectedFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readSelected(fh)
		if err != nil {
			h.logger.Warn("failed to read selected file", zap.String("file", fh.Filename), zap.Error(err))
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read "+fh.Filename))
			return
		}
		files = append(files, file)
	}

	added, skipped := h.batch.AddFiles(files)
	response.Created(c, UploadSelection{Added: added, Skipped: skipped})
}

// List godoc
// @Summary Upload queue
// @Tags Gallery Uploads
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/gallery/uploads [get]
func (h *UploadHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.batch.Snapshot(), nil)
}

// Update godoc
// @Summary Edit a queued file
// @Tags Gallery Uploads
// @Accept json
// @Produce json
// @Param id path string true "Queue entry ID"
// @Param payload body gallery.Patch true "Metadata"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/gallery/uploads/{id} [patch]
func (h *UploadHandler) Update(c *gin.Context) {
	var patch gallery.Patch
	if !bindJSON(c, &patch, "invalid upload metadata") {
		return
	}
	item, err := h.batch.UpdateFile(c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Remove godoc
// @Summary Remove a queued file
// @Tags Gallery Uploads
// @Param id path string true "Queue entry ID"
// @Success 204
// @Router /admin/gallery/uploads/{id} [delete]
func (h *UploadHandler) Remove(c *gin.Context) {
	if err := h.batch.RemoveFile(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Local preview of a queued file
// @Tags Gallery Uploads
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param id path string true "Queue entry ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /admin/gallery/uploads/{id}/preview [get]
func (h *UploadHandler) Preview(c *gin.Context) {
	contentType, content, ok := h.previews.Open(c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "preview not found"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, content)
}

// Run godoc
// @Summary Upload all queued files
// @Description Uploads the queue one file at a time. Invalid entries are flagged and skipped; an expired session aborts the batch with a redirect to the login page.
// @Tags Gallery Uploads
// @Produce json
// @Success 200 {object} response.Envelope
// @Success 303 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/gallery/uploads/run [post]
func (h *UploadHandler) Run(c *gin.Context) {
	result, err := h.batch.UploadAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func readSelected(fh *multipart.FileHeader) (gallery.SelectedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return gallery.SelectedFile{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return gallery.SelectedFile{}, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}
	return gallery.SelectedFile{Name: fh.Filename, ContentType: contentType, Content: content}, nil
}
