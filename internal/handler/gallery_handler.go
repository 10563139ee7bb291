package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/response"
)

type galleryController interface {
	Refresh(ctx context.Context, q models.GalleryQuery) error
	Images() []models.GalleryImage
	ToggleFeatured(ctx context.Context, id string) (models.GalleryImage, error)
	Update(ctx context.Context, id string, patch models.GalleryPatch) (models.GalleryImage, error)
	Delete(ctx context.Context, id string, confirmed bool) error
}

type galleryLister interface {
	ListGallery(ctx context.Context, q models.GalleryQuery) (*models.GalleryList, error)
}

type galleryQueryParams struct {
	Category  string `form:"category"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	IsActive  *bool  `form:"isActive"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (p galleryQueryParams) query() models.GalleryQuery {
	q := models.GalleryQuery{Category: p.Category, SortBy: p.SortBy, SortOrder: p.SortOrder, IsActive: p.IsActive, Limit: p.Limit}
	if q.Category == "all" {
		q.Category = ""
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	return q
}

// GalleryHandler exposes the gallery listings and image management.
type GalleryHandler struct {
	gallery galleryController
	public  galleryLister
}

// NewGalleryHandler constructs the handler.
func NewGalleryHandler(gallery galleryController, public galleryLister) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, public: public}
}

// Public godoc
// @Summary Public gallery
// @Tags Gallery
// @Produce json
// @Param category query string false "Category"
// @Param sortBy query string false "Sort field"
// @Param sortOrder query string false "asc or desc"
// @Param limit query int false "Maximum images"
// @Success 200 {object} response.Envelope
// @Router /gallery [get]
func (h *GalleryHandler) Public(c *gin.Context) {
	var params galleryQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid gallery query"))
		return
	}
	q := params.query()
	active := true
	q.IsActive = &active

	list, err := h.public.ListGallery(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Images, &list.Pagination)
}

// List godoc
// @Summary Admin gallery listing
// @Tags Gallery
// @Produce json
// @Param category query string false "Category"
// @Param isActive query bool false "Only active or inactive images"
// @Success 200 {object} response.Envelope
// @Router /admin/gallery [get]
func (h *GalleryHandler) List(c *gin.Context) {
	var params galleryQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid gallery query"))
		return
	}
	if err := h.gallery.Refresh(c.Request.Context(), params.query()); err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.gallery.Images(), nil)
}

// Update godoc
// @Summary Edit a gallery image
// @Tags Gallery
// @Accept json
// @Produce json
// @Param id path string true "Image ID"
// @Param payload body models.GalleryPatch true "Changes"
// @Success 200 {object} response.Envelope
// @Router /admin/gallery/{id} [put]
func (h *GalleryHandler) Update(c *gin.Context) {
	var patch models.GalleryPatch
	if !bindJSON(c, &patch, "invalid image payload") {
		return
	}
	img, err := h.gallery.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, img, nil)
}

// ToggleFeatured godoc
// @Summary Flip the featured flag
// @Tags Gallery
// @Produce json
// @Param id path string true "Image ID"
// @Success 200 {object} response.Envelope
// @Router /admin/gallery/{id}/featured [post]
func (h *GalleryHandler) ToggleFeatured(c *gin.Context) {
	img, err := h.gallery.ToggleFeatured(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, img, nil)
}

// Delete godoc
// @Summary Delete a gallery image
// @Tags Gallery
// @Param id path string true "Image ID"
// @Param confirm query bool true "Deletion confirmed by the admin"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /admin/gallery/{id} [delete]
func (h *GalleryHandler) Delete(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if err := h.gallery.Delete(c.Request.Context(), c.Param("id"), confirmed); err != nil {
		respondError(c, err)
		return
	}
	response.NoContent(c)
}
