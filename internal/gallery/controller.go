// Package gallery manages the school photo gallery from the admin console.
package gallery

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/apiclient"
	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/records"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

type galleryAPI interface {
	ListGallery(ctx context.Context, q models.GalleryQuery) (*models.GalleryList, error)
	UploadGalleryImage(ctx context.Context, form apiclient.Multipart) (*models.GalleryImage, error)
	UpdateGalleryImage(ctx context.Context, id string, patch models.GalleryPatch) (*models.GalleryImage, error)
	DeleteGalleryImage(ctx context.Context, id string) error
	GalleryStats(ctx context.Context) (*models.GalleryStats, error)
}

// Controller holds the authoritative gallery listing shown to admins.
type Controller struct {
	api    galleryAPI
	logger *zap.Logger
	images *records.Store[models.GalleryImage]

	mu    sync.Mutex
	query models.GalleryQuery
}

// NewController constructs a gallery controller.
func NewController(api galleryAPI, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		api:    api,
		logger: logger,
		images: records.NewStore(func(img models.GalleryImage) string { return img.ID }),
		query:  models.GalleryQuery{SortBy: "createdAt", SortOrder: "desc"},
	}
}

// Refresh reloads the listing with q and remembers q for later reloads.
func (c *Controller) Refresh(ctx context.Context, q models.GalleryQuery) error {
	c.mu.Lock()
	c.query = q
	c.mu.Unlock()
	return c.Reload(ctx)
}

// Reload fetches the listing again with the last query.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	q := c.query
	c.mu.Unlock()

	list, err := c.api.ListGallery(ctx, q)
	if err != nil {
		c.logger.Warn("failed to load gallery", zap.Error(err))
		return err
	}
	c.images.Replace(list.Images)
	return nil
}

// Images returns the last fetched listing.
func (c *Controller) Images() []models.GalleryImage {
	return c.images.All()
}

// ToggleFeatured flips the featured flag of id.
func (c *Controller) ToggleFeatured(ctx context.Context, id string) (models.GalleryImage, error) {
	img, ok := c.images.Get(id)
	if !ok {
		return models.GalleryImage{}, appErrors.Clone(appErrors.ErrNotFound, "image not found")
	}
	featured := !img.IsFeatured
	return c.Update(ctx, id, models.GalleryPatch{IsFeatured: &featured})
}

// Update applies patch on the backend, then locally.
func (c *Controller) Update(ctx context.Context, id string, patch models.GalleryPatch) (models.GalleryImage, error) {
	if patch.Category != nil && !validCategory(*patch.Category) {
		return models.GalleryImage{}, appErrors.Validation("invalid category", map[string]string{"category": "Unknown gallery category"})
	}
	if patch.Tags != nil {
		cleaned := apiclient.CleanTags(*patch.Tags)
		patch.Tags = &cleaned
	}
	confirmed, err := c.api.UpdateGalleryImage(context.WithoutCancel(ctx), id, patch)
	if err != nil {
		c.logger.Warn("gallery update failed", zap.String("id", id), zap.Error(err))
		return models.GalleryImage{}, &records.MutationError{Op: "update gallery image", ID: id, Err: err}
	}
	if !c.images.Update(id, func(img *models.GalleryImage) { applyPatch(img, patch) }) && confirmed != nil {
		return *confirmed, nil
	}
	img, _ := c.images.Get(id)
	return img, nil
}

// Delete removes id. Nothing happens unless the admin confirmed the deletion.
func (c *Controller) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return appErrors.Validation("deletion must be confirmed", map[string]string{"confirm": "Confirm the deletion first"})
	}
	if err := c.api.DeleteGalleryImage(context.WithoutCancel(ctx), id); err != nil {
		c.logger.Warn("gallery delete failed", zap.String("id", id), zap.Error(err))
		return &records.MutationError{Op: "delete gallery image", ID: id, Err: err}
	}
	c.images.Delete(id)
	return nil
}

// Stats returns the backend gallery figures.
func (c *Controller) Stats(ctx context.Context) (*models.GalleryStats, error) {
	return c.api.GalleryStats(ctx)
}

func applyPatch(img *models.GalleryImage, patch models.GalleryPatch) {
	if patch.Title != nil {
		img.Title = *patch.Title
	}
	if patch.Description != nil {
		img.Description = *patch.Description
	}
	if patch.Alt != nil {
		img.Alt = *patch.Alt
	}
	if patch.Category != nil {
		img.Category = *patch.Category
	}
	if patch.Tags != nil {
		img.Tags = *patch.Tags
	}
	if patch.IsFeatured != nil {
		img.IsFeatured = *patch.IsFeatured
	}
	if patch.IsActive != nil {
		img.IsActive = *patch.IsActive
	}
}

func validCategory(category string) bool {
	for _, c := range models.GalleryCategories {
		if c == category {
			return true
		}
	}
	return false
}
