package models

import "time"

// GalleryCategories lists the eleven accepted gallery categories.
var GalleryCategories = []string{
	"campus",
	"classrooms",
	"sports",
	"events",
	"arts",
	"science",
	"library",
	"graduation",
	"cultural",
	"excursions",
	"general",
}

// DefaultGalleryCategory is assigned to freshly selected files.
const DefaultGalleryCategory = "campus"

// ImageURLs are the renditions derived by the backend.
type ImageURLs struct {
	Thumbnail string `json:"thumbnail"`
	Medium    string `json:"medium"`
	Large     string `json:"large"`
	Original  string `json:"original"`
}

// Dimensions of the original upload.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GalleryImage is a published gallery image.
type GalleryImage struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Alt         string     `json:"alt"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	IsFeatured  bool       `json:"isFeatured"`
	IsActive    bool       `json:"isActive"`
	URLs        ImageURLs  `json:"urls"`
	Dimensions  Dimensions `json:"dimensions"`
	Size        int64      `json:"size"`
	Format      string     `json:"format"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// GalleryQuery are the public listing parameters.
type GalleryQuery struct {
	Category  string
	SortBy    string
	SortOrder string
	IsActive  *bool
	Limit     int
}

// GalleryPatch is a partial update of a gallery image.
type GalleryPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Alt         *string   `json:"alt,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	IsFeatured  *bool     `json:"isFeatured,omitempty"`
	IsActive    *bool     `json:"isActive,omitempty"`
}

// GalleryList is the data of GET /gallery.
type GalleryList struct {
	Images     []GalleryImage `json:"images"`
	Pagination Pagination     `json:"pagination"`
}

// GalleryImageData wraps a single image.
type GalleryImageData struct {
	Image GalleryImage `json:"image"`
}

// GalleryStats is the data of GET /gallery/stats.
type GalleryStats struct {
	Total      int            `json:"total"`
	Featured   int            `json:"featured"`
	Active     int            `json:"active"`
	TotalSize  int64          `json:"totalSize"`
	ByCategory map[string]int `json:"byCategory"`
}
