package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/westgate-schools/admin-console/internal/models"
)

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if !decode(c, &req) {
		return
	}
	if req.Username != Username || req.Password != Password {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.mu.Lock()
	now := time.Now().UTC()
	s.admin.LastLogin = &now
	token := s.issueLocked()
	admin := s.admin
	s.mu.Unlock()
	success(c, http.StatusOK, models.LoginData{Admin: admin, Token: token, ExpiresIn: "24h"})
}

func (s *Server) logout(c *gin.Context) {
	s.mu.Lock()
	s.revoked[c.GetString("jti")] = true
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (s *Server) verify(c *gin.Context) {
	success(c, http.StatusOK, models.VerifyData{Admin: s.Admin()})
}

func (s *Server) listApplications(c *gin.Context) {
	status := c.Query("status")
	s.mu.Lock()
	out := make([]models.Application, 0, len(s.applications))
	for _, a := range s.applications {
		if status == "" || string(a.Status) == status {
			out = append(out, *a)
		}
	}
	s.mu.Unlock()
	success(c, http.StatusOK, models.ApplicationList{
		Applications: out,
		Pagination:   models.Pagination{Page: 1, Limit: len(out), Total: len(out), TotalPages: 1},
	})
}

func (s *Server) createApplication(c *gin.Context) {
	var req models.CreateApplicationRequest
	if !decode(c, &req) {
		return
	}
	if req.Student.FirstName == "" || req.Student.LastName == "" || req.Parent.Email == "" || req.Program == "" {
		fail(c, http.StatusBadRequest, "Missing required application fields")
		return
	}
	s.mu.Lock()
	app := &models.Application{
		ID:                uuid.NewString(),
		ApplicationNumber: s.nextApplicationNumberLocked(),
		Student:           req.Student,
		Program:           req.Program,
		Grade:             req.Grade,
		Parent:            req.Parent,
		PreviousSchool:    req.PreviousSchool,
		Additional:        req.Additional,
		Status:            models.ApplicationPending,
		SubmittedAt:       time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	s.applications = append(s.applications, app)
	created := *app
	s.mu.Unlock()
	success(c, http.StatusCreated, models.ApplicationData{Application: created})
}

func (s *Server) updateApplicationStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if !decode(c, &req) {
		return
	}
	if !models.ApplicationStatus(req.Status).Valid() {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applications {
		if a.ID == c.Param("id") {
			a.Status = models.ApplicationStatus(req.Status)
			if req.ReviewNotes != "" {
				a.ReviewNotes = req.ReviewNotes
			}
			a.UpdatedAt = time.Now().UTC()
			success(c, http.StatusOK, models.ApplicationData{Application: *a})
			return
		}
	}
	fail(c, http.StatusNotFound, "Application not found")
}

func (s *Server) applicationStats(c *gin.Context) {
	s.mu.Lock()
	var o models.ApplicationOverview
	for _, a := range s.applications {
		o.Total++
		switch a.Status {
		case models.ApplicationPending:
			o.Pending++
		case models.ApplicationReview:
			o.Review++
		case models.ApplicationApproved:
			o.Approved++
		case models.ApplicationRejected:
			o.Rejected++
		}
	}
	s.mu.Unlock()
	success(c, http.StatusOK, models.ApplicationStats{Overview: o})
}

func (s *Server) listMessages(c *gin.Context) {
	s.mu.Lock()
	out := make([]models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, *m)
	}
	s.mu.Unlock()
	success(c, http.StatusOK, models.MessageList{
		Messages:   out,
		Pagination: models.Pagination{Page: 1, Limit: len(out), Total: len(out), TotalPages: 1},
	})
}

func (s *Server) createMessage(c *gin.Context) {
	var req models.CreateMessageRequest
	if !decode(c, &req) {
		return
	}
	stored := s.SeedMessage(models.Message{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Subject:   req.Subject,
		Category:  req.Category,
		Body:      req.Body,
	})
	success(c, http.StatusCreated, models.MessageData{Message: stored})
}

func (s *Server) withMessage(c *gin.Context, mutate func(*models.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == c.Param("id") {
			mutate(m)
			m.UpdatedAt = time.Now().UTC()
			success(c, http.StatusOK, models.MessageData{Message: *m})
			return
		}
	}
	fail(c, http.StatusNotFound, "Message not found")
}

func (s *Server) updateMessageStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if !decode(c, &req) {
		return
	}
	if !models.MessageStatus(req.Status).Valid() {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}
	s.withMessage(c, func(m *models.Message) { m.Status = models.MessageStatus(req.Status) })
}

func (s *Server) respondMessage(c *gin.Context) {
	var req models.RespondRequest
	if !decode(c, &req) {
		return
	}
	if strings.TrimSpace(req.Response) == "" {
		fail(c, http.StatusBadRequest, "Response text is required")
		return
	}
	s.withMessage(c, func(m *models.Message) {
		now := time.Now().UTC()
		m.Response = req.Response
		m.Status = models.MessageReplied
		m.RespondedAt = &now
	})
}

func (s *Server) updateMessage(c *gin.Context) {
	var patch models.MessagePatch
	if !decode(c, &patch) {
		return
	}
	s.withMessage(c, func(m *models.Message) {
		if patch.Priority != nil {
			m.Priority = *patch.Priority
		}
		if patch.Category != nil {
			m.Category = *patch.Category
		}
		if patch.Status != nil {
			m.Status = *patch.Status
		}
	})
}

func (s *Server) messageStats(c *gin.Context) {
	s.mu.Lock()
	var o models.MessageOverview
	for _, m := range s.messages {
		o.Total++
		switch m.Status {
		case models.MessageUnread:
			o.Unread++
		case models.MessageRead:
			o.Read++
		case models.MessageReplied:
			o.Replied++
		}
	}
	s.mu.Unlock()
	success(c, http.StatusOK, models.MessageStats{Overview: o})
}

func (s *Server) listGallery(c *gin.Context) {
	category := c.Query("category")
	limit, _ := strconv.Atoi(c.Query("limit"))
	s.mu.Lock()
	out := make([]models.GalleryImage, 0, len(s.images))
	for _, img := range s.images {
		if category != "" && img.Category != category {
			continue
		}
		out = append(out, *img)
	}
	s.mu.Unlock()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	success(c, http.StatusOK, models.GalleryList{
		Images:     out,
		Pagination: models.Pagination{Page: 1, Limit: len(out), Total: len(out), TotalPages: 1},
	})
}

func (s *Server) uploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "Image file is required")
		return
	}
	title := strings.TrimSpace(c.PostForm("title"))
	alt := strings.TrimSpace(c.PostForm("alt"))
	if len(title) < 2 || len(alt) < 2 {
		fail(c, http.StatusBadRequest, "Title and alt text must be at least 2 characters")
		return
	}
	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			fail(c, http.StatusBadRequest, "Tags must be a JSON array")
			return
		}
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "Unreadable image")
		return
	}
	size, _ := io.Copy(io.Discard, f)
	_ = f.Close()

	id := uuid.NewString()
	base := "/uploads/gallery/" + id
	img := models.GalleryImage{
		ID:          id,
		Title:       title,
		Description: c.PostForm("description"),
		Alt:         alt,
		Category:    c.PostForm("category"),
		Tags:        tags,
		IsFeatured:  c.PostForm("isFeatured") == "true",
		IsActive:    true,
		URLs: models.ImageURLs{
			Thumbnail: base + "/thumbnail.webp",
			Medium:    base + "/medium.webp",
			Large:     base + "/large.webp",
			Original:  base + "/original" + filepath.Ext(fh.Filename),
		},
		Dimensions: models.Dimensions{Width: 1920, Height: 1080},
		Size:       size,
		Format:     strings.TrimPrefix(filepath.Ext(fh.Filename), "."),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	s.mu.Lock()
	s.images = append(s.images, &img)
	s.mu.Unlock()
	success(c, http.StatusCreated, models.GalleryImageData{Image: img})
}

func (s *Server) updateImage(c *gin.Context) {
	var patch models.GalleryPatch
	if !decode(c, &patch) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.ID != c.Param("id") {
			continue
		}
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
		img.UpdatedAt = time.Now().UTC()
		success(c, http.StatusOK, models.GalleryImageData{Image: *img})
		return
	}
	fail(c, http.StatusNotFound, "Image not found")
}

func (s *Server) deleteImage(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, img := range s.images {
		if img.ID == c.Param("id") {
			s.images = append(s.images[:i], s.images[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Image deleted"})
			return
		}
	}
	fail(c, http.StatusNotFound, "Image not found")
}

func (s *Server) galleryStats(c *gin.Context) {
	s.mu.Lock()
	stats := models.GalleryStats{ByCategory: map[string]int{}}
	for _, img := range s.images {
		stats.Total++
		stats.TotalSize += img.Size
		stats.ByCategory[img.Category]++
		if img.IsFeatured {
			stats.Featured++
		}
		if img.IsActive {
			stats.Active++
		}
	}
	s.mu.Unlock()
	success(c, http.StatusOK, stats)
}
