package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/records"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/export"
	"github.com/westgate-schools/admin-console/pkg/response"
)

type applicationController interface {
	FetchAll(ctx context.Context) error
	Status() (bool, *records.ListError)
	Filtered(f records.Filter) []models.Application
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes string) (models.Application, error)
	Open(id string) (models.Application, error)
	Close()
	Detail() (models.Application, bool)
	Actions(id string) []records.Action
}

// ApplicationRow is one line of the admin applications table.
type ApplicationRow struct {
	models.Application
	StatusLabel string           `json:"statusLabel"`
	Actions     []records.Action `json:"actions"`
}

// ApplicationListView is the admin applications page.
type ApplicationListView struct {
	Applications []ApplicationRow   `json:"applications"`
	Loading      bool               `json:"loading"`
	Error        *records.ListError `json:"error,omitempty"`
	Detail       *ApplicationRow    `json:"detail,omitempty"`
	Filter       records.Filter     `json:"filter"`
}

type statusPayload struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"reviewNotes"`
}

// ApplicationHandler exposes the admin applications area.
type ApplicationHandler struct {
	applications applicationController
	now          func() time.Time
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(applications applicationController) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, now: time.Now}
}

// List godoc
// @Summary List applications
// @Description Filters the fetched applications locally. The list is fetched from the backend on first use or when refresh is set.
// @Tags Applications
// @Produce json
// @Param status query string false "pending, review, approved, rejected or all"
// @Param category query string false "Program"
// @Param search query string false "Student name, parent email or application number"
// @Param refresh query bool false "Fetch the list again"
// @Success 200 {object} response.Envelope
// @Success 303 {object} response.Envelope
// @Router /admin/applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	var filter records.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter"))
		return
	}
	if !ensureFetched(c, h.applications, len(h.applications.Filtered(records.Filter{})) > 0) {
		return
	}

	loading, listErr := h.applications.Status()
	view := ApplicationListView{
		Applications: h.rows(h.applications.Filtered(filter)),
		Loading:      loading,
		Error:        listErr,
		Filter:       filter,
	}
	if app, ok := h.applications.Detail(); ok {
		row := h.row(app)
		view.Detail = &row
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Export godoc
// @Summary Export applications
// @Description Downloads the filtered applications as CSV, XLSX or PDF.
// @Tags Applications
// @Produce octet-stream
// @Param format query string false "csv, xlsx or pdf"
// @Param status query string false "Status filter"
// @Param category query string false "Program filter"
// @Param search query string false "Search term"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/applications/export [get]
func (h *ApplicationHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	var filter records.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter"))
		return
	}
	if !ensureFetched(c, h.applications, len(h.applications.Filtered(records.Filter{})) > 0) {
		return
	}

	base := "applications-" + h.now().UTC().Format("20060102")
	file, err := export.Render(format, base, applicationDataset(h.applications.Filtered(filter)))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Header("Content-Length", strconv.Itoa(len(file.Content)))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// Open godoc
// @Summary Open application detail
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/applications/{id}/view [get]
func (h *ApplicationHandler) Open(c *gin.Context) {
	app, err := h.applications.Open(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.row(app), nil)
}

// Close godoc
// @Summary Close application detail
// @Tags Applications
// @Param id path string true "Application ID"
// @Success 204
// @Router /admin/applications/{id}/view [delete]
func (h *ApplicationHandler) Close(c *gin.Context) {
	h.applications.Close()
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Decide an application
// @Description Persists the new status; the table changes only after the backend confirms.
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body statusPayload true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /admin/applications/{id}/status [put]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var payload statusPayload
	if !bindJSON(c, &payload, "invalid status payload") {
		return
	}
	app, err := h.applications.UpdateStatus(c.Request.Context(), c.Param("id"), models.ApplicationStatus(payload.Status), payload.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.row(app), nil)
}

func (h *ApplicationHandler) rows(apps []models.Application) []ApplicationRow {
	rows := make([]ApplicationRow, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, h.row(app))
	}
	return rows
}

func (h *ApplicationHandler) row(app models.Application) ApplicationRow {
	return ApplicationRow{Application: app, StatusLabel: app.Status.Label(), Actions: h.applications.Actions(app.ID)}
}

func applicationDataset(apps []models.Application) export.Dataset {
	data := export.Dataset{
		Title:   "Admissions applications",
		Headers: []string{"Application #", "Student", "Program", "Grade", "Parent", "Email", "Phone", "Status", "Submitted"},
		Rows:    make([][]string, 0, len(apps)),
	}
	for _, app := range apps {
		submitted := ""
		if !app.SubmittedAt.IsZero() {
			submitted = app.SubmittedAt.Format("2006-01-02")
		}
		data.Rows = append(data.Rows, []string{
			app.ApplicationNumber,
			app.Student.FirstName + " " + app.Student.LastName,
			app.Program,
			app.Grade,
			app.Parent.FirstName + " " + app.Parent.LastName,
			app.Parent.Email,
			app.Parent.Phone,
			app.Status.Label(),
			submitted,
		})
	}
	return data
}
