package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/admissions"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/response"
)

type wizardRegistry interface {
	Create() *admissions.Wizard
	Get(id string) (*admissions.Wizard, error)
}

type slipOpener interface {
	Open(token string) (io.ReadSeekCloser, os.FileInfo, string, error)
}

type keyPayload struct {
	Key string `json:"key" binding:"required"`
}

// AdmissionsHandler drives the public application wizard.
type AdmissionsHandler struct {
	wizards wizardRegistry
	slips   slipOpener
}

// NewAdmissionsHandler constructs the handler.
func NewAdmissionsHandler(wizards wizardRegistry, slips slipOpener) *AdmissionsHandler {
	return &AdmissionsHandler{wizards: wizards, slips: slips}
}

// Create godoc
// @Summary Start an application
// @Tags Admissions
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /apply/wizards [post]
func (h *AdmissionsHandler) Create(c *gin.Context) {
	response.Created(c, h.wizards.Create().View())
}

// Get godoc
// @Summary Current wizard state
// @Tags Admissions
// @Produce json
// @Param id path string true "Wizard ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /apply/wizards/{id} [get]
func (h *AdmissionsHandler) Get(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, w.View(), nil)
}

// SetFields godoc
// @Summary Save entered values
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Wizard ID"
// @Param payload body admissions.Form true "Form values"
// @Success 200 {object} response.Envelope
// @Router /apply/wizards/{id}/fields [put]
func (h *AdmissionsHandler) SetFields(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	var form admissions.Form
	if !bindJSON(c, &form, "invalid form payload") {
		return
	}
	response.JSON(c, http.StatusOK, w.SetForm(form), nil)
}

// Next godoc
// @Summary Continue to the next step
// @Description Validates the current step. Field errors are returned with the view.
// @Tags Admissions
// @Produce json
// @Param id path string true "Wizard ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /apply/wizards/{id}/next [post]
func (h *AdmissionsHandler) Next(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	view, err := w.Next()
	respondView(c, http.StatusOK, view, err)
}

// Back godoc
// @Summary Return to the previous step
// @Tags Admissions
// @Produce json
// @Param id path string true "Wizard ID"
// @Success 200 {object} response.Envelope
// @Router /apply/wizards/{id}/back [post]
func (h *AdmissionsHandler) Back(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, w.Back(), nil)
}

// Key godoc
// @Summary Forward a keystroke
// @Description Enter advances on steps 1 to 3 and submits on step 4. Other keys are ignored.
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Wizard ID"
// @Param payload body keyPayload true "Key"
// @Success 200 {object} response.Envelope
// @Router /apply/wizards/{id}/keys [post]
func (h *AdmissionsHandler) Key(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	var payload keyPayload
	if !bindJSON(c, &payload, "invalid key payload") {
		return
	}
	view, err := w.Key(c.Request.Context(), payload.Key)
	respondView(c, http.StatusOK, view, err)
}

// Submit godoc
// @Summary Submit the application
// @Tags Admissions
// @Produce json
// @Param id path string true "Wizard ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /apply/wizards/{id}/submit [post]
func (h *AdmissionsHandler) Submit(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	view, err := w.Submit(c.Request.Context())
	respondView(c, http.StatusCreated, view, err)
}

// Slip godoc
// @Summary Download a confirmation slip
// @Tags Admissions
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /apply/slips/{token} [get]
func (h *AdmissionsHandler) Slip(c *gin.Context) {
	file, info, name, err := h.slips.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}

func (h *AdmissionsHandler) wizard(c *gin.Context) (*admissions.Wizard, bool) {
	w, err := h.wizards.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return w, true
}

// respondView sends the wizard view together with the error, if any, so the
// form can show field messages next to the entered values.
func respondView(c *gin.Context, status int, view admissions.View, err error) {
	if err == nil {
		response.JSON(c, status, view, nil)
		return
	}
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, response.Envelope{Data: view, Error: appErr})
}
