package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/records"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/response"
)

type messageController interface {
	FetchAll(ctx context.Context) error
	Status() (bool, *records.ListError)
	Filtered(f records.Filter) []models.Message
	UpdateStatus(ctx context.Context, id string, status models.MessageStatus) (models.Message, error)
	OpenAndMarkRead(ctx context.Context, id string) (models.Message, error)
	Respond(ctx context.Context, id, text string) (models.Message, error)
	Update(ctx context.Context, id string, patch models.MessagePatch) (models.Message, error)
	Close()
	Detail() (models.Message, bool)
}

type messageCreator interface {
	CreateMessage(ctx context.Context, req models.CreateMessageRequest) (*models.Message, error)
}

// MessageListView is the admin inbox page.
type MessageListView struct {
	Messages []models.Message   `json:"messages"`
	Loading  bool               `json:"loading"`
	Error    *records.ListError `json:"error,omitempty"`
	Detail   *models.Message    `json:"detail,omitempty"`
	Filter   records.Filter     `json:"filter"`
}

type messageStatusPayload struct {
	Status string `json:"status" binding:"required"`
}

// MessageHandler exposes the inbox and the public contact form.
type MessageHandler struct {
	messages  messageController
	creator   messageCreator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(messages messageController, creator messageCreator, validate *validator.Validate, logger *zap.Logger) *MessageHandler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageHandler{messages: messages, creator: creator, validator: validate, logger: logger}
}

// Contact godoc
// @Summary Send a contact message
// @Tags Contact
// @Accept json
// @Produce json
// @Param payload body models.CreateMessageRequest true "Contact form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /contact [post]
func (h *MessageHandler) Contact(c *gin.Context) {
	var req models.CreateMessageRequest
	if !bindJSON(c, &req, "invalid contact payload") {
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Body = strings.TrimSpace(req.Body)
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Validation("please complete the contact form", contactFieldErrors(err)))
		return
	}

	msg, err := h.creator.CreateMessage(context.WithoutCancel(c.Request.Context()), req)
	if err != nil {
		h.logger.Warn("contact message rejected", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// List godoc
// @Summary List contact messages
// @Tags Messages
// @Produce json
// @Param status query string false "unread, read, replied or all"
// @Param category query string false "Message category"
// @Param search query string false "Name, email or subject"
// @Param refresh query bool false "Fetch the list again"
// @Success 200 {object} response.Envelope
// @Router /admin/messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	var filter records.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter"))
		return
	}
	if !ensureFetched(c, h.messages, len(h.messages.Filtered(records.Filter{})) > 0) {
		return
	}

	loading, listErr := h.messages.Status()
	view := MessageListView{
		Messages: h.messages.Filtered(filter),
		Loading:  loading,
		Error:    listErr,
		Filter:   filter,
	}
	if msg, ok := h.messages.Detail(); ok {
		view.Detail = &msg
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Open godoc
// @Summary Open a message
// @Description Shows the message and marks it read when it was unread.
// @Tags Messages
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/messages/{id}/open [post]
func (h *MessageHandler) Open(c *gin.Context) {
	msg, err := h.messages.OpenAndMarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// Close godoc
// @Summary Close the message detail
// @Tags Messages
// @Param id path string true "Message ID"
// @Success 204
// @Router /admin/messages/{id}/view [delete]
func (h *MessageHandler) Close(c *gin.Context) {
	h.messages.Close()
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Change a message status
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param payload body messageStatusPayload true "New status"
// @Success 200 {object} response.Envelope
// @Router /admin/messages/{id}/status [put]
func (h *MessageHandler) UpdateStatus(c *gin.Context) {
	var payload messageStatusPayload
	if !bindJSON(c, &payload, "invalid status payload") {
		return
	}
	msg, err := h.messages.UpdateStatus(c.Request.Context(), c.Param("id"), models.MessageStatus(payload.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// Respond godoc
// @Summary Reply to a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param payload body models.RespondRequest true "Reply"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/messages/{id}/respond [put]
func (h *MessageHandler) Respond(c *gin.Context) {
	var payload models.RespondRequest
	if !bindJSON(c, &payload, "invalid reply payload") {
		return
	}
	msg, err := h.messages.Respond(c.Request.Context(), c.Param("id"), payload.Response)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// Update godoc
// @Summary Update message priority, category or status
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param payload body models.MessagePatch true "Changes"
// @Success 200 {object} response.Envelope
// @Router /admin/messages/{id} [put]
func (h *MessageHandler) Update(c *gin.Context) {
	var patch models.MessagePatch
	if !bindJSON(c, &patch, "invalid message payload") {
		return
	}
	msg, err := h.messages.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

func contactFieldErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		if fe.Field() == "Body" {
			name = "message"
		}
		switch fe.Tag() {
		case "required":
			fields[name] = "This field is required"
		case "email":
			fields[name] = "Enter a valid email address"
		case "min":
			fields[name] = "Must be at least " + fe.Param() + " characters"
		default:
			fields[name] = "Invalid value"
		}
	}
	return fields
}
