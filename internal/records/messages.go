package records

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

type messagesAPI interface {
	ListMessages(ctx context.Context, q models.ListQuery) (*models.MessageList, error)
	UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) (*models.Message, error)
	RespondToMessage(ctx context.Context, id, response string) (*models.Message, error)
	UpdateMessage(ctx context.Context, id string, patch models.MessagePatch) (*models.Message, error)
	MessageStats(ctx context.Context) (*models.MessageStats, error)
}

// Messages is the admin inbox of contact messages.
type Messages struct {
	api    messagesAPI
	logger *zap.Logger
	*collection[models.Message]
}

// NewMessages constructs the messages controller.
func NewMessages(api messagesAPI, logger *zap.Logger) *Messages {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messages{
		api:        api,
		logger:     logger,
		collection: newCollection(func(m models.Message) string { return m.ID }),
	}
}

// Store exposes the fetched messages.
func (m *Messages) Store() *Store[models.Message] {
	return m.store
}

// FetchAll reloads the inbox.
func (m *Messages) FetchAll(ctx context.Context) error {
	err := m.fetch(ctx, func(ctx context.Context) ([]models.Message, error) {
		list, err := m.api.ListMessages(ctx, models.ListQuery{})
		if err != nil {
			return nil, err
		}
		return list.Messages, nil
	})
	if err != nil {
		m.logger.Warn("failed to fetch messages", zap.Error(err))
	}
	return err
}

// Status returns whether a fetch is running and the last list error.
func (m *Messages) Status() (bool, *ListError) {
	return m.status()
}

// Filtered returns the messages matching f. Search covers the sender name,
// email and subject.
func (m *Messages) Filtered(f Filter) []models.Message {
	out := make([]models.Message, 0)
	for _, msg := range m.store.All() {
		name := msg.FirstName + " " + msg.LastName
		if f.match(string(msg.Status), msg.Category, name, msg.Email, msg.Subject) {
			out = append(out, msg)
		}
	}
	return out
}

// UpdateStatus persists status and applies it locally once confirmed.
func (m *Messages) UpdateStatus(ctx context.Context, id string, status models.MessageStatus) (models.Message, error) {
	if !status.Valid() {
		return models.Message{}, appErrors.Validation("invalid status", map[string]string{"status": "must be one of unread, read, replied"})
	}
	if err := m.checkStatusChange(id, status); err != nil {
		return models.Message{}, err
	}
	if _, err := m.api.UpdateMessageStatus(context.WithoutCancel(ctx), id, status); err != nil {
		m.logger.Warn("message status update failed", zap.String("id", id), zap.Error(err))
		return models.Message{}, &MutationError{Op: "update message status", ID: id, Err: err}
	}
	m.store.Update(id, func(msg *models.Message) {
		msg.Status = status
		msg.UpdatedAt = time.Now().UTC()
	})
	msg, _ := m.store.Get(id)
	return msg, nil
}

// OpenAndMarkRead opens the detail view of id and, when the message is
// unread, marks it read. A failed mark leaves the view open and is returned.
func (m *Messages) OpenAndMarkRead(ctx context.Context, id string) (models.Message, error) {
	msg, err := m.open(id)
	if err != nil {
		return models.Message{}, err
	}
	if msg.Status != models.MessageUnread {
		return msg, nil
	}
	updated, err := m.UpdateStatus(ctx, id, models.MessageRead)
	if err != nil {
		return msg, err
	}
	return updated, nil
}

// Respond stores a reply. Blank replies are rejected before any network call.
func (m *Messages) Respond(ctx context.Context, id, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, appErrors.Validation("response text is required", map[string]string{"response": "Response cannot be empty"})
	}
	confirmed, err := m.api.RespondToMessage(context.WithoutCancel(ctx), id, text)
	if err != nil {
		m.logger.Warn("message reply failed", zap.String("id", id), zap.Error(err))
		return models.Message{}, &MutationError{Op: "respond to message", ID: id, Err: err}
	}
	m.store.Update(id, func(msg *models.Message) {
		msg.Status = models.MessageReplied
		msg.Response = text
		if confirmed != nil && confirmed.RespondedAt != nil {
			msg.RespondedAt = confirmed.RespondedAt
		} else {
			now := time.Now().UTC()
			msg.RespondedAt = &now
		}
	})
	msg, _ := m.store.Get(id)
	return msg, nil
}

// Update applies a partial change such as a new priority.
func (m *Messages) Update(ctx context.Context, id string, patch models.MessagePatch) (models.Message, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Message{}, appErrors.Validation("invalid status", map[string]string{"status": "must be one of unread, read, replied"})
	}
	if patch.Status != nil {
		if err := m.checkStatusChange(id, *patch.Status); err != nil {
			return models.Message{}, err
		}
	}
	if _, err := m.api.UpdateMessage(context.WithoutCancel(ctx), id, patch); err != nil {
		m.logger.Warn("message update failed", zap.String("id", id), zap.Error(err))
		return models.Message{}, &MutationError{Op: "update message", ID: id, Err: err}
	}
	m.store.Update(id, func(msg *models.Message) {
		if patch.Priority != nil {
			msg.Priority = *patch.Priority
		}
		if patch.Category != nil {
			msg.Category = *patch.Category
		}
		if patch.Status != nil {
			msg.Status = *patch.Status
		}
	})
	msg, _ := m.store.Get(id)
	return msg, nil
}

// checkStatusChange refuses to reopen a replied message and to mark one
// replied without a response; replies go through Respond.
func (m *Messages) checkStatusChange(id string, status models.MessageStatus) error {
	if status == models.MessageReplied {
		return appErrors.Clone(appErrors.ErrConflict, "use the reply action to answer a message")
	}
	msg, ok := m.store.Get(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "message not found")
	}
	if msg.Status == models.MessageReplied {
		return appErrors.Clone(appErrors.ErrConflict, "message has already been replied to")
	}
	return nil
}

// Close dismisses the detail view.
func (m *Messages) Close() {
	m.close()
}

// Detail returns the message in the detail view, if one is open.
func (m *Messages) Detail() (models.Message, bool) {
	return m.detail()
}

// Stats fetches the per-status counters.
func (m *Messages) Stats(ctx context.Context) (*models.MessageOverview, error) {
	stats, err := m.api.MessageStats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats.Overview, nil
}
