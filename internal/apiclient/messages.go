package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/westgate-schools/admin-console/internal/models"
)

// ListMessages fetches inbox messages matching q.
func (c *Client) ListMessages(ctx context.Context, q models.ListQuery) (*models.MessageList, error) {
	var env models.Envelope[models.MessageList]
	query := listQuery(q.Page, q.Limit, "status", q.Status, "category", q.Category, "search", q.Search, "sortBy", q.SortBy, "sortOrder", q.SortOrder)
	if err := c.Do(ctx, Request{Endpoint: "/messages", Query: query, RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// CreateMessage posts a public contact form message.
func (c *Client) CreateMessage(ctx context.Context, req models.CreateMessageRequest) (*models.Message, error) {
	var env models.Envelope[models.MessageData]
	if err := c.Do(ctx, Request{Endpoint: "/messages", Method: http.MethodPost, Body: req}, &env); err != nil {
		return nil, err
	}
	return &env.Data.Message, nil
}

// UpdateMessageStatus moves a message to status.
func (c *Client) UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus) (*models.Message, error) {
	var env models.Envelope[models.MessageData]
	endpoint := "/messages/" + url.PathEscape(id) + "/status"
	body := models.UpdateStatusRequest{Status: string(status)}
	if err := c.Do(ctx, Request{Endpoint: endpoint, Method: http.MethodPut, Body: body, RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data.Message, nil
}

// RespondToMessage stores a reply; the backend marks the message replied.
func (c *Client) RespondToMessage(ctx context.Context, id, response string) (*models.Message, error) {
	var env models.Envelope[models.MessageData]
	endpoint := "/messages/" + url.PathEscape(id) + "/respond"
	if err := c.Do(ctx, Request{Endpoint: endpoint, Method: http.MethodPut, Body: models.RespondRequest{Response: response}, RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data.Message, nil
}

// UpdateMessage applies a partial update.
func (c *Client) UpdateMessage(ctx context.Context, id string, patch models.MessagePatch) (*models.Message, error) {
	var env models.Envelope[models.MessageData]
	if err := c.Do(ctx, Request{Endpoint: "/messages/" + url.PathEscape(id), Method: http.MethodPut, Body: patch, RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data.Message, nil
}

// MessageStats returns per status counts.
func (c *Client) MessageStats(ctx context.Context) (*models.MessageStats, error) {
	var env models.Envelope[models.MessageStats]
	if err := c.Do(ctx, Request{Endpoint: "/messages/stats", RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}
