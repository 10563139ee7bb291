package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/westgate-schools/admin-console/internal/models"
)

// ListApplications fetches applications matching q.
func (c *Client) ListApplications(ctx context.Context, q models.ListQuery) (*models.ApplicationList, error) {
	var env models.Envelope[models.ApplicationList]
	query := listQuery(q.Page, q.Limit, "status", q.Status, "program", q.Category, "search", q.Search, "sortBy", q.SortBy, "sortOrder", q.SortOrder)
	if err := c.Do(ctx, Request{Endpoint: "/applications", Query: query, RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// CreateApplication submits a public admissions application.
func (c *Client) CreateApplication(ctx context.Context, req models.CreateApplicationRequest) (*models.Application, error) {
	var env models.Envelope[models.ApplicationData]
	if err := c.Do(ctx, Request{Endpoint: "/applications", Method: http.MethodPost, Body: req}, &env); err != nil {
		return nil, err
	}
	return &env.Data.Application, nil
}

// UpdateApplicationStatus moves an application to status.
func (c *Client) UpdateApplicationStatus(ctx context.Context, id string, req models.UpdateStatusRequest) (*models.Application, error) {
	var env models.Envelope[models.ApplicationData]
	endpoint := "/applications/" + url.PathEscape(id) + "/status"
	if err := c.Do(ctx, Request{Endpoint: endpoint, Method: http.MethodPut, Body: req, RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data.Application, nil
}

// ApplicationStats returns per status counts.
func (c *Client) ApplicationStats(ctx context.Context) (*models.ApplicationStats, error) {
	var env models.Envelope[models.ApplicationStats]
	if err := c.Do(ctx, Request{Endpoint: "/applications/stats", RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}
