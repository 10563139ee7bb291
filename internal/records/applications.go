package records

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

type applicationsAPI interface {
	ListApplications(ctx context.Context, q models.ListQuery) (*models.ApplicationList, error)
	UpdateApplicationStatus(ctx context.Context, id string, req models.UpdateStatusRequest) (*models.Application, error)
	ApplicationStats(ctx context.Context) (*models.ApplicationStats, error)
}

// Action is a status transition offered for a record.
type Action struct {
	Name   string                   `json:"name"`
	Label  string                   `json:"label"`
	Status models.ApplicationStatus `json:"status"`
}

var pendingActions = []Action{
	{Name: "approve", Label: "Approve", Status: models.ApplicationApproved},
	{Name: "reject", Label: "Reject", Status: models.ApplicationRejected},
	{Name: "review", Label: "Mark for Review", Status: models.ApplicationReview},
}

// Applications is the admin view of admissions applications.
type Applications struct {
	api    applicationsAPI
	logger *zap.Logger
	*collection[models.Application]
}

// NewApplications constructs the applications controller.
func NewApplications(api applicationsAPI, logger *zap.Logger) *Applications {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applications{
		api:        api,
		logger:     logger,
		collection: newCollection(func(a models.Application) string { return a.ID }),
	}
}

// Store exposes the fetched applications.
func (a *Applications) Store() *Store[models.Application] {
	return a.store
}

// FetchAll reloads every application from the backend.
func (a *Applications) FetchAll(ctx context.Context) error {
	err := a.fetch(ctx, func(ctx context.Context) ([]models.Application, error) {
		list, err := a.api.ListApplications(ctx, models.ListQuery{})
		if err != nil {
			return nil, err
		}
		return list.Applications, nil
	})
	if err != nil {
		a.logger.Warn("failed to fetch applications", zap.Error(err))
	}
	return err
}

// Status returns whether a fetch is running and the last list error.
func (a *Applications) Status() (bool, *ListError) {
	return a.status()
}

// Filtered returns the fetched applications matching f. Category matches the
// program; search covers the student name, parent email and application number.
func (a *Applications) Filtered(f Filter) []models.Application {
	out := make([]models.Application, 0)
	for _, app := range a.store.All() {
		name := app.Student.FirstName + " " + app.Student.LastName
		if f.match(string(app.Status), app.Program, name, app.Parent.Email, app.ApplicationNumber) {
			out = append(out, app)
		}
	}
	return out
}

// UpdateStatus persists a new status and, once the backend confirms it,
// applies it to the list and to the detail view.
func (a *Applications) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes string) (models.Application, error) {
	if !status.Valid() {
		return models.Application{}, appErrors.Validation("invalid status", map[string]string{"status": "must be one of pending, review, approved, rejected"})
	}
	if err := a.checkDecision(id, status); err != nil {
		return models.Application{}, err
	}
	confirmed, err := a.api.UpdateApplicationStatus(context.WithoutCancel(ctx), id, models.UpdateStatusRequest{Status: string(status), ReviewNotes: notes})
	if err != nil {
		a.logger.Warn("application status update failed", zap.String("id", id), zap.Error(err))
		return models.Application{}, &MutationError{Op: "update application status", ID: id, Err: err}
	}

	a.store.Update(id, func(app *models.Application) {
		app.Status = status
		if notes != "" {
			app.ReviewNotes = notes
		}
		if confirmed != nil && !confirmed.UpdatedAt.IsZero() {
			app.UpdatedAt = confirmed.UpdatedAt
		} else {
			app.UpdatedAt = time.Now().UTC()
		}
	})
	if app, ok := a.store.Get(id); ok {
		return app, nil
	}
	if confirmed != nil {
		return *confirmed, nil
	}
	return models.Application{ID: id, Status: status}, nil
}

// checkDecision refuses transitions the list does not offer: only a loaded,
// pending application can be approved, rejected or marked for review.
func (a *Applications) checkDecision(id string, status models.ApplicationStatus) error {
	app, ok := a.store.Get(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	if app.Status != models.ApplicationPending {
		return appErrors.Clone(appErrors.ErrConflict, "application is "+strings.ToLower(app.Status.Label())+", only pending applications can be decided")
	}
	for _, action := range pendingActions {
		if action.Status == status {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrConflict, "application is already pending")
}

// Open shows the detail view for id.
func (a *Applications) Open(id string) (models.Application, error) {
	return a.open(id)
}

// Close dismisses the detail view.
func (a *Applications) Close() {
	a.close()
}

// Detail returns the application in the detail view, if one is open.
func (a *Applications) Detail() (models.Application, bool) {
	return a.detail()
}

// Actions lists the transitions available for id. Only pending applications
// can be decided.
func (a *Applications) Actions(id string) []Action {
	app, ok := a.store.Get(id)
	if !ok || app.Status != models.ApplicationPending {
		return []Action{}
	}
	return append([]Action(nil), pendingActions...)
}

// Stats fetches the per-status counters.
func (a *Applications) Stats(ctx context.Context) (*models.ApplicationOverview, error) {
	stats, err := a.api.ApplicationStats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats.Overview, nil
}
