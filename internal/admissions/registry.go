package admissions

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

// Registry keeps the wizards of visitors currently filling in the form.
type Registry struct {
	api       applicationCreator
	slips     slipIssuer
	validator *validator.Validate
	defaults  Defaults
	logger    *zap.Logger

	mu      sync.Mutex
	wizards map[string]*Wizard
}

// NewRegistry builds a registry. now is the clock used for date of birth
// checks; nil means time.Now.
func NewRegistry(api applicationCreator, slips slipIssuer, validate *validator.Validate, defaults Defaults, logger *zap.Logger, now func() time.Time) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if now == nil {
		now = time.Now
	}
	if err := registerRules(validate, now); err != nil {
		return nil, err
	}
	return &Registry{
		api:       api,
		slips:     slips,
		validator: validate,
		defaults:  defaults,
		logger:    logger,
		wizards:   make(map[string]*Wizard),
	}, nil
}

// Create starts a new wizard.
func (r *Registry) Create() *Wizard {
	w := newWizard(uuid.NewString(), r.api, r.slips, r.validator, r.defaults, r.logger)
	r.mu.Lock()
	r.wizards[w.id] = w
	r.mu.Unlock()
	return w
}

// Get returns the wizard with id.
func (r *Registry) Get(id string) (*Wizard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wizards[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application form not found")
	}
	return w, nil
}

// Sweep drops wizards untouched for longer than idle and returns how many
// were removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, w := range r.wizards {
		w.mu.Lock()
		stale := w.touched.Before(cutoff) && !w.submitting
		w.mu.Unlock()
		if stale {
			delete(r.wizards, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle wizards every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.Debug("swept idle application forms", zap.Int("count", n))
			}
		}
	}
}
