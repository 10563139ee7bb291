// Package admissions implements the public admissions application wizard.
package admissions

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

// TotalSteps is the number of wizard steps.
const TotalSteps = 4

// KeyEnter is the key that advances or submits the wizard.
const KeyEnter = "Enter"

var stepTitles = [TotalSteps]string{
	"Student Information",
	"Parent/Guardian Information",
	"Previous School",
	"Additional Information",
}

type applicationCreator interface {
	CreateApplication(ctx context.Context, req models.CreateApplicationRequest) (*models.Application, error)
}

type slipIssuer interface {
	Issue(app models.Application) (*Receipt, error)
}

// Confirmation is shown after a successful submission.
type Confirmation struct {
	ApplicationNumber string     `json:"applicationNumber"`
	SlipURL           string     `json:"slipUrl,omitempty"`
	SlipExpiresAt     *time.Time `json:"slipExpiresAt,omitempty"`
}

// View is the render state of a wizard.
type View struct {
	ID           string            `json:"id"`
	Step         int               `json:"step"`
	TotalSteps   int               `json:"totalSteps"`
	StepTitle    string            `json:"stepTitle"`
	Form         Form              `json:"form"`
	Errors       map[string]string `json:"errors"`
	Submitting   bool              `json:"submitting"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
}

// Defaults pre-fill a fresh form and complete the submission.
type Defaults struct {
	Nationality string
}

// Wizard collects one application across four steps.
type Wizard struct {
	id        string
	api       applicationCreator
	slips     slipIssuer
	validator *validator.Validate
	defaults  Defaults
	logger    *zap.Logger

	mu           sync.Mutex
	step         int
	form         Form
	errors       map[string]string
	submitting   bool
	confirmation *Confirmation
	touched      time.Time
}

func newWizard(id string, api applicationCreator, slips slipIssuer, v *validator.Validate, defaults Defaults, logger *zap.Logger) *Wizard {
	return &Wizard{
		id:        id,
		api:       api,
		slips:     slips,
		validator: v,
		defaults:  defaults,
		logger:    logger,
		step:      1,
		form:      blankForm(defaults),
		errors:    map[string]string{},
		touched:   time.Now(),
	}
}

func blankForm(defaults Defaults) Form {
	return Form{Student: StudentFields{Nationality: defaults.Nationality}}
}

// View returns the current render state.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// SetForm replaces the entered values. Field errors stay until the next
// validation.
func (w *Wizard) SetForm(form Form) View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form = form
	w.touched = time.Now()
	return w.viewLocked()
}

// Next validates the current step and advances when it is complete.
func (w *Wizard) Next() (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touched = time.Now()
	if errs := w.validateStep(w.step); len(errs) > 0 {
		w.errors = errs
		return w.viewLocked(), appErrors.Validation(stepTitles[w.step-1]+" is incomplete", errs)
	}
	w.errors = map[string]string{}
	if w.step < TotalSteps {
		w.step++
	}
	return w.viewLocked(), nil
}

// Back returns to the previous step without validating.
func (w *Wizard) Back() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touched = time.Now()
	if w.step > 1 {
		w.step--
	}
	w.errors = map[string]string{}
	return w.viewLocked()
}

// Key handles a keystroke. Enter advances on every step but the last, where it
// submits. Other keys are ignored.
func (w *Wizard) Key(ctx context.Context, key string) (View, error) {
	if key != KeyEnter {
		return w.View(), nil
	}
	w.mu.Lock()
	last := w.step == TotalSteps
	w.mu.Unlock()
	if !last {
		return w.Next()
	}
	return w.Submit(ctx)
}

// Submit sends the application. It is refused before the final step.
func (w *Wizard) Submit(ctx context.Context) (View, error) {
	w.mu.Lock()
	if w.step != TotalSteps {
		view := w.viewLocked()
		w.mu.Unlock()
		return view, appErrors.Clone(appErrors.ErrValidation, "complete every step before submitting")
	}
	if w.submitting {
		view := w.viewLocked()
		w.mu.Unlock()
		return view, appErrors.Clone(appErrors.ErrConflict, "application is already being submitted")
	}
	for step := 1; step < TotalSteps; step++ {
		if errs := w.validateStep(step); len(errs) > 0 {
			w.step = step
			w.errors = errs
			view := w.viewLocked()
			w.mu.Unlock()
			return view, appErrors.Validation(stepTitles[step-1]+" is incomplete", errs)
		}
	}
	req := w.request()
	w.submitting = true
	w.confirmation = nil
	w.mu.Unlock()

	// A parent closing the tab must not turn a persisted application into a
	// failure they would submit again.
	created, err := w.api.CreateApplication(context.WithoutCancel(ctx), req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	w.touched = time.Now()
	if err != nil {
		w.logger.Warn("application submission failed", zap.String("wizard", w.id), zap.Error(err))
		return w.viewLocked(), err
	}

	confirmation := &Confirmation{ApplicationNumber: created.ApplicationNumber}
	if w.slips != nil {
		receipt, err := w.slips.Issue(*created)
		if err != nil {
			w.logger.Error("failed to issue confirmation slip", zap.String("applicationNumber", created.ApplicationNumber), zap.Error(err))
		} else {
			confirmation.SlipURL = receipt.URL
			expires := receipt.ExpiresAt
			confirmation.SlipExpiresAt = &expires
		}
	}

	w.form = blankForm(w.defaults)
	w.step = 1
	w.errors = map[string]string{}
	w.confirmation = confirmation
	w.logger.Info("application submitted", zap.String("applicationNumber", created.ApplicationNumber))
	return w.viewLocked(), nil
}

func (w *Wizard) validateStep(step int) map[string]string {
	var (
		err     error
		section string
		subject interface{}
	)
	switch step {
	case 1:
		s := w.form.Student.trimmed()
		section, subject, err = "student", s, w.validator.Struct(s)
	case 2:
		p := w.form.Parent.trimmed()
		section, subject, err = "parent", p, w.validator.Struct(p)
	default:
		return nil
	}
	if err == nil {
		return nil
	}
	return fieldErrors(section, subject, err)
}

func (w *Wizard) request() models.CreateApplicationRequest {
	s := w.form.Student.trimmed()
	p := w.form.Parent.trimmed()
	dob, _ := time.Parse(dateLayout, s.DateOfBirth)

	return models.CreateApplicationRequest{
		Student: models.StudentInfo{
			FirstName:   s.FirstName,
			MiddleName:  s.MiddleName,
			LastName:    s.LastName,
			DateOfBirth: dob,
			Gender:      s.Gender,
			Nationality: s.Nationality,
		},
		Program: s.Program,
		Grade:   s.Grade,
		Parent: models.ParentInfo{
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			Relationship: p.Relationship,
			Email:        p.Email,
			Phone:        p.Phone,
			Occupation:   p.Occupation,
			Address:      p.Address,
			City:         p.City,
		},
		PreviousSchool: models.PreviousSchool{
			Name:             strings.TrimSpace(w.form.School.Name),
			LastGrade:        strings.TrimSpace(w.form.School.LastGrade),
			ReasonForLeaving: strings.TrimSpace(w.form.School.ReasonForLeaving),
		},
		Additional: models.AdditionalInfo{
			MedicalConditions: orDefault(w.form.Additional.MedicalConditions, "None"),
			SpecialNeeds:      orDefault(w.form.Additional.SpecialNeeds, "None"),
			Extracurricular:   strings.TrimSpace(w.form.Additional.Extracurricular),
			HowDidYouHear:     strings.TrimSpace(w.form.Additional.HowDidYouHear),
		},
	}
}

func (w *Wizard) viewLocked() View {
	errs := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		errs[k] = v
	}
	var confirmation *Confirmation
	if w.confirmation != nil {
		c := *w.confirmation
		confirmation = &c
	}
	return View{
		ID:           w.id,
		Step:         w.step,
		TotalSteps:   TotalSteps,
		StepTitle:    stepTitles[w.step-1],
		Form:         w.form,
		Errors:       errs,
		Submitting:   w.submitting,
		Confirmation: confirmation,
	}
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
