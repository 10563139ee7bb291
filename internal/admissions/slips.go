package admissions

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/export"
	"github.com/westgate-schools/admin-console/pkg/storage"
)

// Receipt points at a downloadable confirmation slip.
type Receipt struct {
	URL       string
	ExpiresAt time.Time
}

// Slips renders confirmation slips, stores them and hands out signed links.
type Slips struct {
	school   string
	basePath string
	storage  *storage.LocalStorage
	signer   *storage.SignedURLSigner
}

// NewSlips builds a slip issuer. Links are basePath + "/" + token.
func NewSlips(school, basePath string, store *storage.LocalStorage, signer *storage.SignedURLSigner) *Slips {
	return &Slips{school: school, basePath: strings.TrimRight(basePath, "/"), storage: store, signer: signer}
}

// Issue renders and stores the slip for app.
func (s *Slips) Issue(app models.Application) (*Receipt, error) {
	submitted := app.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	content, err := export.RenderSlip(export.Slip{
		School:            s.school,
		ApplicationNumber: app.ApplicationNumber,
		StudentName:       strings.TrimSpace(app.Student.FirstName + " " + app.Student.LastName),
		Program:           app.Program,
		Grade:             app.Grade,
		ParentName:        strings.TrimSpace(app.Parent.FirstName + " " + app.Parent.LastName),
		ParentEmail:       app.Parent.Email,
		SubmittedAt:       submitted,
	})
	if err != nil {
		return nil, err
	}

	name := path.Join(submitted.Format("2006"), app.ApplicationNumber+".pdf")
	if _, err := s.storage.Save(name, content); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(uuid.NewString(), name)
	if err != nil {
		return nil, fmt.Errorf("sign slip link: %w", err)
	}
	return &Receipt{URL: s.basePath + "/" + token, ExpiresAt: expiresAt}, nil
}

// Open resolves a download token to the stored slip.
func (s *Slips) Open(token string) (io.ReadSeekCloser, os.FileInfo, string, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link expired")
		}
		return nil, nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link invalid")
	}
	f, info, err := s.storage.Open(claims.Path)
	if err != nil {
		return nil, nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "slip not found")
	}
	return f, info, path.Base(claims.Path), nil
}

// Cleanup deletes slips older than ttl.
func (s *Slips) Cleanup(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}
