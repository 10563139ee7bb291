package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/apiclient"
	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/nav"
	"github.com/westgate-schools/admin-console/internal/service"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

// ItemState is the lifecycle of one queued file:
// selected -> error | uploading -> uploaded | error.
type ItemState string

const (
	StateSelected  ItemState = "selected"
	StateUploading ItemState = "uploading"
	StateUploaded  ItemState = "uploaded"
	StateError     ItemState = "error"
)

// SelectedFile is a file picked by the admin.
type SelectedFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// Item is a queued upload.
type Item struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Alt         string    `json:"alt"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	IsFeatured  bool      `json:"isFeatured"`
	State       ItemState `json:"state"`
	Error       string    `json:"error,omitempty"`
	PreviewURL  string    `json:"previewUrl"`

	content []byte
}

// Patch edits the metadata of a queued file.
type Patch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Alt         *string   `json:"alt"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
	IsFeatured  *bool     `json:"isFeatured"`
}

// Skipped explains why a selected file was not queued.
type Skipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Snapshot is the visible state of the batch.
type Snapshot struct {
	Items    []Item  `json:"items"`
	Running  bool    `json:"running"`
	Progress float64 `json:"progress"`
}

// BatchResult summarises one UploadAll run.
type BatchResult struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Progress  float64 `json:"progress"`
	Aborted   bool    `json:"aborted"`
	Items     []Item  `json:"items"`
}

// BatchConfig tunes an UploadBatch.
type BatchConfig struct {
	PruneDelay  time.Duration
	MaxFileSize int64
	LoginPath   string
}

type uploader interface {
	UploadGalleryImage(ctx context.Context, form apiclient.Multipart) (*models.GalleryImage, error)
}

type tokenSource interface {
	Get(ctx context.Context) (string, bool, error)
}

type reloader interface {
	Reload(ctx context.Context) error
}

// Scheduler runs fn after d and returns a function cancelling it.
type Scheduler func(d time.Duration, fn func()) (stop func() bool)

func afterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

type uploadFields struct {
	Title    string `validate:"min=2"`
	Alt      string `validate:"min=2"`
	Category string `validate:"gallery_category"`
}

var fieldMessages = map[string]string{
	"Title":    "Title must be at least 2 characters",
	"Alt":      "Alt text must be at least 2 characters",
	"Category": "Unknown gallery category",
}

// UploadBatch queues selected images and uploads them one at a time.
type UploadBatch struct {
	api       uploader
	tokens    tokenSource
	gallery   reloader
	previews  *PreviewRegistry
	validator *validator.Validate
	metrics   *service.MetricsService
	logger    *zap.Logger
	cfg       BatchConfig
	schedule  Scheduler
	now       func() time.Time

	mu        sync.Mutex
	order     []string
	items     map[string]*Item
	running   bool
	progress  float64
	stopPrune func() bool
}

// BatchOption customises an UploadBatch.
type BatchOption func(*UploadBatch)

// WithScheduler replaces the timer used to prune uploaded entries.
func WithScheduler(s Scheduler) BatchOption {
	return func(b *UploadBatch) { b.schedule = s }
}

// WithClock replaces the clock used for fallback titles.
func WithClock(now func() time.Time) BatchOption {
	return func(b *UploadBatch) { b.now = now }
}

// WithMetrics records item outcomes.
func WithMetrics(m *service.MetricsService) BatchOption {
	return func(b *UploadBatch) { b.metrics = m }
}

// NewUploadBatch builds an empty batch.
func NewUploadBatch(api uploader, tokens tokenSource, gallery reloader, previews *PreviewRegistry, validate *validator.Validate, logger *zap.Logger, cfg BatchConfig, opts ...BatchOption) (*UploadBatch, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if err := validate.RegisterValidation("gallery_category", func(fl validator.FieldLevel) bool {
		return validCategory(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register gallery_category validation: %w", err)
	}
	if cfg.PruneDelay <= 0 {
		cfg.PruneDelay = 3 * time.Second
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/admin/login"
	}
	b := &UploadBatch{
		api:       api,
		tokens:    tokens,
		gallery:   gallery,
		previews:  previews,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		schedule:  afterFunc,
		now:       time.Now,
		items:     make(map[string]*Item),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// AddFiles queues the image files among files.
func (b *UploadBatch) AddFiles(files []SelectedFile) ([]Item, []Skipped) {
	added := make([]Item, 0, len(files))
	skipped := make([]Skipped, 0)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range files {
		if !strings.HasPrefix(strings.ToLower(f.ContentType), "image/") {
			skipped = append(skipped, Skipped{Name: f.Name, Reason: "not an image"})
			continue
		}
		if b.cfg.MaxFileSize > 0 && int64(len(f.Content)) > b.cfg.MaxFileSize {
			skipped = append(skipped, Skipped{Name: f.Name, Reason: "file too large"})
			continue
		}
		label := b.defaultLabel(f.Name)
		item := &Item{
			ID:          uuid.NewString(),
			FileName:    f.Name,
			ContentType: f.ContentType,
			Size:        int64(len(f.Content)),
			Title:       label,
			Alt:         label,
			Category:    models.DefaultGalleryCategory,
			Tags:        []string{},
			State:       StateSelected,
			content:     f.Content,
		}
		item.PreviewURL = b.previews.Register(item.ID, f.ContentType, f.Content)
		b.order = append(b.order, item.ID)
		b.items[item.ID] = item
		added = append(added, *item)
	}
	return added, skipped
}

func (b *UploadBatch) defaultLabel(name string) string {
	stem := strings.TrimSpace(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	if len([]rune(stem)) >= 2 {
		return stem
	}
	return "Image " + strconv.FormatInt(b.now().UnixMilli(), 10)
}

// UpdateFile merges patch into the entry id.
func (b *UploadBatch) UpdateFile(id string, patch Patch) (Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.items[id]
	if !ok {
		return Item{}, appErrors.Clone(appErrors.ErrNotFound, "upload entry not found")
	}
	if item.State == StateUploading {
		return Item{}, appErrors.Clone(appErrors.ErrConflict, "entry is being uploaded")
	}
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Alt != nil {
		item.Alt = *patch.Alt
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.Tags != nil {
		item.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.IsFeatured != nil {
		item.IsFeatured = *patch.IsFeatured
	}
	return item.clone(), nil
}

// RemoveFile drops the entry id and its preview.
func (b *UploadBatch) RemoveFile(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.items[id]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "upload entry not found")
	}
	if item.State == StateUploading {
		return appErrors.Clone(appErrors.ErrConflict, "entry is being uploaded")
	}
	b.removeLocked(id)
	return nil
}

// Snapshot returns the queue in selection order.
func (b *UploadBatch) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{Items: b.itemsLocked(), Running: b.running, Progress: b.progress}
}

// UploadAll uploads every entry that is not uploaded yet, strictly in order.
// Invalid entries are flagged and skipped; an authentication failure aborts
// the rest of the batch and sends the admin to the login page.
func (b *UploadBatch) UploadAll(ctx context.Context) (BatchResult, error) {
	// The batch outlives the request that started it; only the HTTP client
	// timeout bounds each upload.
	ctx = context.WithoutCancel(ctx)

	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return BatchResult{}, appErrors.Clone(appErrors.ErrConflict, "an upload batch is already running")
	}
	pending := make([]string, 0, len(b.order))
	for _, id := range b.order {
		if b.items[id].State != StateUploaded {
			pending = append(pending, id)
		}
	}
	b.running = true
	b.progress = 0
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	result := BatchResult{Total: len(pending)}
	if _, ok, err := b.tokens.Get(ctx); err != nil || !ok {
		if err != nil {
			b.logger.Error("failed to read session token", zap.Error(err))
		}
		nav.Redirect(ctx, b.cfg.LoginPath)
		result.Aborted = true
		result.Items = b.Snapshot().Items
		return result, appErrors.Clone(appErrors.ErrSessionRequired, "Session expired. Please login again.")
	}

	var fatal error
	for _, id := range pending {
		form, ok := b.begin(id)
		if !ok {
			continue
		}
		if form == nil {
			result.Failed++
			b.metrics.ObserveUpload(service.UploadInvalid)
			continue
		}

		_, err := b.api.UploadGalleryImage(ctx, *form)
		if err != nil && isFatal(err) {
			b.finish(id, StateSelected, "")
			b.metrics.ObserveUpload(service.UploadAborted)
			result.Aborted = true
			fatal = err
			break
		}
		if err != nil {
			b.finish(id, StateError, appErrors.FromError(err).Message)
			b.metrics.ObserveUpload(service.UploadFailed)
			result.Failed++
			continue
		}

		b.finish(id, StateUploaded, "")
		b.metrics.ObserveUpload(service.UploadSucceeded)
		result.Completed++
		b.mu.Lock()
		b.progress = float64(result.Completed) / float64(result.Total) * 100
		b.mu.Unlock()
	}

	b.mu.Lock()
	result.Progress = b.progress
	b.mu.Unlock()

	if fatal != nil {
		nav.Redirect(ctx, b.cfg.LoginPath)
		result.Items = b.Snapshot().Items
		b.logger.Info("upload batch aborted", zap.Int("completed", result.Completed), zap.Error(fatal))
		return result, fatal
	}

	if err := b.gallery.Reload(ctx); err != nil {
		b.logger.Warn("failed to refresh gallery after upload", zap.Error(err))
	}
	if result.Completed > 0 {
		b.schedulePrune()
	}
	result.Items = b.Snapshot().Items
	return result, nil
}

// begin validates id and moves it to uploading. A nil form with ok set means
// the entry failed validation.
func (b *UploadBatch) begin(id string) (*apiclient.Multipart, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.items[id]
	if !ok {
		return nil, false
	}

	fields := uploadFields{
		Title:    strings.TrimSpace(item.Title),
		Alt:      strings.TrimSpace(item.Alt),
		Category: item.Category,
	}
	if err := b.validator.Struct(fields); err != nil {
		item.State = StateError
		item.Error = validationMessage(err)
		return nil, true
	}

	tags, err := json.Marshal(apiclient.CleanTags(item.Tags))
	if err != nil {
		item.State = StateError
		item.Error = "invalid tags"
		return nil, true
	}

	item.State = StateUploading
	item.Error = ""
	return &apiclient.Multipart{
		File: apiclient.FilePart{Field: "image", Filename: item.FileName, ContentType: item.ContentType, Content: item.content},
		Fields: []apiclient.Field{
			{Name: "title", Value: fields.Title},
			{Name: "description", Value: strings.TrimSpace(item.Description)},
			{Name: "alt", Value: fields.Alt},
			{Name: "category", Value: item.Category},
			{Name: "tags", Value: string(tags)},
			{Name: "isFeatured", Value: strconv.FormatBool(item.IsFeatured)},
		},
	}, true
}

func (b *UploadBatch) finish(id string, state ItemState, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if item, ok := b.items[id]; ok {
		item.State = state
		item.Error = message
	}
}

func (b *UploadBatch) schedulePrune() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopPrune != nil {
		b.stopPrune()
	}
	b.stopPrune = b.schedule(b.cfg.PruneDelay, b.PruneUploaded)
}

// PruneUploaded removes every uploaded entry and releases its preview.
func (b *UploadBatch) PruneUploaded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range append([]string(nil), b.order...) {
		if b.items[id].State == StateUploaded {
			b.removeLocked(id)
		}
	}
	b.stopPrune = nil
}

func (b *UploadBatch) removeLocked(id string) {
	delete(b.items, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.previews.Release(id)
}

func (b *UploadBatch) itemsLocked() []Item {
	out := make([]Item, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.items[id].clone())
	}
	return out
}

func (i *Item) clone() Item {
	c := *i
	c.Tags = append([]string{}, i.Tags...)
	return c
}

func isFatal(err error) bool {
	return errors.Is(err, appErrors.ErrAuthExpired) || errors.Is(err, appErrors.ErrSessionRequired)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Field()]; ok {
			msgs = append(msgs, msg)
		} else {
			msgs = append(msgs, fe.Error())
		}
	}
	return strings.Join(msgs, "; ")
}
