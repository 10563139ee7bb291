package gallery

import "sync"

type preview struct {
	contentType string
	content     []byte
}

// PreviewRegistry serves local previews of files that have not been uploaded
// yet. Every registered preview must be released when its entry goes away.
type PreviewRegistry struct {
	basePath string

	mu      sync.RWMutex
	entries map[string]preview
}

// NewPreviewRegistry returns a registry whose URLs live under basePath.
func NewPreviewRegistry(basePath string) *PreviewRegistry {
	return &PreviewRegistry{basePath: basePath, entries: make(map[string]preview)}
}

// Register stores content for id and returns its preview URL.
func (r *PreviewRegistry) Register(id, contentType string, content []byte) string {
	r.mu.Lock()
	r.entries[id] = preview{contentType: contentType, content: content}
	r.mu.Unlock()
	return r.basePath + "/" + id + "/preview"
}

// Open returns the preview content for id.
func (r *PreviewRegistry) Open(id string) (string, []byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[id]
	return p.contentType, p.content, ok
}

// Release drops the preview for id.
func (r *PreviewRegistry) Release(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Len reports how many previews are held.
func (r *PreviewRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
