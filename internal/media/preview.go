package media

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const refPrefix = "preview_"

// ErrNoPreview means neither a local file nor a remote URL was available.
var ErrNoPreview = errors.New("no preview available")

// LocalFile is an image the admin picked but has not uploaded yet.
type LocalFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type PreviewSource string

const (
	SourceLocal  PreviewSource = "local"
	SourceRemote PreviewSource = "remote"
)

// Preview is what an admin form displays for an image field. Ref is set
// only for local previews and must be released by its owner.
type Preview struct {
	Source PreviewSource `json:"source"`
	URL    string        `json:"url"`
	Ref    string        `json:"ref,omitempty"`
}

// PreviewCache holds temporary references to local bytes. A reference stays
// valid until released.
type PreviewCache struct {
	urlPrefix string

	mu    sync.RWMutex
	files map[string]LocalFile
}

// NewPreviewCache builds a cache whose preview URLs are urlPrefix + ref.
func NewPreviewCache(urlPrefix string) *PreviewCache {
	return &PreviewCache{
		urlPrefix: strings.TrimRight(urlPrefix, "/") + "/",
		files:     make(map[string]LocalFile),
	}
}

// Create registers file and returns its temporary reference.
func (c *PreviewCache) Create(file LocalFile) string {
	ref := refPrefix + uuid.NewString()
	stored := file
	stored.Data = append([]byte(nil), file.Data...)

	c.mu.Lock()
	c.files[ref] = stored
	c.mu.Unlock()
	return ref
}

// Open returns the bytes behind ref.
func (c *PreviewCache) Open(ref string) (LocalFile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	file, ok := c.files[ref]
	return file, ok
}

// Release drops ref. Unknown or already released refs are ignored.
func (c *PreviewCache) Release(ref string) {
	if ref == "" {
		return
	}
	c.mu.Lock()
	delete(c.files, ref)
	c.mu.Unlock()
}

func (c *PreviewCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// URL is the address that serves ref.
func (c *PreviewCache) URL(ref string) string {
	return c.urlPrefix + ref
}

// Resolve picks the image to display: a local file wins and gets a fresh
// temporary reference; otherwise the remote URL is used verbatim.
func Resolve(cache *PreviewCache, file *LocalFile, remoteURL string) (Preview, error) {
	if file != nil && len(file.Data) > 0 && cache != nil {
		ref := cache.Create(*file)
		return Preview{Source: SourceLocal, URL: cache.URL(ref), Ref: ref}, nil
	}
	if remote := strings.TrimSpace(remoteURL); remote != "" {
		return Preview{Source: SourceRemote, URL: remoteURL}, nil
	}
	return Preview{}, ErrNoPreview
}
