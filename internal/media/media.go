// Package media holds in-memory image and video payloads for a single session.
// Nothing here touches disk; everything is dropped when the process exits.
package media

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// StagedImage is an uploaded photo awaiting submission.
type StagedImage struct {
	// Data is the standard base64 encoding of the file bytes.
	Data     string
	MIMEType string
	Size     int
}

// Bytes decodes the staged payload.
func (s *StagedImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.Data)
}

// Stage reads an uploaded file into memory. declaredType is the client-provided
// content type; when it is empty or generic the type is sniffed from the bytes.
func Stage(r io.Reader, declaredType string) (*StagedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	return &StagedImage{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: resolveMIMEType(declaredType, data),
		Size:     len(data),
	}, nil
}

func resolveMIMEType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		mt = strings.ToLower(mt)
		if mt != "application/octet-stream" && mt != "" {
			return mt
		}
	}
	detected := mimetype.Detect(data).String()
	if mt, _, err := mime.ParseMediaType(detected); err == nil {
		return mt
	}
	return detected
}

// IsImage reports whether mimeType names an image format.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// Blob is a registered payload addressable by URL.
type Blob struct {
	ID        string
	MIMEType  string
	Data      []byte
	CreatedAt time.Time
}

// URLPrefix is the path under which the server exposes registered blobs.
const URLPrefix = "/videos/"

// URL returns the local path for the blob.
func (b *Blob) URL() string {
	return URLPrefix + b.ID
}

// Registry issues local handles for downloaded payloads, the server-side
// equivalent of object URLs.
type Registry struct {
	mu    sync.RWMutex
	blobs map[string]*Blob
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{blobs: make(map[string]*Blob), now: time.Now}
}

// Put registers data and returns its handle.
func (r *Registry) Put(data []byte, mimeType string) *Blob {
	b := &Blob{
		ID:        uuid.NewString(),
		MIMEType:  mimeType,
		Data:      data,
		CreatedAt: r.now(),
	}
	r.mu.Lock()
	r.blobs[b.ID] = b
	r.mu.Unlock()
	return b
}

func (r *Registry) Get(id string) (*Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[id]
	return b, ok
}

// Revoke releases the blob behind a handle ID or URL. Unknown handles are ignored.
func (r *Registry) Revoke(idOrURL string) {
	id := strings.TrimPrefix(idOrURL, URLPrefix)
	r.mu.Lock()
	delete(r.blobs, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
