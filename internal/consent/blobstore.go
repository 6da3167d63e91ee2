package consent

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobTooLarge = errors.New("recording exceeds maximum allowed size")
	ErrEmptyBlob    = errors.New("recording has no data")
)

// Blob describes a finalized recording.
type Blob struct {
	ID        string    `json:"id"`
	MIMEType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// BlobStore holds finalized recordings and hands out playback URLs.
type BlobStore interface {
	Put(ctx context.Context, mimeType string, data []byte) (*Blob, error)
	Get(ctx context.Context, id string) (*Blob, []byte, error)
	Delete(ctx context.Context, id string) error
}

type storedBlob struct {
	meta Blob
	data []byte
}

// MemoryBlobStore keeps recordings in process memory.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	blobs   map[string]*storedBlob
	baseURL string
	maxSize int64
}

// NewMemoryBlobStore returns a store whose URLs are baseURL + "/" + id.
func NewMemoryBlobStore(baseURL string, maxSize int64) *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs:   make(map[string]*storedBlob),
		baseURL: baseURL,
		maxSize: maxSize,
	}
}

func (s *MemoryBlobStore) Put(_ context.Context, mimeType string, data []byte) (*Blob, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBlob
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, ErrBlobTooLarge
	}

	h := sha256.Sum256(data)
	id := uuid.New().String()
	meta := Blob{
		ID:        id,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
		Hash:      fmt.Sprintf("%x", h),
		URL:       s.baseURL + "/" + id,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[id] = &storedBlob{meta: meta, data: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *MemoryBlobStore) Get(_ context.Context, id string) (*Blob, []byte, error) {
	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	meta := b.meta
	return &meta, b.data, nil
}

func (s *MemoryBlobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}

// Len reports how many blobs are held.
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
