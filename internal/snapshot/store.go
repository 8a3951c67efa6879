// Package snapshot stores chart screenshots with JSON metadata sidecars,
// one pair of files per capture id.
package snapshot

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// CaptureMeta describes one stored chart capture.
type CaptureMeta struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Ticker       string    `json:"ticker,omitempty"`
	ChartList    string    `json:"chartlist,omitempty"`
	Chart        string    `json:"chart,omitempty"`
	TimeframeBox int       `json:"timeframe_box,omitempty"`
	Phase        string    `json:"phase,omitempty"`
	Format       string    `json:"format"`
	SizeBytes    int       `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	Notes        string    `json:"notes,omitempty"`
}

// NewID returns a random v4 UUID for a fresh capture.
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("snapshot: entropy unavailable: %v", err))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// Store manages capture files on disk.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) validateID(id string) error {
	if !uuidRe.MatchString(id) {
		return fmt.Errorf("invalid capture id: %q", id)
	}
	return nil
}

// Save writes both the image file and metadata sidecar. Missing ID, format
// and timestamp fields are stamped here.
func (s *Store) Save(meta CaptureMeta, imageData []byte) (CaptureMeta, error) {
	if meta.ID == "" {
		meta.ID = NewID()
	}
	if err := s.validateID(meta.ID); err != nil {
		return CaptureMeta{}, err
	}
	if meta.Format == "" {
		meta.Format = "png"
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	meta.SizeBytes = len(imageData)

	s.mu.Lock()
	defer s.mu.Unlock()

	imgPath := filepath.Join(s.dir, meta.ID+"."+meta.Format)
	jsonPath := filepath.Join(s.dir, meta.ID+".json")

	if err := os.WriteFile(imgPath, imageData, 0o644); err != nil {
		return CaptureMeta{}, fmt.Errorf("snapshot store: write image: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(imgPath)
		return CaptureMeta{}, fmt.Errorf("snapshot store: marshal meta: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		_ = os.Remove(imgPath)
		return CaptureMeta{}, fmt.Errorf("snapshot store: write meta: %w", err)
	}

	return meta, nil
}

// ImagePath returns the on-disk path for a capture's image file.
func (s *Store) ImagePath(meta CaptureMeta) string {
	return filepath.Join(s.dir, meta.ID+"."+meta.Format)
}

// Get reads capture metadata by ID.
func (s *Store) Get(id string) (CaptureMeta, error) {
	if err := s.validateID(id); err != nil {
		return CaptureMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return CaptureMeta{}, fmt.Errorf("capture not found: %s", id)
		}
		return CaptureMeta{}, fmt.Errorf("snapshot store: read meta: %w", err)
	}

	var meta CaptureMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return CaptureMeta{}, fmt.Errorf("snapshot store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns all captures sorted by creation time (newest first).
func (s *Store) List() ([]CaptureMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("snapshot store: glob: %w", err)
	}

	metas := make([]CaptureMeta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta CaptureMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})

	return metas, nil
}

// ReadImage reads the raw image bytes and returns the format.
func (s *Store) ReadImage(id string) ([]byte, string, error) {
	meta, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, id+"."+meta.Format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("capture image not found: %s", id)
		}
		return nil, "", fmt.Errorf("snapshot store: read image: %w", err)
	}
	return data, meta.Format, nil
}

// Delete removes both the image and metadata files.
func (s *Store) Delete(id string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, id+"."+meta.Format)); err != nil && !os.IsNotExist(err) {
		slog.Debug("capture image cleanup failed", "id", id, "error", err)
	}
	_ = os.Remove(filepath.Join(s.dir, id+".json"))
	return nil
}
