package store

import (
	"context"
	"sync"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgerror"
)

// InMemoryStore is the single owner of the Dataset and the file registry. One
// mutex guards both so a row append and its file's status change are observed
// together.
type InMemoryStore struct {
	mu    sync.RWMutex
	files map[string]*entity.FileRecord
	order []string
	rows  []entity.Row
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		files: make(map[string]*entity.FileRecord),
	}
}

func (s *InMemoryStore) CreateFile(ctx context.Context, rec entity.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[rec.ID]; exists {
		return pkgerror.NewBusiness("file already exists", pkgerror.CodeConflict)
	}

	s.files[rec.ID] = &rec
	s.order = append(s.order, rec.ID)

	return nil
}

func (s *InMemoryStore) UpdateFile(ctx context.Context, fileID string, fn func(rec *entity.FileRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.files[fileID]
	if !ok {
		return pkgerror.ErrNotFound
	}

	id := rec.ID
	fn(rec)
	rec.ID = id

	return nil
}

// CompleteIngestion appends rows whether or not fileID is still registered.
// The record, when present, is marked ready in the same critical section.
func (s *InMemoryStore) CompleteIngestion(ctx context.Context, fileID string, rows []entity.Row) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, rows...)

	rec, ok := s.files[fileID]
	if !ok {
		return false, nil
	}

	rec.Status = entity.FileStatusReady
	rec.RowCount = len(rows)
	rec.Err = ""

	return true, nil
}

// RemoveFile drops the file from the registry. Rows are tagged with their
// source but stay in the Dataset; only removing the last file resets it.
func (s *InMemoryStore) RemoveFile(ctx context.Context, fileID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[fileID]; !ok {
		return false, pkgerror.ErrNotFound
	}

	delete(s.files, fileID)
	for i, id := range s.order {
		if id == fileID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	if len(s.files) > 0 {
		return false, nil
	}

	s.rows = nil
	return true, nil
}

// ListFiles returns the registry, most recent upload first.
func (s *InMemoryStore) ListFiles(ctx context.Context) ([]entity.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.FileRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.files[s.order[i]])
	}

	return out, nil
}

func (s *InMemoryStore) ListRows(ctx context.Context, offset, limit int) ([]entity.Row, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.rows)
	if offset < 0 || offset >= total || limit < 1 {
		return []entity.Row{}, total, nil
	}

	end := min(offset+limit, total)
	items := make([]entity.Row, end-offset)
	copy(items, s.rows[offset:end])

	return items, total, nil
}

func (s *InMemoryStore) ViewRows(ctx context.Context, fn func(rows []entity.Row)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fn(s.rows)

	return nil
}
