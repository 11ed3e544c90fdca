package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgerror"
)

type testStore struct {
	mu    sync.RWMutex
	files map[string]entity.FileRecord
	rows  []entity.Row
}

func newTestStore() *testStore {
	return &testStore{files: make(map[string]entity.FileRecord)}
}

func (s *testStore) CreateFile(ctx context.Context, rec entity.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[rec.ID] = rec
	return nil
}

func (s *testStore) UpdateFile(ctx context.Context, fileID string, fn func(rec *entity.FileRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[fileID]
	if !ok {
		return pkgerror.ErrNotFound
	}
	fn(&rec)
	s.files[fileID] = rec
	return nil
}

func (s *testStore) CompleteIngestion(ctx context.Context, fileID string, rows []entity.Row) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	rec, ok := s.files[fileID]
	if !ok {
		return false, nil
	}
	rec.Status = entity.FileStatusReady
	rec.RowCount = len(rows)
	s.files[fileID] = rec
	return true, nil
}

func (s *testStore) RemoveFile(ctx context.Context, fileID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[fileID]; !ok {
		return false, pkgerror.ErrNotFound
	}
	delete(s.files, fileID)
	if len(s.files) == 0 {
		s.rows = nil
		return true, nil
	}
	return false, nil
}

func (s *testStore) ListFiles(ctx context.Context) ([]entity.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.FileRecord, 0, len(s.files))
	for _, rec := range s.files {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *testStore) ListRows(ctx context.Context, offset, limit int) ([]entity.Row, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := min(offset, len(s.rows))
	end := min(offset+limit, len(s.rows))
	return append([]entity.Row(nil), s.rows[start:end]...), len(s.rows), nil
}

func (s *testStore) ViewRows(ctx context.Context, fn func(rows []entity.Row)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.rows)
	return nil
}

func (s *testStore) file(id string) entity.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[id]
}

type testID struct {
	mu sync.Mutex
	n  int
}

func (t *testID) Generate() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return fmt.Sprintf("id-%d", t.n)
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// syncRunner runs tasks inline so tests observe their effects immediately.
type syncRunner struct {
	errs []error
	drop bool
}

func (r *syncRunner) Go(ctx context.Context, name string, f func(ctx context.Context) error) bool {
	if r.drop {
		return false
	}
	if err := f(ctx); err != nil {
		r.errs = append(r.errs, err)
	}
	return true
}

func newTestUsecase(t *testing.T, dep Dependency) *Usecase {
	t.Helper()
	if dep.Store == nil {
		dep.Store = newTestStore()
	}
	if dep.FileID == nil {
		dep.FileID = &testID{}
	}
	if dep.Clock == nil {
		dep.Clock = fixedClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	}
	if dep.Runner == nil {
		dep.Runner = &syncRunner{}
	}

	uc, err := New(dep)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return uc
}
