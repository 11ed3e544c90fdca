package watcher

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Uploader receives the files that settle in the inbox.
type Uploader interface {
	Upload(ctx context.Context, meta entity.FileMeta, r io.Reader) (entity.FileRecord, error)
}

// Config controls the inbox watcher.
type Config struct {
	Dir      string
	Debounce time.Duration
}

// Inbox watches a directory and uploads every CSV file created or rewritten
// in it once the writes have settled.
type Inbox struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	uploader Uploader
	dir      string
	debounce time.Duration
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewInbox creates an inbox watcher for cfg.Dir.
func NewInbox(cfg Config, up Uploader) (*Inbox, error) {
	if cfg.Dir == "" {
		return nil, errors.New("inbox directory is required")
	}
	if up == nil {
		return nil, errors.New("inbox uploader is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Inbox{
		watcher:  w,
		uploader: up,
		dir:      cfg.Dir,
		debounce: cfg.Debounce,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start creates the directory if needed and begins watching it. It does not block.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.running {
		in.mu.Unlock()
		return nil
	}
	in.mu.Unlock()

	if err := os.MkdirAll(in.dir, 0o755); err != nil {
		return err
	}
	if err := in.watcher.Add(in.dir); err != nil {
		return err
	}

	// running only flips once the loop is about to start, so Stop never
	// waits on a loop that was never launched.
	in.mu.Lock()
	if in.running {
		in.mu.Unlock()
		return nil
	}
	in.running = true
	in.mu.Unlock()

	slog.InfoContext(ctx, "inbox watcher started", "dir", in.dir, "debounce", in.debounce.String())
	go in.run(ctx)

	return nil
}

// Stop ends the event loop and releases the underlying watcher. Files still
// inside their debounce window are not uploaded.
func (in *Inbox) Stop() {
	in.mu.Lock()
	wasRunning := in.running
	in.running = false
	in.mu.Unlock()

	if wasRunning {
		close(in.stopCh)
		<-in.doneCh
	}

	if err := in.watcher.Close(); err != nil {
		slog.Error("failed to close inbox watcher", "error", err)
	}
}

func (in *Inbox) run(ctx context.Context) {
	defer close(in.doneCh)

	tick := max(in.debounce/5, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-in.stopCh:
			return
		case ev, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			in.handleEvent(ev)
		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			slog.ErrorContext(ctx, "inbox watcher error", "error", err)
		case <-ticker.C:
			in.flush(ctx)
		}
	}
}

func (in *Inbox) handleEvent(ev fsnotify.Event) {
	if !isCSV(ev.Name) {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	in.mu.Lock()
	in.pending[ev.Name] = time.Now()
	in.mu.Unlock()
}

// flush uploads the files whose last event is older than the debounce window.
func (in *Inbox) flush(ctx context.Context) {
	now := time.Now()

	in.mu.Lock()
	var ready []string
	for path, at := range in.pending {
		if now.Sub(at) >= in.debounce {
			ready = append(ready, path)
			delete(in.pending, path)
		}
	}
	in.mu.Unlock()

	for _, path := range ready {
		in.upload(ctx, path)
	}
}

func (in *Inbox) upload(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.DebugContext(ctx, "inbox file vanished before upload", "path", path)
			return
		}
		slog.ErrorContext(ctx, "failed to open inbox file", "path", path, "error", err)
		return
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return
	}

	meta := entity.FileMeta{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: "text/csv",
	}

	// Upload owns f from here and closes it after reading.
	rec, err := in.uploader.Upload(ctx, meta, f)
	if err != nil {
		_ = f.Close()
		slog.ErrorContext(ctx, "failed to upload inbox file", "path", path, "error", err)
		return
	}

	slog.InfoContext(ctx, "inbox file queued", "path", path, "file_id", rec.ID)
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
