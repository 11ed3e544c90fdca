package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgerror"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkguid"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultAuditSample    = 20
	defaultSearchSample   = 30
	defaultPredictSample  = 15
	defaultLanguage       = "Portuguese"
	defaultFileName       = "upload.csv"
	defaultInsightTimeout = 2 * time.Minute
)

// Store owns the Dataset and the file registry. Every method is safe for
// concurrent use; each one is applied atomically.
type Store interface {
	CreateFile(ctx context.Context, rec entity.FileRecord) error
	UpdateFile(ctx context.Context, fileID string, fn func(rec *entity.FileRecord)) error
	// CompleteIngestion appends rows and marks the file ready in one step.
	// Rows are appended even when the file is no longer registered; the bool
	// reports whether a record was updated.
	CompleteIngestion(ctx context.Context, fileID string, rows []entity.Row) (bool, error)
	// RemoveFile unregisters a file and reports whether the Dataset was
	// cleared because no file remains.
	RemoveFile(ctx context.Context, fileID string) (bool, error)
	ListFiles(ctx context.Context) ([]entity.FileRecord, error)
	ListRows(ctx context.Context, offset, limit int) ([]entity.Row, int, error)
	// ViewRows calls fn with the current Dataset under a read lock. fn must
	// not retain or modify the slice.
	ViewRows(ctx context.Context, fn func(rows []entity.Row)) error
}

type JobStore interface {
	CreateJob(ctx context.Context, job entity.InsightJob) error
	UpdateJob(ctx context.Context, jobID int64, fn func(job *entity.InsightJob)) error
	GetJob(ctx context.Context, jobID int64) (entity.InsightJob, error)
}

// Gateway is the opaque capability that performs an analytical task. It
// returns the raw JSON document produced for the prompt.
type Gateway interface {
	Submit(ctx context.Context, task entity.Task, prompt string) ([]byte, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.InsightRequested) error
}

// Runner schedules background work and reports false when the task was
// dropped without running.
type Runner interface {
	Go(ctx context.Context, name string, f func(ctx context.Context) error) bool
}

type Clock interface {
	Now() time.Time
}

// InsightConfig bounds the samples sent to the gateway.
type InsightConfig struct {
	AuditSample   int
	SearchSample  int
	PredictSample int
	Language      string
	Timeout       time.Duration
}

type Dependency struct {
	Store          Store
	Jobs           JobStore
	Gateway        Gateway
	Events         EventPublisher
	Runner         Runner
	Clock          Clock
	FileID         pkguid.StringID
	JobID          pkguid.NumberID
	RootCtx        context.Context
	MaxUploadBytes int64
	Insight        InsightConfig
}

type Usecase struct {
	store    Store
	jobs     JobStore
	gateway  Gateway
	events   EventPublisher
	runner   Runner
	clock    Clock
	fileID   pkguid.StringID
	jobID    pkguid.NumberID
	rootCtx  context.Context
	maxBytes int64
	insight  InsightConfig
	prompts  *Prompts
}

func New(dep Dependency) (*Usecase, error) {
	prompts, err := LoadPrompts()
	if err != nil {
		return nil, err
	}

	root := dep.RootCtx
	if root == nil {
		root = context.Background()
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	maxBytes := dep.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}

	return &Usecase{
		store:    dep.Store,
		jobs:     dep.Jobs,
		gateway:  dep.Gateway,
		events:   dep.Events,
		runner:   dep.Runner,
		clock:    clock,
		fileID:   dep.FileID,
		jobID:    dep.JobID,
		rootCtx:  root,
		maxBytes: maxBytes,
		insight:  withInsightDefaults(dep.Insight),
		prompts:  prompts,
	}, nil
}

func withInsightDefaults(cfg InsightConfig) InsightConfig {
	if cfg.AuditSample <= 0 {
		cfg.AuditSample = defaultAuditSample
	}
	if cfg.SearchSample <= 0 {
		cfg.SearchSample = defaultSearchSample
	}
	if cfg.PredictSample <= 0 {
		cfg.PredictSample = defaultPredictSample
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultInsightTimeout
	}
	return cfg
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

var (
	errFileNotFound     = pkgerror.NewBusiness("file not found", pkgerror.CodeNotFound)
	errJobNotFound      = pkgerror.NewBusiness("insight not found", pkgerror.CodeNotFound)
	errQueueUnavailable = pkgerror.NewBusiness("insight queue unavailable", pkgerror.CodeUnavailable)
	errEmptyDataset     = pkgerror.NewBusiness("dataset is empty", pkgerror.CodeConflict)

	errIngestionDropped = errors.New("ingestion canceled before it started")
)

func mapStoreErr(err, notFound error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return notFound
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}
