package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgerror"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkglog"
)

// RegisterUpload adds a processing record for a file whose content has not
// been read yet. A blank name falls back to upload.csv.
func (u *Usecase) RegisterUpload(ctx context.Context, meta entity.FileMeta) (entity.FileRecord, error) {
	if u.store == nil || u.fileID == nil {
		return entity.FileRecord{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = defaultFileName
	}

	rec := entity.FileRecord{
		ID:          u.fileID.Generate(),
		Name:        name,
		Size:        meta.Size,
		ContentType: meta.ContentType,
		UploadedAt:  u.clock.Now(),
		Status:      entity.FileStatusProcessing,
	}
	if err := u.store.CreateFile(ctx, rec); err != nil {
		return entity.FileRecord{}, normalizeErr(err)
	}

	return rec, nil
}

// IngestText parses text and appends its rows to the Dataset. The rows are
// kept even if fileID was removed while it was being read.
func (u *Usecase) IngestText(ctx context.Context, fileID, text string) (int, error) {
	rows := ParseCSV(text, fileID)
	registered, err := u.store.CompleteIngestion(ctx, fileID, rows)
	if err != nil {
		return 0, normalizeErr(err)
	}
	if !registered {
		slog.WarnContext(ctx, "file removed before ingestion finished", "file_id", fileID, "rows", len(rows))
	}

	slog.InfoContext(ctx, "file ingested", "file_id", fileID, "rows", len(rows))
	return len(rows), nil
}

// Upload registers the file and ingests r in the background. If r is an
// io.Closer it is closed once read.
func (u *Usecase) Upload(ctx context.Context, meta entity.FileMeta, r io.Reader) (entity.FileRecord, error) {
	if u.runner == nil {
		return entity.FileRecord{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	rec, err := u.RegisterUpload(ctx, meta)
	if err != nil {
		return entity.FileRecord{}, err
	}

	fileID := rec.ID
	taskCtx := pkglog.Detach(u.rootCtx, ctx)
	scheduled := u.runner.Go(taskCtx, "ingest "+fileID, func(ctx context.Context) error {
		_, err := u.ingest(ctx, fileID, r)
		return err
	})
	if !scheduled {
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
		_ = u.failFile(context.WithoutCancel(taskCtx), fileID, errIngestionDropped)
		rec.Status = entity.FileStatusError
		rec.Err = errIngestionDropped.Error()
	}

	return rec, nil
}

// IngestFile is the synchronous form of Upload.
func (u *Usecase) IngestFile(ctx context.Context, meta entity.FileMeta, r io.Reader) (IngestResult, error) {
	rec, err := u.RegisterUpload(ctx, meta)
	if err != nil {
		return IngestResult{}, err
	}

	n, err := u.ingest(ctx, rec.ID, r)
	if err != nil {
		return IngestResult{}, err
	}

	rec.Status = entity.FileStatusReady
	rec.RowCount = n
	return IngestResult{File: rec, Rows: n}, nil
}

func (u *Usecase) ingest(ctx context.Context, fileID string, r io.Reader) (int, error) {
	if c, ok := r.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				slog.WarnContext(ctx, "failed to close upload", "file_id", fileID, "error", err)
			}
		}()
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return 0, u.failFile(ctx, fileID, fmt.Errorf("read file: %w", err))
	}
	if int64(len(data)) > u.maxBytes {
		return 0, u.failFile(ctx, fileID, fmt.Errorf("file exceeds %d bytes", u.maxBytes))
	}

	return u.IngestText(ctx, fileID, string(data))
}

func (u *Usecase) failFile(ctx context.Context, fileID string, cause error) error {
	slog.ErrorContext(ctx, "file ingestion failed", "file_id", fileID, "error", cause)

	if err := u.store.UpdateFile(ctx, fileID, func(rec *entity.FileRecord) {
		rec.Status = entity.FileStatusError
		rec.Err = cause.Error()
	}); err != nil {
		return mapStoreErr(err, errFileNotFound)
	}

	return pkgerror.NewInvalidInput(cause)
}

// RemoveFile unregisters a file. Rows it contributed stay in the Dataset
// unless it was the last registered file, in which case the Dataset is
// cleared.
func (u *Usecase) RemoveFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return pkgerror.NewInvalidInput(errors.New("file id is required"))
	}

	cleared, err := u.store.RemoveFile(ctx, fileID)
	if err != nil {
		return mapStoreErr(err, errFileNotFound)
	}

	slog.InfoContext(ctx, "file removed", "file_id", fileID, "dataset_cleared", cleared)
	return nil
}

func (u *Usecase) Files(ctx context.Context) ([]entity.FileRecord, error) {
	files, err := u.store.ListFiles(ctx)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return files, nil
}

func (u *Usecase) Rows(ctx context.Context, page, pageSize int) (RowsResult, error) {
	if page < 1 || pageSize < 1 {
		return RowsResult{}, pkgerror.NewInvalidInput(errors.New("invalid pagination"))
	}

	rows, total, err := u.store.ListRows(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return RowsResult{}, normalizeErr(err)
	}

	return RowsResult{
		Rows:     rows,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

func (u *Usecase) Stats(ctx context.Context) (entity.Stats, error) {
	var stats entity.Stats
	if err := u.store.ViewRows(ctx, func(rows []entity.Row) {
		stats = Aggregate(rows)
	}); err != nil {
		return entity.Stats{}, normalizeErr(err)
	}
	return stats, nil
}

func (u *Usecase) Charts(ctx context.Context) (entity.Charts, error) {
	var charts entity.Charts
	if err := u.store.ViewRows(ctx, func(rows []entity.Row) {
		charts = BuildCharts(rows)
	}); err != nil {
		return entity.Charts{}, normalizeErr(err)
	}
	return charts, nil
}

// sample copies up to n rows from the head of the Dataset.
func (u *Usecase) sample(ctx context.Context, n int) ([]entity.Row, error) {
	var out []entity.Row
	if err := u.store.ViewRows(ctx, func(rows []entity.Row) {
		out = append([]entity.Row(nil), rows[:min(n, len(rows))]...)
	}); err != nil {
		return nil, normalizeErr(err)
	}
	return out, nil
}
