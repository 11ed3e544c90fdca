package inbound

import (
	"context"
	"io"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/usecase"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgrouter"
)

type uc interface {
	Upload(ctx context.Context, meta entity.FileMeta, r io.Reader) (entity.FileRecord, error)
	Files(ctx context.Context) ([]entity.FileRecord, error)
	RemoveFile(ctx context.Context, fileID string) error
	Rows(ctx context.Context, page, pageSize int) (usecase.RowsResult, error)
	Stats(ctx context.Context) (entity.Stats, error)
	Charts(ctx context.Context) (entity.Charts, error)

	RequestAudit(ctx context.Context) (entity.InsightJob, error)
	RequestSearch(ctx context.Context, query string) (entity.InsightJob, error)
	RequestPrediction(ctx context.Context, target entity.PredictionTarget) (entity.InsightJob, error)
	Insight(ctx context.Context, jobID int64) (entity.InsightJob, error)
}

// RegisterHTTPEndpoint mounts the campaign API. maxUploadBytes bounds how much
// of each uploaded file is buffered.
func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, maxUploadBytes int64) {
	end := &HTTPEndpoint{uc: uc, maxUploadBytes: maxUploadBytes}

	r.POST("/files", end.UploadFiles)
	r.GET("/files", end.ListFiles)
	r.DELETE("/files/:id", end.RemoveFile)

	r.GET("/rows", end.Rows) // ?page=&page_size=
	r.GET("/stats", end.Stats)
	r.GET("/charts", end.Charts)

	r.POST("/insights/audit", end.RequestAudit)
	r.POST("/insights/search", end.RequestSearch)
	r.POST("/insights/predict", end.RequestPrediction)
	r.GET("/insights/:id", end.Insight)
}
