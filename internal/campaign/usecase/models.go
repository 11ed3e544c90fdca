package usecase

import "github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"

type RowsResult struct {
	Rows     []entity.Row
	Page     int
	PageSize int
	Total    int
}

// IngestResult reports a synchronous ingestion.
type IngestResult struct {
	File entity.FileRecord
	Rows int
}
