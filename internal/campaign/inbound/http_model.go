package inbound

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

type FileResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Size        int64             `json:"size"`
	ContentType string            `json:"content_type,omitempty"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	RowCount    int               `json:"row_count"`
	Status      entity.FileStatus `json:"status"`
	Error       string            `json:"error,omitempty"`
}

type UploadResponse struct {
	Files []FileResponse `json:"files"`
}

func (UploadResponse) StatusCode() int {
	return http.StatusAccepted
}

func (UploadResponse) Message() string {
	return "upload accepted"
}

type FilesResponse struct {
	Files []FileResponse `json:"files"`
}

type RowsResponse struct {
	Rows     []entity.Row `json:"rows"`
	page     int
	pageSize int
	total    int
}

func (r RowsResponse) Meta() map[string]any {
	return map[string]any{
		"page":      r.page,
		"page_size": r.pageSize,
		"total":     r.total,
	}
}

type StatsResponse struct {
	Rows             int     `json:"rows"`
	TotalImpressions float64 `json:"total_impressions"`
	TotalClicks      float64 `json:"total_clicks"`
	TotalConversions float64 `json:"total_conversions"`
	TotalSpend       float64 `json:"total_spend"`
	TotalRevenue     float64 `json:"total_revenue"`
	CTR              float64 `json:"ctr"`
	CPA              float64 `json:"cpa"`
}

type ChartPoint struct {
	CampaignName string  `json:"campaign_name"`
	Spend        float64 `json:"spend"`
	Revenue      float64 `json:"revenue"`
	CPA          float64 `json:"cpa"`
}

type ChartsResponse struct {
	SpendRevenue []ChartPoint `json:"spend_revenue"`
	CPATrend     []ChartPoint `json:"cpa_trend"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

// PredictRequest also accepts the c_date and mark_spent names used by the
// historical campaign exports.
type PredictRequest struct {
	Date         string   `json:"date"`
	CDate        string   `json:"c_date"`
	CampaignName string   `json:"campaign_name"`
	Category     string   `json:"category"`
	Impressions  float64  `json:"impressions"`
	Spend        float64  `json:"spend"`
	MarkSpent    *float64 `json:"mark_spent"`
	Clicks       float64  `json:"clicks"`
	Leads        float64  `json:"leads"`
	Orders       float64  `json:"orders"`
}

func (r PredictRequest) target() entity.PredictionTarget {
	t := entity.PredictionTarget{
		Date:         r.Date,
		CampaignName: r.CampaignName,
		Category:     r.Category,
		Impressions:  r.Impressions,
		Spend:        r.Spend,
		Clicks:       r.Clicks,
		Leads:        r.Leads,
		Orders:       r.Orders,
	}
	if t.Date == "" {
		t.Date = r.CDate
	}
	if r.MarkSpent != nil && t.Spend == 0 {
		t.Spend = *r.MarkSpent
	}
	return t
}

type SearchMatch struct {
	Index int        `json:"index"`
	Row   entity.Row `json:"row"`
}

type SearchResult struct {
	Matches []SearchMatch `json:"matches"`
}

type PredictionResult struct {
	Revenue float64 `json:"revenue"`
}

type InsightResponse struct {
	ID         string           `json:"id"`
	Task       entity.Task      `json:"task"`
	Status     entity.JobStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Result     any              `json:"result,omitempty"`
}

// InsightAccepted is returned when a job has been queued.
type InsightAccepted struct {
	InsightResponse
}

func (InsightAccepted) StatusCode() int {
	return http.StatusAccepted
}

func (InsightAccepted) Message() string {
	return "insight queued"
}

// NewFileResponse is the wire form of a registry record.
func NewFileResponse(rec entity.FileRecord) FileResponse {
	return FileResponse{
		ID:          rec.ID,
		Name:        rec.Name,
		Size:        rec.Size,
		ContentType: rec.ContentType,
		UploadedAt:  rec.UploadedAt,
		RowCount:    rec.RowCount,
		Status:      rec.Status,
		Error:       rec.Err,
	}
}

// NewStatsResponse is the wire form of the aggregate snapshot.
func NewStatsResponse(s entity.Stats) StatsResponse {
	return StatsResponse{
		Rows:             s.Rows,
		TotalImpressions: s.Impressions,
		TotalClicks:      s.Clicks,
		TotalConversions: s.Conversions,
		TotalSpend:       s.Spend,
		TotalRevenue:     s.Revenue,
		CTR:              s.CTR,
		CPA:              s.CPA,
	}
}

// NewChartPoints is the wire form of a chart series.
func NewChartPoints(points []entity.ChartPoint) []ChartPoint {
	out := make([]ChartPoint, 0, len(points))
	for _, p := range points {
		out = append(out, ChartPoint{
			CampaignName: p.CampaignName,
			Spend:        p.Spend,
			Revenue:      p.Revenue,
			CPA:          p.CPA,
		})
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toInsightResponse(job entity.InsightJob) InsightResponse {
	resp := InsightResponse{
		ID:         strconv.FormatInt(job.ID, 10),
		Task:       job.Task,
		Status:     job.Status,
		Error:      job.Err,
		CreatedAt:  job.CreatedAt,
		StartedAt:  optionalTime(job.StartedAt),
		FinishedAt: optionalTime(job.FinishedAt),
	}

	if job.Status != entity.JobStatusCompleted {
		return resp
	}

	switch job.Task {
	case entity.TaskAudit:
		resp.Result = job.Audit
	case entity.TaskSearch:
		matches := make([]SearchMatch, 0, len(job.Matches))
		for _, m := range job.Matches {
			matches = append(matches, SearchMatch{Index: m.Index, Row: m.Row})
		}
		resp.Result = SearchResult{Matches: matches}
	case entity.TaskPredict:
		if job.Prediction != nil {
			resp.Result = PredictionResult{Revenue: *job.Prediction}
		}
	}

	return resp
}
