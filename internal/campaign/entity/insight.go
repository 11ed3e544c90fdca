package entity

import "time"

// AuditReport is the strategic breakdown returned for an audit.
type AuditReport struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Strategy        string   `json:"strategy,omitempty"`
	Insights        []string `json:"insights,omitempty"`
	Recommendations []string `json:"recommendations"`
}

// PredictionTarget is the campaign whose revenue is to be estimated.
type PredictionTarget struct {
	Date         string  `json:"date"`
	CampaignName string  `json:"campaign_name"`
	Category     string  `json:"category"`
	Impressions  float64 `json:"impressions"`
	Spend        float64 `json:"spend"`
	Clicks       float64 `json:"clicks"`
	Leads        float64 `json:"leads"`
	Orders       float64 `json:"orders"`
}

// SearchMatch is a dataset row ranked relevant to a search query.
type SearchMatch struct {
	Index int
	Row   Row
}

// InsightInput is the snapshot a job is computed from, captured when the job
// is requested so later uploads do not change its meaning.
type InsightInput struct {
	Sample []Row
	Query  string
	Target PredictionTarget
}

// InsightJob tracks one asynchronous call to the insight gateway.
type InsightJob struct {
	ID         int64
	Task       Task
	Status     JobStatus
	Err        string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	Input InsightInput

	Audit      *AuditReport
	Matches    []SearchMatch
	Prediction *float64
}

// InsightRequested is published when a job is queued for the gateway.
type InsightRequested struct {
	JobID int64
	Task  Task
}
