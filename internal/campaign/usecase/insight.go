package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgerror"
)

const (
	defaultPredictCategory = "search"
	predictDateLayout      = "2006-01-02"
	maxQueryLength         = 500
)

var errInvalidResponse = errors.New("invalid gateway response")

func (u *Usecase) RequestAudit(ctx context.Context) (entity.InsightJob, error) {
	return u.request(ctx, entity.TaskAudit, u.insight.AuditSample, entity.InsightInput{})
}

func (u *Usecase) RequestSearch(ctx context.Context, query string) (entity.InsightJob, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return entity.InsightJob{}, pkgerror.NewInvalidInput(errors.New("query is required"))
	}
	if len(query) > maxQueryLength {
		return entity.InsightJob{}, pkgerror.NewInvalidInput(fmt.Errorf("query exceeds %d characters", maxQueryLength))
	}

	return u.request(ctx, entity.TaskSearch, u.insight.SearchSample, entity.InsightInput{Query: query})
}

func (u *Usecase) RequestPrediction(ctx context.Context, target entity.PredictionTarget) (entity.InsightJob, error) {
	target, err := u.normalizeTarget(target)
	if err != nil {
		return entity.InsightJob{}, err
	}

	return u.request(ctx, entity.TaskPredict, u.insight.PredictSample, entity.InsightInput{Target: target})
}

func (u *Usecase) normalizeTarget(t entity.PredictionTarget) (entity.PredictionTarget, error) {
	t.CampaignName = strings.TrimSpace(t.CampaignName)
	t.Category = strings.TrimSpace(t.Category)
	t.Date = strings.TrimSpace(t.Date)

	if t.Category == "" {
		t.Category = defaultPredictCategory
	}
	if t.Date == "" {
		t.Date = u.clock.Now().Format(predictDateLayout)
	}

	for name, v := range map[string]float64{
		"impressions": t.Impressions,
		"spend":       t.Spend,
		"clicks":      t.Clicks,
		"leads":       t.Leads,
		"orders":      t.Orders,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return entity.PredictionTarget{}, pkgerror.NewInvalidInput(fmt.Errorf("%s must be a non-negative number", name))
		}
	}

	return t, nil
}

// request snapshots the sample and queues a pending job. The job runs later
// on the insight consumer; the caller polls Insight for the outcome.
func (u *Usecase) request(ctx context.Context, task entity.Task, sampleSize int, input entity.InsightInput) (entity.InsightJob, error) {
	if u.jobs == nil || u.jobID == nil || u.events == nil {
		return entity.InsightJob{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	sample, err := u.sample(ctx, sampleSize)
	if err != nil {
		return entity.InsightJob{}, err
	}
	if len(sample) == 0 {
		return entity.InsightJob{}, errEmptyDataset
	}
	input.Sample = sample

	job := entity.InsightJob{
		ID:        u.jobID.Generate(),
		Task:      task,
		Status:    entity.JobStatusPending,
		CreatedAt: u.clock.Now(),
		Input:     input,
	}
	if err := u.jobs.CreateJob(ctx, job); err != nil {
		return entity.InsightJob{}, normalizeErr(err)
	}

	if err := u.events.Publish(ctx, entity.InsightRequested{JobID: job.ID, Task: task}); err != nil {
		slog.ErrorContext(ctx, "failed to queue insight", "job_id", job.ID, "task", task, "error", err)
		u.finish(ctx, job.ID, func(j *entity.InsightJob) {
			j.Status = entity.JobStatusFailed
			j.Err = "insight queue unavailable"
		})
		return entity.InsightJob{}, errQueueUnavailable
	}

	slog.InfoContext(ctx, "insight queued", "job_id", job.ID, "task", task, "sample", len(sample))
	return job, nil
}

func (u *Usecase) Insight(ctx context.Context, jobID int64) (entity.InsightJob, error) {
	if jobID <= 0 {
		return entity.InsightJob{}, pkgerror.NewInvalidInput(errors.New("invalid insight id"))
	}

	job, err := u.jobs.GetJob(ctx, jobID)
	if err != nil {
		return entity.InsightJob{}, mapStoreErr(err, errJobNotFound)
	}
	return job, nil
}

// Handle lets the usecase consume queued insight events.
func (u *Usecase) Handle(ctx context.Context, event entity.InsightRequested) error {
	return u.RunInsight(ctx, event.JobID)
}

// Discard marks a queued job failed when it will never be run. Jobs that
// already finished are left untouched.
func (u *Usecase) Discard(ctx context.Context, event entity.InsightRequested, reason error) {
	job, err := u.jobs.GetJob(ctx, event.JobID)
	if err != nil || job.Status.Done() {
		return
	}

	u.finish(ctx, event.JobID, func(j *entity.InsightJob) {
		j.Status = entity.JobStatusFailed
		j.Err = reason.Error()
	})
}

// RunInsight executes a queued job against the gateway and records the
// outcome on it. A completed job is never run again.
func (u *Usecase) RunInsight(ctx context.Context, jobID int64) error {
	job, err := u.jobs.GetJob(ctx, jobID)
	if err != nil {
		return mapStoreErr(err, errJobNotFound)
	}
	if job.Status == entity.JobStatusCompleted {
		return nil
	}

	if err := u.jobs.UpdateJob(ctx, jobID, func(j *entity.InsightJob) {
		j.Status = entity.JobStatusRunning
		j.Err = ""
		j.StartedAt = u.clock.Now()
	}); err != nil {
		return mapStoreErr(err, errJobNotFound)
	}

	runErr := u.runTask(ctx, job)
	if runErr != nil {
		slog.ErrorContext(ctx, "insight failed", "job_id", jobID, "task", job.Task, "error", runErr)
		u.finish(ctx, jobID, func(j *entity.InsightJob) {
			j.Status = entity.JobStatusFailed
			j.Err = runErr.Error()
		})
		return runErr
	}

	slog.InfoContext(ctx, "insight completed", "job_id", jobID, "task", job.Task)
	return nil
}

func (u *Usecase) runTask(ctx context.Context, job entity.InsightJob) error {
	if u.gateway == nil {
		return pkgerror.NewGateway(errors.New("insight gateway is not configured"))
	}

	prompt, err := u.buildPrompt(job)
	if err != nil {
		return pkgerror.NewServer(err)
	}

	ctx, cancel := context.WithTimeout(ctx, u.insight.Timeout)
	defer cancel()

	raw, err := u.gateway.Submit(ctx, job.Task, prompt)
	if err != nil {
		return pkgerror.NewGateway(err)
	}

	var apply func(j *entity.InsightJob)
	switch job.Task {
	case entity.TaskAudit:
		report, err := decodeAudit(raw)
		if err != nil {
			return pkgerror.NewGateway(err)
		}
		apply = func(j *entity.InsightJob) { j.Audit = &report }
	case entity.TaskSearch:
		matches, err := decodeSearch(raw, job.Input.Sample)
		if err != nil {
			return pkgerror.NewGateway(err)
		}
		apply = func(j *entity.InsightJob) { j.Matches = matches }
	case entity.TaskPredict:
		revenue, err := decodePrediction(raw)
		if err != nil {
			return pkgerror.NewGateway(err)
		}
		apply = func(j *entity.InsightJob) { j.Prediction = &revenue }
	default:
		return pkgerror.NewServer(fmt.Errorf("unknown task %q", job.Task))
	}

	u.finish(ctx, job.ID, func(j *entity.InsightJob) {
		apply(j)
		j.Status = entity.JobStatusCompleted
	})
	return nil
}

func (u *Usecase) buildPrompt(job entity.InsightJob) (string, error) {
	data := promptData{
		Language: u.insight.Language,
		Query:    job.Input.Query,
		Target:   job.Input.Target,
	}

	if job.Task == entity.TaskSearch {
		data.Sample = indexedSample(job.Input.Sample)
	} else {
		sample, err := jsonSample(job.Input.Sample)
		if err != nil {
			return "", err
		}
		data.Sample = sample
	}

	return u.prompts.render(job.Task, data)
}

func (u *Usecase) finish(ctx context.Context, jobID int64, fn func(j *entity.InsightJob)) {
	if err := u.jobs.UpdateJob(ctx, jobID, func(j *entity.InsightJob) {
		fn(j)
		j.FinishedAt = u.clock.Now()
	}); err != nil {
		slog.ErrorContext(ctx, "failed to record insight outcome", "job_id", jobID, "error", err)
	}
}

type auditResponse struct {
	Summary         *string   `json:"summary"`
	Strengths       *[]string `json:"strengths"`
	Weaknesses      *[]string `json:"weaknesses"`
	Strategy        string    `json:"strategy"`
	Insights        []string  `json:"insights"`
	Recommendations *[]string `json:"recommendations"`
}

func decodeAudit(raw []byte) (entity.AuditReport, error) {
	var resp auditResponse
	if err := json.Unmarshal(stripFence(raw), &resp); err != nil {
		return entity.AuditReport{}, fmt.Errorf("%w: %v", errInvalidResponse, err)
	}

	switch {
	case resp.Summary == nil:
		return entity.AuditReport{}, missingKey("summary")
	case resp.Strengths == nil:
		return entity.AuditReport{}, missingKey("strengths")
	case resp.Weaknesses == nil:
		return entity.AuditReport{}, missingKey("weaknesses")
	case resp.Recommendations == nil:
		return entity.AuditReport{}, missingKey("recommendations")
	}

	return entity.AuditReport{
		Summary:         *resp.Summary,
		Strengths:       *resp.Strengths,
		Weaknesses:      *resp.Weaknesses,
		Strategy:        resp.Strategy,
		Insights:        resp.Insights,
		Recommendations: *resp.Recommendations,
	}, nil
}

// decodeSearch maps ranked indices back onto the sample, dropping any index
// outside it.
func decodeSearch(raw []byte, sample []entity.Row) ([]entity.SearchMatch, error) {
	var indices []int
	if err := json.Unmarshal(stripFence(raw), &indices); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidResponse, err)
	}

	matches := make([]entity.SearchMatch, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(sample) {
			continue
		}
		matches = append(matches, entity.SearchMatch{Index: idx, Row: sample[idx]})
	}
	return matches, nil
}

func decodePrediction(raw []byte) (float64, error) {
	var resp struct {
		Revenue *float64 `json:"revenue"`
	}
	if err := json.Unmarshal(stripFence(raw), &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidResponse, err)
	}
	if resp.Revenue == nil {
		return 0, missingKey("revenue")
	}
	return *resp.Revenue, nil
}

func missingKey(key string) error {
	return fmt.Errorf("%w: missing %q", errInvalidResponse, key)
}

// stripFence removes a markdown code fence some models wrap JSON output in.
func stripFence(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}

	s = s[3:]
	if nl := bytes.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = bytes.TrimSuffix(bytes.TrimSpace(s), []byte("```"))
	return bytes.TrimSpace(s)
}
