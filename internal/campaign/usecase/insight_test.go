package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgerror"
)

type testJobs struct {
	mu   sync.Mutex
	jobs map[int64]entity.InsightJob
}

func newTestJobs() *testJobs {
	return &testJobs{jobs: make(map[int64]entity.InsightJob)}
}

func (s *testJobs) CreateJob(ctx context.Context, job entity.InsightJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *testJobs) UpdateJob(ctx context.Context, jobID int64, fn func(job *entity.InsightJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return pkgerror.ErrNotFound
	}
	fn(&job)
	s.jobs[jobID] = job
	return nil
}

func (s *testJobs) GetJob(ctx context.Context, jobID int64) (entity.InsightJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return entity.InsightJob{}, pkgerror.ErrNotFound
	}
	return job, nil
}

type testPublisher struct {
	err    error
	events []entity.InsightRequested
}

func (p *testPublisher) Publish(ctx context.Context, event entity.InsightRequested) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type testJobID struct {
	n int64
}

func (t *testJobID) Generate() int64 {
	t.n++
	return t.n
}

type testGateway struct {
	resp    string
	err     error
	calls   int
	task    entity.Task
	prompts []string
}

func (g *testGateway) Submit(ctx context.Context, task entity.Task, prompt string) ([]byte, error) {
	g.calls++
	g.task = task
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return nil, g.err
	}
	return []byte(g.resp), nil
}

type insightFixture struct {
	uc     *Usecase
	jobs   *testJobs
	events *testPublisher
	gw     *testGateway
}

func newInsightFixture(t *testing.T, rows int) insightFixture {
	t.Helper()
	f := insightFixture{
		jobs:   newTestJobs(),
		events: &testPublisher{},
		gw:     &testGateway{},
	}
	f.uc = newTestUsecase(t, Dependency{
		Jobs:    f.jobs,
		Events:  f.events,
		Gateway: f.gw,
		JobID:   &testJobID{},
		Insight: InsightConfig{SearchSample: 3, Language: "English"},
	})

	if rows > 0 {
		text := "campaign_name,ad_copy,impressions,spend,revenue\n"
		for i := range rows {
			text += strings.Join([]string{"camp" + string(rune('A'+i)), "copy" + string(rune('A'+i)), "100", "10", "30"}, ",") + "\n"
		}
		if _, err := f.uc.IngestFile(context.Background(), entity.FileMeta{Name: "seed.csv"}, strings.NewReader(text)); err != nil {
			t.Fatalf("seed dataset: %v", err)
		}
	}
	return f
}

func (f insightFixture) run(t *testing.T, job entity.InsightJob) entity.InsightJob {
	t.Helper()
	_ = f.uc.RunInsight(context.Background(), job.ID)
	got, err := f.uc.Insight(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Insight: %v", err)
	}
	return got
}

func TestInsightRequestsNeedData(t *testing.T) {
	f := newInsightFixture(t, 0)
	ctx := context.Background()

	if _, err := f.uc.RequestAudit(ctx); !pkgerror.IsCode(err, pkgerror.CodeConflict) {
		t.Fatalf("audit: expected conflict, got %v", err)
	}
	if _, err := f.uc.RequestSearch(ctx, "summer"); !pkgerror.IsCode(err, pkgerror.CodeConflict) {
		t.Fatalf("search: expected conflict, got %v", err)
	}
	if _, err := f.uc.RequestPrediction(ctx, entity.PredictionTarget{}); !pkgerror.IsCode(err, pkgerror.CodeConflict) {
		t.Fatalf("predict: expected conflict, got %v", err)
	}
	if len(f.events.events) != 0 || f.gw.calls != 0 {
		t.Fatal("nothing should be queued without data")
	}
}

func TestRequestAuditQueuesPendingJob(t *testing.T) {
	f := newInsightFixture(t, 25)

	job, err := f.uc.RequestAudit(context.Background())
	if err != nil {
		t.Fatalf("RequestAudit: %v", err)
	}
	if job.Status != entity.JobStatusPending || job.Task != entity.TaskAudit {
		t.Fatalf("unexpected job: %+v", job)
	}
	if len(job.Input.Sample) != defaultAuditSample {
		t.Fatalf("expected sample of %d rows, got %d", defaultAuditSample, len(job.Input.Sample))
	}
	if diff := cmp.Diff([]entity.InsightRequested{{JobID: job.ID, Task: entity.TaskAudit}}, f.events.events); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
	if f.gw.calls != 0 {
		t.Fatal("request must not call the gateway")
	}
}

func TestRunAuditStoresReport(t *testing.T) {
	f := newInsightFixture(t, 2)
	f.gw.resp = "```json\n" + `{"summary":"ok","strengths":["ctr"],"weaknesses":[],"strategy":"scale","recommendations":["more budget"]}` + "\n```"

	job, err := f.uc.RequestAudit(context.Background())
	if err != nil {
		t.Fatalf("RequestAudit: %v", err)
	}

	got := f.run(t, job)
	if got.Status != entity.JobStatusCompleted {
		t.Fatalf("expected completed, got %+v", got)
	}
	want := &entity.AuditReport{
		Summary:         "ok",
		Strengths:       []string{"ctr"},
		Weaknesses:      []string{},
		Strategy:        "scale",
		Recommendations: []string{"more budget"},
	}
	if diff := cmp.Diff(want, got.Audit); diff != "" {
		t.Fatalf("unexpected report (-want +got):\n%s", diff)
	}
	if !strings.Contains(f.gw.prompts[0], "in English") || !strings.Contains(f.gw.prompts[0], `"campaign_name":"campA"`) {
		t.Fatalf("unexpected prompt: %s", f.gw.prompts[0])
	}
	if got.StartedAt.IsZero() || got.FinishedAt.IsZero() {
		t.Fatalf("expected timestamps, got %+v", got)
	}
}

func TestRunAuditMissingKeyFails(t *testing.T) {
	f := newInsightFixture(t, 1)
	f.gw.resp = `{"summary":"ok","strengths":[],"weaknesses":[]}`

	job, _ := f.uc.RequestAudit(context.Background())
	err := f.uc.RunInsight(context.Background(), job.ID)
	if !pkgerror.IsCode(err, pkgerror.CodeBadGateway) || !errors.Is(err, errInvalidResponse) {
		t.Fatalf("expected invalid gateway response, got %v", err)
	}

	got, _ := f.uc.Insight(context.Background(), job.ID)
	if got.Status != entity.JobStatusFailed || !strings.Contains(got.Err, `"recommendations"`) {
		t.Fatalf("expected failed job naming the key, got %+v", got)
	}
	if got.Audit != nil {
		t.Fatal("failed job must not carry a result")
	}
}

func TestRunSearchDropsOutOfRangeIndices(t *testing.T) {
	f := newInsightFixture(t, 5)
	f.gw.resp = `[2, 7, -1, 0]`

	job, err := f.uc.RequestSearch(context.Background(), "  copyC  ")
	if err != nil {
		t.Fatalf("RequestSearch: %v", err)
	}
	if job.Input.Query != "copyC" || len(job.Input.Sample) != 3 {
		t.Fatalf("unexpected job input: %+v", job.Input)
	}

	got := f.run(t, job)
	if got.Status != entity.JobStatusCompleted {
		t.Fatalf("expected completed, got %+v", got)
	}
	if len(got.Matches) != 2 || got.Matches[0].Index != 2 || got.Matches[0].Row.CampaignName != "campC" || got.Matches[1].Index != 0 {
		t.Fatalf("unexpected matches: %+v", got.Matches)
	}
	if !strings.Contains(f.gw.prompts[0], "1: campB - copyB") {
		t.Fatalf("expected indexed sample in prompt, got %s", f.gw.prompts[0])
	}
}

func TestRequestSearchValidatesQuery(t *testing.T) {
	f := newInsightFixture(t, 1)

	if _, err := f.uc.RequestSearch(context.Background(), "   "); !pkgerror.IsCode(err, pkgerror.CodeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := f.uc.RequestSearch(context.Background(), strings.Repeat("q", maxQueryLength+1)); !pkgerror.IsCode(err, pkgerror.CodeInvalidInput) {
		t.Fatalf("expected invalid input for long query, got %v", err)
	}
}

func TestRunPredictionDefaultsTarget(t *testing.T) {
	f := newInsightFixture(t, 1)
	f.gw.resp = `{"revenue": 1234.5}`

	job, err := f.uc.RequestPrediction(context.Background(), entity.PredictionTarget{CampaignName: "Summer", Spend: 200})
	if err != nil {
		t.Fatalf("RequestPrediction: %v", err)
	}
	if job.Input.Target.Category != "search" || job.Input.Target.Date != "2026-03-14" {
		t.Fatalf("expected defaults, got %+v", job.Input.Target)
	}

	got := f.run(t, job)
	if got.Prediction == nil || *got.Prediction != 1234.5 {
		t.Fatalf("unexpected prediction: %+v", got)
	}
	if f.gw.task != entity.TaskPredict || !strings.Contains(f.gw.prompts[0], "- Spend: 200") {
		t.Fatalf("unexpected gateway call: task=%s prompt=%s", f.gw.task, f.gw.prompts[0])
	}

	if _, err := f.uc.RequestPrediction(context.Background(), entity.PredictionTarget{Clicks: -1}); !pkgerror.IsCode(err, pkgerror.CodeInvalidInput) {
		t.Fatalf("expected invalid input for negative clicks, got %v", err)
	}
}

func TestRunPredictionRequiresRevenue(t *testing.T) {
	f := newInsightFixture(t, 1)
	f.gw.resp = `{"value": 3}`

	job, _ := f.uc.RequestPrediction(context.Background(), entity.PredictionTarget{})
	got := f.run(t, job)
	if got.Status != entity.JobStatusFailed || got.Prediction != nil {
		t.Fatalf("expected failure, got %+v", got)
	}
}

func TestRunInsightGatewayErrorThenRetry(t *testing.T) {
	f := newInsightFixture(t, 1)
	f.gw.err = errors.New("connection reset")

	job, _ := f.uc.RequestPrediction(context.Background(), entity.PredictionTarget{})
	got := f.run(t, job)
	if got.Status != entity.JobStatusFailed || got.Err != "connection reset" {
		t.Fatalf("expected gateway failure, got %+v", got)
	}

	f.gw.err = nil
	f.gw.resp = `{"revenue": 10}`
	got = f.run(t, job)
	if got.Status != entity.JobStatusCompleted || got.Err != "" {
		t.Fatalf("expected retry to complete, got %+v", got)
	}

	got = f.run(t, job)
	if f.gw.calls != 2 {
		t.Fatalf("completed job must not run again, gateway calls=%d", f.gw.calls)
	}
}

func TestRequestPublishFailureMarksJobFailed(t *testing.T) {
	f := newInsightFixture(t, 1)
	f.events.err = errors.New("bus closed")

	if _, err := f.uc.RequestAudit(context.Background()); !pkgerror.IsCode(err, pkgerror.CodeUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	job, err := f.uc.Insight(context.Background(), 1)
	if err != nil {
		t.Fatalf("Insight: %v", err)
	}
	if job.Status != entity.JobStatusFailed {
		t.Fatalf("expected failed job, got %+v", job)
	}
}

func TestDiscardFailsQueuedJobOnly(t *testing.T) {
	f := newInsightFixture(t, 1)
	f.gw.resp = `{"revenue": 10}`
	ctx := context.Background()
	reason := errors.New("stopped before start")

	queued, _ := f.uc.RequestPrediction(ctx, entity.PredictionTarget{})
	f.uc.Discard(ctx, entity.InsightRequested{JobID: queued.ID}, reason)
	got, err := f.uc.Insight(ctx, queued.ID)
	if err != nil {
		t.Fatalf("Insight: %v", err)
	}
	if got.Status != entity.JobStatusFailed || got.Err != reason.Error() {
		t.Fatalf("expected discarded job to fail, got %+v", got)
	}

	done, _ := f.uc.RequestPrediction(ctx, entity.PredictionTarget{})
	if got := f.run(t, done); got.Status != entity.JobStatusCompleted {
		t.Fatalf("expected completed job, got %+v", got)
	}
	f.uc.Discard(ctx, entity.InsightRequested{JobID: done.ID}, reason)
	if got, _ := f.uc.Insight(ctx, done.ID); got.Status != entity.JobStatusCompleted {
		t.Fatalf("completed job must not be discarded, got %+v", got)
	}
}

func TestInsightLookupErrors(t *testing.T) {
	f := newInsightFixture(t, 0)

	if _, err := f.uc.Insight(context.Background(), 0); !pkgerror.IsCode(err, pkgerror.CodeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := f.uc.Insight(context.Background(), 99); !pkgerror.IsCode(err, pkgerror.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStripFence(t *testing.T) {
	cases := map[string]string{
		`[1]`:                   `[1]`,
		"  {\"a\":1}\n":         `{"a":1}`,
		"```json\n[1,2]\n```":   `[1,2]`,
		"```\n{\"a\":1}\n```\n": `{"a":1}`,
	}
	for in, want := range cases {
		if got := string(stripFence([]byte(in))); got != want {
			t.Fatalf("stripFence(%q): expected %q, got %q", in, want, got)
		}
	}
}
