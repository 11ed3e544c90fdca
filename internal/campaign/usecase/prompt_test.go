package usecase

import (
	"strings"
	"testing"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

func TestLoadPromptsCoversEveryTask(t *testing.T) {
	p, err := LoadPrompts()
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}

	for _, task := range []entity.Task{entity.TaskAudit, entity.TaskSearch, entity.TaskPredict} {
		out, err := p.render(task, promptData{Language: "English", Sample: "SAMPLE", Query: "Q"})
		if err != nil {
			t.Fatalf("render %s: %v", task, err)
		}
		if !strings.Contains(out, "SAMPLE") {
			t.Fatalf("%s prompt does not embed the sample: %s", task, out)
		}
	}
}

func TestParsePromptsRejectsMissingTask(t *testing.T) {
	if _, err := parsePrompts([]byte("audit: hi\nsearch: there\n")); err == nil {
		t.Fatal("expected error for missing predict prompt")
	}
	if _, err := parsePrompts([]byte("audit: '{{.Nope'\nsearch: a\npredict: b\n")); err == nil {
		t.Fatal("expected template parse error")
	}
}

func TestIndexedSample(t *testing.T) {
	rows := []entity.Row{{CampaignName: "A", AdCopy: "buy"}, {CampaignName: "B"}}
	if got := indexedSample(rows); got != "0: A - buy\n1: B - " {
		t.Fatalf("unexpected sample: %q", got)
	}
}
