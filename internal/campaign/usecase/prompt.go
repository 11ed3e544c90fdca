package usecase

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

//go:embed prompts/insight.yaml
var promptFS embed.FS

const promptFile = "prompts/insight.yaml"

// Prompts holds the parsed template of every gateway task.
type Prompts struct {
	tmpl map[entity.Task]*template.Template
}

type promptData struct {
	Language string
	Sample   string
	Query    string
	Target   entity.PredictionTarget
}

// LoadPrompts parses the embedded template catalogue. Every task must have a
// template.
func LoadPrompts() (*Prompts, error) {
	data, err := promptFS.ReadFile(promptFile)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return parsePrompts(data)
}

func parsePrompts(data []byte) (*Prompts, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}

	p := &Prompts{tmpl: make(map[entity.Task]*template.Template, len(raw))}
	for _, task := range []entity.Task{entity.TaskAudit, entity.TaskSearch, entity.TaskPredict} {
		text, ok := raw[string(task)]
		if !ok || strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("prompt %q is missing", task)
		}

		t, err := template.New(string(task)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", task, err)
		}
		p.tmpl[task] = t
	}

	return p, nil
}

func (p *Prompts) render(task entity.Task, data promptData) (string, error) {
	t, ok := p.tmpl[task]
	if !ok {
		return "", fmt.Errorf("no prompt for task %q", task)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", task, err)
	}
	return buf.String(), nil
}

// jsonSample serializes rows as a JSON array of flat objects.
func jsonSample(rows []entity.Row) (string, error) {
	if rows == nil {
		rows = []entity.Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode sample: %w", err)
	}
	return string(data), nil
}

// indexedSample lists rows as "index: campaign - ad copy" lines.
func indexedSample(rows []entity.Row) string {
	var b strings.Builder
	for i := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i))
		b.WriteString(": ")
		b.WriteString(rows[i].CampaignName)
		b.WriteString(" - ")
		b.WriteString(rows[i].AdCopy)
	}
	return b.String()
}
