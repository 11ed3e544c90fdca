package outbound

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

const (
	defaultGeminiModel        = "gemini-3-flash-preview"
	defaultGeminiPredictModel = "gemini-3-pro-preview"
)

type GeminiConfig struct {
	APIKey       string
	Model        string
	PredictModel string
}

// contentGenerator is the part of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini submits tasks to the Gemini API with a JSON response schema per task.
type Gemini struct {
	models       contentGenerator
	model        string
	predictModel string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGemini(client.Models, cfg), nil
}

func newGemini(models contentGenerator, cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.PredictModel == "" {
		cfg.PredictModel = defaultGeminiPredictModel
	}

	return &Gemini{
		models:       models,
		model:        cfg.Model,
		predictModel: cfg.PredictModel,
	}
}

func (g *Gemini) Submit(ctx context.Context, task entity.Task, prompt string) ([]byte, error) {
	schema := responseSchema(task)
	if schema == nil {
		return nil, fmt.Errorf("unsupported task %q", task)
	}

	model := g.model
	if task == entity.TaskPredict {
		model = g.predictModel
	}

	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
		}
		return nil, errors.New("gemini returned an empty response")
	}

	return []byte(text), nil
}
