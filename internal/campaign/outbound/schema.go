package outbound

import (
	"google.golang.org/genai"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

func stringList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

// responseSchema is the structured output contract requested for each task.
func responseSchema(task entity.Task) *genai.Schema {
	switch task {
	case entity.TaskAudit:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"summary":         {Type: genai.TypeString},
				"strengths":       stringList(),
				"weaknesses":      stringList(),
				"strategy":        {Type: genai.TypeString},
				"insights":        stringList(),
				"recommendations": stringList(),
			},
			Required: []string{"summary", "strengths", "weaknesses", "strategy", "insights", "recommendations"},
		}
	case entity.TaskSearch:
		return &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeInteger},
		}
	case entity.TaskPredict:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"revenue": {Type: genai.TypeNumber},
			},
			Required: []string{"revenue"},
		}
	default:
		return nil
	}
}
