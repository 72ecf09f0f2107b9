package oracle

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/eva-escape/internal/models"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini answers through the Gemini API.
type Gemini struct {
	client    *genai.Client
	modelName string
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &Gemini{
		client:    client,
		modelName: modelName,
	}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Reply(ctx context.Context, req Request) (Reply, error) {
	prompt, err := req.Prompt()
	if err != nil {
		return Reply{}, err
	}

	// GenerativeModel is a lightweight handle; one per call keeps the persona
	// from leaking between concurrent sessions.
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.Persona)}}

	cs := model.StartChat()
	cs.History = geminiHistory(req.History)

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return Reply{}, fmt.Errorf("gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Reply{}, ErrEmptyReply
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return Reply{}, fmt.Errorf("unexpected response type from Gemini")
	}
	return ParseReply(string(text))
}

func geminiHistory(turns []models.Turn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == models.RoleEVA {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}
	return history
}
