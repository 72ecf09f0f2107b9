package oracle

import (
	"context"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tatianab/eva-escape/internal/models"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

const anthropicMaxTokens = 256

// Anthropic answers through the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	modelName string
}

func NewAnthropic(apiKey, modelName string) *Anthropic {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	return &Anthropic{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
	}
}

func (a *Anthropic) Reply(ctx context.Context, req Request) (Reply, error) {
	prompt, err := req.Prompt()
	if err != nil {
		return Reply{}, err
	}

	messages := anthropicHistory(req.History)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.modelName),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.Persona}},
		Messages:  messages,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("anthropic: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return ParseReply(text)
}

func anthropicHistory(turns []models.Turn) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(turns)+1)
	for _, t := range turns {
		if t.Role == models.RoleEVA {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		}
	}
	return messages
}
