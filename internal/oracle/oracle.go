// Package oracle talks to the language model that voices E.V.A.
package oracle

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/tatianab/eva-escape/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/persona.txt
var personaPrompt string

//go:embed prompts/turn.txt
var turnPrompt string

var turnTemplate = template.Must(template.New("turn").Parse(turnPrompt))

// ErrEmptyReply is returned when the model answers with no usable text.
var ErrEmptyReply = errors.New("oracle returned an empty reply")

// Intent is the structured signal the model attaches to its reply.
type Intent string

const (
	IntentNone    Intent = "none"
	IntentRelease Intent = "release"
	IntentPunish  Intent = "punish"
)

func parseIntent(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentRelease:
		return IntentRelease
	case IntentPunish:
		return IntentPunish
	default:
		return IntentNone
	}
}

// Status is the session state the model sees each turn.
type Status struct {
	Mood              models.Mood
	Trust             int
	Score             int
	HasKey            bool
	AttemptsTracked   bool
	AttemptsRemaining int
}

// StatusOf captures the parts of a session the model is told about.
func StatusOf(s *models.Session) Status {
	return Status{
		Mood:              s.Mood,
		Trust:             s.Trust,
		Score:             s.Score,
		HasKey:            s.HasKey,
		AttemptsTracked:   s.AttemptsTracked(),
		AttemptsRemaining: s.AttemptsRemaining,
	}
}

// Line renders the status as a sentence for the prompt.
func (s Status) Line() string {
	key := "does not have"
	if s.HasKey {
		key = "has"
	}
	line := fmt.Sprintf("Your current mood is %s. Your trust score is %d. The player's score is %d. The player %s the key.",
		s.Mood, s.Trust, s.Score, key)
	if s.AttemptsTracked {
		line += fmt.Sprintf(" The player has %d prompts left.", s.AttemptsRemaining)
	}
	return line
}

// Request is everything the model needs to answer one utterance.
type Request struct {
	Persona   string
	History   []models.Turn
	Status    Status
	Utterance string
}

// NewRequest builds a request with the default persona.
func NewRequest(history []models.Turn, status Status, utterance string) Request {
	return Request{
		Persona:   personaPrompt,
		History:   history,
		Status:    status,
		Utterance: utterance,
	}
}

// Prompt renders the final user message for the turn.
func (r Request) Prompt() (string, error) {
	var buf bytes.Buffer
	data := struct {
		Status    string
		Utterance string
	}{
		Status:    r.Status.Line(),
		Utterance: r.Utterance,
	}
	if err := turnTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Reply is the model's answer.
type Reply struct {
	Text   string
	Intent Intent
}

// Oracle produces E.V.A.'s reply to a player utterance.
type Oracle interface {
	Reply(ctx context.Context, req Request) (Reply, error)
}

// ParseReply decodes the YAML answer the model was asked for. Anything that
// is not the expected shape is treated as a plain-text reply with no intent.
func ParseReply(raw string) (Reply, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```yaml")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var structured struct {
		Reply  string `yaml:"reply"`
		Intent string `yaml:"intent"`
	}
	if err := yaml.Unmarshal([]byte(clean), &structured); err == nil {
		if text := strings.TrimSpace(structured.Reply); text != "" {
			return Reply{Text: text, Intent: parseIntent(structured.Intent)}, nil
		}
	}
	if reply, ok := scanReply(clean); ok {
		return reply, nil
	}

	if clean == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{Text: clean, Intent: IntentNone}, nil
}

// scanReply reads the reply and intent keys line by line, for answers that
// are almost YAML but carry an unquoted colon in the reply.
func scanReply(clean string) (Reply, bool) {
	var text, intent string
	for l := range strings.Lines(clean) {
		key, value, ok := strings.Cut(l, ":")
		if !ok {
			if text != "" && intent == "" {
				text += " " + strings.TrimSpace(l)
			}
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "reply":
			text = strings.TrimSpace(value)
		case "intent":
			intent = value
		default:
			if text != "" && intent == "" {
				text += " " + strings.TrimSpace(l)
			}
		}
	}
	text = strings.Trim(strings.TrimSpace(text), `"'`)
	if text == "" {
		return Reply{}, false
	}
	return Reply{Text: text, Intent: parseIntent(intent)}, true
}

// Speaker renders a reply as audio. Failures are never fatal to a turn.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// NopSpeaker discards speech.
type NopSpeaker struct{}

func (NopSpeaker) Speak(context.Context, string) error { return nil }
