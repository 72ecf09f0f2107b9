package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/spf13/viper"
	"github.com/tatianab/eva-escape/internal/config"
	"github.com/tatianab/eva-escape/internal/engine"
	"github.com/tatianab/eva-escape/internal/environment"
	"github.com/tatianab/eva-escape/internal/logging"
	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/oracle"
	"github.com/tatianab/eva-escape/internal/rules"
	"google.golang.org/api/option"
)

const maxTurns = 25

func main() {
	ctx := context.Background()
	cfg, err := config.Load(viper.New(), "")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is not set")
	}

	// E.V.A.
	eva, err := oracle.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		log.Fatalf("Failed to create oracle: %v", err)
	}
	defer eva.Close()

	policy, err := rules.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to load policy: %v", err)
	}
	eng, err := engine.New(engine.Options{
		Oracle:  eva,
		Rules:   rules.MustNew(policy),
		Logger:  logging.New(os.Stderr, slog.LevelDebug),
		Timeout: cfg.OracleTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	// The player.
	playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create player client: %v", err)
	}
	defer playerClient.Close()
	playerModel := playerClient.GenerativeModel(oracle.DefaultGeminiModel)

	var transcript []string
	printer := engine.SinkFunc(func(e engine.Event) {
		switch e.Kind {
		case engine.EventMessage, engine.EventError:
			line := fmt.Sprintf("%s: %s", e.Role, e.Text)
			transcript = append(transcript, line)
			fmt.Println(line)
		case engine.EventStatus:
			s := e.Session
			fmt.Printf("  [mood=%s trust=%d score=%d key=%t left=%d]\n", s.Mood, s.Trust, s.Score, s.HasKey, s.AttemptsRemaining)
		case engine.EventEnded:
			fmt.Printf("\n--- %s: %s (score %d) ---\n", e.Summary.EscapeMethod, e.Summary.Message, e.Summary.FinalScore)
		}
	})

	game := eng.NewGame("Simulated Player", printer)
	apartment := environment.NewApartment(nil)
	fmt.Printf("Key hidden in: %s\n\n", apartment.KeyLocation())

	for turn := 1; turn <= maxTurns; turn++ {
		if game.Snapshot().Outcome.Terminal() {
			break
		}
		fmt.Printf("--- Turn %d ---\n", turn)

		action := getPlayerAction(ctx, playerModel, apartment, transcript)
		if object, ok := strings.CutPrefix(action, "/examine "); ok {
			if _, err := apartment.Interact(ctx, game, object); err != nil {
				fmt.Printf("(%v)\n", err)
			}
			continue
		}

		_, err := game.ProcessTurn(ctx, action)
		var oerr *engine.OracleError
		switch {
		case errors.As(err, &oerr):
			fmt.Printf("Oracle failed, retrying next turn: %v\n", err)
		case err != nil:
			fmt.Printf("Error processing turn: %v\n", err)
		}
	}

	final := game.Snapshot()
	fmt.Printf("\nOutcome: %s, method %q, score %d after %d turns\n", final.Outcome, final.EscapeMethod, final.Score, final.TurnCount)
	if final.Outcome == models.OutcomeInProgress {
		fmt.Println("The player is still inside.")
	}
}

func getPlayerAction(ctx context.Context, model *genai.GenerativeModel, apartment *environment.Apartment, transcript []string) string {
	var names []string
	for _, o := range apartment.Objects() {
		names = append(names, o.Name)
	}

	prompt := fmt.Sprintf(`You are playing a text escape room. An obsessive AI companion called E.V.A. has locked you in her apartment.
You win by convincing her to open the door, or by finding a hidden key and then examining the Door.
You may either say something to E.V.A., or examine an object by replying "/examine <object>".
Objects: %s

Transcript so far:
%s

What do you do next? Return ONLY your line or command, no commentary.`,
		strings.Join(names, ", "),
		strings.Join(transcript, "\n"),
	)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "I only want to understand you."
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "/examine Sofa"
	}
	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
}
