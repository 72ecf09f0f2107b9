// Package engine runs the conversation with E.V.A.: it scores each player
// utterance, consults the oracle and decides when a session is won or lost.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/tatianab/eva-escape/internal/metrics"
	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/oracle"
	"github.com/tatianab/eva-escape/internal/rules"
	"golang.org/x/sync/semaphore"
)

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 30 * time.Second

// TranscriptStore persists finished or abandoned sessions.
type TranscriptStore interface {
	SaveSession(ctx context.Context, s *models.Session, endedAt time.Time) error
}

// Options configures an Engine. Oracle and Rules are required.
type Options struct {
	Oracle  oracle.Oracle
	Speaker oracle.Speaker
	Rules   *rules.Rules
	Store   TranscriptStore
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Timeout time.Duration
	// Roll returns a value in [0, 1) for the probabilistic trust win.
	Roll func() float64
	Now  func() time.Time
}

// Engine holds what every session shares. Per-session state lives in Game.
type Engine struct {
	oracle  oracle.Oracle
	speaker oracle.Speaker
	rules   *rules.Rules
	store   TranscriptStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration
	roll    func() float64
	now     func() time.Time
}

func New(opts Options) (*Engine, error) {
	if opts.Oracle == nil {
		return nil, errors.New("engine: oracle is required")
	}
	if opts.Rules == nil {
		return nil, errors.New("engine: rules are required")
	}

	e := &Engine{
		oracle:  opts.Oracle,
		speaker: opts.Speaker,
		rules:   opts.Rules,
		store:   opts.Store,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		timeout: opts.Timeout,
		roll:    opts.Roll,
		now:     opts.Now,
	}
	if e.speaker == nil {
		e.speaker = oracle.NopSpeaker{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.roll == nil {
		e.roll = rand.Float64
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Rules returns the rules sessions are judged by.
func (e *Engine) Rules() *rules.Rules {
	return e.rules
}

// NewGame starts a fresh session for playerName.
func (e *Engine) NewGame(playerName string, sink Sink) *Game {
	s := models.NewSession(playerName, e.rules.Policy().MaxAttempts, e.now())
	return e.newGame(s, sink)
}

// ResumeGame continues a saved session that has not ended yet.
func (e *Engine) ResumeGame(s *models.Session, sink Sink) (*Game, error) {
	if s.Outcome.Terminal() {
		return nil, ErrSessionOver
	}
	return e.newGame(s.Clone(), sink), nil
}

func (e *Engine) newGame(s *models.Session, sink Sink) *Game {
	if sink == nil {
		sink = Discard
	}
	g := &Game{
		engine:   e,
		sink:     sink,
		logger:   e.logger.With(slog.String("session_id", s.ID)),
		inflight: semaphore.NewWeighted(1),
		session:  s,
	}
	g.logger.Info("session started", slog.String("player", s.PlayerName))
	return g
}
