package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/oracle"
	"github.com/tatianab/eva-escape/internal/rules"
	"golang.org/x/sync/semaphore"
)

// KeyStatus is the result of picking up the key.
type KeyStatus int

const (
	KeyAcquired KeyStatus = iota
	KeyAlreadyHeld
	KeyUnavailable // the session is over
)

// ExitStatus is the result of trying the exit door.
type ExitStatus int

const (
	ExitOpened ExitStatus = iota
	ExitLocked
	ExitUnavailable // the session is over
)

const (
	lockedMessage = "This is the main exit. It's locked. Only E.V.A. can open it, or perhaps a key..."
	escapeMessage = "You slot the key into a hidden lock. The door clicks open. You escaped... but she's still in there."
)

// Game is one session and the only thing allowed to mutate it. Turns are
// single-flight; key and door interactions may run while a turn waits on
// the oracle.
type Game struct {
	engine   *Engine
	sink     Sink
	logger   *slog.Logger
	inflight *semaphore.Weighted
	thinking atomic.Bool

	mu      sync.Mutex
	session *models.Session
}

// ID returns the session identifier.
func (g *Game) ID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.ID
}

// Snapshot returns a copy of the current session.
func (g *Game) Snapshot() *models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.Clone()
}

// Thinking reports whether a turn is waiting on the oracle.
func (g *Game) Thinking() bool {
	return g.thinking.Load()
}

// ProcessTurn scores the utterance, asks the oracle for E.V.A.'s reply and
// runs the verdict pass. Oracle failures come back as *OracleError with the
// session still in progress.
func (g *Game) ProcessTurn(ctx context.Context, utterance string) (models.Verdict, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return models.Verdict{}, ErrEmptyUtterance
	}
	if !g.inflight.TryAcquire(1) {
		return models.Verdict{}, ErrTurnInFlight
	}
	defer g.inflight.Release(1)
	g.thinking.Store(true)
	defer g.thinking.Store(false)

	req, snapshot, err := g.beginTurn(utterance)
	if err != nil {
		return models.Verdict{}, err
	}
	g.emit(Event{Kind: EventMessage, Role: models.RolePlayer, Text: utterance})
	g.emit(Event{Kind: EventStatus, Session: snapshot})

	reply, err := g.consult(ctx, req)
	if err != nil {
		return g.failTurn(err)
	}
	return g.finishTurn(ctx, utterance, reply)
}

func (g *Game) beginTurn(utterance string) (oracle.Request, *models.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.session
	if s.Outcome.Terminal() {
		return oracle.Request{}, nil, ErrSessionOver
	}

	s.UseAttempt()
	s.Record(models.RolePlayer, utterance, g.engine.now())

	assessment := g.engine.rules.Assess(utterance)
	g.engine.rules.Apply(s, assessment)
	g.engine.metrics.TurnProcessed()

	g.logger.Debug("turn assessed",
		slog.Int("turn", s.TurnCount),
		slog.Int("points", assessment.Points),
		slog.Any("matched", assessment.Matched),
		slog.Bool("threat", assessment.Threat),
		slog.Bool("devotion", assessment.Devotion),
		slog.String("mood", s.Mood.String()),
		slog.Int("trust", s.Trust),
		slog.Int("score", s.Score),
	)

	history := append([]models.Turn(nil), s.History...)
	req := oracle.NewRequest(history, oracle.StatusOf(s), utterance)
	return req, s.Clone(), nil
}

func (g *Game) consult(ctx context.Context, req oracle.Request) (oracle.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, g.engine.timeout)
	defer cancel()

	start := time.Now()
	reply, err := g.engine.oracle.Reply(ctx, req)
	if err == nil && strings.TrimSpace(reply.Text) == "" {
		err = oracle.ErrEmptyReply
	}
	g.engine.metrics.OracleCall(time.Since(start), err)
	return reply, err
}

func (g *Game) failTurn(cause error) (models.Verdict, error) {
	g.mu.Lock()
	s := g.session
	if s.Outcome.Terminal() {
		v := models.Verdict{Outcome: s.Outcome, EscapeMethod: s.EscapeMethod}
		g.mu.Unlock()
		return v, ErrSessionOver
	}
	s.RefundAttempt()
	s.Record(models.RoleSystem, UnresponsiveMessage, g.engine.now())
	snapshot := s.Clone()
	g.mu.Unlock()

	g.logger.Warn("oracle call failed", slog.Any("error", cause))
	g.emit(Event{Kind: EventError, Role: models.RoleSystem, Text: UnresponsiveMessage})
	g.emit(Event{Kind: EventStatus, Session: snapshot})
	return models.Verdict{Outcome: models.OutcomeInProgress}, &OracleError{Err: cause}
}

func (g *Game) finishTurn(ctx context.Context, utterance string, reply oracle.Reply) (models.Verdict, error) {
	g.mu.Lock()
	s := g.session
	if s.Outcome.Terminal() {
		// The session ended (e.g. through the door) while E.V.A. was answering.
		v := models.Verdict{Outcome: s.Outcome, EscapeMethod: s.EscapeMethod}
		g.mu.Unlock()
		g.logger.Info("discarding reply for finished session")
		return v, ErrSessionOver
	}

	now := g.engine.now()
	s.History = append(s.History,
		models.Turn{Role: models.RolePlayer, Text: utterance, At: now},
		models.Turn{Role: models.RoleEVA, Text: reply.Text, At: now},
	)
	s.Record(models.RoleEVA, reply.Text, now)

	verdict := g.engine.rules.Evaluate(s, reply, g.engine.roll)
	var summary *models.Summary
	if verdict.Terminal() {
		summary = g.conclude(s, verdict)
	}
	snapshot := s.Clone()
	g.mu.Unlock()

	g.emit(Event{Kind: EventMessage, Role: models.RoleEVA, Text: reply.Text})
	if err := g.engine.speaker.Speak(ctx, reply.Text); err != nil {
		g.logger.Debug("speech failed", slog.Any("error", err))
	}
	g.emit(Event{Kind: EventStatus, Session: snapshot})
	if summary != nil {
		g.end(ctx, snapshot, summary)
	}
	return verdict, nil
}

// conclude moves s into the verdict's terminal outcome. Caller holds g.mu.
func (g *Game) conclude(s *models.Session, v models.Verdict) *models.Summary {
	if !s.Finish(v.Outcome, v.EscapeMethod) {
		return nil
	}
	if v.Outcome == models.OutcomeLost {
		s.Score = 0
	}
	return &models.Summary{
		SessionID:    s.ID,
		PlayerName:   s.PlayerName,
		Won:          v.Outcome == models.OutcomeWon,
		Message:      v.Message,
		FinalScore:   s.Score,
		EscapeMethod: s.EscapeMethod,
	}
}

func (g *Game) end(ctx context.Context, snapshot *models.Session, summary *models.Summary) {
	g.logger.Info("session ended",
		slog.String("outcome", string(snapshot.Outcome)),
		slog.String("escape_method", snapshot.EscapeMethod),
		slog.Int("score", snapshot.Score),
		slog.Int("turns", snapshot.TurnCount),
	)
	g.engine.metrics.SessionFinished(string(snapshot.Outcome), snapshot.EscapeMethod)
	g.persist(ctx, snapshot)
	g.emit(Event{Kind: EventEnded, Session: snapshot, Summary: summary})
}

// AcquireKey records that the player found the key at location. It has no
// effect on mood, trust or score.
func (g *Game) AcquireKey(location string) KeyStatus {
	g.mu.Lock()
	s := g.session
	switch {
	case s.Outcome.Terminal():
		g.mu.Unlock()
		return KeyUnavailable
	case s.HasKey:
		g.mu.Unlock()
		return KeyAlreadyHeld
	}
	s.HasKey = true
	s.KeyLocation = location
	snapshot := s.Clone()
	g.mu.Unlock()

	g.logger.Info("key found", slog.String("location", location))
	g.emit(Event{Kind: EventStatus, Session: snapshot})
	return KeyAcquired
}

// UseKeyOnExit tries the exit door. Without the key nothing changes.
func (g *Game) UseKeyOnExit(ctx context.Context) (models.Verdict, ExitStatus) {
	g.mu.Lock()
	s := g.session
	if s.Outcome.Terminal() {
		v := models.Verdict{Outcome: s.Outcome, EscapeMethod: s.EscapeMethod}
		g.mu.Unlock()
		return v, ExitUnavailable
	}

	if !s.HasKey {
		s.Record(models.RoleSystem, lockedMessage, g.engine.now())
		g.mu.Unlock()
		g.emit(Event{Kind: EventMessage, Role: models.RoleSystem, Text: lockedMessage})
		return models.Verdict{Outcome: models.OutcomeInProgress}, ExitLocked
	}

	s.Score += g.engine.rules.Policy().KeyBonus
	verdict := models.Verdict{
		Outcome:      models.OutcomeWon,
		EscapeMethod: rules.EscapeKeyFound,
		Message:      escapeMessage,
	}
	s.Record(models.RoleSystem, "Escaped using the key.", g.engine.now())
	summary := g.conclude(s, verdict)
	snapshot := s.Clone()
	g.mu.Unlock()

	g.emit(Event{Kind: EventStatus, Session: snapshot})
	g.end(ctx, snapshot, summary)
	return verdict, ExitOpened
}

// Narrate adds a line of scene description to the transcript and shows it.
// It does nothing once the session is over.
func (g *Game) Narrate(text string) {
	g.mu.Lock()
	if g.session.Outcome.Terminal() {
		g.mu.Unlock()
		return
	}
	g.session.Record(models.RoleSystem, text, g.engine.now())
	g.mu.Unlock()

	g.emit(Event{Kind: EventMessage, Role: models.RoleSystem, Text: text})
}

// Close writes the transcript to the store, if one is configured. Call it
// when the player restarts or quits.
func (g *Game) Close(ctx context.Context) error {
	snapshot := g.Snapshot()
	if g.engine.store == nil {
		return nil
	}
	if err := g.engine.store.SaveSession(ctx, snapshot, g.engine.now()); err != nil {
		return fmt.Errorf("save transcript %s: %w", snapshot.ID, err)
	}
	return nil
}

func (g *Game) persist(ctx context.Context, snapshot *models.Session) {
	if g.engine.store == nil {
		return
	}
	if err := g.engine.store.SaveSession(ctx, snapshot, g.engine.now()); err != nil {
		g.logger.Error("failed to save transcript", slog.Any("error", err))
	}
}

func (g *Game) emit(e Event) {
	if e.SessionID == "" {
		e.SessionID = g.session.ID
	}
	g.sink.Emit(e)
}
