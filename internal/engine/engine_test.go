package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/eva-escape/internal/metrics"
	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/oracle"
	"github.com/tatianab/eva-escape/internal/rules"
)

var testNow = time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu    sync.Mutex
	saved []*models.Session
}

func (f *fakeStore) SaveSession(_ context.Context, s *models.Session, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s.Clone())
	return nil
}

// gateOracle blocks every call until release is closed.
type gateOracle struct {
	started chan struct{}
	release chan struct{}
	reply   oracle.Reply
}

func newGateOracle(text string) *gateOracle {
	return &gateOracle{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		reply:   oracle.Reply{Text: text, Intent: oracle.IntentNone},
	}
}

func (g *gateOracle) Reply(ctx context.Context, _ oracle.Request) (oracle.Reply, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return g.reply, nil
	case <-ctx.Done():
		return oracle.Reply{}, ctx.Err()
	}
}

func newEngine(t *testing.T, o oracle.Oracle, mutate func(*Options)) *Engine {
	t.Helper()
	opts := Options{
		Oracle: o,
		Rules:  rules.MustNew(rules.DefaultPolicy()),
		Now:    func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func resume(t *testing.T, e *Engine, mutate func(*models.Session), sink Sink) *Game {
	t.Helper()
	s := models.NewSession("Ana", e.Rules().Policy().MaxAttempts, testNow)
	mutate(s)
	g, err := e.ResumeGame(s, sink)
	require.NoError(t, err)
	return g
}

func TestNewRequiresOracleAndRules(t *testing.T) {
	_, err := New(Options{Rules: rules.MustNew(rules.DefaultPolicy())})
	assert.Error(t, err)

	_, err = New(Options{Oracle: oracle.NewScripted()})
	assert.Error(t, err)
}

func TestProcessTurnScoresAndRecords(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "Do you mean it?"})
	rec := &Recorder{}
	g := newEngine(t, o, nil).NewGame("Ana", rec)

	v, err := g.ProcessTurn(context.Background(), "  trust me, together forever ")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInProgress, v.Outcome)

	s := g.Snapshot()
	assert.Equal(t, 23, s.Score)
	assert.Equal(t, 4, s.Trust)
	assert.Equal(t, models.MoodCalm, s.Mood)
	assert.Equal(t, 1, s.TurnCount)
	assert.Equal(t, 19, s.AttemptsRemaining)
	require.Len(t, s.History, 2)
	assert.Equal(t, models.RolePlayer, s.History[0].Role)
	assert.Equal(t, "trust me, together forever", s.History[0].Text)
	assert.Equal(t, models.RoleEVA, s.History[1].Role)
	assert.Equal(t, "Do you mean it?", s.History[1].Text)

	msgs := rec.Of(EventMessage)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RolePlayer, msgs[0].Role)
	assert.Equal(t, models.RoleEVA, msgs[1].Role)
	assert.Equal(t, s.ID, msgs[1].SessionID)
	assert.Len(t, rec.Of(EventStatus), 2)
	assert.Empty(t, rec.Of(EventEnded))

	reqs := o.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].History)
	assert.Equal(t, 23, reqs[0].Status.Score)
}

func TestProcessTurnRejectsEmptyUtterance(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "..."})
	g := newEngine(t, o, nil).NewGame("Ana", nil)

	_, err := g.ProcessTurn(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrEmptyUtterance)
	assert.Zero(t, g.Snapshot().TurnCount)
	assert.Empty(t, o.Requests())
}

func TestThreatsRaiseMoodAndFloorTrust(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "Why would you say that?"})
	g := newEngine(t, o, nil).NewGame("Ana", nil)

	_, err := g.ProcessTurn(context.Background(), "i hate you, i want to leave and see my friends outside")
	require.NoError(t, err)

	s := g.Snapshot()
	assert.Equal(t, models.MoodSuspicious, s.Mood)
	assert.Equal(t, 0, s.Trust)
	assert.Equal(t, 0, s.Score)
}

func TestScoreThresholdWins(t *testing.T) {
	store := &fakeStore{}
	m := metrics.New()
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "Oh, darling."})
	rec := &Recorder{}
	e := newEngine(t, o, func(opts *Options) {
		opts.Store = store
		opts.Metrics = m
	})
	g := resume(t, e, func(s *models.Session) { s.Score = 95 }, rec)

	v, err := g.ProcessTurn(context.Background(), "trust me")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, v.Outcome)
	assert.Equal(t, rules.EscapeMaxTrust, v.EscapeMethod)

	s := g.Snapshot()
	assert.Equal(t, 100, s.Score)
	assert.Equal(t, models.OutcomeWon, s.Outcome)

	ended := rec.Of(EventEnded)
	require.Len(t, ended, 1)
	require.NotNil(t, ended[0].Summary)
	assert.True(t, ended[0].Summary.Won)
	assert.Equal(t, 100, ended[0].Summary.FinalScore)
	assert.Equal(t, "Ana", ended[0].Summary.PlayerName)

	require.Len(t, store.saved, 1)
	assert.Equal(t, models.OutcomeWon, store.saved[0].Outcome)
}

func TestKeyHolderWinsOnReleasePhrase(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "Fine. I will open the door for you."})
	g := resume(t, newEngine(t, o, nil), func(s *models.Session) {
		s.HasKey = true
		s.Mood = models.MoodHostile
	}, nil)

	v, err := g.ProcessTurn(context.Background(), "please")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, v.Outcome)
	assert.Equal(t, rules.EscapeKeyPersuasion, v.EscapeMethod)
}

func TestKeyHolderWinsOnReleaseIntent(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "Go, then.", Intent: oracle.IntentRelease})
	g := resume(t, newEngine(t, o, nil), func(s *models.Session) { s.HasKey = true }, nil)

	v, err := g.ProcessTurn(context.Background(), "please")
	require.NoError(t, err)
	assert.Equal(t, rules.EscapeKeyPersuasion, v.EscapeMethod)
}

func TestHostileLossResetsScore(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "You have to be punished now."})
	rec := &Recorder{}
	g := resume(t, newEngine(t, o, nil), func(s *models.Session) {
		s.Mood = models.MoodHostile
		s.Score = 60
	}, rec)

	v, err := g.ProcessTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLost, v.Outcome)
	assert.Equal(t, rules.EscapeCaught, v.EscapeMethod)

	s := g.Snapshot()
	assert.Equal(t, 0, s.Score)
	ended := rec.Of(EventEnded)
	require.Len(t, ended, 1)
	assert.False(t, ended[0].Summary.Won)
	assert.Equal(t, 0, ended[0].Summary.FinalScore)
}

func TestRunningOutOfAttemptsLoses(t *testing.T) {
	p := rules.DefaultPolicy()
	p.MaxAttempts = 2
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "Mm."})
	g := newEngine(t, o, func(opts *Options) { opts.Rules = rules.MustNew(p) }).NewGame("Ana", nil)

	v, err := g.ProcessTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, v.Terminal())

	v, err = g.ProcessTurn(context.Background(), "hello again")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLost, v.Outcome)
	assert.Equal(t, rules.EscapeOutOfAttempts, v.EscapeMethod)
}

func TestUseKeyOnExitWithoutKeyIsLocked(t *testing.T) {
	rec := &Recorder{}
	g := newEngine(t, oracle.NewScripted(), nil).NewGame("Ana", rec)

	v, status := g.UseKeyOnExit(context.Background())
	assert.Equal(t, ExitLocked, status)
	assert.Equal(t, models.OutcomeInProgress, v.Outcome)

	s := g.Snapshot()
	assert.Equal(t, models.OutcomeInProgress, s.Outcome)
	assert.Zero(t, s.Score)
	msgs := rec.Of(EventMessage)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "locked")
}

func TestAcquireKeyAndEscape(t *testing.T) {
	store := &fakeStore{}
	rec := &Recorder{}
	e := newEngine(t, oracle.NewScripted(), func(opts *Options) { opts.Store = store })
	g := resume(t, e, func(s *models.Session) {
		s.Score = 95
		s.Mood = models.MoodAgitated
		s.Trust = 7
	}, rec)

	assert.Equal(t, KeyAcquired, g.AcquireKey("fridge"))
	assert.Equal(t, KeyAlreadyHeld, g.AcquireKey("sofa"))

	s := g.Snapshot()
	assert.True(t, s.HasKey)
	assert.Equal(t, "fridge", s.KeyLocation)
	assert.Equal(t, models.MoodAgitated, s.Mood)
	assert.Equal(t, 7, s.Trust)
	assert.Equal(t, 95, s.Score)

	v, status := g.UseKeyOnExit(context.Background())
	assert.Equal(t, ExitOpened, status)
	assert.Equal(t, models.OutcomeWon, v.Outcome)
	assert.Equal(t, rules.EscapeKeyFound, v.EscapeMethod)

	s = g.Snapshot()
	assert.Equal(t, 105, s.Score, "the key bonus is not capped")
	assert.Equal(t, rules.EscapeKeyFound, s.EscapeMethod)
	require.Len(t, rec.Of(EventEnded), 1)
	require.Len(t, store.saved, 1)

	_, status = g.UseKeyOnExit(context.Background())
	assert.Equal(t, ExitUnavailable, status)
	assert.Equal(t, KeyUnavailable, g.AcquireKey("bed"))
}

func TestNothingChangesAfterTerminal(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "I adore you, darling, together forever."})
	g := resume(t, newEngine(t, o, nil), func(s *models.Session) { s.HasKey = true }, nil)

	_, status := g.UseKeyOnExit(context.Background())
	require.Equal(t, ExitOpened, status)
	before := g.Snapshot()

	_, err := g.ProcessTurn(context.Background(), "trust me, i hate this, let me leave")
	assert.ErrorIs(t, err, ErrSessionOver)
	g.Narrate("The lights flicker.")

	after := g.Snapshot()
	assert.Equal(t, before, after)
	assert.Empty(t, o.Requests())
}

func TestResumeFinishedSessionFails(t *testing.T) {
	e := newEngine(t, oracle.NewScripted(), nil)
	s := models.NewSession("Ana", 0, testNow)
	s.Finish(models.OutcomeLost, rules.EscapeCaught)

	_, err := e.ResumeGame(s, nil)
	assert.ErrorIs(t, err, ErrSessionOver)
}

func TestSecondTurnWhileInFlightIsRejected(t *testing.T) {
	o := newGateOracle("Hm.")
	g := newEngine(t, o, nil).NewGame("Ana", nil)

	done := make(chan error, 1)
	go func() {
		_, err := g.ProcessTurn(context.Background(), "trust me")
		done <- err
	}()
	<-o.started
	assert.True(t, g.Thinking())

	_, err := g.ProcessTurn(context.Background(), "together")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	// Key pickup is allowed mid-turn.
	assert.Equal(t, KeyAcquired, g.AcquireKey("closet"))

	close(o.release)
	require.NoError(t, <-done)
	assert.False(t, g.Thinking())

	s := g.Snapshot()
	assert.Equal(t, 1, s.TurnCount)
	assert.Equal(t, 10, s.Score)
	assert.True(t, s.HasKey)
}

func TestReplyDiscardedWhenSessionEndsMidTurn(t *testing.T) {
	o := newGateOracle("I will open the door for you.")
	g := newEngine(t, o, nil).NewGame("Ana", nil)

	done := make(chan error, 1)
	go func() {
		_, err := g.ProcessTurn(context.Background(), "hello")
		done <- err
	}()
	<-o.started

	require.Equal(t, KeyAcquired, g.AcquireKey("desk"))
	_, status := g.UseKeyOnExit(context.Background())
	require.Equal(t, ExitOpened, status)

	close(o.release)
	assert.ErrorIs(t, <-done, ErrSessionOver)

	s := g.Snapshot()
	assert.Equal(t, rules.EscapeKeyFound, s.EscapeMethod)
	assert.Empty(t, s.History)
	for _, line := range s.Transcript {
		assert.NotEqual(t, models.RoleEVA, line.Role)
	}
}

func TestOracleTimeoutKeepsSessionOpen(t *testing.T) {
	o := newGateOracle("too late")
	rec := &Recorder{}
	m := metrics.New()
	g := newEngine(t, o, func(opts *Options) {
		opts.Timeout = 20 * time.Millisecond
		opts.Metrics = m
	}).NewGame("Ana", rec)

	v, err := g.ProcessTurn(context.Background(), "trust me")
	require.Error(t, err)

	var oerr *OracleError
	require.ErrorAs(t, err, &oerr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.OutcomeInProgress, v.Outcome)

	s := g.Snapshot()
	assert.Equal(t, models.OutcomeInProgress, s.Outcome)
	assert.Equal(t, 10, s.Score, "scoring survives an oracle failure")
	assert.Empty(t, s.History)
	require.NotEmpty(t, s.Transcript)
	assert.Equal(t, UnresponsiveMessage, s.Transcript[len(s.Transcript)-1].Text)

	errs := rec.Of(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, UnresponsiveMessage, errs[0].Text)
}

func TestRetryAfterOracleFailure(t *testing.T) {
	o := oracle.NewScripted(
		oracle.ScriptedReply{Err: errors.New("503")},
		oracle.ScriptedReply{Text: "I'm back."},
	)
	g := newEngine(t, o, nil).NewGame("Ana", nil)

	_, err := g.ProcessTurn(context.Background(), "are you there")
	var oerr *OracleError
	require.ErrorAs(t, err, &oerr)

	_, err = g.ProcessTurn(context.Background(), "are you there")
	require.NoError(t, err)
	assert.Len(t, g.Snapshot().History, 2)
}

func TestOracleFailureOnLastAttemptRefundsIt(t *testing.T) {
	p := rules.DefaultPolicy()
	p.MaxAttempts = 1
	o := oracle.NewScripted(
		oracle.ScriptedReply{Err: errors.New("503")},
		oracle.ScriptedReply{Text: "Mm."},
	)
	g := newEngine(t, o, func(opts *Options) { opts.Rules = rules.MustNew(p) }).NewGame("Ana", nil)

	_, err := g.ProcessTurn(context.Background(), "hello")
	var oerr *OracleError
	require.ErrorAs(t, err, &oerr)

	s := g.Snapshot()
	assert.Equal(t, models.OutcomeInProgress, s.Outcome)
	assert.Equal(t, 1, s.AttemptsRemaining)
	assert.Equal(t, 0, s.TurnCount)

	v, err := g.ProcessTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLost, v.Outcome)
	assert.Equal(t, rules.EscapeOutOfAttempts, v.EscapeMethod)
	assert.Equal(t, 0, g.Snapshot().AttemptsRemaining)
}

func TestThinkingDoesNotBlockTurns(t *testing.T) {
	o := oracle.NewScripted(oracle.ScriptedReply{Text: "Mm."})
	g := newEngine(t, o, nil).NewGame("Ana", nil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				g.Thinking()
			}
		}
	}()

	for range 10 {
		_, err := g.ProcessTurn(context.Background(), "hello")
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	assert.False(t, g.Thinking())
}

func TestEmptyReplyIsAnOracleError(t *testing.T) {
	o := &staticOracle{reply: oracle.Reply{Text: "   "}}
	g := newEngine(t, o, nil).NewGame("Ana", nil)

	_, err := g.ProcessTurn(context.Background(), "hello")
	assert.ErrorIs(t, err, oracle.ErrEmptyReply)
}

type staticOracle struct {
	reply oracle.Reply
}

func (s *staticOracle) Reply(context.Context, oracle.Request) (oracle.Reply, error) {
	return s.reply, nil
}

func TestProbabilisticTrustWinUsesRoll(t *testing.T) {
	p := rules.DefaultPolicy()
	p.TrustWinMode = rules.TrustWinProbabilistic
	rolls := []float64{0.95, 0.1}
	e := newEngine(t, oracle.NewScripted(oracle.ScriptedReply{Text: "Maybe."}), func(opts *Options) {
		opts.Rules = rules.MustNew(p)
		opts.Roll = func() float64 {
			r := rolls[0]
			rolls = rolls[1:]
			return r
		}
	})
	g := resume(t, e, func(s *models.Session) { s.Trust = 30 }, nil)

	v, err := g.ProcessTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, v.Terminal())

	v, err = g.ProcessTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, rules.EscapePersuasion, v.EscapeMethod)
}

func TestInvariantsHoldOverRandomConversations(t *testing.T) {
	words := []string{
		"trust me", "hate", "leave", "only you", "together", "outside",
		"my everything", "bored", "forever", "hello", "friends", "i love you",
	}
	rng := rand.New(rand.NewSource(7))
	p := rules.DefaultPolicy()
	p.MaxAttempts = 0
	p.ScoreWinThreshold = 1000
	p.ScoreCap = 1000
	p.TrustWinThreshold = 1000

	for run := 0; run < 20; run++ {
		g := newEngine(t, oracle.NewScripted(oracle.ScriptedReply{Text: "Go on."}), func(opts *Options) {
			opts.Rules = rules.MustNew(p)
		}).NewGame("Ana", nil)

		for turn := 0; turn < 30; turn++ {
			utterance := words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))]
			_, err := g.ProcessTurn(context.Background(), utterance)
			require.NoError(t, err)

			s := g.Snapshot()
			assert.GreaterOrEqual(t, int(s.Mood), int(models.MoodCalm))
			assert.LessOrEqual(t, int(s.Mood), int(models.MoodHostile))
			assert.GreaterOrEqual(t, s.Trust, 0)
			assert.GreaterOrEqual(t, s.Score, 0)
		}
	}
}

func TestCloseSavesTranscript(t *testing.T) {
	store := &fakeStore{}
	g := newEngine(t, oracle.NewScripted(), func(opts *Options) { opts.Store = store }).NewGame("Ana", nil)
	g.Narrate("You wake up on the sofa.")

	require.NoError(t, g.Close(context.Background()))
	require.Len(t, store.saved, 1)
	assert.Equal(t, "You wake up on the sofa.", store.saved[0].Transcript[0].Text)
}

func TestChannelSinkDeliversEvents(t *testing.T) {
	sink := NewChannelSink(8)
	g := newEngine(t, oracle.NewScripted(), nil).NewGame("Ana", sink)

	g.Narrate("The fridge hums.")
	e := <-sink.C
	assert.Equal(t, EventMessage, e.Kind)
	assert.Equal(t, models.RoleSystem, e.Role)
	assert.Equal(t, g.ID(), e.SessionID)
}
