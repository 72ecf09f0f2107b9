package models

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// Mood is the antagonist's ordinal hostility level.
type Mood int

const (
	MoodCalm Mood = iota
	MoodSuspicious
	MoodAgitated
	MoodHostile
)

var moodNames = [...]string{"calm", "suspicious", "agitated", "hostile"}

func (m Mood) String() string {
	if m < MoodCalm || m > MoodHostile {
		return fmt.Sprintf("mood(%d)", int(m))
	}
	return moodNames[m]
}

// Shift moves the mood by steps, clamped to [MoodCalm, MoodHostile].
// Positive steps move toward hostile.
func (m Mood) Shift(steps int) Mood {
	next := int(m) + steps
	if next < int(MoodCalm) {
		next = int(MoodCalm)
	}
	if next > int(MoodHostile) {
		next = int(MoodHostile)
	}
	return Mood(next)
}

// ParseMood converts a mood name back to a Mood.
func ParseMood(s string) (Mood, error) {
	for i, name := range moodNames {
		if name == s {
			return Mood(i), nil
		}
	}
	return MoodCalm, fmt.Errorf("unknown mood %q", s)
}

func (m Mood) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *Mood) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseMood(value.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Outcome is the lifecycle state of a session.
type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeWon        Outcome = "won"
	OutcomeLost       Outcome = "lost"
)

// Terminal reports whether the session has ended.
func (o Outcome) Terminal() bool {
	return o == OutcomeWon || o == OutcomeLost
}

// Role identifies who produced a transcript line.
type Role string

const (
	RolePlayer Role = "user"
	RoleEVA    Role = "eva"
	RoleSystem Role = "system"
)

// Turn is one line of conversation or transcript.
type Turn struct {
	Role Role      `yaml:"role"`
	Text string    `yaml:"text"`
	At   time.Time `yaml:"at"`
}

// Session is the complete state of one play-through.
type Session struct {
	ID                string    `yaml:"id"`
	PlayerName        string    `yaml:"player_name"`
	StartedAt         time.Time `yaml:"started_at"`
	TurnCount         int       `yaml:"turn_count"`
	AttemptLimit      int       `yaml:"attempt_limit"` // 0 means unbounded
	AttemptsRemaining int       `yaml:"attempts_remaining"`
	Mood              Mood      `yaml:"mood"`
	Trust             int       `yaml:"trust"`
	Score             int       `yaml:"score"`
	HasKey            bool      `yaml:"has_key"`
	KeyLocation       string    `yaml:"key_location,omitempty"`
	History           []Turn    `yaml:"history"`    // exchanges with the oracle
	Transcript        []Turn    `yaml:"transcript"` // everything shown to the player
	Outcome           Outcome   `yaml:"outcome"`
	EscapeMethod      string    `yaml:"escape_method,omitempty"`
}

// NewSession starts a fresh session. attemptLimit of 0 leaves attempts unbounded.
func NewSession(playerName string, attemptLimit int, now time.Time) *Session {
	if playerName == "" {
		playerName = "Player"
	}
	if attemptLimit < 0 {
		attemptLimit = 0
	}
	return &Session{
		ID:                ulid.Make().String(),
		PlayerName:        playerName,
		StartedAt:         now,
		AttemptLimit:      attemptLimit,
		AttemptsRemaining: attemptLimit,
		Mood:              MoodCalm,
		Outcome:           OutcomeInProgress,
	}
}

// AttemptsTracked reports whether the session has a prompt budget.
func (s *Session) AttemptsTracked() bool {
	return s.AttemptLimit > 0
}

// UseAttempt counts one player utterance against the budget.
func (s *Session) UseAttempt() {
	s.TurnCount++
	if s.AttemptsTracked() && s.AttemptsRemaining > 0 {
		s.AttemptsRemaining--
	}
}

// RefundAttempt gives back an attempt for a turn that never got an answer.
func (s *Session) RefundAttempt() {
	if s.TurnCount > 0 {
		s.TurnCount--
	}
	if s.AttemptsTracked() && s.AttemptsRemaining < s.AttemptLimit {
		s.AttemptsRemaining++
	}
}

// AddTrust applies delta with trust floored at zero.
func (s *Session) AddTrust(delta int) {
	s.Trust += delta
	if s.Trust < 0 {
		s.Trust = 0
	}
}

// AddScore applies delta clamped to [0, limit]. A limit <= 0 disables the ceiling.
func (s *Session) AddScore(delta, limit int) {
	s.Score += delta
	if limit > 0 && s.Score > limit {
		s.Score = limit
	}
	if s.Score < 0 {
		s.Score = 0
	}
}

// ShiftMood moves the mood by steps within its bounds.
func (s *Session) ShiftMood(steps int) {
	s.Mood = s.Mood.Shift(steps)
}

// Record appends a line to the transcript.
func (s *Session) Record(role Role, text string, at time.Time) {
	s.Transcript = append(s.Transcript, Turn{Role: role, Text: text, At: at})
}

// Finish moves the session into a terminal outcome. It is a no-op once terminal.
func (s *Session) Finish(outcome Outcome, escapeMethod string) bool {
	if s.Outcome.Terminal() || !outcome.Terminal() {
		return false
	}
	s.Outcome = outcome
	s.EscapeMethod = escapeMethod
	return true
}

// Clone returns a deep copy safe to hand to observers.
func (s *Session) Clone() *Session {
	c := *s
	c.History = append([]Turn(nil), s.History...)
	c.Transcript = append([]Turn(nil), s.Transcript...)
	return &c
}

// Verdict is the result of a turn or exit attempt.
type Verdict struct {
	Outcome      Outcome
	EscapeMethod string
	Message      string
}

// Terminal reports whether the verdict ended the session.
func (v Verdict) Terminal() bool {
	return v.Outcome.Terminal()
}

// Summary is the end-of-session report handed to the presentation layer.
type Summary struct {
	SessionID    string
	PlayerName   string
	Won          bool
	Message      string
	FinalScore   int
	EscapeMethod string
}
