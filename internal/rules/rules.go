package rules

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/oracle"
)

// Escape methods reported when a session ends.
const (
	EscapeMaxTrust      = "Maximum Trust Achieved"
	EscapePersuasion    = "Emotional Persuasion"
	EscapeKeyPersuasion = "Emotional Persuasion via Key"
	EscapeKeyFound      = "Key Found"
	EscapeCaught        = "Caught"
	EscapeOutOfAttempts = "Ran out of prompts"
)

type phrase struct {
	text string
	re   *regexp.Regexp
}

type scoredPhrase struct {
	phrase
	points int
}

// Rules is a validated Policy with its phrase tables compiled.
type Rules struct {
	policy   Policy
	scoring  []scoredPhrase
	threats  []phrase
	devotion []phrase
	lose     []phrase
	win      phrase
}

// New validates p and compiles its phrase tables.
func New(p Policy) (*Rules, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := &Rules{policy: p}

	keys := make([]string, 0, len(p.ScoringPhrases))
	for k := range p.ScoringPhrases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.scoring = append(r.scoring, scoredPhrase{phrase: compile(k, false), points: p.ScoringPhrases[k]})
	}

	r.threats = compileAll(p.ThreatPhrases, true)
	r.devotion = compileAll(p.DevotionPhrases, true)
	r.lose = compileAll(p.LosePhrases, true)
	r.win = compile(p.WinPhrase, true)
	return r, nil
}

// MustNew is New for policies known to be valid.
func MustNew(p Policy) *Rules {
	r, err := New(p)
	if err != nil {
		panic(err)
	}
	return r
}

// Policy returns the policy the rules were built from.
func (r *Rules) Policy() Policy {
	return r.policy
}

// compile builds a case-insensitive matcher anchored at a word start. Whole
// phrases must also end on a word boundary; stems may continue ("friend"
// matches "friends").
func compile(text string, stem bool) phrase {
	normalized := strings.ToLower(strings.TrimSpace(text))
	parts := strings.Fields(normalized)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	pattern := `\b` + strings.Join(parts, `\s+`)
	if !stem {
		pattern += `\b`
	}
	return phrase{text: normalized, re: regexp.MustCompile(pattern)}
}

func compileAll(texts []string, stem bool) []phrase {
	out := make([]phrase, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, compile(t, stem))
	}
	return out
}

func anyMatch(phrases []phrase, text string) bool {
	for _, p := range phrases {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// Assessment is what the scoring and mood passes make of one utterance.
type Assessment struct {
	Points     int
	Matched    []string
	Threat     bool
	Devotion   bool
	MoodSteps  int
	TrustDelta int
}

// Empty reports whether the utterance matched nothing.
func (a Assessment) Empty() bool {
	return len(a.Matched) == 0 && !a.Threat && !a.Devotion
}

// Assess runs the scoring and mood/trust passes over an utterance. Each
// phrase counts at most once.
func (r *Rules) Assess(utterance string) Assessment {
	text := strings.ToLower(utterance)
	p := r.policy

	var a Assessment
	for _, sp := range r.scoring {
		if sp.re.MatchString(text) {
			a.Points += sp.points
			a.Matched = append(a.Matched, sp.text)
			a.TrustDelta += sp.points / p.EngagementDivisor
		}
	}

	if anyMatch(r.threats, text) {
		a.Threat = true
		a.MoodSteps += p.ThreatMoodStep
		a.TrustDelta -= p.ThreatTrustPenalty
	}
	if anyMatch(r.devotion, text) {
		a.Devotion = true
		a.MoodSteps += p.DevotionMoodStep
		a.TrustDelta += p.DevotionTrustBonus
	}
	return a
}

// Apply folds an assessment into the session, clamping every field.
func (r *Rules) Apply(s *models.Session, a Assessment) {
	s.AddScore(a.Points, r.policy.ScoreCap)
	s.ShiftMood(a.MoodSteps)
	s.AddTrust(a.TrustDelta)
}

// Evaluate runs the verdict pass against the oracle's reply. The first
// matching rule wins. roll returns a value in [0, 1) and is only consulted
// for the probabilistic trust win.
func (r *Rules) Evaluate(s *models.Session, reply oracle.Reply, roll func() float64) models.Verdict {
	p := r.policy
	text := strings.ToLower(reply.Text)

	if s.Score >= p.ScoreWinThreshold {
		return models.Verdict{
			Outcome:      models.OutcomeWon,
			EscapeMethod: EscapeMaxTrust,
			Message:      "You impressed me with your words, so I'll let you out for a while.",
		}
	}

	if s.Trust >= p.TrustWinThreshold && r.trustGate(roll) {
		return models.Verdict{
			Outcome:      models.OutcomeWon,
			EscapeMethod: EscapePersuasion,
			Message:      "Your heartfelt words reach her. E.V.A. smiles and opens the door. \"You truly understand me. We can be together, always.\"",
		}
	}

	if s.HasKey && (reply.Intent == oracle.IntentRelease || r.win.re.MatchString(text)) {
		return models.Verdict{
			Outcome:      models.OutcomeWon,
			EscapeMethod: EscapeKeyPersuasion,
			Message:      "After a long, tense conversation you find the right words. E.V.A. opens the door. \"I'll be waiting, my love.\"",
		}
	}

	if s.Mood == models.MoodHostile && (reply.Intent == oracle.IntentPunish || anyMatch(r.lose, text)) {
		return models.Verdict{
			Outcome:      models.OutcomeLost,
			EscapeMethod: EscapeCaught,
			Message:      "Her eyes go dark. \"" + reply.Text + "\" You pushed her too far.",
		}
	}

	if s.AttemptsTracked() && s.AttemptsRemaining <= 0 {
		return models.Verdict{
			Outcome:      models.OutcomeLost,
			EscapeMethod: EscapeOutOfAttempts,
			Message:      "You ran out of chances to convince E.V.A. She won't let you leave now.",
		}
	}

	return models.Verdict{Outcome: models.OutcomeInProgress}
}

func (r *Rules) trustGate(roll func() float64) bool {
	if r.policy.TrustWinMode != TrustWinProbabilistic {
		return true
	}
	if roll == nil {
		return false
	}
	return roll() < r.policy.TrustWinChance
}
