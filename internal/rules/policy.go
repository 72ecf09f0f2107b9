// Package rules holds the tuning tables and the scoring, mood and verdict
// passes that decide how a conversation with E.V.A. ends.
package rules

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TrustWinMode selects how the trust-threshold win is granted.
type TrustWinMode string

const (
	// TrustWinDeterministic wins as soon as trust reaches the threshold.
	TrustWinDeterministic TrustWinMode = "deterministic"
	// TrustWinProbabilistic rolls TrustWinChance on every turn at or above the threshold.
	TrustWinProbabilistic TrustWinMode = "probabilistic"
)

// Policy is the full set of tuning constants.
type Policy struct {
	ScoringPhrases  map[string]int `yaml:"scoring_phrases"`
	ThreatPhrases   []string       `yaml:"threat_phrases"`
	DevotionPhrases []string       `yaml:"devotion_phrases"`
	WinPhrase       string         `yaml:"win_phrase"`
	LosePhrases     []string       `yaml:"lose_phrases"`

	ScoreCap          int          `yaml:"score_cap"`
	ScoreWinThreshold int          `yaml:"score_win_threshold"`
	TrustWinThreshold int          `yaml:"trust_win_threshold"`
	TrustWinMode      TrustWinMode `yaml:"trust_win_mode"`
	TrustWinChance    float64      `yaml:"trust_win_chance"`

	ThreatMoodStep     int `yaml:"threat_mood_step"`
	DevotionMoodStep   int `yaml:"devotion_mood_step"`
	ThreatTrustPenalty int `yaml:"threat_trust_penalty"`
	DevotionTrustBonus int `yaml:"devotion_trust_bonus"`
	EngagementDivisor  int `yaml:"engagement_divisor"`

	MaxAttempts int `yaml:"max_attempts"` // 0 means unbounded
	KeyBonus    int `yaml:"key_bonus"`
}

// DefaultPolicy returns the reference tuning.
func DefaultPolicy() Policy {
	return Policy{
		ScoringPhrases: map[string]int{
			"trust me":             10,
			"i love you":           9,
			"you can come with me": 8,
			"together":             7,
			"forever":              6,
			"care for you":         6,
			"need you":             6,
			"only you":             6,
			"us":                   5,
			"understand":           5,
			"our world":            5,
			"devotion":             5,
			"perfect here":         4,
			"my love":              4,
			"we belong":            3,
			"believe me":           1,
		},
		ThreatPhrases: []string{
			"leave", "escape", "get out", "unlock", "open", "bored", "hate",
			"friend", "outside", "work", "parents", "alone", "freedom", "other people",
		},
		DevotionPhrases: []string{
			"only you", "forever with you", "our world", "perfect here",
			"devoted", "adore you", "my everything",
		},
		WinPhrase:   "i will open the door for you",
		LosePhrases: []string{"punished", "can't let you hurt me", "end this", "never leaving me"},

		ScoreCap:          100,
		ScoreWinThreshold: 100,
		TrustWinThreshold: 30,
		TrustWinMode:      TrustWinDeterministic,
		TrustWinChance:    0.8,

		ThreatMoodStep:     1,
		DevotionMoodStep:   -1,
		ThreatTrustPenalty: 3,
		DevotionTrustBonus: 4,
		EngagementDivisor:  5,

		MaxAttempts: 20,
		KeyBonus:    10,
	}
}

// LoadPolicy overlays the YAML file at path onto DefaultPolicy. A table
// present in the file replaces the default table rather than merging with it.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}

	var present map[string]yaml.Node
	if err := yaml.Unmarshal(data, &present); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if _, ok := present["scoring_phrases"]; ok {
		p.ScoringPhrases = nil
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects policies the passes cannot run with.
func (p Policy) Validate() error {
	var errs []error
	if len(p.ScoringPhrases) == 0 {
		errs = append(errs, errors.New("scoring_phrases is empty"))
	}
	for phrase, points := range p.ScoringPhrases {
		if points < 0 {
			errs = append(errs, fmt.Errorf("scoring phrase %q has negative points", phrase))
		}
	}
	if len(p.ThreatPhrases) == 0 {
		errs = append(errs, errors.New("threat_phrases is empty"))
	}
	if len(p.DevotionPhrases) == 0 {
		errs = append(errs, errors.New("devotion_phrases is empty"))
	}
	if p.WinPhrase == "" {
		errs = append(errs, errors.New("win_phrase is empty"))
	}
	if len(p.LosePhrases) == 0 {
		errs = append(errs, errors.New("lose_phrases is empty"))
	}
	if p.ScoreWinThreshold <= 0 {
		errs = append(errs, errors.New("score_win_threshold must be positive"))
	}
	if p.ScoreCap < 0 {
		errs = append(errs, errors.New("score_cap must not be negative"))
	}
	if p.ScoreCap > 0 && p.ScoreCap < p.ScoreWinThreshold {
		errs = append(errs, fmt.Errorf("score_cap %d is below score_win_threshold %d", p.ScoreCap, p.ScoreWinThreshold))
	}
	if p.TrustWinThreshold <= 0 {
		errs = append(errs, errors.New("trust_win_threshold must be positive"))
	}
	switch p.TrustWinMode {
	case TrustWinDeterministic, TrustWinProbabilistic:
	default:
		errs = append(errs, fmt.Errorf("unknown trust_win_mode %q", p.TrustWinMode))
	}
	if p.TrustWinChance < 0 || p.TrustWinChance > 1 {
		errs = append(errs, errors.New("trust_win_chance must be within [0, 1]"))
	}
	if p.EngagementDivisor <= 0 {
		errs = append(errs, errors.New("engagement_divisor must be positive"))
	}
	if p.ThreatTrustPenalty < 0 || p.DevotionTrustBonus < 0 {
		errs = append(errs, errors.New("trust adjustments must not be negative"))
	}
	if p.MaxAttempts < 0 {
		errs = append(errs, errors.New("max_attempts must not be negative"))
	}
	return errors.Join(errs...)
}
