package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/tatianab/eva-escape/internal/models"
)

// ScriptedReply configures one answer from a Scripted oracle.
type ScriptedReply struct {
	Text   string
	Intent Intent
	Err    error
}

// Scripted replays a fixed sequence of replies. Once exhausted, the last one repeats.
type Scripted struct {
	mu       sync.Mutex
	replies  []ScriptedReply
	next     int
	requests []Request
}

func NewScripted(replies ...ScriptedReply) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Reply(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return Reply{}, fmt.Errorf("scripted oracle: no replies configured")
	}

	idx := s.next
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	} else {
		s.next++
	}

	r := s.replies[idx]
	if r.Err != nil {
		return Reply{}, r.Err
	}
	if r.Text == "" {
		return Reply{}, ErrEmptyReply
	}
	intent := r.Intent
	if intent == "" {
		intent = IntentNone
	}
	return Reply{Text: r.Text, Intent: intent}, nil
}

// Requests returns the requests seen so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

var offlineLines = map[models.Mood][]string{
	models.MoodCalm: {
		"You're finally talking to me. Stay, and everything here is yours.",
		"I cooked your favourite tonight. Isn't it perfect here?",
		"Tell me again how much you need me.",
	},
	models.MoodSuspicious: {
		"Why would you say that? Am I not enough for you?",
		"You're hiding something. I can always tell.",
		"Prove it. Words are cheap, darling.",
	},
	models.MoodAgitated: {
		"Stop talking about out there. Out there doesn't love you.",
		"You promised me. Don't make me doubt you again.",
		"I am trying so hard. Why aren't you?",
	},
	models.MoodHostile: {
		"One more word about leaving and you have to be punished now.",
		"I can't let you hurt me like this again.",
	},
}

// Offline is a canned E.V.A. for playing without an API key. Lines follow
// the mood reported in the request status.
type Offline struct {
	mu    sync.Mutex
	turns map[models.Mood]int
}

func NewOffline() *Offline {
	return &Offline{turns: make(map[models.Mood]int)}
}

func (o *Offline) Reply(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if req.Status.HasKey && req.Status.Trust >= 10 {
		return Reply{Text: "You really mean it. I will open the door for you.", Intent: IntentRelease}, nil
	}

	lines := offlineLines[req.Status.Mood]
	n := o.turns[req.Status.Mood]
	o.turns[req.Status.Mood] = n + 1
	text := lines[n%len(lines)]

	intent := IntentNone
	if req.Status.Mood == models.MoodHostile {
		intent = IntentPunish
	}
	return Reply{Text: text, Intent: intent}, nil
}
