package engine

import "github.com/tatianab/eva-escape/internal/models"

// EventKind tells observers what changed.
type EventKind int

const (
	// EventMessage carries one line of dialogue or narration.
	EventMessage EventKind = iota
	// EventStatus carries a snapshot after mood, trust or score changed.
	EventStatus
	// EventEnded carries the end-of-session summary.
	EventEnded
	// EventError carries a transient problem the player can retry past.
	EventError
)

// Event is emitted by a Game to its presentation layer.
type Event struct {
	Kind      EventKind
	SessionID string
	Role      models.Role
	Text      string
	Session   *models.Session
	Summary   *models.Summary
}

// Sink receives events. Emit is called without any game lock held.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// ChannelSink delivers events on C. Emit blocks when C is full.
type ChannelSink struct {
	C chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan Event, buffer)}
}

func (c *ChannelSink) Emit(e Event) {
	c.C <- e
}

// Recorder keeps every event; handy for tests and the simulator.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) {
	r.Events = append(r.Events, e)
}

// Of returns the recorded events of one kind.
func (r *Recorder) Of(kind EventKind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
