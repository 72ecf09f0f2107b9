package environment

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/eva-escape/internal/engine"
	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/oracle"
	"github.com/tatianab/eva-escape/internal/rules"
)

func newGame(t *testing.T, rec *engine.Recorder) *engine.Game {
	t.Helper()
	e, err := engine.New(engine.Options{
		Oracle: oracle.NewScripted(oracle.ScriptedReply{Text: "Where are you going?"}),
		Rules:  rules.MustNew(rules.DefaultPolicy()),
		Now:    func() time.Time { return time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	if rec == nil {
		return e.NewGame("Ana", nil)
	}
	return e.NewGame("Ana", rec)
}

func TestEveryHidingSpotIsAnObject(t *testing.T) {
	require.Len(t, hidingSpots, 13)
	a := NewApartment(nil)
	for _, spot := range hidingSpots {
		_, ok := a.Find(spot.object)
		assert.True(t, ok, spot.object)
	}
}

func TestNewApartmentHidesKeyInAHidingSpot(t *testing.T) {
	seen := map[string]bool{}
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		a := NewApartment(rng)
		seen[a.key.object] = true

		obj, ok := a.Find(a.key.object)
		require.True(t, ok)
		assert.Equal(t, "Key", obj.Keywords[0])
	}
	assert.Greater(t, len(seen), 1)
}

func TestFindIgnoresCaseAndSpacing(t *testing.T) {
	a := NewApartment(nil)
	obj, ok := a.Find("  coffee   TABLE ")
	require.True(t, ok)
	assert.Equal(t, "Coffee Table", obj.Name)

	_, ok = a.Find("trapdoor")
	assert.False(t, ok)
}

func TestInteractUnknownObject(t *testing.T) {
	a := NewApartment(nil)
	_, err := a.Interact(context.Background(), newGame(t, nil), "trapdoor")
	assert.ErrorIs(t, err, ErrUnknownObject)
}

func TestExamineNarrates(t *testing.T) {
	rec := &engine.Recorder{}
	g := newGame(t, rec)
	a := NewApartment(nil)
	a.key = hidingSpots[0] // Sofa

	res, err := a.Interact(context.Background(), g, "tv")
	require.NoError(t, err)
	assert.Equal(t, Examined, res)

	msgs := rec.Of(engine.EventMessage)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "You examine the TV (Screen, Distraction).")
	assert.False(t, g.Snapshot().HasKey)
}

func TestDoorWithoutKeyIsLocked(t *testing.T) {
	g := newGame(t, nil)
	a := NewApartment(nil)

	res, err := a.Interact(context.Background(), g, "door")
	require.NoError(t, err)
	assert.Equal(t, DoorLocked, res)
	assert.Equal(t, models.OutcomeInProgress, g.Snapshot().Outcome)
}

func TestFindKeyThenEscape(t *testing.T) {
	rec := &engine.Recorder{}
	g := newGame(t, rec)
	a := NewApartment(rand.New(rand.NewPCG(3, 4)))

	res, err := a.Interact(context.Background(), g, a.key.object)
	require.NoError(t, err)
	assert.Equal(t, KeyFound, res)

	s := g.Snapshot()
	assert.True(t, s.HasKey)
	assert.Equal(t, a.KeyLocation(), s.KeyLocation)
	assert.Contains(t, s.Transcript[len(s.Transcript)-1].Text, "You found a key "+a.key.hint)

	// Examining the same spot again is just an examination.
	res, err = a.Interact(context.Background(), g, a.key.object)
	require.NoError(t, err)
	assert.Equal(t, Examined, res)

	res, err = a.Interact(context.Background(), g, Door)
	require.NoError(t, err)
	assert.Equal(t, Escaped, res)
	assert.Equal(t, rules.EscapeKeyFound, g.Snapshot().EscapeMethod)
	assert.Len(t, rec.Of(engine.EventEnded), 1)

	res, err = a.Interact(context.Background(), g, Door)
	require.NoError(t, err)
	assert.Equal(t, SessionOver, res)
}

func TestLookListsRooms(t *testing.T) {
	out := NewApartment(nil).Look()
	for _, room := range rooms {
		assert.Contains(t, out, room+":")
	}
	assert.Contains(t, out, "Fridge")
}
