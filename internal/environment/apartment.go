// Package environment is the apartment the player is locked in: the objects
// they can examine, the exit door and the hidden key.
package environment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/tatianab/eva-escape/internal/engine"
	"github.com/tatianab/eva-escape/internal/models"
)

var ErrUnknownObject = errors.New("nothing like that here")

// Actor is the part of a game the apartment acts on.
type Actor interface {
	AcquireKey(location string) engine.KeyStatus
	UseKeyOnExit(ctx context.Context) (models.Verdict, engine.ExitStatus)
	Narrate(text string)
}

// Result says what an interaction did.
type Result int

const (
	Examined Result = iota
	KeyFound
	DoorLocked
	Escaped
	SessionOver
)

// Apartment holds the layout for one session, with the key hidden in one spot.
type Apartment struct {
	objects []Object
	byName  map[string]int
	key     hidingSpot

	mu       sync.Mutex
	keyTaken bool
}

// NewApartment hides the key in a spot chosen by rng. A nil rng uses the
// global source.
func NewApartment(rng *rand.Rand) *Apartment {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	a := &Apartment{
		objects: append([]Object(nil), furniture...),
		byName:  make(map[string]int, len(furniture)),
		key:     hidingSpots[intN(len(hidingSpots))],
	}
	for i, o := range a.objects {
		a.byName[normalize(o.Name)] = i
		if o.Name == a.key.object {
			a.objects[i].Keywords = a.key.keywords
		}
	}
	return a
}

// KeyLocation names where the key is hidden.
func (a *Apartment) KeyLocation() string {
	return a.key.object + " (" + a.key.hint + ")"
}

// Objects returns every object in the apartment.
func (a *Apartment) Objects() []Object {
	return append([]Object(nil), a.objects...)
}

// Find looks an object up by name, ignoring case.
func (a *Apartment) Find(name string) (Object, bool) {
	i, ok := a.byName[normalize(name)]
	if !ok {
		return Object{}, false
	}
	return a.objects[i], true
}

// Look describes what the player can see, room by room.
func (a *Apartment) Look() string {
	var b strings.Builder
	b.WriteString("You look around the apartment.")
	for _, room := range rooms {
		var names []string
		for _, o := range a.objects {
			if o.Room == room {
				names = append(names, o.Name)
			}
		}
		fmt.Fprintf(&b, "\n%s: %s.", room, strings.Join(names, ", "))
	}
	return b.String()
}

// Interact examines the named object. Examining the key's hiding spot picks
// the key up; examining the door tries to leave.
func (a *Apartment) Interact(ctx context.Context, actor Actor, name string) (Result, error) {
	obj, ok := a.Find(name)
	if !ok {
		return Examined, fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if obj.Name == a.key.object && !a.keyTaken {
		switch actor.AcquireKey(a.KeyLocation()) {
		case engine.KeyUnavailable:
			return SessionOver, nil
		case engine.KeyAcquired:
			a.keyTaken = true
			actor.Narrate(fmt.Sprintf("You found a key %s! It must be for the main door.", a.key.hint))
			return KeyFound, nil
		}
		a.keyTaken = true
	}

	if obj.Name == Door {
		_, status := actor.UseKeyOnExit(ctx)
		switch status {
		case engine.ExitOpened:
			return Escaped, nil
		case engine.ExitUnavailable:
			return SessionOver, nil
		}
		return DoorLocked, nil
	}

	actor.Narrate(fmt.Sprintf("You examine the %s (%s). %s", obj.Name, strings.Join(obj.Keywords, ", "), obj.Description))
	return Examined, nil
}

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
