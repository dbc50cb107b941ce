// Package floor implements the VIP and dance floor automation: zone
// capture, occupancy monitoring, and the synchronized dance beat loop.
package floor

import (
	"sync"

	"highrise-room-bot/internal/model"
)

// Kind names which floor a wizard or monitor acts on.
type Kind string

// Floor kinds.
const (
	KindVIP   Kind = "vip"
	KindDance Kind = "dance"
)

// minYTolerance keeps flat captures usable: two points on the same level
// would otherwise produce a zero-height box nobody can stand inside.
const minYTolerance = 0.6

// edgePadding widens each captured half-span so users standing right on
// the marked corners still count as inside.
const edgePadding = 0.5

// Wizard runs the two-point zone capture. The owner stands at one corner
// and marks it, walks to the opposite corner, and marks again. State is
// per owner and per kind, so an abandoned capture never bleeds into the
// next one.
type Wizard struct {
	mu      sync.Mutex
	pending map[string]model.Position // "<username>/<kind>" -> first corner
}

// NewWizard returns an empty wizard.
func NewWizard() *Wizard {
	return &Wizard{pending: map[string]model.Position{}}
}

// Mark records a corner for the given owner and kind. The first call
// stores the corner and returns done=false; the second builds the zone
// from both corners and clears the pending state.
func (w *Wizard) Mark(username string, kind Kind, pos model.Position) (zone model.Zone, done bool) {
	key := username + "/" + string(kind)
	w.mu.Lock()
	defer w.mu.Unlock()

	first, ok := w.pending[key]
	if !ok {
		w.pending[key] = pos
		return model.Zone{}, false
	}
	delete(w.pending, key)
	return buildZone(first, pos), true
}

// Cancel drops any pending corner for the given owner and kind. Returns
// whether a capture was in progress.
func (w *Wizard) Cancel(username string, kind Kind) bool {
	key := username + "/" + string(kind)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[key]; !ok {
		return false
	}
	delete(w.pending, key)
	return true
}

// buildZone derives a zone from two opposite corners: center at the
// midpoint, tolerance at half the span per axis plus padding.
func buildZone(a, b model.Position) model.Zone {
	z := model.Zone{
		X:  (a.X + b.X) / 2,
		Y:  (a.Y + b.Y) / 2,
		Z:  (a.Z + b.Z) / 2,
		RX: span(a.X, b.X)/2 + edgePadding,
		RY: span(a.Y, b.Y) / 2,
		RZ: span(a.Z, b.Z)/2 + edgePadding,
	}
	if z.RY < minYTolerance {
		z.RY = minYTolerance
	}
	return z
}

func span(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
