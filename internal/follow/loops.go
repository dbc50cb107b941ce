package follow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/emote"
	"highrise-room-bot/internal/platform"
)

// ErrLoopActive is returned when a user who already has a running emote
// loop asks for another one.
var ErrLoopActive = errors.New("emote loop already active")

// Loop timing. Reset animations (floor sits and the like) snap the
// avatar upright when replayed, so those are re-issued well before the
// animation ends to hide the seam; ordinary emotes only need a small
// lead. The minimum keeps very short emotes from hammering the platform,
// and purgeGrace lets a stopping loop's goroutine drain before the slot
// frees up.
const (
	resetLead  = 2500 * time.Millisecond
	normalLead = 400 * time.Millisecond
	minDelay   = 800 * time.Millisecond
	purgeGrace = 300 * time.Millisecond
)

// Loops manages one repeating emote loop per user.
type Loops struct {
	api platform.API

	mu     sync.Mutex
	active map[string]*loopState // user id
}

type loopState struct {
	stop chan struct{}
	name string // emote name, for status replies
}

// NewLoops creates an empty loop registry.
func NewLoops(api platform.API) *Loops {
	return &Loops{api: api, active: map[string]*loopState{}}
}

// Start begins repeating e at the given user. A user with a loop already
// running (or still draining) gets ErrLoopActive; they must stop first.
func (l *Loops) Start(ctx context.Context, userID string, e emote.Emote) error {
	l.mu.Lock()
	if _, ok := l.active[userID]; ok {
		l.mu.Unlock()
		return ErrLoopActive
	}
	st := &loopState{stop: make(chan struct{}), name: e.Name}
	l.active[userID] = st
	l.mu.Unlock()

	go l.run(ctx, userID, e, st)
	return nil
}

// Stop ends a user's loop. Returns the looped emote's name and whether a
// loop was running.
func (l *Loops) Stop(userID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.active[userID]
	if !ok {
		return "", false
	}
	select {
	case <-st.stop:
		// Already stopping, draining out the grace.
		return "", false
	default:
		close(st.stop)
	}
	return st.name, true
}

// StopAll ends every loop; used on disconnect.
func (l *Loops) StopAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, st := range l.active {
		select {
		case <-st.stop:
		default:
			close(st.stop)
		}
	}
}

// Active returns the looped emote name for a user, if any.
func (l *Loops) Active(userID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.active[userID]
	if !ok {
		return "", false
	}
	return st.name, true
}

func (l *Loops) run(ctx context.Context, userID string, e emote.Emote, st *loopState) {
	defer func() {
		// The slot stays claimed for a short grace so a stop/start race
		// cannot leave two loops targeting the same user.
		time.Sleep(purgeGrace)
		l.mu.Lock()
		if l.active[userID] == st {
			delete(l.active, userID)
		}
		l.mu.Unlock()
	}()

	delay := loopDelay(e)
	for {
		if err := l.api.SendEmote(ctx, e.ID, userID); err != nil {
			log.Debug().Err(err).Str("emote", e.Name).Msg("Emote loop dispatch failed, stopping")
			return
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-st.stop:
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// loopDelay returns the replay interval for an emote.
func loopDelay(e emote.Emote) time.Duration {
	lead := normalLead
	if e.Reset {
		lead = resetLead
	}
	d := time.Duration(e.Duration*float64(time.Second)) - lead
	if d < minDelay {
		d = minDelay
	}
	return d
}
