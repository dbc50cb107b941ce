package floor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"highrise-room-bot/internal/emote"
	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/room"
)

// dancer is one enrolled dance floor occupant. A dancer starts pending
// and becomes active at the next beat boundary, so everyone on the floor
// moves in sync. stale marks dancers whose dispatch failed or who left
// the room; they are pruned at the end of the beat.
type dancer struct {
	id       string
	username string
	active   bool
	stale    bool
}

// BeatLoop drives the dance floor: one random dance emote per beat,
// dispatched to every active dancer at once.
type BeatLoop struct {
	api      platform.API
	provider *room.Provider
	minBeat  time.Duration
	cacheN   int

	mu        sync.Mutex
	dancers   map[string]*dancer
	beat      time.Duration
	beatStart time.Time

	pick func() emote.Emote
	now  func() time.Time
}

// NewBeatLoop creates a beat loop. minBeat floors the beat length so very
// short emotes do not spam the platform; cacheBeats sets how many beats
// pass between occupancy refreshes.
func NewBeatLoop(api platform.API, provider *room.Provider, minBeat time.Duration, cacheBeats int) *BeatLoop {
	if cacheBeats < 1 {
		cacheBeats = 5
	}
	return &BeatLoop{
		api:      api,
		provider: provider,
		minBeat:  minBeat,
		cacheN:   cacheBeats,
		dancers:  map[string]*dancer{},
		pick:     emote.RandomDance,
		now:      time.Now,
	}
}

// Enroll adds an occupant to the floor. The dancer joins mid-beat as
// pending and is folded in at the next beat boundary; when no beat is
// running yet they activate immediately. The goroutine only flips the
// active flag: the beat loop's broadcast is the sole emote sender, so a
// joiner never fires out of phase.
func (b *BeatLoop) Enroll(ctx context.Context, id, username string) {
	b.mu.Lock()
	if _, ok := b.dancers[id]; ok {
		b.mu.Unlock()
		return
	}
	d := &dancer{id: id, username: username}
	b.dancers[id] = d
	beat := b.beat
	elapsed := b.now().Sub(b.beatStart)
	if beat <= 0 {
		d.active = true
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	log.Debug().Str("username", username).Msg("Dancer enrolled, syncing to beat")
	go func() {
		t := time.NewTimer(syncWait(elapsed, beat))
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		b.mu.Lock()
		if still, ok := b.dancers[id]; ok {
			still.active = true
		}
		b.mu.Unlock()
	}()
}

// Remove drops an occupant from the floor.
func (b *BeatLoop) Remove(id string) {
	b.mu.Lock()
	delete(b.dancers, id)
	b.mu.Unlock()
}

// Enrolled reports whether the occupant is on the floor.
func (b *BeatLoop) Enrolled(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.dancers[id]
	return ok
}

// DancerCount returns the number of enrolled dancers.
func (b *BeatLoop) DancerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dancers)
}

// Run plays beats until ctx is cancelled. With no dancers, or while the
// session is down, it idles at the minimum beat interval. The occupant
// cache is refreshed every cacheN beats; between refreshes, dancers
// missing from the cached set are skipped and pruned with that beat.
func (b *BeatLoop) Run(ctx context.Context) {
	log.Info().Msg("Dance beat loop started")
	beats := 0
	var present map[string]bool
	for {
		if ctx.Err() != nil {
			return
		}
		if !b.provider.Connected() || b.DancerCount() == 0 {
			if !sleepCtx(ctx, b.minBeat) {
				return
			}
			continue
		}

		e := b.pick()
		beat := time.Duration(e.Duration * float64(time.Second))
		if beat < b.minBeat {
			beat = b.minBeat
		}

		beats++
		if present == nil || beats%b.cacheN == 0 {
			if ids := b.snapshotIDs(ctx); ids != nil {
				present = ids
			}
		}

		b.mu.Lock()
		b.beat = beat
		b.beatStart = b.now()
		targets := make([]*dancer, 0, len(b.dancers))
		for _, d := range b.dancers {
			if !d.active || d.stale {
				continue
			}
			if present != nil && !present[d.id] {
				d.stale = true
				continue
			}
			targets = append(targets, d)
		}
		b.mu.Unlock()

		var wg conc.WaitGroup
		for _, d := range targets {
			d := d
			wg.Go(func() {
				if err := b.api.SendEmote(ctx, e.ID, d.id); err != nil {
					log.Debug().Err(err).Str("username", d.username).Msg("Beat dispatch failed, marking dancer stale")
					b.markStale(d.id)
				}
			})
		}
		wg.Wait()

		b.prune()
		if !sleepCtx(ctx, beat) {
			return
		}
	}
}

// snapshotIDs fetches the current occupant id set, or nil when the
// snapshot is unavailable.
func (b *BeatLoop) snapshotIDs(ctx context.Context) map[string]bool {
	users := b.provider.Snapshot(ctx)
	if users == nil {
		return nil
	}
	ids := make(map[string]bool, len(users))
	for _, u := range users {
		ids[u.ID] = true
	}
	return ids
}

// prune drops dancers marked stale during the beat.
func (b *BeatLoop) prune() {
	b.mu.Lock()
	for id, d := range b.dancers {
		if d.stale {
			delete(b.dancers, id)
		}
	}
	b.mu.Unlock()
}

func (b *BeatLoop) markStale(id string) {
	b.mu.Lock()
	if d, ok := b.dancers[id]; ok {
		d.stale = true
	}
	b.mu.Unlock()
}

// syncWait returns how long a mid-beat joiner waits to land on the next
// beat boundary.
func syncWait(elapsed, beat time.Duration) time.Duration {
	if beat <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return beat - (elapsed % beat)
}

// sleepCtx sleeps for d, returning false when ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
