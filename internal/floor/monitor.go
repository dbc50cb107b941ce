package floor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/room"
	"highrise-room-bot/internal/store"
)

// Monitor polls occupant positions against the configured zones. VIP
// violations warn exactly once per stay; dance floor occupancy drives
// beat loop enrollment. Both are edge-triggered on the state change, so
// a user standing still never gets repeat messages.
type Monitor struct {
	api      platform.API
	provider *room.Provider
	store    *store.Store
	beat     *BeatLoop
	interval time.Duration

	// hasVIP decides whether a username may stand on the VIP floor.
	hasVIP func(username string) bool
	// skip marks identities the monitor ignores entirely (bot, owner
	// accounts configured as excluded).
	skip func(username string) bool

	warned map[string]bool // user id -> warned during current zone stay
}

// NewMonitor creates a floor monitor.
func NewMonitor(api platform.API, provider *room.Provider, st *store.Store, beat *BeatLoop, interval time.Duration, hasVIP, skip func(string) bool) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		api:      api,
		provider: provider,
		store:    st,
		beat:     beat,
		interval: interval,
		hasVIP:   hasVIP,
		skip:     skip,
		warned:   map[string]bool{},
	}
}

// Run polls until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	log.Info().Msg("Floor monitor started")
	for sleepCtx(ctx, m.interval) {
		m.tick(ctx)
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if !m.provider.Connected() {
		return
	}

	var vipZone, danceZone *model.Zone
	m.store.Do(func(d *model.Document) {
		vipZone = d.VIPFloor
		danceZone = d.DanceFloor
	})
	if vipZone == nil && danceZone == nil {
		return
	}

	users := m.provider.Snapshot(ctx)
	if users == nil {
		return
	}

	present := make(map[string]bool, len(users))
	for _, u := range users {
		present[u.ID] = true
		if u.ID == m.api.BotID() || m.skip(u.Username) {
			continue
		}
		// Seated and anchored occupants report no coordinates and are
		// outside every zone by definition.
		if u.Pos == nil {
			m.setOutside(ctx, u, vipZone, danceZone)
			continue
		}

		if vipZone != nil {
			m.checkVIP(ctx, u, vipZone)
		}
		if danceZone != nil {
			m.checkDance(ctx, u, danceZone)
		}
	}

	// Departed occupants re-arm their warning and leave the floor.
	for id := range m.warned {
		if !present[id] {
			delete(m.warned, id)
		}
	}
}

func (m *Monitor) setOutside(ctx context.Context, u platform.RoomUser, vipZone, danceZone *model.Zone) {
	delete(m.warned, u.ID)
	if danceZone != nil {
		m.beat.Remove(u.ID)
	}
}

func (m *Monitor) checkVIP(ctx context.Context, u platform.RoomUser, zone *model.Zone) {
	inside := zone.Contains(*u.Pos)
	switch {
	case !inside:
		delete(m.warned, u.ID)
	case m.hasVIP(u.Username):
		// Authorized stay, nothing to do.
	case !m.warned[u.ID]:
		m.warned[u.ID] = true
		msg := fmt.Sprintf("⚠️ @%s this is the VIP area! Tip 30g+ for access ✨", u.Username)
		if err := m.api.Chat(ctx, msg); err != nil {
			log.Warn().Err(err).Str("username", u.Username).Msg("VIP warning failed")
		}
	}
}

func (m *Monitor) checkDance(ctx context.Context, u platform.RoomUser, zone *model.Zone) {
	inside := zone.Contains(*u.Pos)
	if inside && !m.beat.Enrolled(u.ID) {
		m.beat.Enroll(ctx, u.ID, u.Username)
	} else if !inside && m.beat.Enrolled(u.ID) {
		m.beat.Remove(u.ID)
	}
}
