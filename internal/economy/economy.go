// Package economy implements the points ledger, cooldown-gated awards,
// cumulative tip tracking with VIP tier derivation, and leaderboard
// queries.
package economy

import (
	"sync"
	"time"

	"highrise-room-bot/internal/config"
	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/store"
)

// Channel is an independently-tracked reward-eligibility timer. Channels
// never interfere: a user can earn chat and emote points in the same
// window.
type Channel string

// Reward channels.
const (
	ChannelChat     Channel = "chat"
	ChannelEmote    Channel = "emote"
	ChannelReaction Channel = "reaction"
	ChannelCommand  Channel = "command"
)

// Engine holds the economy state. Durable records live in the store;
// cooldown timestamps and session bookkeeping are in-memory only and
// reset on restart, matching the persistence contract.
type Engine struct {
	store *store.Store
	cfg   *config.Config
	now   func() time.Time

	mu        sync.Mutex
	cooldowns map[Channel]map[string]time.Time
	joinBonus map[string]bool      // usernames given the one-time join bonus this process
	joinTimes map[string]time.Time // occupant id -> join time for the live session
	joinNames map[string]string    // occupant id -> username, for accrual on leave
}

// New creates an Engine backed by st.
func New(st *store.Store, cfg *config.Config) *Engine {
	return &Engine{
		store:     st,
		cfg:       cfg,
		now:       time.Now,
		cooldowns: map[Channel]map[string]time.Time{},
		joinBonus: map[string]bool{},
		joinTimes: map[string]time.Time{},
		joinNames: map[string]string{},
	}
}

// Award adds points to a user unconditionally. The caller decides when to
// flush the store.
func (e *Engine) Award(username string, points int) {
	e.store.Do(func(d *model.Document) {
		d.UserRatings[username] += points
	})
}

// Points returns a user's current score.
func (e *Engine) Points(username string) int {
	var pts int
	e.store.Do(func(d *model.Document) {
		pts = d.UserRatings[username]
	})
	return pts
}

// SetPoints replaces a user's score.
func (e *Engine) SetPoints(username string, points int) {
	e.store.Do(func(d *model.Document) {
		d.UserRatings[username] = points
	})
}

// RemovePoints subtracts points from a user, clamped at zero.
func (e *Engine) RemovePoints(username string, points int) int {
	var after int
	e.store.Do(func(d *model.Document) {
		after = d.UserRatings[username] - points
		if after < 0 {
			after = 0
		}
		d.UserRatings[username] = after
	})
	return after
}

// AwardWithCooldown awards points only if the channel's window has elapsed
// for this key since the last successful award. Returns whether the award
// fired. The key is a username for reward channels and an occupant id for
// the general command throttle.
func (e *Engine) AwardWithCooldown(key string, ch Channel, points int, window time.Duration) bool {
	if !e.takeCooldown(key, ch, window) {
		return false
	}
	if points != 0 {
		e.Award(key, points)
	}
	return true
}

// Throttle applies the general per-user command cooldown. Returns whether
// the command may proceed.
func (e *Engine) Throttle(userID string) bool {
	return e.takeCooldown(userID, ChannelCommand, e.cfg.Economy.CommandWindow)
}

func (e *Engine) takeCooldown(key string, ch Channel, window time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	byKey, ok := e.cooldowns[ch]
	if !ok {
		byKey = map[string]time.Time{}
		e.cooldowns[ch] = byKey
	}
	now := e.now()
	if last, ok := byKey[key]; ok && now.Sub(last) < window {
		return false
	}
	byKey[key] = now
	return true
}

// RecordMessage counts a chat message and applies the chat-point channel.
func (e *Engine) RecordMessage(username string) {
	e.store.Do(func(d *model.Document) {
		d.StatsFor(username).Messages++
	})
	e.AwardWithCooldown(username, ChannelChat, e.cfg.Economy.ChatPoints, e.cfg.Economy.ChatWindow)
}

// RecordEmote counts an emote and applies the emote-point channel.
func (e *Engine) RecordEmote(username string) {
	e.store.Do(func(d *model.Document) {
		d.StatsFor(username).Emotes++
	})
	e.AwardWithCooldown(username, ChannelEmote, e.cfg.Economy.EmotePoints, e.cfg.Economy.EmoteWindow)
}

// RecordReaction applies the reaction-point channel.
func (e *Engine) RecordReaction(username string) bool {
	return e.AwardWithCooldown(username, ChannelReaction, e.cfg.Economy.ReactionPoints, e.cfg.Economy.ReactionWindow)
}

// GrantJoinBonus awards the one-time join bonus. Returns whether it was
// granted (first join this process lifetime).
func (e *Engine) GrantJoinBonus(username string) bool {
	e.mu.Lock()
	if e.joinBonus[username] {
		e.mu.Unlock()
		return false
	}
	e.joinBonus[username] = true
	e.mu.Unlock()

	e.Award(username, e.cfg.Economy.JoinBonus)
	return true
}

// FirstVisit reports whether this username has no stats record yet, and
// creates one. Used to gate the one-time welcome tip.
func (e *Engine) FirstVisit(username string) bool {
	var first bool
	e.store.Do(func(d *model.Document) {
		if _, ok := d.UserStats[username]; !ok {
			first = true
		}
		d.StatsFor(username)
	})
	return first
}
