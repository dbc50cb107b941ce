// Package follow implements the follow loop and per-user repeating emote
// loops. Both are last-wins singletons per scope: one follow target for
// the bot, one emote loop per user.
package follow

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/room"
)

// Controller trails one occupant around the room. A new Follow call
// replaces the previous target.
type Controller struct {
	api      platform.API
	provider *room.Provider
	interval time.Duration
	offset   float64

	mu       sync.Mutex
	targetID string
	cancel   context.CancelFunc
}

// NewController creates a follow controller. offset is how far beside the
// target the bot stands, in room units on the x axis.
func NewController(api platform.API, provider *room.Provider, interval time.Duration, offset float64) *Controller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Controller{api: api, provider: provider, interval: interval, offset: offset}
}

// Follow starts trailing the given occupant, replacing any current
// target.
func (c *Controller) Follow(ctx context.Context, targetID, username string) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.targetID = targetID
	c.cancel = cancel
	c.mu.Unlock()

	log.Info().Str("username", username).Msg("Following user")
	go c.run(loopCtx, targetID)
}

// Stop cancels the current follow. Returns whether one was running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	c.targetID = ""
	return true
}

// Following reports whether a follow loop is running.
func (c *Controller) Following() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Target returns the current target's occupant id, or "".
func (c *Controller) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetID
}

func (c *Controller) run(ctx context.Context, targetID string) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !c.provider.Connected() {
			continue
		}

		users := c.provider.Snapshot(ctx)
		if users == nil {
			continue
		}
		target, ok := room.FindByID(users, targetID)
		if !ok || target.Pos == nil {
			log.Info().Msg("Follow target left, stopping")
			c.clear(targetID)
			return
		}

		dest := *target.Pos
		dest.X += c.offset
		if err := c.api.WalkTo(ctx, dest); err != nil {
			log.Debug().Err(err).Msg("Follow step failed")
		}
	}
}

// clear resets the controller state if targetID is still the active
// target. A replacement started meanwhile is left alone.
func (c *Controller) clear(targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.targetID == targetID {
		if c.cancel != nil {
			c.cancel()
		}
		c.cancel = nil
		c.targetID = ""
	}
}
