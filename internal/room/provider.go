// Package room wraps the platform's occupant listing behind a timeout,
// transport-fault classification, and the process-wide connectivity flag.
// Every other component reads room occupancy through this provider.
package room

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
)

// Provider serves timeout-bounded room snapshots and owns the shared
// connectivity flag that gates every background loop.
type Provider struct {
	api       platform.API
	timeout   time.Duration
	connected atomic.Bool
}

// New creates a provider. timeout bounds each snapshot fetch.
func New(api platform.API, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Provider{api: api, timeout: timeout}
}

// Connected reports whether the session is believed live. Loops idle at a
// coarser interval while this is false instead of hammering the platform.
func (p *Provider) Connected() bool {
	return p.connected.Load()
}

// SetConnected flips the connectivity flag; called by the session event
// handlers on ready/disconnect.
func (p *Provider) SetConnected(up bool) {
	p.connected.Store(up)
}

// transportFault reports whether err indicates a lost session rather than
// a transient request failure. Classification is by message content, which
// is all the platform exposes.
func transportFault(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not in room") ||
		strings.Contains(msg, "closing transport") ||
		strings.Contains(msg, "not connected") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "use of closed network connection")
}

// Snapshot fetches the current occupants. Any classified failure degrades
// to an empty snapshot; transport faults additionally clear the
// connectivity flag so the loops back off until reconnect.
func (p *Provider) Snapshot(ctx context.Context) []platform.RoomUser {
	if !p.connected.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	users, err := p.api.GetRoomUsers(ctx)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			log.Warn().Msg("Room snapshot timed out")
		case transportFault(err):
			p.connected.Store(false)
			log.Warn().Err(err).Msg("Connection lost, suppressing API calls until reconnect")
		default:
			log.Warn().Err(err).Msg("Room snapshot failed")
		}
		return nil
	}
	return users
}

// FindByID returns the occupant with the given id, if present.
func FindByID(users []platform.RoomUser, id string) (platform.RoomUser, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return platform.RoomUser{}, false
}

// FindByUsername returns the occupant with the given username,
// case-insensitively, if present.
func FindByUsername(users []platform.RoomUser, username string) (platform.RoomUser, bool) {
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return platform.RoomUser{}, false
}

// BotPosition returns the bot's own standing position from a fresh
// snapshot, or nil when unknown or anchored.
func (p *Provider) BotPosition(ctx context.Context) *model.Position {
	users := p.Snapshot(ctx)
	if u, ok := FindByID(users, p.api.BotID()); ok {
		return u.Pos
	}
	return nil
}
