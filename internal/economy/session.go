package economy

import (
	"time"

	"highrise-room-bot/internal/model"
)

// JoinSession starts the live time-tracking session for an occupant.
// Keyed by platform id so a rejoin restarts the clock cleanly.
func (e *Engine) JoinSession(userID, username string) {
	now := e.now()
	e.mu.Lock()
	e.joinTimes[userID] = now
	e.joinNames[userID] = username
	e.mu.Unlock()

	e.store.Do(func(d *model.Document) {
		d.UserSessions[username]++
	})
}

// LeaveSession closes an occupant's live session, folds the elapsed time
// into the durable total, and awards one point per full minute present.
// Returns the session duration, or zero when no session was open.
func (e *Engine) LeaveSession(userID string) time.Duration {
	e.mu.Lock()
	started, ok := e.joinTimes[userID]
	username := e.joinNames[userID]
	delete(e.joinTimes, userID)
	delete(e.joinNames, userID)
	e.mu.Unlock()
	if !ok {
		return 0
	}

	session := e.now().Sub(started)
	minutes := int(session.Seconds()) / 60
	e.store.Do(func(d *model.Document) {
		d.UserTotalTime[username] += session.Seconds()
		if minutes > 0 && !e.cfg.IsExcluded(username) {
			d.UserRatings[username] += minutes
		}
	})
	return session
}

// AccrueAll folds every open session's elapsed time into the durable
// totals and restarts the live clocks. Called on the periodic save so a
// crash loses at most one interval of presence time.
func (e *Engine) AccrueAll() {
	now := e.now()

	e.mu.Lock()
	type slice struct {
		username string
		elapsed  float64
	}
	var slices []slice
	for id, started := range e.joinTimes {
		slices = append(slices, slice{e.joinNames[id], now.Sub(started).Seconds()})
		e.joinTimes[id] = now
	}
	e.mu.Unlock()

	if len(slices) == 0 {
		return
	}
	e.store.Do(func(d *model.Document) {
		for _, s := range slices {
			d.UserTotalTime[s.username] += s.elapsed
		}
	})
}

// LiveTotalTime returns a user's durable total plus any open session.
func (e *Engine) LiveTotalTime(userID, username string) time.Duration {
	var secs float64
	e.store.Do(func(d *model.Document) {
		secs = d.UserTotalTime[username]
	})

	e.mu.Lock()
	if started, ok := e.joinTimes[userID]; ok {
		secs += e.now().Sub(started).Seconds()
	}
	e.mu.Unlock()
	return time.Duration(secs * float64(time.Second))
}

// ActiveSessions returns the ids of occupants with an open session.
func (e *Engine) ActiveSessions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.joinTimes))
	for id := range e.joinTimes {
		ids = append(ids, id)
	}
	return ids
}
