// Package model defines the data types shared across the room bot.
package model

// Position is a standing location in the room, with an optional facing
// direction as reported by the platform.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Facing string  `json:"facing,omitempty"`
}

// Zone is an axis-aligned box described by a center point and a per-axis
// tolerance. Membership is tested independently per axis.
type Zone struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	RX float64 `json:"rx"`
	RY float64 `json:"ry"`
	RZ float64 `json:"rz"`
}

// Contains reports whether p falls inside the zone box.
func (z *Zone) Contains(p Position) bool {
	return abs(p.X-z.X) <= z.RX &&
		abs(p.Y-z.Y) <= z.RY &&
		abs(p.Z-z.Z) <= z.RZ
}

// Center returns the zone's center as a Position.
func (z *Zone) Center() Position {
	return Position{X: z.X, Y: z.Y, Z: z.Z}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// UserStats counts a user's activity across sessions.
type UserStats struct {
	Messages  int `json:"messages"`
	Emotes    int `json:"emotes"`
	TipsGiven int `json:"tips_given"`
}

// Document is the full persisted state of the bot. It is serialized as a
// single JSON object and atomically replaced on every save.
//
// All durable records are keyed by username, not platform id: ids are only
// stable within a session. A username change therefore orphans that user's
// history, which is a known limitation rather than something to repair.
type Document struct {
	Moderators      []string              `json:"moderators"`
	VIPPermanent    []string              `json:"vip_permanent"`
	VIPTimed        map[string]int64      `json:"vip_timed"`
	TipTotals       map[string]int        `json:"tip_totals"`
	UserTotalTime   map[string]float64    `json:"user_total_time"`
	UserSessions    map[string]int        `json:"user_sessions"`
	UserStats       map[string]*UserStats `json:"user_stats"`
	UserRatings     map[string]int        `json:"user_ratings"`
	CustomGreetings map[string]string     `json:"custom_greetings"`
	VIPFloor        *Zone                 `json:"vip_floor"`
	DanceFloor      *Zone                 `json:"dance_floor"`
	BotLastPosition *Position             `json:"bot_last_position"`
}

// NewDocument returns an empty document with all maps allocated.
func NewDocument() *Document {
	d := &Document{}
	d.Normalize()
	return d
}

// Normalize allocates any maps that were absent in the stored JSON so
// callers never have to nil-check before writing.
func (d *Document) Normalize() {
	if d.Moderators == nil {
		d.Moderators = []string{}
	}
	if d.VIPPermanent == nil {
		d.VIPPermanent = []string{}
	}
	if d.VIPTimed == nil {
		d.VIPTimed = map[string]int64{}
	}
	if d.TipTotals == nil {
		d.TipTotals = map[string]int{}
	}
	if d.UserTotalTime == nil {
		d.UserTotalTime = map[string]float64{}
	}
	if d.UserSessions == nil {
		d.UserSessions = map[string]int{}
	}
	if d.UserStats == nil {
		d.UserStats = map[string]*UserStats{}
	}
	if d.UserRatings == nil {
		d.UserRatings = map[string]int{}
	}
	if d.CustomGreetings == nil {
		d.CustomGreetings = map[string]string{}
	}
}

// StatsFor returns the stats record for username, creating it if needed.
func (d *Document) StatsFor(username string) *UserStats {
	st, ok := d.UserStats[username]
	if !ok {
		st = &UserStats{}
		d.UserStats[username] = st
	}
	return st
}

// IsModerator reports whether username is in the moderator list.
func (d *Document) IsModerator(username string) bool {
	for _, m := range d.Moderators {
		if m == username {
			return true
		}
	}
	return false
}

// IsPermanentVIP reports whether username holds a permanent grant.
func (d *Document) IsPermanentVIP(username string) bool {
	for _, v := range d.VIPPermanent {
		if v == username {
			return true
		}
	}
	return false
}

// AddModerator adds username to the moderator list if not present.
func (d *Document) AddModerator(username string) {
	if !d.IsModerator(username) {
		d.Moderators = append(d.Moderators, username)
	}
}

// RemoveModerator removes username from the moderator list. Returns
// whether the user was a moderator.
func (d *Document) RemoveModerator(username string) bool {
	for i, m := range d.Moderators {
		if m == username {
			d.Moderators = append(d.Moderators[:i], d.Moderators[i+1:]...)
			return true
		}
	}
	return false
}

// AddPermanentVIP adds username to the permanent VIP set if not present.
func (d *Document) AddPermanentVIP(username string) {
	if !d.IsPermanentVIP(username) {
		d.VIPPermanent = append(d.VIPPermanent, username)
	}
}

// RemovePermanentVIP removes username from the permanent VIP set.
// Returns whether the user held a permanent grant.
func (d *Document) RemovePermanentVIP(username string) bool {
	for i, v := range d.VIPPermanent {
		if v == username {
			d.VIPPermanent = append(d.VIPPermanent[:i], d.VIPPermanent[i+1:]...)
			return true
		}
	}
	return false
}
