package economy

import (
	"fmt"
	"time"

	"highrise-room-bot/internal/model"
)

// Tier is a VIP access level.
type Tier int

// VIP tiers, ordered.
const (
	TierNone Tier = iota
	TierTimed
	TierPermanent
)

// TipResult describes the outcome of recording a tip to the bot.
type TipResult struct {
	Total         int    // cumulative gold after this tip
	Tier          Tier   // tier after re-evaluation
	Message       string // user-facing tier message, "" when none applies
	NewlyAcquired bool   // true when this tip unlocked a tier for the first time
}

// RecordTip adds to the sender's cumulative tip total and re-derives the
// VIP tier. Transitions are monotonic: reaching a higher threshold always
// re-arms the grant, and a permanent grant is never downgraded by smaller
// subsequent tips.
func (e *Engine) RecordTip(username string, amount int) TipResult {
	day := e.cfg.Economy.TierDayGold
	week := e.cfg.Economy.TierWeekGold
	perm := e.cfg.Economy.TierPermGold
	now := e.now()

	var res TipResult
	e.store.Do(func(d *model.Document) {
		prev := d.TipTotals[username]
		total := prev + amount
		d.TipTotals[username] = total
		res.Total = total

		switch {
		case d.IsPermanentVIP(username):
			res.Tier = TierPermanent
			if total >= day {
				res.Message = "💎 You already have permanent VIP!"
			}
		case total >= perm:
			d.AddPermanentVIP(username)
			delete(d.VIPTimed, username)
			res.Tier = TierPermanent
			res.Message = "🎉 PERMANENT VIP unlocked! 🎉"
			res.NewlyAcquired = true
		case total >= week:
			d.VIPTimed[username] = now.Add(7 * 24 * time.Hour).Unix()
			res.Tier = TierTimed
			res.Message = fmt.Sprintf("👑 7 DAYS VIP ACCESS! (Total: %dg) 👑", total)
			res.NewlyAcquired = prev < week
		case total >= day:
			d.VIPTimed[username] = now.Add(24 * time.Hour).Unix()
			res.Tier = TierTimed
			res.Message = fmt.Sprintf("✨ 1 DAY VIP ACCESS! (Total: %dg) ✨", total)
			res.NewlyAcquired = prev < day
		default:
			res.Tier = TierNone
			res.Message = fmt.Sprintf("💡 Tip %dg more for 1-day VIP + a custom greeting! (Total: %dg)", day-total, total)
		}
	})
	return res
}

// HasVIP reports whether username currently has VIP access: owner,
// moderator, permanent grant, or an unexpired timed grant. An expired
// timed grant is evicted here, on access.
func (e *Engine) HasVIP(username string) bool {
	if e.cfg.IsOwner(username) {
		return true
	}
	var ok bool
	now := e.now().Unix()
	e.store.Do(func(d *model.Document) {
		if d.IsModerator(username) || d.IsPermanentVIP(username) {
			ok = true
			return
		}
		if expiry, timed := d.VIPTimed[username]; timed {
			if now < expiry {
				ok = true
			} else {
				delete(d.VIPTimed, username)
			}
		}
	})
	return ok
}

// CleanExpiredVIP sweeps all expired timed grants. Returns how many were
// evicted.
func (e *Engine) CleanExpiredVIP() int {
	now := e.now().Unix()
	var removed int
	e.store.Do(func(d *model.Document) {
		for user, expiry := range d.VIPTimed {
			if now >= expiry {
				delete(d.VIPTimed, user)
				removed++
			}
		}
	})
	return removed
}

// GrantTimedVIP sets a timed grant expiring after the given duration.
// Administrative path; does not touch tip totals.
func (e *Engine) GrantTimedVIP(username string, d time.Duration) {
	expiry := e.now().Add(d).Unix()
	e.store.Do(func(doc *model.Document) {
		doc.VIPTimed[username] = expiry
	})
}

// RevokeVIP removes both timed and permanent grants. Returns whether the
// user held any grant.
func (e *Engine) RevokeVIP(username string) bool {
	var had bool
	e.store.Do(func(d *model.Document) {
		if _, ok := d.VIPTimed[username]; ok {
			delete(d.VIPTimed, username)
			had = true
		}
		if d.RemovePermanentVIP(username) {
			had = true
		}
	})
	return had
}

// VIPStatusText renders a user's current access for chat display.
func (e *Engine) VIPStatusText(username string) string {
	if e.cfg.IsOwner(username) {
		return "👑 Owner (Permanent VIP)"
	}
	var text string
	now := e.now().Unix()
	e.store.Do(func(d *model.Document) {
		switch {
		case d.IsModerator(username):
			text = "🛡️ Moderator (Permanent VIP)"
		case d.IsPermanentVIP(username):
			text = fmt.Sprintf("💎 Permanent VIP (%dg)", e.cfg.Economy.TierPermGold)
		default:
			if expiry, ok := d.VIPTimed[username]; ok && expiry > now {
				remaining := time.Duration(expiry-now) * time.Second
				days := int(remaining.Hours()) / 24
				hours := int(remaining.Hours()) % 24
				if days > 0 {
					text = fmt.Sprintf("⏰ VIP Access: %dd %dh remaining", days, hours)
				} else {
					text = fmt.Sprintf("⏰ VIP Access: %dh remaining", hours)
				}
				return
			}
			text = "❌ No VIP Access"
		}
	})
	return text
}

// TipTotal returns a user's cumulative gold tipped to the bot.
func (e *Engine) TipTotal(username string) int {
	var total int
	e.store.Do(func(d *model.Document) {
		total = d.TipTotals[username]
	})
	return total
}
