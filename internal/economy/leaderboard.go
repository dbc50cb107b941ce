package economy

import (
	"sort"

	"highrise-room-bot/internal/config"
	"highrise-room-bot/internal/model"
)

// Entry is a single leaderboard row.
type Entry struct {
	Username string
	Value    int
}

// displayRanks maps point thresholds to the chat-facing rank badge shown
// next to a user's name. Distinct from the coarser tier ladder below.
var displayRanks = []struct {
	min  int
	name string
}{
	{10000, "🏆 LEGEND"},
	{8000, "💎 MASTER"},
	{2500, "👑 EPIC"},
	{1000, "🌟 PRO"},
	{150, "🔥 RISING STAR"},
	{50, "⭐ ACTIVE"},
	{0, "🌱 NEWCOMER"},
}

// rankTiers is the ladder listed by the ranks overview.
var rankTiers = []struct {
	min  int
	name string
}{
	{1000, "💠 LEGEND"},
	{750, "💎 DIAMOND"},
	{500, "🏅 PLATINUM"},
	{300, "🥇 GOLD"},
	{150, "🥈 SILVER"},
	{50, "🥉 BRONZE"},
	{0, "🌱 ROOKIE"},
}

// DisplayRank returns the badge shown beside a user in greetings and
// stats output.
func DisplayRank(points int) string {
	for _, r := range displayRanks {
		if points >= r.min {
			return r.name
		}
	}
	return displayRanks[len(displayRanks)-1].name
}

// RankTierName returns the tier a score falls into on the ranks ladder.
func RankTierName(points int) string {
	for _, r := range rankTiers {
		if points >= r.min {
			return r.name
		}
	}
	return rankTiers[len(rankTiers)-1].name
}

// RankTiers returns the ladder for display, highest first, as
// (threshold, name) pairs.
func RankTiers() []Entry {
	out := make([]Entry, 0, len(rankTiers))
	for _, r := range rankTiers {
		out = append(out, Entry{Username: r.name, Value: r.min})
	}
	return out
}

// TopPoints returns the top n users by score, excluding the bot account
// and configured excluded names. Ties keep insertion-independent order
// via a stable sort on the snapshot.
func (e *Engine) TopPoints(n int) []Entry {
	var entries []Entry
	e.store.Do(func(d *model.Document) {
		entries = collect(d.UserRatings, e.cfg)
	})
	return topN(entries, n)
}

// TopTippers returns the top n users by cumulative gold tipped to the bot.
func (e *Engine) TopTippers(n int) []Entry {
	var entries []Entry
	e.store.Do(func(d *model.Document) {
		entries = collect(d.TipTotals, e.cfg)
	})
	return topN(entries, n)
}

// TopTime returns the top n users by total room time, in whole minutes.
// Live sessions are not folded in here; callers wanting live totals
// accrue first.
func (e *Engine) TopTime(n int) []Entry {
	var entries []Entry
	e.store.Do(func(d *model.Document) {
		for user, secs := range d.UserTotalTime {
			if e.cfg.IsExcluded(user) {
				continue
			}
			entries = append(entries, Entry{Username: user, Value: int(secs) / 60})
		}
	})
	return topN(entries, n)
}

func collect(m map[string]int, cfg *config.Config) []Entry {
	entries := make([]Entry, 0, len(m))
	for user, v := range m {
		if cfg.IsExcluded(user) {
			continue
		}
		entries = append(entries, Entry{Username: user, Value: v})
	}
	return entries
}

func topN(entries []Entry, n int) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Username < entries[j].Username
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
