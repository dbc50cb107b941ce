// Package emote holds the known emote catalog: platform emote ids, their
// playback durations, and flags driving the loop scheduler.
package emote

import "math/rand"

// Emote is one catalog entry. Reset marks floor animations that snap the
// avatar back when replayed, which the loop scheduler re-issues earlier
// to hide the seam.
type Emote struct {
	Name     string
	ID       string
	Duration float64 // seconds
	Dance    bool
	Reset    bool
}

// catalog order is stable: numeric chat shortcuts are 1-based indexes
// into this slice.
var catalog = []Emote{
	{Name: "kiss", ID: "emote-kiss", Duration: 3.0},
	{Name: "wave", ID: "emote-wave", Duration: 2.5},
	{Name: "laughing", ID: "emote-laughing", Duration: 3.0},
	{Name: "hello", ID: "emote-hello", Duration: 2.7},
	{Name: "heart", ID: "emote-hearteyes", Duration: 4.0},
	{Name: "thewave", ID: "dance-thewave", Duration: 6.0, Dance: true},
	{Name: "tiktok8", ID: "dance-tiktok8", Duration: 11.0, Dance: true},
	{Name: "tiktok2", ID: "dance-tiktok2", Duration: 10.3, Dance: true},
	{Name: "blackpink", ID: "dance-blackpink", Duration: 7.0, Dance: true},
	{Name: "russian", ID: "dance-russian", Duration: 10.0, Dance: true},
	{Name: "shoppingcart", ID: "dance-shoppingcart", Duration: 5.0, Dance: true},
	{Name: "pennywise", ID: "dance-pennywise", Duration: 4.0, Dance: true},
	{Name: "wrong", ID: "dance-wrong", Duration: 13.0, Dance: true},
	{Name: "icecream", ID: "dance-icecream", Duration: 12.0, Dance: true},
	{Name: "duckwalk", ID: "dance-duckwalk", Duration: 12.3, Dance: true},
	{Name: "weird", ID: "dance-weird", Duration: 22.0, Dance: true},
	{Name: "sit", ID: "idle-floorsit", Duration: 18.0, Reset: true},
	{Name: "lay", ID: "idle-layingdown", Duration: 22.0, Reset: true},
	{Name: "loop", ID: "idle-loop-sitfloor", Duration: 20.0, Reset: true},
	{Name: "enthused", ID: "idle-enthusiastic", Duration: 15.0},
	{Name: "model", ID: "emote-model", Duration: 6.3},
	{Name: "gravity", ID: "emote-gravity", Duration: 9.0},
	{Name: "boxer", ID: "emote-boxer", Duration: 5.5},
	{Name: "ghost", ID: "emote-ghost-idle", Duration: 18.0, Reset: true},
}

var byName = func() map[string]Emote {
	m := make(map[string]Emote, len(catalog))
	for _, e := range catalog {
		m[e.Name] = e
	}
	return m
}()

var dances = func() []Emote {
	var out []Emote
	for _, e := range catalog {
		if e.Dance {
			out = append(out, e)
		}
	}
	return out
}()

// Len returns the catalog size.
func Len() int { return len(catalog) }

// ByIndex returns the emote at the given 1-based position.
func ByIndex(i int) (Emote, bool) {
	if i < 1 || i > len(catalog) {
		return Emote{}, false
	}
	return catalog[i-1], true
}

// ByName looks an emote up by its chat name.
func ByName(name string) (Emote, bool) {
	e, ok := byName[name]
	return e, ok
}

// Random returns any catalog entry.
func Random() Emote {
	return catalog[rand.Intn(len(catalog))]
}

// RandomDance returns a dance-tagged entry, used by the dance floor
// beat loop.
func RandomDance() Emote {
	return dances[rand.Intn(len(dances))]
}

// All returns the catalog in shortcut order.
func All() []Emote {
	out := make([]Emote, len(catalog))
	copy(out, catalog)
	return out
}
