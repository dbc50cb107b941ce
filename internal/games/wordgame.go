package games

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var dropWords = []string{
	"sunshine", "melody", "diamond", "firefly", "horizon",
	"velvet", "thunder", "blossom", "galaxy", "whisper",
	"ember", "lagoon", "crystal", "meadow", "aurora",
}

// WordGame runs the word drop: a word is announced, the first exact
// repeat wins points and sometimes a small gold bonus. One round at a
// time for the whole room.
type WordGame struct {
	window     time.Duration
	points     int
	minGap     time.Duration
	maxGap     time.Duration
	bonusGold  int
	bonusOneIn int

	award  func(username string, points int)
	notify func(ctx context.Context, message string)
	// bonus pays the gold bonus when the wallet allows. Returns whether
	// it was paid.
	bonus func(ctx context.Context, userID string, gold int) bool

	mu      sync.Mutex
	word    string
	claimed bool
	timer   *time.Timer
	roll    func(n int) int
}

// NewWordGame creates a word game.
func NewWordGame(window time.Duration, points int, minGap, maxGap time.Duration, bonusGold, bonusOneIn int,
	award func(string, int), notify func(context.Context, string), bonus func(context.Context, string, int) bool) *WordGame {
	return &WordGame{
		window:     window,
		points:     points,
		minGap:     minGap,
		maxGap:     maxGap,
		bonusGold:  bonusGold,
		bonusOneIn: bonusOneIn,
		award:      award,
		notify:     notify,
		bonus:      bonus,
		roll:       rand.Intn,
	}
}

// StartRound drops a new word. Returns false when a round is already
// live.
func (g *WordGame) StartRound(ctx context.Context) bool {
	g.mu.Lock()
	if g.word != "" {
		g.mu.Unlock()
		return false
	}
	word := dropWords[g.roll(len(dropWords))]
	g.word = word
	g.claimed = false
	g.timer = time.AfterFunc(g.window, func() { g.timeout(ctx, word) })
	g.mu.Unlock()

	secs := int(g.window.Seconds())
	g.notify(ctx, fmt.Sprintf("🎲 WORD DROP! First to type \"%s\" wins %d points! You have %ds ⏱️", word, g.points, secs))
	return true
}

// timeout closes an unclaimed round.
func (g *WordGame) timeout(ctx context.Context, word string) {
	g.mu.Lock()
	if g.word != word || g.claimed {
		g.mu.Unlock()
		return
	}
	g.word = ""
	g.mu.Unlock()

	g.notify(ctx, fmt.Sprintf("😴 Nobody typed \"%s\" in time. Next round soon!", word))
}

// TryClaim checks a chat message against the live round. The first exact
// match wins; later matches lose the race and return false.
func (g *WordGame) TryClaim(ctx context.Context, userID, username, message string) bool {
	g.mu.Lock()
	if g.word == "" || g.claimed || !strings.EqualFold(strings.TrimSpace(message), g.word) {
		g.mu.Unlock()
		return false
	}
	g.claimed = true
	g.word = ""
	if g.timer != nil {
		g.timer.Stop()
	}
	withBonus := g.bonusOneIn > 0 && g.roll(g.bonusOneIn) == 0
	g.mu.Unlock()

	g.award(username, g.points)
	msg := fmt.Sprintf("🏆 @%s wins +%d points!", username, g.points)
	if withBonus && g.bonus(ctx, userID, g.bonusGold) {
		msg += fmt.Sprintf(" And a %dg bonus! 💰", g.bonusGold)
	}
	g.notify(ctx, msg)
	return true
}

// Active reports whether an unclaimed round is live.
func (g *WordGame) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.word != ""
}

// Loop drops rounds forever on a random cadence between minGap and
// maxGap, until ctx is cancelled.
func (g *WordGame) Loop(ctx context.Context) {
	log.Info().Msg("Word game loop started")
	for {
		gap := g.minGap
		if spread := g.maxGap - g.minGap; spread > 0 {
			gap += time.Duration(rand.Int63n(int64(spread)))
		}
		t := time.NewTimer(gap)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		g.StartRound(ctx)
	}
}
