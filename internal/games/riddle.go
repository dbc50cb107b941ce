// Package games implements the room minigames: timed riddles, the word
// drop game, and the one-shot fun commands.
package games

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrRiddleActive is returned when a user asks for a riddle while one is
// already pending for them.
var ErrRiddleActive = errors.New("riddle already active")

// Riddle is one question/answer pair. Answers may be phrases; any word
// of the answer longer than two characters counts as a match.
type Riddle struct {
	Question string
	Answer   string
}

var riddles = []Riddle{
	{"I speak without a mouth and hear without ears. What am I?", "an echo"},
	{"What has keys but can't open locks?", "a piano"},
	{"What has hands but can't clap?", "a clock"},
	{"What gets wetter the more it dries?", "a towel"},
	{"What has a head and a tail but no body?", "a coin"},
	{"The more you take, the more you leave behind. What are they?", "footsteps"},
	{"What can travel around the world while staying in a corner?", "a stamp"},
	{"What has many teeth but cannot bite?", "a comb"},
	{"What goes up but never comes down?", "your age"},
	{"What building has the most stories?", "the library"},
}

// riddleState is one user's pending riddle.
type riddleState struct {
	riddle   Riddle
	username string
	timer    *time.Timer
}

// RiddleGame tracks at most one pending riddle per user.
type RiddleGame struct {
	deadline time.Duration
	points   int
	award    func(username string, points int)
	notify   func(ctx context.Context, message string)

	mu     sync.Mutex
	active map[string]*riddleState // user id
}

// NewRiddleGame creates a riddle game. award credits a correct answer;
// notify posts to room chat.
func NewRiddleGame(deadline time.Duration, points int, award func(string, int), notify func(context.Context, string)) *RiddleGame {
	return &RiddleGame{
		deadline: deadline,
		points:   points,
		award:    award,
		notify:   notify,
		active:   map[string]*riddleState{},
	}
}

// Start hands the user a random riddle. The riddle expires after the
// deadline, revealing the answer in chat.
func (g *RiddleGame) Start(ctx context.Context, userID, username string) (Riddle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[userID]; ok {
		return Riddle{}, ErrRiddleActive
	}

	r := riddles[rand.Intn(len(riddles))]
	st := &riddleState{riddle: r, username: username}
	st.timer = time.AfterFunc(g.deadline, func() { g.expire(ctx, userID, st) })
	g.active[userID] = st
	return r, nil
}

// expire reveals the answer when the deadline passes unanswered.
func (g *RiddleGame) expire(ctx context.Context, userID string, st *riddleState) {
	g.mu.Lock()
	if g.active[userID] != st {
		g.mu.Unlock()
		return
	}
	delete(g.active, userID)
	g.mu.Unlock()

	log.Debug().Str("username", st.username).Msg("Riddle expired")
	g.notify(ctx, fmt.Sprintf("⏰ Time's up @%s! The answer was: %s", st.username, st.riddle.Answer))
}

// TryAnswer checks a chat message against the sender's pending riddle.
// A hit resolves the riddle and awards points; the return reports whether
// the message was a correct answer.
func (g *RiddleGame) TryAnswer(userID, message string) bool {
	g.mu.Lock()
	st, ok := g.active[userID]
	if !ok {
		g.mu.Unlock()
		return false
	}
	if !answerMatches(st.riddle.Answer, message) {
		g.mu.Unlock()
		return false
	}
	st.timer.Stop()
	delete(g.active, userID)
	g.mu.Unlock()

	g.award(st.username, g.points)
	return true
}

// Skip abandons the user's pending riddle, returning its answer.
func (g *RiddleGame) Skip(userID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.active[userID]
	if !ok {
		return "", false
	}
	st.timer.Stop()
	delete(g.active, userID)
	return st.riddle.Answer, true
}

// Pending reports whether the user has an unanswered riddle.
func (g *RiddleGame) Pending(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[userID]
	return ok
}

// Points returns the reward for a correct answer.
func (g *RiddleGame) Points() int { return g.points }

// answerMatches reports whether the message contains any answer keyword
// longer than two characters. Both sides are lowercased and stripped of
// punctuation so "It's a piano!" matches "a piano".
func answerMatches(answer, message string) bool {
	msg := " " + stripPunct(strings.ToLower(message)) + " "
	for _, word := range strings.Fields(stripPunct(strings.ToLower(answer))) {
		if len(word) <= 2 {
			continue
		}
		if strings.Contains(msg, " "+word+" ") {
			return true
		}
	}
	return false
}

func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
