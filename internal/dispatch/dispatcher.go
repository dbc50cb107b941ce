// Package dispatch routes inbound chat through the ordered rule table:
// moderation, game resolution, auto-responses, greeting setters, then
// the owner and public command surfaces.
package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/autotip"
	"highrise-room-bot/internal/config"
	"highrise-room-bot/internal/economy"
	"highrise-room-bot/internal/emote"
	"highrise-room-bot/internal/floor"
	"highrise-room-bot/internal/follow"
	"highrise-room-bot/internal/games"
	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/moderation"
	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/room"
	"highrise-room-bot/internal/store"
)

// maxGreetingLen caps stored custom greetings.
const maxGreetingLen = 200

// Dispatcher evaluates each message against the rule cascade. First
// match wins; later rules never see the message.
type Dispatcher struct {
	cfg      *config.Config
	api      platform.API
	provider *room.Provider
	store    *store.Store
	economy  *economy.Engine
	filter   *moderation.Filter
	riddles  *games.RiddleGame
	words    *games.WordGame
	loops    *follow.Loops
	follower *follow.Controller
	beat     *floor.BeatLoop
	wizard   *floor.Wizard
	tips     *autotip.Supervisor

	mu       sync.Mutex
	awaiting map[string]bool // usernames invited to !set a greeting
}

// Deps bundles the dispatcher's collaborators.
type Deps struct {
	Cfg      *config.Config
	API      platform.API
	Provider *room.Provider
	Store    *store.Store
	Economy  *economy.Engine
	Filter   *moderation.Filter
	Riddles  *games.RiddleGame
	Words    *games.WordGame
	Loops    *follow.Loops
	Follower *follow.Controller
	Beat     *floor.BeatLoop
	Wizard   *floor.Wizard
	Tips     *autotip.Supervisor
}

// New creates a dispatcher.
func New(d Deps) *Dispatcher {
	return &Dispatcher{
		cfg:      d.Cfg,
		api:      d.API,
		provider: d.Provider,
		store:    d.Store,
		economy:  d.Economy,
		filter:   d.Filter,
		riddles:  d.Riddles,
		words:    d.Words,
		loops:    d.Loops,
		follower: d.Follower,
		beat:     d.Beat,
		wizard:   d.Wizard,
		tips:     d.Tips,
		awaiting: map[string]bool{},
	}
}

// HandleMessage runs one inbound message through the cascade. whisper
// routes replies privately. Panics are contained here so one bad
// handler never takes down the event pump.
func (d *Dispatcher) HandleMessage(ctx context.Context, u platform.User, message string, whisper bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("username", u.Username).Msg("Message handler panicked")
		}
	}()

	msg := strings.TrimSpace(message)
	if msg == "" {
		return
	}
	privileged := d.isPrivileged(u.Username)

	if !privileged {
		if term := d.filter.Check(msg); term != "" {
			d.punish(ctx, u, term)
			return
		}
	}

	isCommand := strings.HasPrefix(msg, "!")
	if !isCommand {
		if d.riddles.TryAnswer(u.ID, msg) {
			d.say(ctx, fmt.Sprintf("🎉 @%s got it! +%d points!", u.Username, d.riddles.Points()))
			return
		}
		if d.words.TryClaim(ctx, u.ID, u.Username, msg) {
			return
		}
		if d.emoteCommand(ctx, u, strings.ToLower(msg)) {
			return
		}
		if d.autoRespond(ctx, msg) {
			return
		}
		return
	}

	lower := strings.ToLower(msg)
	if d.greetingSetter(ctx, u, lower, msg, whisper) {
		return
	}
	if d.cfg.IsOwner(u.Username) && d.ownerCommand(ctx, u, lower, msg, whisper) {
		return
	}

	// General command cooldown; privileged identities skip it.
	if !privileged && !d.economy.Throttle(u.ID) {
		return
	}
	d.publicCommand(ctx, u, lower, whisper)
}

// punish warns publicly and requests removal. Each step fails
// independently: a failed kick downgrades to a milder warning rather
// than silence.
func (d *Dispatcher) punish(ctx context.Context, u platform.User, term string) {
	log.Info().Str("username", u.Username).Str("term", term).Msg("Blocked language")
	if err := d.api.Chat(ctx, fmt.Sprintf("🚫 @%s watch your language!", u.Username)); err != nil {
		log.Warn().Err(err).Msg("Language warning failed")
	}
	if err := d.api.Kick(ctx, u.ID); err != nil {
		log.Warn().Err(err).Str("username", u.Username).Msg("Kick failed")
		d.say(ctx, fmt.Sprintf("⚠️ @%s consider this a warning.", u.Username))
	}
}

// autoRespond checks the substring trigger table. First hit replies with
// a random entry from its pool.
func (d *Dispatcher) autoRespond(ctx context.Context, msg string) bool {
	lower := strings.ToLower(msg)
	for _, ar := range autoResponses {
		if strings.Contains(lower, ar.trigger) {
			d.say(ctx, ar.replies[rand.Intn(len(ar.replies))])
			return true
		}
	}
	return false
}

// emoteCommand handles the non-! emote surface: bare numbers play an
// emote once, "loop N" repeats it, "random" loops a random emote, and
// "stop" / "0" cancel.
func (d *Dispatcher) emoteCommand(ctx context.Context, u platform.User, lower string) bool {
	switch {
	case lower == "stop" || lower == "0":
		if name, ok := d.loops.Stop(u.ID); ok {
			d.say(ctx, fmt.Sprintf("⏹️ @%s stopped looping %s", u.Username, name))
		}
		return true
	case lower == "random":
		d.startLoop(ctx, u, emote.Random())
		return true
	case strings.HasPrefix(lower, "loop "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(lower, "loop ")))
		if err != nil {
			return false
		}
		e, ok := emote.ByIndex(n)
		if !ok {
			d.say(ctx, fmt.Sprintf("❓ Emotes go from 1 to %d", emote.Len()))
			return true
		}
		d.startLoop(ctx, u, e)
		return true
	default:
		n, err := strconv.Atoi(lower)
		if err != nil {
			return false
		}
		e, ok := emote.ByIndex(n)
		if !ok {
			d.say(ctx, fmt.Sprintf("❓ Emotes go from 1 to %d", emote.Len()))
			return true
		}
		if err := d.api.SendEmote(ctx, e.ID, u.ID); err != nil {
			log.Debug().Err(err).Msg("Emote dispatch failed")
		}
		return true
	}
}

func (d *Dispatcher) startLoop(ctx context.Context, u platform.User, e emote.Emote) {
	switch err := d.loops.Start(ctx, u.ID, e); err {
	case nil:
		d.say(ctx, fmt.Sprintf("🔁 @%s looping %s! Type stop to end it", u.Username, e.Name))
	case follow.ErrLoopActive:
		d.say(ctx, fmt.Sprintf("⚠️ @%s you already have a loop running. Type stop first!", u.Username))
	default:
		log.Warn().Err(err).Msg("Loop start failed")
	}
}

// greetingSetter handles !setgreeting (VIP-gated) and !set (offered to
// fresh VIPs after their qualifying tip).
func (d *Dispatcher) greetingSetter(ctx context.Context, u platform.User, lower, msg string, whisper bool) bool {
	var text string
	switch {
	case strings.HasPrefix(lower, "!setgreeting "):
		if !d.economy.HasVIP(u.Username) {
			d.reply(ctx, u, whisper, "✨ Custom greetings are a VIP perk. Tip 30g+ to unlock!")
			return true
		}
		text = strings.TrimSpace(msg[len("!setgreeting "):])
	case strings.HasPrefix(lower, "!set "):
		d.mu.Lock()
		ok := d.awaiting[strings.ToLower(u.Username)]
		d.mu.Unlock()
		if !ok {
			return false
		}
		text = strings.TrimSpace(msg[len("!set "):])
	default:
		return false
	}

	if text == "" {
		d.reply(ctx, u, whisper, "Usage: !setgreeting <your greeting>")
		return true
	}
	if len(text) > maxGreetingLen {
		d.reply(ctx, u, whisper, fmt.Sprintf("⚠️ Greetings are capped at %d characters", maxGreetingLen))
		return true
	}

	d.store.Do(func(doc *model.Document) {
		doc.CustomGreetings[u.Username] = text
	})
	d.store.SaveLogged()
	d.mu.Lock()
	delete(d.awaiting, strings.ToLower(u.Username))
	d.mu.Unlock()
	d.reply(ctx, u, whisper, "✅ Greeting saved! You'll hear it next time you join 💜")
	return true
}

// InviteGreeting marks a username as allowed to use the short !set form.
func (d *Dispatcher) InviteGreeting(username string) {
	d.mu.Lock()
	d.awaiting[strings.ToLower(username)] = true
	d.mu.Unlock()
}

func (d *Dispatcher) isPrivileged(username string) bool {
	if d.cfg.IsOwner(username) {
		return true
	}
	var mod bool
	d.store.Do(func(doc *model.Document) {
		mod = doc.IsModerator(username)
	})
	return mod
}

// say posts to public chat, logging failures.
func (d *Dispatcher) say(ctx context.Context, msg string) {
	if err := d.api.Chat(ctx, msg); err != nil {
		log.Warn().Err(err).Msg("Chat send failed")
	}
}

// reply answers the invoker on the channel they used.
func (d *Dispatcher) reply(ctx context.Context, u platform.User, whisper bool, msg string) {
	var err error
	if whisper {
		err = d.api.Whisper(ctx, u.ID, msg)
	} else {
		err = d.api.Chat(ctx, msg)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Reply failed")
	}
}
