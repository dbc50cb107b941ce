package dispatch

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/economy"
	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
)

// Sink receives platform session events and runs the join/leave/tip
// ceremonies before handing chat to the dispatcher. It satisfies
// platform.EventSink.
type Sink struct {
	ctx context.Context
	d   *Dispatcher
}

// NewSink creates the event sink. ctx bounds all API calls made from
// event handlers and ends with the process.
func NewSink(ctx context.Context, d *Dispatcher) *Sink {
	return &Sink{ctx: ctx, d: d}
}

var _ platform.EventSink = (*Sink)(nil)

// OnReady marks the session live and walks the bot back to its saved
// spot.
func (s *Sink) OnReady() {
	s.d.provider.SetConnected(true)
	log.Info().Msg("Session ready")

	go s.safely("ready", func() {
		var pos *model.Position
		s.d.store.Do(func(doc *model.Document) {
			pos = doc.BotLastPosition
		})
		if pos == nil {
			return
		}
		if err := s.d.api.WalkTo(s.ctx, *pos); err != nil {
			log.Debug().Err(err).Msg("Could not return to saved position")
		}
	})
}

// OnDisconnect marks the session down and stops every per-user loop;
// occupant ids do not survive a reconnect.
func (s *Sink) OnDisconnect() {
	s.d.provider.SetConnected(false)
	s.d.loops.StopAll()
	log.Warn().Msg("Session lost")
}

// OnJoin runs the greeting ceremony: custom or pooled greeting with the
// user's rank badge, hearts, a one-time welcome tip for first visits,
// and the join bonus.
func (s *Sink) OnJoin(u platform.User, pos model.Position) {
	go s.safely("join", func() {
		d := s.d
		if u.ID == d.api.BotID() || d.cfg.IsExcluded(u.Username) {
			return
		}
		d.economy.JoinSession(u.ID, u.Username)
		first := d.economy.FirstVisit(u.Username)

		var custom string
		d.store.Do(func(doc *model.Document) {
			custom = doc.CustomGreetings[u.Username]
		})

		var greeting string
		if custom != "" {
			greeting = fmt.Sprintf("💫 %s 💫 (@%s)", custom, u.Username)
		} else {
			pts := d.economy.Points(u.Username)
			greeting = fmt.Sprintf(greetingPool[rand.Intn(len(greetingPool))], "@"+u.Username)
			greeting += " " + economy.DisplayRank(pts)
			if d.economy.HasVIP(u.Username) {
				greeting += " 👑"
			}
		}
		d.say(s.ctx, greeting)

		// Double heart, best effort.
		for i := 0; i < 2; i++ {
			if err := d.api.React(s.ctx, "heart", u.ID); err != nil {
				break
			}
		}

		if first {
			s.welcomeTip(u)
		}
		if d.economy.GrantJoinBonus(u.Username) {
			d.say(s.ctx, fmt.Sprintf("🎁 +%d welcome points for @%s!", d.cfg.Economy.JoinBonus, u.Username))
		}
		d.store.SaveLogged()
	})
}

// welcomeTip sends the one-time 1g welcome tip when the wallet allows.
func (s *Sink) welcomeTip(u platform.User) {
	d := s.d
	gold, err := d.api.WalletGold(s.ctx)
	if err != nil || gold < 1 {
		return
	}
	bar, _ := platform.GoldBar(1)
	if err := d.api.TipUser(s.ctx, u.ID, bar); err != nil {
		log.Debug().Err(err).Msg("Welcome tip failed")
		return
	}
	d.say(s.ctx, fmt.Sprintf("🎉 First visit! A little welcome gift for @%s 💝", u.Username))
}

// OnLeave says goodbye, closes the time session, and clears every piece
// of per-occupant state.
func (s *Sink) OnLeave(u platform.User) {
	go s.safely("leave", func() {
		d := s.d
		if u.ID == d.api.BotID() {
			return
		}
		if !d.cfg.IsExcluded(u.Username) {
			d.say(s.ctx, fmt.Sprintf(goodbyePool[rand.Intn(len(goodbyePool))], "@"+u.Username))
		}
		d.economy.LeaveSession(u.ID)
		d.loops.Stop(u.ID)
		d.beat.Remove(u.ID)
		if d.follower.Target() == u.ID {
			d.follower.Stop()
		}
		d.riddles.Skip(u.ID)
		d.store.SaveLogged()
	})
}

// OnChat records activity and dispatches.
func (s *Sink) OnChat(u platform.User, message string) {
	go s.safely("chat", func() {
		if u.ID == s.d.api.BotID() {
			return
		}
		s.d.economy.RecordMessage(u.Username)
		s.d.HandleMessage(s.ctx, u, message, false)
	})
}

// OnWhisper dispatches with private replies. Whispers earn no activity
// points.
func (s *Sink) OnWhisper(u platform.User, message string) {
	go s.safely("whisper", func() {
		if u.ID == s.d.api.BotID() {
			return
		}
		s.d.HandleMessage(s.ctx, u, message, true)
	})
}

// OnTip runs the tip ceremony. Tips to the bot feed the VIP ladder;
// tips between users earn the sender half points and a shout-out.
func (s *Sink) OnTip(sender, receiver platform.User, amount int) {
	go s.safely("tip", func() {
		d := s.d
		if sender.ID == d.api.BotID() || amount <= 0 {
			return
		}
		d.store.Do(func(doc *model.Document) {
			doc.StatsFor(sender.Username).TipsGiven++
		})

		if receiver.ID != d.api.BotID() {
			d.economy.Award(sender.Username, amount/2)
			d.say(s.ctx, fmt.Sprintf("💝 @%s tipped @%s %dg! Generosity pays: +%d pts", sender.Username, receiver.Username, amount, amount/2))
			d.store.SaveLogged()
			return
		}

		d.economy.Award(sender.Username, amount)
		if err := d.api.SendEmote(s.ctx, "emoji-lust", sender.ID); err != nil {
			log.Debug().Err(err).Msg("Tip emote failed")
		}

		switch {
		case amount >= 100:
			d.say(s.ctx, fmt.Sprintf("🌈💸 MEGA TIP! @%s dropped %dg! LEGEND! 💸🌈", sender.Username, amount))
		case amount >= 50:
			d.say(s.ctx, fmt.Sprintf("🔥 WOW! @%s tipped %dg! 🔥", sender.Username, amount))
		default:
			d.say(s.ctx, fmt.Sprintf("💜 @%s tipped %dg, thank you! (+%d pts)", sender.Username, amount, amount))
		}

		res := d.economy.RecordTip(sender.Username, amount)
		if res.Message != "" {
			d.say(s.ctx, res.Message)
		}
		if res.NewlyAcquired {
			d.InviteGreeting(sender.Username)
			d.say(s.ctx, fmt.Sprintf("💬 @%s reply \"!set <text>\" to pick your custom greeting!", sender.Username))
		}
		d.store.SaveLogged()
	})
}

// OnReaction awards the reaction channel.
func (s *Sink) OnReaction(u platform.User, receiver platform.User, reaction string) {
	go s.safely("reaction", func() {
		if u.ID == s.d.api.BotID() {
			return
		}
		s.d.economy.RecordReaction(u.Username)
	})
}

// OnEmote counts emote activity.
func (s *Sink) OnEmote(u platform.User, emoteID string, receiver *platform.User) {
	go s.safely("emote", func() {
		if u.ID == s.d.api.BotID() {
			return
		}
		s.d.economy.RecordEmote(u.Username)
	})
}

// OnMove is ignored: zone logic works off polled snapshots, not the
// event stream.
func (s *Sink) OnMove(u platform.User, pos model.Position) {}

// safely contains panics per event so one bad handler cannot stop the
// pump.
func (s *Sink) safely(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", event).Msg("Event handler panicked")
		}
	}()
	fn()
}
