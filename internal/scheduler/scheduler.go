// Package scheduler owns the recurring background work: periodic
// persistence, VIP expiry sweeps, presence rewards, announcements, and
// the long-running automation loops.
package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/config"
	"highrise-room-bot/internal/economy"
	"highrise-room-bot/internal/emote"
	"highrise-room-bot/internal/floor"
	"highrise-room-bot/internal/follow"
	"highrise-room-bot/internal/games"
	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/room"
	"highrise-room-bot/internal/store"
)

// Announcement rotations: tip prompts and feature tips alternate.
var tipAnnouncements = []string{
	"💎 Tip 30g for 1-day VIP, 100g for a week, 500g for permanent!",
	"✨ VIPs get the private floor and a custom greeting. Tip to unlock!",
	"👑 Support the room! Every tipped gold counts toward your VIP tier.",
}

var helpAnnouncements = []string{
	"🎲 Try !riddle, !truth, !dare or !joke for some fun!",
	"📊 Check !rank, !stats and !lb to see where you stand!",
	"💃 Stand on the dance floor to join the synced dance!",
	"🎭 Type a number for an emote, or loop N to repeat it!",
}

// presenceEveryN awards the room-presence bonus on every Nth save tick.
const presenceEveryN = 5

// presencePoints is the bonus per qualifying occupant.
const presencePoints = 5

// Scheduler wires the cron jobs and loop goroutines.
type Scheduler struct {
	cfg      *config.Config
	api      platform.API
	provider *room.Provider
	store    *store.Store
	economy  *economy.Engine
	monitor  *floor.Monitor
	beat     *floor.BeatLoop
	follower *follow.Controller
	words    *games.WordGame

	cron      *cron.Cron
	saveTicks int
	announceN int
}

// Deps bundles the scheduler's collaborators.
type Deps struct {
	Cfg      *config.Config
	API      platform.API
	Provider *room.Provider
	Store    *store.Store
	Economy  *economy.Engine
	Monitor  *floor.Monitor
	Beat     *floor.BeatLoop
	Follower *follow.Controller
	Words    *games.WordGame
}

// New creates a scheduler.
func New(d Deps) *Scheduler {
	return &Scheduler{
		cfg:      d.Cfg,
		api:      d.API,
		provider: d.Provider,
		store:    d.Store,
		economy:  d.Economy,
		monitor:  d.Monitor,
		beat:     d.Beat,
		follower: d.Follower,
		words:    d.Words,
		cron:     cron.New(),
	}
}

// Start registers the cron jobs and launches the loop goroutines. It
// returns after scheduling; Stop shuts the cron down.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{"@every 60s", "auto-save", func() { s.autoSave(ctx) }},
		{"@every 5m", "position-save", func() { s.savePosition(ctx) }},
		{"@every 60s", "keep-alive", func() { s.keepAlive(ctx) }},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.fn); err != nil {
			return err
		}
		log.Debug().Str("job", j.name).Str("spec", j.spec).Msg("Scheduled job")
	}
	s.cron.Start()

	go s.monitor.Run(ctx)
	go s.beat.Run(ctx)
	go s.words.Loop(ctx)
	go s.announceLoop(ctx)
	go s.idleDanceLoop(ctx)
	return nil
}

// Stop halts the cron scheduler and flushes the store once more.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.store.SaveLogged()
}

// autoSave is the heartbeat: accrue open session time, sweep expired VIP
// grants, hand out the periodic presence bonus, and persist.
func (s *Scheduler) autoSave(ctx context.Context) {
	s.economy.AccrueAll()
	if n := s.economy.CleanExpiredVIP(); n > 0 {
		log.Info().Int("expired", n).Msg("Swept expired VIP grants")
	}

	s.saveTicks++
	if s.saveTicks%presenceEveryN == 0 && s.provider.Connected() {
		for _, u := range s.provider.Snapshot(ctx) {
			if u.ID == s.api.BotID() || s.cfg.IsExcluded(u.Username) {
				continue
			}
			s.economy.Award(u.Username, presencePoints)
		}
	}
	s.store.SaveLogged()
}

// savePosition remembers where the bot stands so a restart can put it
// back. Skipped while following: mid-follow positions are transient.
func (s *Scheduler) savePosition(ctx context.Context) {
	if s.follower.Following() || !s.provider.Connected() {
		return
	}
	pos := s.provider.BotPosition(ctx)
	if pos == nil {
		return
	}
	s.store.Do(func(d *model.Document) {
		d.BotLastPosition = pos
	})
}

// keepAlive exercises the session so idle rooms do not get reaped.
func (s *Scheduler) keepAlive(ctx context.Context) {
	if !s.provider.Connected() {
		return
	}
	s.provider.Snapshot(ctx)
}

// announceLoop alternates between the tip and help pools every five
// minutes, after an initial grace so a restart is not instantly noisy.
func (s *Scheduler) announceLoop(ctx context.Context) {
	if !sleepCtx(ctx, 150*time.Second) {
		return
	}
	for {
		if s.provider.Connected() {
			s.announce(ctx)
		}
		if !sleepCtx(ctx, 5*time.Minute) {
			return
		}
	}
}

func (s *Scheduler) announce(ctx context.Context) {
	s.announceN++
	var pool []string
	if s.announceN%2 == 1 {
		pool = tipAnnouncements
	} else {
		pool = helpAnnouncements
	}
	msg := pool[rand.Intn(len(pool))]
	if err := s.api.Chat(ctx, msg); err != nil {
		log.Debug().Err(err).Msg("Announcement failed")
	}
}

// idleDanceLoop keeps the bot itself dancing when nothing else claims
// it. Offset from the other loops so startup traffic is spread out.
func (s *Scheduler) idleDanceLoop(ctx context.Context) {
	if !sleepCtx(ctx, 7*time.Second) {
		return
	}
	for {
		var wait time.Duration
		if !s.provider.Connected() || s.follower.Following() {
			wait = 10 * time.Second
		} else {
			e := emote.RandomDance()
			if err := s.api.SendEmote(ctx, e.ID, ""); err != nil {
				log.Debug().Err(err).Msg("Idle dance failed")
				wait = 10 * time.Second
			} else {
				wait = time.Duration(e.Duration * float64(time.Second))
				if wait < 3*time.Second {
					wait = 3 * time.Second
				}
			}
		}
		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
