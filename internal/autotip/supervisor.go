// Package autotip runs owner-configured recurring tips: a fixed gold
// amount sent to one user on a fixed interval until stopped or the
// wallet runs dry.
package autotip

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/platform"
)

// MinInterval floors the schedule so a typo cannot drain a wallet in
// seconds.
const MinInterval = 30 * time.Second

// task is one running auto-tip schedule.
type task struct {
	cancel context.CancelFunc
	amount int
	every  time.Duration
}

// Supervisor owns all auto-tip tasks, keyed by recipient username.
type Supervisor struct {
	api    platform.API
	findID func(ctx context.Context, username string) (string, bool)
	notify func(ctx context.Context, message string)

	mu    sync.Mutex
	tasks map[string]*task
}

// New creates a supervisor. findID resolves a username to an occupant id
// from the live room; notify posts task lifecycle messages to chat.
func New(api platform.API, findID func(context.Context, string) (string, bool), notify func(context.Context, string)) *Supervisor {
	return &Supervisor{
		api:    api,
		findID: findID,
		notify: notify,
		tasks:  map[string]*task{},
	}
}

// Start begins tipping username amount gold every interval. An existing
// schedule for the same user is cancelled first, so the new one wins.
// The amount must map to a platform gold bar denomination.
func (s *Supervisor) Start(ctx context.Context, username string, amount int, interval time.Duration) error {
	bar, ok := platform.GoldBar(amount)
	if !ok {
		return &BadAmountError{Amount: amount}
	}
	if interval < MinInterval {
		interval = MinInterval
	}

	key := strings.ToLower(username)
	s.mu.Lock()
	if prev, ok := s.tasks[key]; ok {
		prev.cancel()
	}
	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{cancel: cancel, amount: amount, every: interval}
	s.tasks[key] = t
	s.mu.Unlock()

	log.Info().Str("username", username).Int("amount", amount).Dur("interval", interval).Msg("Auto-tip started")
	go s.run(taskCtx, key, username, bar, amount, interval, t)
	return nil
}

// Stop cancels the schedule for username. Returns whether one existed.
func (s *Supervisor) Stop(username string) bool {
	key := strings.ToLower(username)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.cancel()
	delete(s.tasks, key)
	return true
}

// StopAll cancels every schedule; used on shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.tasks {
		t.cancel()
		delete(s.tasks, key)
	}
}

// Running lists active schedules as (username, amount, interval) rows.
func (s *Supervisor) Running() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.tasks))
	for key, t := range s.tasks {
		out = append(out, Status{Username: key, Amount: t.amount, Interval: t.every})
	}
	return out
}

// Status describes one running schedule.
type Status struct {
	Username string
	Amount   int
	Interval time.Duration
}

// BadAmountError reports an amount with no gold bar denomination.
type BadAmountError struct {
	Amount int
}

func (e *BadAmountError) Error() string {
	return "no gold bar denomination for amount"
}

func (s *Supervisor) run(ctx context.Context, key, username, bar string, amount int, interval time.Duration, self *task) {
	defer func() {
		self.cancel()
		s.mu.Lock()
		// Only remove our own entry; a replacement started meanwhile
		// owns the slot now.
		if s.tasks[key] == self {
			delete(s.tasks, key)
		}
		s.mu.Unlock()
	}()

	for {
		// Wallet check up front: stopping on an empty wallet beats a
		// stream of failed tip requests.
		gold, err := s.api.WalletGold(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("Auto-tip wallet check failed")
		} else if gold < amount {
			s.notify(ctx, "💰 Auto-tip stopped: wallet is empty")
			return
		}

		if id, ok := s.findID(ctx, username); ok {
			if err := s.api.TipUser(ctx, id, bar); err != nil {
				log.Warn().Err(err).Str("username", username).Msg("Auto-tip failed")
			}
		} else {
			log.Debug().Str("username", username).Msg("Auto-tip target not in room, skipping round")
		}

		if !sleepChunked(ctx, interval) {
			return
		}
	}
}

// sleepChunked sleeps in one-second slices so a cancelled task exits
// promptly even on long intervals.
func sleepChunked(ctx context.Context, d time.Duration) bool {
	for d > 0 {
		step := time.Second
		if d < step {
			step = d
		}
		t := time.NewTimer(step)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		d -= step
	}
	return true
}
