// Package main is the entry point for the Highrise room bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/autotip"
	"highrise-room-bot/internal/config"
	"highrise-room-bot/internal/dispatch"
	"highrise-room-bot/internal/economy"
	"highrise-room-bot/internal/floor"
	"highrise-room-bot/internal/follow"
	"highrise-room-bot/internal/games"
	"highrise-room-bot/internal/moderation"
	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/platform/highrise"
	"highrise-room-bot/internal/room"
	"highrise-room-bot/internal/scheduler"
	"highrise-room-bot/internal/store"
	"highrise-room-bot/internal/web"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Bot.Token == "" || cfg.Bot.RoomID == "" {
		log.Fatal().Msg("bot.token and bot.room_id are required (env: BOT_TOKEN, BOT_ROOM_ID)")
	}
	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the persisted room state
	st := store.Open(cfg.Data.File)

	// Platform client and room snapshot provider
	client := highrise.New(highrise.Config{
		Endpoint: cfg.Bot.Endpoint,
		Token:    cfg.Bot.Token,
		RoomID:   cfg.Bot.RoomID,
	}, nil) // sink attached below, after the dispatcher exists
	provider := room.New(client, cfg.Bot.APITimeout)

	// Core engines
	eco := economy.New(st, cfg)
	filter := moderation.NewFilter(dispatch.BadWords())
	say := func(ctx context.Context, msg string) {
		if err := client.Chat(ctx, msg); err != nil {
			log.Warn().Err(err).Msg("Chat send failed")
		}
	}

	// Games
	riddles := games.NewRiddleGame(cfg.Games.RiddleDeadline, cfg.Games.RiddlePoints, eco.Award, say)
	bonus := func(ctx context.Context, userID string, gold int) bool {
		balance, err := client.WalletGold(ctx)
		if err != nil || balance < gold {
			return false
		}
		bar, ok := platform.GoldBar(gold)
		if !ok {
			return false
		}
		return client.TipUser(ctx, userID, bar) == nil
	}
	words := games.NewWordGame(
		cfg.Games.WordRoundWindow, cfg.Games.WordPoints,
		cfg.Games.WordMinInterval, cfg.Games.WordMaxInterval,
		cfg.Games.WordBonusGold, cfg.Games.WordBonusOneIn,
		eco.Award, say, bonus,
	)

	// Movement and floors
	follower := follow.NewController(client, provider, cfg.Follow.PollInterval, cfg.Follow.TrailOffset)
	loops := follow.NewLoops(client)
	beat := floor.NewBeatLoop(client, provider, cfg.Floor.MinBeat, cfg.Floor.CacheBeats)
	monitor := floor.NewMonitor(client, provider, st, beat, cfg.Floor.PollInterval, eco.HasVIP, cfg.IsExcluded)

	// Auto-tip supervisor
	findID := func(ctx context.Context, username string) (string, bool) {
		u, ok := room.FindByUsername(provider.Snapshot(ctx), username)
		return u.ID, ok
	}
	tips := autotip.New(client, findID, say)

	// Dispatcher and event sink
	dispatcher := dispatch.New(dispatch.Deps{
		Cfg:      cfg,
		API:      client,
		Provider: provider,
		Store:    st,
		Economy:  eco,
		Filter:   filter,
		Riddles:  riddles,
		Words:    words,
		Loops:    loops,
		Follower: follower,
		Beat:     beat,
		Wizard:   floor.NewWizard(),
		Tips:     tips,
	})
	client.SetSink(dispatch.NewSink(ctx, dispatcher))

	// Background scheduler
	sched := scheduler.New(scheduler.Deps{
		Cfg:      cfg,
		API:      client,
		Provider: provider,
		Store:    st,
		Economy:  eco,
		Monitor:  monitor,
		Beat:     beat,
		Follower: follower,
		Words:    words,
	})
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Keep-alive endpoint
	srv := web.New(cfg.Web.Addr)
	srv.Start()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run the session in a goroutine; it reconnects internally
	go func() {
		log.Info().Str("room", cfg.Bot.RoomID).Msg("Bot is starting...")
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Session ended")
			sigChan <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown: stop schedules, flush state, close the session
	cancel()
	tips.StopAll()
	loops.StopAll()
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Keep-alive shutdown failed")
	}
	client.Close()
	log.Info().Msg("Bot stopped gracefully")
}
