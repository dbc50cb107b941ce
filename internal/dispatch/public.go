package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/economy"
	"highrise-room-bot/internal/emote"
	"highrise-room-bot/internal/games"
	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
)

// publicCommand serves the open command surface. Unknown commands are
// silently ignored so casual "!!" chatter does not produce noise.
func (d *Dispatcher) publicCommand(ctx context.Context, u platform.User, lower string, whisper bool) {
	cmd, _, _ := strings.Cut(lower, " ")
	switch cmd {
	case "!help":
		d.reply(ctx, u, whisper, "📖 Commands: !help2 !help3 | !rank !stats !lb !tiplb !time | !vipstatus !wallet | type 1-"+fmt.Sprint(emote.Len())+" for emotes")
	case "!help2":
		d.reply(ctx, u, whisper, "🎲 Games: !riddle !skip !truth !dare !joke !roll !flip | word drops happen on their own, type the word to win!")
	case "!help3":
		d.reply(ctx, u, whisper, "💃 Emotes: number = play once, loop N = repeat, random = surprise loop, stop/0 = end | !vipfloor !dancefloor teleport")
	case "!vipstatus":
		d.reply(ctx, u, whisper, "@"+u.Username+" "+d.economy.VIPStatusText(u.Username))
	case "!wallet":
		d.cmdWallet(ctx, u, whisper)
	case "!vipfloor":
		d.cmdFloorTeleport(ctx, u, true)
	case "!dancefloor":
		d.cmdFloorTeleport(ctx, u, false)
	case "!leaderboard", "!lb":
		d.sayBoard(ctx, "🏆 TOP POINTS", d.economy.TopPoints(10), "pts")
	case "!tiplb":
		d.sayBoard(ctx, "💰 TOP TIPPERS", d.economy.TopTippers(10), "g")
	case "!time", "!tt":
		total := d.economy.LiveTotalTime(u.ID, u.Username)
		d.reply(ctx, u, whisper, fmt.Sprintf("⏱️ @%s you've spent %s in this room", u.Username, fmtDuration(total)))
	case "!rank":
		pts := d.economy.Points(u.Username)
		d.reply(ctx, u, whisper, fmt.Sprintf("%s @%s | %d points | tier: %s", economy.DisplayRank(pts), u.Username, pts, economy.RankTierName(pts)))
	case "!ranks":
		d.sayRanks(ctx, u, whisper)
	case "!stats":
		d.cmdStats(ctx, u, whisper)
	case "!info", "!infow":
		d.reply(ctx, u, whisper, "🤖 I keep this room alive: points, VIP floors, synced dances and games. !help for everything I do 💜")
	case "!truth":
		d.say(ctx, fmt.Sprintf("🗣️ @%s: %s", u.Username, games.Truth()))
	case "!dare":
		d.say(ctx, fmt.Sprintf("😈 @%s: %s", u.Username, games.Dare()))
	case "!joke":
		d.say(ctx, games.Joke())
	case "!riddle":
		d.cmdRiddle(ctx, u)
	case "!skip":
		if answer, ok := d.riddles.Skip(u.ID); ok {
			d.say(ctx, fmt.Sprintf("⏭️ @%s skipped. The answer was: %s", u.Username, answer))
		} else {
			d.reply(ctx, u, whisper, "You have no riddle to skip. !riddle to get one!")
		}
	case "!roll":
		d.say(ctx, games.Roll(u.Username))
	case "!flip":
		d.say(ctx, games.Flip(u.Username))
	}
}

func (d *Dispatcher) cmdWallet(ctx context.Context, u platform.User, whisper bool) {
	gold, err := d.api.WalletGold(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Wallet check failed")
		d.reply(ctx, u, whisper, "⚠️ Couldn't check the wallet right now")
		return
	}
	d.reply(ctx, u, whisper, fmt.Sprintf("💰 Bot wallet: %dg", gold))
}

// cmdFloorTeleport sends the invoker to a configured floor. The VIP
// floor checks access; the dance floor is open to everyone.
func (d *Dispatcher) cmdFloorTeleport(ctx context.Context, u platform.User, vip bool) {
	var zone *model.Zone
	d.store.Do(func(doc *model.Document) {
		if vip {
			zone = doc.VIPFloor
		} else {
			zone = doc.DanceFloor
		}
	})
	if zone == nil {
		d.say(ctx, "That floor isn't set up yet!")
		return
	}
	if vip && !d.economy.HasVIP(u.Username) {
		d.say(ctx, fmt.Sprintf("✨ @%s the VIP floor needs VIP access. Tip 30g+ to unlock!", u.Username))
		return
	}
	if err := d.api.Teleport(ctx, u.ID, zone.Center()); err != nil {
		log.Warn().Err(err).Str("username", u.Username).Msg("Floor teleport failed")
	}
}

func (d *Dispatcher) cmdRiddle(ctx context.Context, u platform.User) {
	r, err := d.riddles.Start(ctx, u.ID, u.Username)
	if err != nil {
		d.say(ctx, fmt.Sprintf("🧩 @%s you already have a riddle! Answer it or !skip", u.Username))
		return
	}
	d.say(ctx, fmt.Sprintf("🧩 @%s: %s (you have %ds, +%d pts!)", u.Username, r.Question, int(d.cfg.Games.RiddleDeadline.Seconds()), d.riddles.Points()))
}

func (d *Dispatcher) cmdStats(ctx context.Context, u platform.User, whisper bool) {
	var st model.UserStats
	var sessions int
	d.store.Do(func(doc *model.Document) {
		if s, ok := doc.UserStats[u.Username]; ok {
			st = *s
		}
		sessions = doc.UserSessions[u.Username]
	})
	pts := d.economy.Points(u.Username)
	d.reply(ctx, u, whisper, fmt.Sprintf("📊 @%s | %d pts | %d msgs | %d emotes | %d tips given | %d visits",
		u.Username, pts, st.Messages, st.Emotes, st.TipsGiven, sessions))
}

func (d *Dispatcher) sayRanks(ctx context.Context, u platform.User, whisper bool) {
	var b strings.Builder
	b.WriteString("🏅 Rank ladder:")
	tiers := economy.RankTiers()
	for i := len(tiers) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "\n%s %d+", tiers[i].Username, tiers[i].Value)
	}
	d.reply(ctx, u, whisper, b.String())
}

// sayBoard renders a top-10 listing to public chat.
func (d *Dispatcher) sayBoard(ctx context.Context, title string, entries []economy.Entry, unit string) {
	if len(entries) == 0 {
		d.say(ctx, title+": nobody yet!")
		return
	}
	var b strings.Builder
	b.WriteString(title)
	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		tag := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			tag = medals[i]
		}
		fmt.Fprintf(&b, "\n%s %s %d%s", tag, e.Username, e.Value, unit)
	}
	d.say(ctx, b.String())
}

func fmtDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
