package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/autotip"
	"highrise-room-bot/internal/floor"
	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/room"
)

// ownerCommand serves the admin surface. Returns whether the message was
// an owner command; unhandled commands fall through to the public table.
func (d *Dispatcher) ownerCommand(ctx context.Context, u platform.User, lower, msg string, whisper bool) bool {
	cmd, rest, _ := strings.Cut(lower, " ")
	_, restRaw, _ := strings.Cut(msg, " ")
	args := strings.Fields(rest)

	switch cmd {
	case "!addmod":
		return d.mutateUser(ctx, u, whisper, args, "Usage: !addmod @user", func(doc *model.Document, name string) string {
			doc.AddModerator(name)
			return "🛡️ " + name + " is now a moderator"
		})
	case "!removemod":
		return d.mutateUser(ctx, u, whisper, args, "Usage: !removemod @user", func(doc *model.Document, name string) string {
			if doc.RemoveModerator(name) {
				return "🛡️ " + name + " is no longer a moderator"
			}
			return name + " wasn't a moderator"
		})
	case "!modlist":
		var mods []string
		d.store.Do(func(doc *model.Document) { mods = append(mods, doc.Moderators...) })
		if len(mods) == 0 {
			d.reply(ctx, u, whisper, "No moderators yet")
		} else {
			d.reply(ctx, u, whisper, "🛡️ Moderators: "+strings.Join(mods, ", "))
		}
		return true

	case "!follow":
		d.follower.Follow(ctx, u.ID, u.Username)
		d.reply(ctx, u, whisper, "🚶 Now following @"+u.Username+"!")
		return true
	case "!stop", "!unfollow":
		stopped := d.follower.Stop()
		if _, ok := d.loops.Stop(u.ID); ok || stopped {
			d.reply(ctx, u, whisper, "🛑 Stopped.")
		} else {
			d.reply(ctx, u, whisper, "Nothing to stop")
		}
		return true

	case "!setvipfloor":
		d.wizard.Cancel(u.Username, floor.KindVIP)
		d.reply(ctx, u, whisper, "📍 Stand at one corner of the VIP floor and send !vippoint, then repeat at the opposite corner")
		return true
	case "!vippoint":
		d.floorPoint(ctx, u, whisper, floor.KindVIP)
		return true
	case "!setdancefloor":
		d.wizard.Cancel(u.Username, floor.KindDance)
		d.reply(ctx, u, whisper, "📍 Stand at one corner of the dance floor and send !dancepoint, then repeat at the opposite corner")
		return true
	case "!dancepoint":
		d.floorPoint(ctx, u, whisper, floor.KindDance)
		return true
	case "!clearvip":
		d.store.Do(func(doc *model.Document) { doc.VIPFloor = nil })
		d.store.SaveLogged()
		d.reply(ctx, u, whisper, "🧹 VIP floor cleared")
		return true
	case "!cleardance":
		d.store.Do(func(doc *model.Document) { doc.DanceFloor = nil })
		d.store.SaveLogged()
		d.reply(ctx, u, whisper, "🧹 Dance floor cleared")
		return true
	case "!floorstatus":
		d.floorStatus(ctx, u, whisper)
		return true

	case "!announce":
		if restRaw == "" {
			d.reply(ctx, u, whisper, "Usage: !announce <message>")
			return true
		}
		d.say(ctx, "📢 "+strings.TrimSpace(restRaw))
		return true
	case "!setpos":
		d.cmdSetPos(ctx, u, whisper)
		return true
	case "!clearlb":
		d.store.Do(func(doc *model.Document) { doc.UserRatings = map[string]int{} })
		d.store.SaveLogged()
		d.say(ctx, "🧹 Leaderboard wiped. Fresh start for everyone!")
		return true
	case "!resetstats":
		d.store.Do(func(doc *model.Document) { doc.UserStats = map[string]*model.UserStats{} })
		d.store.SaveLogged()
		d.reply(ctx, u, whisper, "🧹 User stats reset")
		return true
	case "!hearts":
		d.cmdHearts(ctx, u, whisper)
		return true

	case "!addvip":
		return d.mutateUser(ctx, u, whisper, args, "Usage: !addvip @user", func(doc *model.Document, name string) string {
			doc.VIPTimed[name] = time.Now().Add(24 * time.Hour).Unix()
			return "✨ " + name + " granted 1-day VIP"
		})
	case "!addpermvip":
		return d.mutateUser(ctx, u, whisper, args, "Usage: !addpermvip @user", func(doc *model.Document, name string) string {
			doc.AddPermanentVIP(name)
			return "💎 " + name + " granted permanent VIP"
		})
	case "!removevip":
		if len(args) < 1 {
			d.reply(ctx, u, whisper, "Usage: !removevip @user")
			return true
		}
		name := strings.TrimPrefix(args[0], "@")
		if d.economy.RevokeVIP(name) {
			d.reply(ctx, u, whisper, "❌ VIP removed from "+name)
		} else {
			d.reply(ctx, u, whisper, name+" had no VIP grant")
		}
		d.store.SaveLogged()
		return true

	case "!addpoints", "!removepoints", "!setpoints":
		d.cmdPoints(ctx, u, whisper, cmd, args)
		return true

	case "!addgreeting":
		parts := strings.SplitN(strings.TrimSpace(restRaw), " ", 2)
		if len(parts) < 2 {
			d.reply(ctx, u, whisper, "Usage: !addgreeting @user <greeting>")
			return true
		}
		name := strings.TrimPrefix(parts[0], "@")
		if len(parts[1]) > maxGreetingLen {
			d.reply(ctx, u, whisper, fmt.Sprintf("⚠️ Greetings are capped at %d characters", maxGreetingLen))
			return true
		}
		d.store.Do(func(doc *model.Document) { doc.CustomGreetings[name] = parts[1] })
		d.store.SaveLogged()
		d.reply(ctx, u, whisper, "✅ Greeting saved for "+name)
		return true
	case "!removegreeting":
		return d.mutateUser(ctx, u, whisper, args, "Usage: !removegreeting @user", func(doc *model.Document, name string) string {
			delete(doc.CustomGreetings, name)
			return "🧹 Greeting removed for " + name
		})

	case "!data":
		d.cmdData(ctx, u, whisper)
		return true
	case "!dawya":
		if !d.words.StartRound(ctx) {
			d.reply(ctx, u, whisper, "A word round is already live!")
		}
		return true
	case "!myoutfit":
		d.cmdMyOutfit(ctx, u, whisper)
		return true

	case "!tip":
		d.cmdTip(ctx, u, whisper, args)
		return true
	case "!tipall":
		d.cmdTipAll(ctx, u, whisper, args)
		return true
	case "!autotip":
		d.cmdAutoTip(ctx, u, whisper, args)
		return true
	case "!stopautotip":
		if len(args) < 1 {
			d.tips.StopAll()
			d.reply(ctx, u, whisper, "⏹️ All auto-tips stopped")
			return true
		}
		name := strings.TrimPrefix(args[0], "@")
		if d.tips.Stop(name) {
			d.reply(ctx, u, whisper, "⏹️ Auto-tip stopped for "+name)
		} else {
			d.reply(ctx, u, whisper, "No auto-tip running for "+name)
		}
		return true
	case "!autostatus":
		running := d.tips.Running()
		if len(running) == 0 {
			d.reply(ctx, u, whisper, "No auto-tips running")
			return true
		}
		var b strings.Builder
		b.WriteString("💸 Auto-tips:")
		for _, s := range running {
			fmt.Fprintf(&b, "\n%s: %dg every %s", s.Username, s.Amount, s.Interval)
		}
		d.reply(ctx, u, whisper, b.String())
		return true
	}

	if n, ok := outfitIndex(cmd); ok {
		d.cmdApplyOutfit(ctx, u, whisper, n)
		return true
	}
	return false
}

// outfitPresets maps !outfitN to an outfit. Item ids are room-specific;
// run !myoutfit to list the current ones and fill these in.
var outfitPresets = map[int][]platform.OutfitItem{}

// outfitIndex parses "!outfitN" commands.
func outfitIndex(cmd string) (int, bool) {
	rest, ok := strings.CutPrefix(cmd, "!outfit")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// cmdMyOutfit lists the bot's current outfit item ids so presets can be
// assembled from them.
func (d *Dispatcher) cmdMyOutfit(ctx context.Context, u platform.User, whisper bool) {
	items, err := d.api.GetOutfit(ctx)
	if err != nil || len(items) == 0 {
		d.reply(ctx, u, whisper, "⚠️ Couldn't read the bot outfit")
		return
	}
	var b strings.Builder
	b.WriteString("👗 Bot outfit:")
	for _, it := range items {
		fmt.Fprintf(&b, "\n%s %s", it.Type, it.ID)
	}
	d.reply(ctx, u, whisper, b.String())
}

// cmdApplyOutfit swaps the bot into a preset outfit.
func (d *Dispatcher) cmdApplyOutfit(ctx context.Context, u platform.User, whisper bool, n int) {
	items, ok := outfitPresets[n]
	if !ok || len(items) == 0 {
		d.reply(ctx, u, whisper, fmt.Sprintf("❌ Outfit %d is empty. Run !myoutfit and fill the preset first", n))
		return
	}
	if err := d.api.SetOutfit(ctx, items); err != nil {
		log.Warn().Err(err).Int("outfit", n).Msg("Outfit apply failed")
		d.reply(ctx, u, whisper, fmt.Sprintf("⚠️ Couldn't apply outfit %d", n))
		return
	}
	d.say(ctx, fmt.Sprintf("👗 Outfit %d, fresh look!", n))
}

// mutateUser applies a single-username mutation and saves.
func (d *Dispatcher) mutateUser(ctx context.Context, u platform.User, whisper bool, args []string, usage string, fn func(*model.Document, string) string) bool {
	if len(args) < 1 {
		d.reply(ctx, u, whisper, usage)
		return true
	}
	name := strings.TrimPrefix(args[0], "@")
	var out string
	d.store.Do(func(doc *model.Document) { out = fn(doc, name) })
	d.store.SaveLogged()
	d.reply(ctx, u, whisper, out)
	return true
}

// floorPoint records one wizard corner at the owner's current position.
func (d *Dispatcher) floorPoint(ctx context.Context, u platform.User, whisper bool, kind floor.Kind) {
	users := d.provider.Snapshot(ctx)
	me, ok := room.FindByID(users, u.ID)
	if !ok || me.Pos == nil {
		d.reply(ctx, u, whisper, "⚠️ Can't read your position. Stand on the floor (not seated) and try again")
		return
	}
	zone, done := d.wizard.Mark(u.Username, kind, *me.Pos)
	if !done {
		d.reply(ctx, u, whisper, "📍 Corner one saved. Walk to the opposite corner and send the command again")
		return
	}
	d.store.Do(func(doc *model.Document) {
		if kind == floor.KindVIP {
			doc.VIPFloor = &zone
		} else {
			doc.DanceFloor = &zone
		}
	})
	d.store.SaveLogged()
	d.reply(ctx, u, whisper, "✅ Floor saved!")
}

func (d *Dispatcher) floorStatus(ctx context.Context, u platform.User, whisper bool) {
	var vip, dance *model.Zone
	d.store.Do(func(doc *model.Document) {
		vip = doc.VIPFloor
		dance = doc.DanceFloor
	})
	line := func(name string, z *model.Zone) string {
		if z == nil {
			return name + ": not set"
		}
		return fmt.Sprintf("%s: center (%.1f, %.1f, %.1f) tol (%.1f, %.1f, %.1f)", name, z.X, z.Y, z.Z, z.RX, z.RY, z.RZ)
	}
	d.reply(ctx, u, whisper, line("VIP floor", vip)+"\n"+line("Dance floor", dance))
}

// cmdSetPos pins the bot's home position to wherever it stands now.
func (d *Dispatcher) cmdSetPos(ctx context.Context, u platform.User, whisper bool) {
	pos := d.provider.BotPosition(ctx)
	if pos == nil {
		d.reply(ctx, u, whisper, "⚠️ Can't read the bot position right now")
		return
	}
	d.store.Do(func(doc *model.Document) { doc.BotLastPosition = pos })
	d.store.SaveLogged()
	d.reply(ctx, u, whisper, fmt.Sprintf("📌 Home position saved (%.1f, %.1f, %.1f)", pos.X, pos.Y, pos.Z))
}

// cmdHearts reacts with a heart at every occupant. Partial batch: a
// failed target is skipped and counted.
func (d *Dispatcher) cmdHearts(ctx context.Context, u platform.User, whisper bool) {
	users := d.provider.Snapshot(ctx)
	sent, failed := 0, 0
	for _, target := range users {
		if target.ID == d.api.BotID() {
			continue
		}
		if err := d.api.React(ctx, "heart", target.ID); err != nil {
			failed++
			continue
		}
		sent++
	}
	d.say(ctx, fmt.Sprintf("💜 Hearts for everyone! (%d sent, %d missed)", sent, failed))
}

func (d *Dispatcher) cmdPoints(ctx context.Context, u platform.User, whisper bool, cmd string, args []string) {
	if len(args) < 2 {
		d.reply(ctx, u, whisper, "Usage: "+cmd+" @user <points>")
		return
	}
	name := strings.TrimPrefix(args[0], "@")
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		d.reply(ctx, u, whisper, "⚠️ Points must be a non-negative number")
		return
	}
	switch cmd {
	case "!addpoints":
		d.economy.Award(name, n)
		d.reply(ctx, u, whisper, fmt.Sprintf("➕ %d points to %s (now %d)", n, name, d.economy.Points(name)))
	case "!removepoints":
		after := d.economy.RemovePoints(name, n)
		d.reply(ctx, u, whisper, fmt.Sprintf("➖ %d points from %s (now %d)", n, name, after))
	case "!setpoints":
		d.economy.SetPoints(name, n)
		d.reply(ctx, u, whisper, fmt.Sprintf("🎯 %s set to %d points", name, n))
	}
	d.store.SaveLogged()
}

func (d *Dispatcher) cmdData(ctx context.Context, u platform.User, whisper bool) {
	var users, vips, greetings int
	d.store.Do(func(doc *model.Document) {
		users = len(doc.UserRatings)
		vips = len(doc.VIPPermanent) + len(doc.VIPTimed)
		greetings = len(doc.CustomGreetings)
	})
	d.reply(ctx, u, whisper, fmt.Sprintf("🗂️ %d tracked users | %d VIPs | %d custom greetings | store: %s", users, vips, greetings, d.store.Path()))
}

// cmdTip sends one gold tip to a user currently in the room.
func (d *Dispatcher) cmdTip(ctx context.Context, u platform.User, whisper bool, args []string) {
	if len(args) < 2 {
		d.reply(ctx, u, whisper, "Usage: !tip @user <amount>")
		return
	}
	name := strings.TrimPrefix(args[0], "@")
	amount, err := strconv.Atoi(args[1])
	if err != nil {
		d.reply(ctx, u, whisper, "⚠️ Amount must be a number")
		return
	}
	bar, ok := platform.GoldBar(amount)
	if !ok {
		d.reply(ctx, u, whisper, fmt.Sprintf("⚠️ No gold bar for %dg. Valid: %v", amount, platform.GoldBarAmounts()))
		return
	}
	gold, err := d.api.WalletGold(ctx)
	if err == nil && gold < amount {
		d.reply(ctx, u, whisper, fmt.Sprintf("💸 Wallet too low (%dg < %dg)", gold, amount))
		return
	}

	users := d.provider.Snapshot(ctx)
	target, found := room.FindByUsername(users, name)
	if !found {
		d.reply(ctx, u, whisper, name+" isn't in the room")
		return
	}
	if err := d.api.TipUser(ctx, target.ID, bar); err != nil {
		log.Warn().Err(err).Str("username", name).Msg("Tip failed")
		d.reply(ctx, u, whisper, "⚠️ Tip failed")
		return
	}
	d.say(ctx, fmt.Sprintf("💸 %dg tipped to @%s!", amount, target.Username))
}

// cmdTipAll tips every occupant, continuing past failures and reporting
// a summary.
func (d *Dispatcher) cmdTipAll(ctx context.Context, u platform.User, whisper bool, args []string) {
	if len(args) < 1 {
		d.reply(ctx, u, whisper, "Usage: !tipall <amount>")
		return
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil {
		d.reply(ctx, u, whisper, "⚠️ Amount must be a number")
		return
	}
	bar, ok := platform.GoldBar(amount)
	if !ok {
		d.reply(ctx, u, whisper, fmt.Sprintf("⚠️ No gold bar for %dg. Valid: %v", amount, platform.GoldBarAmounts()))
		return
	}

	users := d.provider.Snapshot(ctx)
	targets := make([]platform.RoomUser, 0, len(users))
	for _, target := range users {
		if target.ID != d.api.BotID() && !d.cfg.IsExcluded(target.Username) {
			targets = append(targets, target)
		}
	}
	need := amount * len(targets)
	if gold, err := d.api.WalletGold(ctx); err == nil && gold < need {
		d.reply(ctx, u, whisper, fmt.Sprintf("💸 Wallet too low: need %dg for %d users, have %dg", need, len(targets), gold))
		return
	}

	sent, failed := 0, 0
	for _, target := range targets {
		if err := d.api.TipUser(ctx, target.ID, bar); err != nil {
			log.Warn().Err(err).Str("username", target.Username).Msg("Tip-all target failed")
			failed++
			continue
		}
		sent++
	}
	d.say(ctx, fmt.Sprintf("🎁 Tip rain! %dg each: %d sent, %d missed", amount, sent, failed))
}

func (d *Dispatcher) cmdAutoTip(ctx context.Context, u platform.User, whisper bool, args []string) {
	if len(args) < 3 {
		d.reply(ctx, u, whisper, "Usage: !autotip @user <amount> <seconds>")
		return
	}
	name := strings.TrimPrefix(args[0], "@")
	amount, err1 := strconv.Atoi(args[1])
	secs, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		d.reply(ctx, u, whisper, "⚠️ Amount and interval must be numbers")
		return
	}
	err := d.tips.Start(ctx, name, amount, time.Duration(secs)*time.Second)
	if err != nil {
		var bad *autotip.BadAmountError
		if errors.As(err, &bad) {
			d.reply(ctx, u, whisper, fmt.Sprintf("⚠️ No gold bar for %dg. Valid: %v", amount, platform.GoldBarAmounts()))
			return
		}
		d.reply(ctx, u, whisper, "⚠️ Couldn't start the auto-tip")
		return
	}
	d.reply(ctx, u, whisper, fmt.Sprintf("💸 Auto-tipping %s %dg (min interval applies)", name, amount))
}
