// Package platform defines the narrow interface the bot consumes from the
// hosting room service. The concrete websocket client lives in the highrise
// subpackage; everything else in the bot depends only on these types.
package platform

import (
	"context"

	"highrise-room-bot/internal/model"
)

// User identifies a room occupant. ID is session-scoped; Username is the
// durable key used across the persisted state.
type User struct {
	ID       string
	Username string
}

// RoomUser pairs an occupant with their reported position. Pos is nil for
// seated/anchored occupants, which report no coordinate triple.
type RoomUser struct {
	User
	Pos *model.Position
}

// OutfitItem is one wearable in the bot's outfit.
type OutfitItem struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

// API is the set of room capabilities the bot invokes. Implementations must
// be safe for concurrent use; every call is bounded by the caller's context.
type API interface {
	// GetRoomUsers fetches the current occupants with positions.
	GetRoomUsers(ctx context.Context) ([]RoomUser, error)
	// Chat sends a public chat message.
	Chat(ctx context.Context, message string) error
	// Whisper sends a private message to one occupant.
	Whisper(ctx context.Context, userID, message string) error
	// WalkTo moves the bot to a position.
	WalkTo(ctx context.Context, pos model.Position) error
	// Teleport moves another occupant to a position.
	Teleport(ctx context.Context, userID string, pos model.Position) error
	// SendEmote plays an emote; targetID "" plays on the bot itself.
	SendEmote(ctx context.Context, emoteID, targetID string) error
	// React sends a reaction (heart, fire, ...) at an occupant.
	React(ctx context.Context, reaction, targetID string) error
	// TipUser tips an occupant one gold-bar denomination.
	TipUser(ctx context.Context, userID, goldBar string) error
	// WalletGold returns the bot's current gold balance.
	WalletGold(ctx context.Context) (int, error)
	// Kick applies the kick moderation action to an occupant.
	Kick(ctx context.Context, userID string) error
	// GetOutfit returns the bot's current outfit items.
	GetOutfit(ctx context.Context) ([]OutfitItem, error)
	// SetOutfit replaces the bot's outfit.
	SetOutfit(ctx context.Context, items []OutfitItem) error
	// BotID returns the bot's own occupant id for the session.
	BotID() string
}

// EventSink receives room events pushed by the platform. Implementations
// must never panic across the boundary; each callback is invoked from the
// client's read pump.
type EventSink interface {
	OnReady()
	OnJoin(u User, pos model.Position)
	OnLeave(u User)
	OnChat(u User, message string)
	OnWhisper(u User, message string)
	OnTip(sender, receiver User, amount int)
	OnReaction(u User, receiver User, reaction string)
	OnEmote(u User, emoteID string, receiver *User)
	OnMove(u User, pos model.Position)
	OnDisconnect()
}

// goldBars maps the tip denominations the platform accepts to their wire
// identifiers. Tips of any other amount are rejected up front.
var goldBars = map[int]string{
	1:     "gold_bar_1",
	5:     "gold_bar_5",
	10:    "gold_bar_10",
	50:    "gold_bar_50",
	100:   "gold_bar_100",
	500:   "gold_bar_500",
	1000:  "gold_bar_1k",
	5000:  "gold_bar_5000",
	10000: "gold_bar_10k",
}

// GoldBar returns the wire identifier for a tip amount, or false when the
// amount is not a supported denomination.
func GoldBar(amount int) (string, bool) {
	bar, ok := goldBars[amount]
	return bar, ok
}

// GoldBarAmounts returns the supported denominations in ascending order.
func GoldBarAmounts() []int {
	return []int{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}
}
