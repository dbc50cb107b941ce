// Package highrise implements platform.API over the Highrise room
// websocket. One client serves one room session; requests are correlated
// to responses by rid, and room events are pushed to an EventSink from
// the read pump.
package highrise

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
)

// Errors returned by the client.
var (
	ErrNotConnected = errors.New("highrise: not connected")
	ErrClosed       = errors.New("highrise: client closed")
)

const (
	writeTimeout   = 10 * time.Second
	requestTimeout = 15 * time.Second
)

// Config holds the connection parameters for one room session.
type Config struct {
	Endpoint string
	Token    string
	RoomID   string
}

// Client is a websocket platform.API implementation.
type Client struct {
	cfg  Config
	sink platform.EventSink

	mu      sync.Mutex // guards conn, pending, rid
	conn    *websocket.Conn
	pending map[string]chan json.RawMessage
	rid     uint64
	botID   string

	closed chan struct{}
	once   sync.Once
}

// New creates a client. Run must be called before any API method succeeds.
func New(cfg Config, sink platform.EventSink) *Client {
	return &Client{
		cfg:     cfg,
		sink:    sink,
		pending: make(map[string]chan json.RawMessage),
		closed:  make(chan struct{}),
	}
}

// SetSink attaches the event sink. Must be called before Run when the
// sink could not be supplied at construction (the sink usually depends
// on this client through platform.API).
func (c *Client) SetSink(sink platform.EventSink) {
	c.sink = sink
}

// Run connects and serves the session until ctx is cancelled, reconnecting
// with exponential backoff whenever the socket drops.
func (c *Client) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry forever; only ctx stops us
	policy.MaxInterval = 2 * time.Minute

	for {
		if err := c.connect(ctx); err != nil {
			log.Warn().Err(err).Msg("Room connection failed")
		} else {
			policy.Reset()
			c.readPump()
			c.sink.OnDisconnect()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return ErrClosed
		case <-time.After(policy.NextBackOff()):
		}
	}
}

// Close terminates the session permanently.
func (c *Client) Close() {
	c.once.Do(func() { close(c.closed) })
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
}

// BotID returns the bot's own occupant id for the current session.
func (c *Client) BotID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.botID
}

func (c *Client) connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("api-token", c.cfg.Token)
	header.Set("room-id", c.cfg.RoomID)

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.Endpoint, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.Endpoint, err)
	}

	// The server sends SessionMetadata as its first frame.
	var meta struct {
		Type   string `json:"_type"`
		UserID string `json:"user_id"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(15 * time.Second))
	if err := conn.ReadJSON(&meta); err != nil {
		_ = conn.Close()
		return fmt.Errorf("read session metadata: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.conn = conn
	c.botID = meta.UserID
	c.mu.Unlock()

	log.Info().Str("bot_id", meta.UserID).Str("room", c.cfg.RoomID).Msg("Room session established")
	c.sink.OnReady()
	return nil
}

// envelope is the minimal frame header shared by every server message.
type envelope struct {
	Type string `json:"_type"`
	RID  string `json:"rid"`
}

func (c *Client) readPump() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("Room socket closed")
			c.failPending(err)
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Debug().Err(err).Msg("Unparseable frame dropped")
			continue
		}

		if env.RID != "" {
			c.mu.Lock()
			ch, ok := c.pending[env.RID]
			if ok {
				delete(c.pending, env.RID)
			}
			c.mu.Unlock()
			if ok {
				ch <- json.RawMessage(raw)
			}
			continue
		}

		c.dispatchEvent(env.Type, raw)
	}
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for rid, ch := range c.pending {
		close(ch)
		delete(c.pending, rid)
	}
	c.conn = nil
	_ = err
}

// wireUser is the occupant shape used by every event payload.
type wireUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u wireUser) user() platform.User {
	return platform.User{ID: u.ID, Username: u.Username}
}

func (c *Client) dispatchEvent(typ string, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", typ).Msg("Recovered from event sink panic")
		}
	}()

	switch typ {
	case "UserJoinedEvent":
		var ev struct {
			User     wireUser       `json:"user"`
			Position model.Position `json:"position"`
		}
		if json.Unmarshal(raw, &ev) == nil {
			c.sink.OnJoin(ev.User.user(), ev.Position)
		}
	case "UserLeftEvent":
		var ev struct {
			User wireUser `json:"user"`
		}
		if json.Unmarshal(raw, &ev) == nil {
			c.sink.OnLeave(ev.User.user())
		}
	case "ChatEvent":
		var ev struct {
			User    wireUser `json:"user"`
			Message string   `json:"message"`
			Whisper bool     `json:"whisper"`
		}
		if json.Unmarshal(raw, &ev) == nil {
			if ev.Whisper {
				c.sink.OnWhisper(ev.User.user(), ev.Message)
			} else {
				c.sink.OnChat(ev.User.user(), ev.Message)
			}
		}
	case "TipReactionEvent":
		var ev struct {
			Sender   wireUser `json:"sender"`
			Receiver wireUser `json:"receiver"`
			Item     struct {
				Type   string `json:"type"`
				Amount int    `json:"amount"`
			} `json:"item"`
		}
		if json.Unmarshal(raw, &ev) == nil && ev.Item.Type == "gold" {
			c.sink.OnTip(ev.Sender.user(), ev.Receiver.user(), ev.Item.Amount)
		}
	case "ReactionEvent":
		var ev struct {
			User     wireUser `json:"user"`
			Receiver wireUser `json:"receiver"`
			Reaction string   `json:"reaction"`
		}
		if json.Unmarshal(raw, &ev) == nil {
			c.sink.OnReaction(ev.User.user(), ev.Receiver.user(), ev.Reaction)
		}
	case "EmoteEvent":
		var ev struct {
			User     wireUser  `json:"user"`
			EmoteID  string    `json:"emote_id"`
			Receiver *wireUser `json:"receiver"`
		}
		if json.Unmarshal(raw, &ev) == nil {
			var recv *platform.User
			if ev.Receiver != nil {
				u := ev.Receiver.user()
				recv = &u
			}
			c.sink.OnEmote(ev.User.user(), ev.EmoteID, recv)
		}
	case "UserMovedEvent":
		var ev struct {
			User     wireUser       `json:"user"`
			Position model.Position `json:"position"`
		}
		if json.Unmarshal(raw, &ev) == nil {
			c.sink.OnMove(ev.User.user(), ev.Position)
		}
	default:
		log.Trace().Str("type", typ).Msg("Unhandled room event")
	}
}

// request sends one correlated request frame and waits for its response.
// payload must marshal to an object; _type and rid are injected here.
func (c *Client) request(ctx context.Context, typ string, payload map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.rid++
	rid := strconv.FormatUint(c.rid, 10)
	ch := make(chan json.RawMessage, 1)
	c.pending[rid] = ch

	frame := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		frame[k] = v
	}
	frame["_type"] = typ
	frame["rid"] = rid

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(frame)
	c.mu.Unlock()

	if err != nil {
		c.dropPending(rid)
		return nil, fmt.Errorf("write %s: %w", typ, err)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()
	select {
	case raw, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		var env struct {
			Type    string `json:"_type"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &env)
		if env.Type == "Error" {
			return nil, fmt.Errorf("%s: %s", typ, env.Message)
		}
		return raw, nil
	case <-timer.C:
		c.dropPending(rid)
		return nil, fmt.Errorf("%s: %w", typ, context.DeadlineExceeded)
	case <-ctx.Done():
		c.dropPending(rid)
		return nil, ctx.Err()
	}
}

func (c *Client) dropPending(rid string) {
	c.mu.Lock()
	delete(c.pending, rid)
	c.mu.Unlock()
}

// GetRoomUsers fetches the current occupants. Seated occupants report an
// anchor instead of a coordinate triple and come back with a nil Pos.
func (c *Client) GetRoomUsers(ctx context.Context) ([]platform.RoomUser, error) {
	raw, err := c.request(ctx, "GetRoomUsersRequest", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Content [][2]json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode room users: %w", err)
	}

	users := make([]platform.RoomUser, 0, len(resp.Content))
	for _, pair := range resp.Content {
		var wu wireUser
		if json.Unmarshal(pair[0], &wu) != nil {
			continue
		}
		ru := platform.RoomUser{User: wu.user()}
		var pos model.Position
		// Anchored occupants carry an entity_id payload, not x/y/z.
		var probe map[string]json.RawMessage
		if json.Unmarshal(pair[1], &probe) == nil {
			if _, standing := probe["x"]; standing {
				if json.Unmarshal(pair[1], &pos) == nil {
					ru.Pos = &pos
				}
			}
		}
		users = append(users, ru)
	}
	return users, nil
}

// Chat sends a public chat message.
func (c *Client) Chat(ctx context.Context, message string) error {
	_, err := c.request(ctx, "ChatRequest", map[string]any{"message": message})
	return err
}

// Whisper sends a private message to one occupant.
func (c *Client) Whisper(ctx context.Context, userID, message string) error {
	_, err := c.request(ctx, "ChatRequest", map[string]any{
		"message":           message,
		"whisper_target_id": userID,
	})
	return err
}

// WalkTo moves the bot to a position.
func (c *Client) WalkTo(ctx context.Context, pos model.Position) error {
	_, err := c.request(ctx, "FloorHitRequest", map[string]any{"destination": pos})
	return err
}

// Teleport moves another occupant to a position.
func (c *Client) Teleport(ctx context.Context, userID string, pos model.Position) error {
	_, err := c.request(ctx, "TeleportRequest", map[string]any{
		"user_id":     userID,
		"destination": pos,
	})
	return err
}

// SendEmote plays an emote on the target, or on the bot when targetID is "".
func (c *Client) SendEmote(ctx context.Context, emoteID, targetID string) error {
	payload := map[string]any{"emote_id": emoteID}
	if targetID != "" {
		payload["target_user_id"] = targetID
	}
	_, err := c.request(ctx, "EmoteRequest", payload)
	return err
}

// React sends a reaction at an occupant.
func (c *Client) React(ctx context.Context, reaction, targetID string) error {
	_, err := c.request(ctx, "ReactionRequest", map[string]any{
		"reaction":       reaction,
		"target_user_id": targetID,
	})
	return err
}

// TipUser tips an occupant one gold-bar denomination.
func (c *Client) TipUser(ctx context.Context, userID, goldBar string) error {
	_, err := c.request(ctx, "TipUserRequest", map[string]any{
		"user_id":  userID,
		"gold_bar": goldBar,
	})
	return err
}

// WalletGold returns the bot's current gold balance.
func (c *Client) WalletGold(ctx context.Context) (int, error) {
	raw, err := c.request(ctx, "GetWalletRequest", nil)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Content []struct {
			Type   string `json:"type"`
			Amount int    `json:"amount"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("decode wallet: %w", err)
	}
	for _, item := range resp.Content {
		if item.Type == "gold" {
			return item.Amount, nil
		}
	}
	return 0, nil
}

// Kick applies the kick moderation action to an occupant.
func (c *Client) Kick(ctx context.Context, userID string) error {
	_, err := c.request(ctx, "ModerateRoomRequest", map[string]any{
		"user_id":           userID,
		"moderation_action": "kick",
	})
	return err
}

// GetOutfit returns the bot's current outfit items.
func (c *Client) GetOutfit(ctx context.Context) ([]platform.OutfitItem, error) {
	raw, err := c.request(ctx, "GetOutfitRequest", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Outfit []platform.OutfitItem `json:"outfit"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode outfit: %w", err)
	}
	return resp.Outfit, nil
}

// SetOutfit replaces the bot's outfit.
func (c *Client) SetOutfit(ctx context.Context, items []platform.OutfitItem) error {
	_, err := c.request(ctx, "SetOutfitRequest", map[string]any{"outfit": items})
	return err
}

var _ platform.API = (*Client)(nil)
