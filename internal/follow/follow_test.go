package follow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highrise-room-bot/internal/emote"
	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/room"
)

type fakeAPI struct {
	platform.API

	mu     sync.Mutex
	users  []platform.RoomUser
	walks  []model.Position
	emotes []string
}

func (f *fakeAPI) GetRoomUsers(ctx context.Context) ([]platform.RoomUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, nil
}

func (f *fakeAPI) WalkTo(ctx context.Context, pos model.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walks = append(f.walks, pos)
	return nil
}

func (f *fakeAPI) SendEmote(ctx context.Context, emoteID, targetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emotes = append(f.emotes, emoteID)
	return nil
}

func (f *fakeAPI) BotID() string { return "bot-id" }

func (f *fakeAPI) walkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.walks)
}

func (f *fakeAPI) lastWalk() model.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.walks[len(f.walks)-1]
}

func (f *fakeAPI) emoteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emotes)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestFollowTrailsTargetWithOffset(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{{
		User: platform.User{ID: "u1", Username: "alice"},
		Pos:  &model.Position{X: 3, Y: 0, Z: 5, Facing: "FrontLeft"},
	}}}
	provider := room.New(api, time.Second)
	provider.SetConnected(true)
	c := NewController(api, provider, 10*time.Millisecond, 1.0)

	c.Follow(context.Background(), "u1", "alice")
	defer c.Stop()
	waitFor(t, func() bool { return api.walkCount() > 0 })

	dest := api.lastWalk()
	assert.Equal(t, 4.0, dest.X, "bot stands one unit beside the target")
	assert.Equal(t, 5.0, dest.Z)
	assert.Equal(t, "FrontLeft", dest.Facing, "bot faces the target's way")
}

func TestFollowStopsWhenTargetLeaves(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{{
		User: platform.User{ID: "u1", Username: "alice"},
		Pos:  &model.Position{X: 0},
	}}}
	provider := room.New(api, time.Second)
	provider.SetConnected(true)
	c := NewController(api, provider, 10*time.Millisecond, 1.0)

	c.Follow(context.Background(), "u1", "alice")
	waitFor(t, func() bool { return api.walkCount() > 0 })

	api.mu.Lock()
	api.users = nil
	api.mu.Unlock()
	waitFor(t, func() bool { return !c.Following() })
	assert.Equal(t, "", c.Target())
}

func TestFollowLastRequestWins(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{
		{User: platform.User{ID: "u1", Username: "alice"}, Pos: &model.Position{X: 0}},
		{User: platform.User{ID: "u2", Username: "bob"}, Pos: &model.Position{X: 10}},
	}}
	provider := room.New(api, time.Second)
	provider.SetConnected(true)
	c := NewController(api, provider, 10*time.Millisecond, 1.0)

	c.Follow(context.Background(), "u1", "alice")
	c.Follow(context.Background(), "u2", "bob")
	defer c.Stop()

	assert.Equal(t, "u2", c.Target())
	waitFor(t, func() bool { return api.walkCount() > 0 && api.lastWalk().X == 11.0 })
}

func TestStopWithoutFollow(t *testing.T) {
	api := &fakeAPI{}
	c := NewController(api, room.New(api, time.Second), time.Second, 1.0)
	assert.False(t, c.Stop())
}

func TestEmoteLoopRejectsSecondLoop(t *testing.T) {
	api := &fakeAPI{}
	l := NewLoops(api)
	e := emote.Emote{Name: "wave", ID: "emote-wave", Duration: 2.5}

	require.NoError(t, l.Start(context.Background(), "u1", e))
	defer l.Stop("u1")

	err := l.Start(context.Background(), "u1", e)
	assert.ErrorIs(t, err, ErrLoopActive)

	// A different user is unaffected.
	assert.NoError(t, l.Start(context.Background(), "u2", e))
	l.Stop("u2")
}

func TestEmoteLoopStopReportsName(t *testing.T) {
	api := &fakeAPI{}
	l := NewLoops(api)
	require.NoError(t, l.Start(context.Background(), "u1", emote.Emote{Name: "wave", ID: "emote-wave", Duration: 2.5}))

	waitFor(t, func() bool { return api.emoteCount() > 0 })

	name, ok := l.Stop("u1")
	assert.True(t, ok)
	assert.Equal(t, "wave", name)

	_, ok = l.Stop("u1")
	assert.False(t, ok)

	// After the grace the slot frees up again.
	waitFor(t, func() bool {
		_, active := l.Active("u1")
		return !active
	})
	assert.NoError(t, l.Start(context.Background(), "u1", emote.Emote{Name: "kiss", ID: "emote-kiss", Duration: 3}))
	l.Stop("u1")
}

func TestLoopDelay(t *testing.T) {
	tests := []struct {
		name string
		e    emote.Emote
		want time.Duration
	}{
		{"ordinary emote", emote.Emote{Duration: 3.0}, 2600 * time.Millisecond},
		{"reset emote re-issued early", emote.Emote{Duration: 18.0, Reset: true}, 15500 * time.Millisecond},
		{"short emote floors at minimum", emote.Emote{Duration: 1.0}, 800 * time.Millisecond},
		{"short reset emote floors at minimum", emote.Emote{Duration: 2.0, Reset: true}, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loopDelay(tt.e))
		})
	}
}
