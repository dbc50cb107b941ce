package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
)

// fakeAPI implements just enough of platform.API for provider tests.
type fakeAPI struct {
	platform.API
	users []platform.RoomUser
	err   error
	calls int
}

func (f *fakeAPI) GetRoomUsers(ctx context.Context) ([]platform.RoomUser, error) {
	f.calls++
	return f.users, f.err
}

func (f *fakeAPI) BotID() string { return "bot-1" }

func standing(id, name string, x, y, z float64) platform.RoomUser {
	return platform.RoomUser{
		User: platform.User{ID: id, Username: name},
		Pos:  &model.Position{X: x, Y: y, Z: z},
	}
}

func TestSnapshot_ReturnsOccupants(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{standing("u1", "ava", 1, 2, 3)}}
	p := New(api, time.Second)
	p.SetConnected(true)

	got := p.Snapshot(context.Background())
	assert.Len(t, got, 1)
	assert.Equal(t, "ava", got[0].Username)
}

func TestSnapshot_SkipsFetchWhileDisconnected(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{standing("u1", "ava", 0, 0, 0)}}
	p := New(api, time.Second)

	assert.Nil(t, p.Snapshot(context.Background()))
	assert.Zero(t, api.calls)
}

func TestSnapshot_TransportFaultClearsFlag(t *testing.T) {
	api := &fakeAPI{err: errors.New("websocket: closing transport")}
	p := New(api, time.Second)
	p.SetConnected(true)

	assert.Nil(t, p.Snapshot(context.Background()))
	assert.False(t, p.Connected())
}

func TestSnapshot_OrdinaryErrorKeepsFlag(t *testing.T) {
	api := &fakeAPI{err: errors.New("rate limited")}
	p := New(api, time.Second)
	p.SetConnected(true)

	assert.Nil(t, p.Snapshot(context.Background()))
	assert.True(t, p.Connected())
}

func TestFindByUsername_CaseInsensitive(t *testing.T) {
	users := []platform.RoomUser{standing("u1", "Ava", 0, 0, 0)}

	u, ok := FindByUsername(users, "aVa")
	assert.True(t, ok)
	assert.Equal(t, "u1", u.ID)

	_, ok = FindByUsername(users, "ben")
	assert.False(t, ok)
}

func TestBotPosition(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{
		standing("bot-1", "roombot", 4, 5, 6),
		standing("u1", "ava", 0, 0, 0),
	}}
	p := New(api, time.Second)
	p.SetConnected(true)

	pos := p.BotPosition(context.Background())
	assert.NotNil(t, pos)
	assert.Equal(t, 4.0, pos.X)
}
