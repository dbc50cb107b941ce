package floor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highrise-room-bot/internal/emote"
	"highrise-room-bot/internal/model"
	"highrise-room-bot/internal/platform"
	"highrise-room-bot/internal/room"
	"highrise-room-bot/internal/store"
)

// fakeAPI records chat and emote traffic. Unused API surface panics so a
// test reaching it fails loudly.
type fakeAPI struct {
	platform.API

	mu       sync.Mutex
	users    []platform.RoomUser
	chats    []string
	emotes   []string // "<emoteID>:<targetID>"
	emoteErr map[string]error
}

func (f *fakeAPI) GetRoomUsers(ctx context.Context) ([]platform.RoomUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, nil
}

func (f *fakeAPI) Chat(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, message)
	return nil
}

func (f *fakeAPI) SendEmote(ctx context.Context, emoteID, targetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.emoteErr[targetID]; err != nil {
		return err
	}
	f.emotes = append(f.emotes, emoteID+":"+targetID)
	return nil
}

func (f *fakeAPI) BotID() string { return "bot-id" }

func (f *fakeAPI) chatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chats)
}

func (f *fakeAPI) emoteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emotes)
}

// emotesFor returns the emote ids dispatched at one target, in order.
func (f *fakeAPI) emotesFor(targetID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, rec := range f.emotes {
		id, target, _ := strings.Cut(rec, ":")
		if target == targetID {
			out = append(out, id)
		}
	}
	return out
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func standing(id, username string, x, y, z float64) platform.RoomUser {
	return platform.RoomUser{
		User: platform.User{ID: id, Username: username},
		Pos:  &model.Position{X: x, Y: y, Z: z},
	}
}

func TestWizardTwoPointCapture(t *testing.T) {
	w := NewWizard()

	_, done := w.Mark("owner", KindVIP, model.Position{X: 0, Y: 0, Z: 0})
	require.False(t, done, "first mark only records the corner")

	zone, done := w.Mark("owner", KindVIP, model.Position{X: 4, Y: 0, Z: 6})
	require.True(t, done)

	assert.Equal(t, 2.0, zone.X)
	assert.Equal(t, 3.0, zone.Z)
	assert.Equal(t, 2.5, zone.RX, "half span plus edge padding")
	assert.Equal(t, 3.5, zone.RZ)
	assert.Equal(t, 0.6, zone.RY, "flat capture keeps the minimum height")
}

func TestWizardCapturesAreIndependentPerKind(t *testing.T) {
	w := NewWizard()

	_, done := w.Mark("owner", KindVIP, model.Position{X: 0})
	require.False(t, done)
	_, done = w.Mark("owner", KindDance, model.Position{X: 10})
	require.False(t, done, "dance capture must not complete the vip capture")

	_, done = w.Mark("owner", KindVIP, model.Position{X: 2})
	assert.True(t, done)
}

func TestWizardCancel(t *testing.T) {
	w := NewWizard()

	assert.False(t, w.Cancel("owner", KindVIP))
	w.Mark("owner", KindVIP, model.Position{})
	assert.True(t, w.Cancel("owner", KindVIP))

	// After cancel the next mark starts a fresh capture.
	_, done := w.Mark("owner", KindVIP, model.Position{X: 1})
	assert.False(t, done)
}

func TestZoneContainsCapturedCorners(t *testing.T) {
	a := model.Position{X: -3, Y: 1, Z: 2}
	b := model.Position{X: 5, Y: 1.2, Z: -4}
	zone := buildZone(a, b)

	assert.True(t, zone.Contains(a))
	assert.True(t, zone.Contains(b))
	assert.True(t, zone.Contains(zone.Center()))
	assert.False(t, zone.Contains(model.Position{X: 50, Y: 1, Z: 0}))
}

func TestSyncWait(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		beat    time.Duration
		want    time.Duration
	}{
		{"mid beat", 1200 * time.Millisecond, 3 * time.Second, 1800 * time.Millisecond},
		{"start of beat", 0, 3 * time.Second, 3 * time.Second},
		{"past one full beat", 4 * time.Second, 3 * time.Second, 2 * time.Second},
		{"zero beat", time.Second, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, syncWait(tt.elapsed, tt.beat))
		})
	}
}

func newTestMonitor(t *testing.T, api *fakeAPI, vip func(string) bool) (*Monitor, *BeatLoop, *store.Store) {
	t.Helper()
	st := store.Open(filepath.Join(t.TempDir(), "data.json"))
	provider := room.New(api, time.Second)
	provider.SetConnected(true)
	beat := NewBeatLoop(api, provider, 2*time.Second, 5)
	skip := func(string) bool { return false }
	m := NewMonitor(api, provider, st, beat, time.Second, vip, skip)
	return m, beat, st
}

func TestMonitorWarnsUnauthorizedOnce(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{standing("u1", "alice", 0, 0, 0)}}
	m, _, st := newTestMonitor(t, api, func(string) bool { return false })
	st.Do(func(d *model.Document) {
		d.VIPFloor = &model.Zone{RX: 2, RY: 1, RZ: 2}
	})

	ctx := context.Background()
	m.tick(ctx)
	m.tick(ctx)
	m.tick(ctx)
	assert.Equal(t, 1, api.chatCount(), "standing still must not repeat the warning")
}

func TestMonitorWarningRearmsAfterExit(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{standing("u1", "alice", 0, 0, 0)}}
	m, _, st := newTestMonitor(t, api, func(string) bool { return false })
	st.Do(func(d *model.Document) {
		d.VIPFloor = &model.Zone{RX: 2, RY: 1, RZ: 2}
	})

	ctx := context.Background()
	m.tick(ctx)
	require.Equal(t, 1, api.chatCount())

	// Step outside, then back in: the warning fires again.
	api.mu.Lock()
	api.users = []platform.RoomUser{standing("u1", "alice", 10, 0, 0)}
	api.mu.Unlock()
	m.tick(ctx)

	api.mu.Lock()
	api.users = []platform.RoomUser{standing("u1", "alice", 0, 0, 0)}
	api.mu.Unlock()
	m.tick(ctx)
	assert.Equal(t, 2, api.chatCount())
}

func TestMonitorIgnoresAuthorizedAndSeated(t *testing.T) {
	seated := platform.RoomUser{User: platform.User{ID: "u2", Username: "bob"}}
	api := &fakeAPI{users: []platform.RoomUser{
		standing("u1", "viper", 0, 0, 0),
		seated,
	}}
	m, _, st := newTestMonitor(t, api, func(name string) bool { return name == "viper" })
	st.Do(func(d *model.Document) {
		d.VIPFloor = &model.Zone{RX: 2, RY: 1, RZ: 2}
	})

	m.tick(context.Background())
	assert.Equal(t, 0, api.chatCount())
}

func TestMonitorEnrollsAndRemovesDancers(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{standing("u1", "alice", 0, 0, 0)}}
	m, beat, st := newTestMonitor(t, api, func(string) bool { return true })
	st.Do(func(d *model.Document) {
		d.DanceFloor = &model.Zone{RX: 2, RY: 1, RZ: 2}
	})

	ctx := context.Background()
	m.tick(ctx)
	assert.True(t, beat.Enrolled("u1"))

	api.mu.Lock()
	api.users = []platform.RoomUser{standing("u1", "alice", 10, 0, 0)}
	api.mu.Unlock()
	m.tick(ctx)
	assert.False(t, beat.Enrolled("u1"))
}

func TestBeatLoopEnrollBeforeFirstBeatIsImmediatelyActive(t *testing.T) {
	api := &fakeAPI{}
	provider := room.New(api, time.Second)
	provider.SetConnected(true)
	beat := NewBeatLoop(api, provider, 2*time.Second, 5)

	beat.Enroll(context.Background(), "u1", "alice")
	assert.True(t, beat.Enrolled("u1"))
	assert.Equal(t, 1, beat.DancerCount())

	beat.Remove("u1")
	assert.Equal(t, 0, beat.DancerCount())
}

// newRunningBeatLoop builds a fast beat loop with a deterministic emote
// rotation for driving Run in tests.
func newRunningBeatLoop(api *fakeAPI) *BeatLoop {
	provider := room.New(api, time.Second)
	provider.SetConnected(true)
	bl := NewBeatLoop(api, provider, 10*time.Millisecond, 5)
	rotation := []emote.Emote{
		{Name: "one", ID: "dance-one", Duration: 0.01, Dance: true},
		{Name: "two", ID: "dance-two", Duration: 0.01, Dance: true},
		{Name: "three", ID: "dance-three", Duration: 0.01, Dance: true},
	}
	n := 0
	bl.pick = func() emote.Emote {
		e := rotation[n%len(rotation)]
		n++
		return e
	}
	return bl
}

func TestBeatLoopAllDancersReceiveSameEmotePerBeat(t *testing.T) {
	api := &fakeAPI{users: []platform.RoomUser{
		standing("u1", "alice", 0, 0, 0),
		standing("u2", "bob", 1, 0, 0),
	}}
	bl := newRunningBeatLoop(api)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bl.Enroll(ctx, "u1", "alice")
	bl.Enroll(ctx, "u2", "bob")
	go bl.Run(ctx)

	eventually(t, func() bool {
		return len(api.emotesFor("u1")) >= 3 && len(api.emotesFor("u2")) >= 3
	}, "both dancers should receive several beats")
	cancel()

	got1 := api.emotesFor("u1")
	got2 := api.emotesFor("u2")
	n := len(got1)
	if len(got2) < n {
		n = len(got2)
	}
	require.GreaterOrEqual(t, n, 3)
	assert.Equal(t, got1[:n], got2[:n], "every beat must broadcast one emote id to all active dancers")
}

func TestBeatLoopMidBeatJoinerWaitsSilently(t *testing.T) {
	api := &fakeAPI{}
	provider := room.New(api, time.Second)
	provider.SetConnected(true)
	bl := NewBeatLoop(api, provider, 2*time.Second, 5)

	// Simulate a beat in flight.
	bl.mu.Lock()
	bl.beat = 50 * time.Millisecond
	bl.beatStart = time.Now()
	bl.mu.Unlock()

	bl.Enroll(context.Background(), "u1", "alice")
	bl.mu.Lock()
	pending := !bl.dancers["u1"].active
	bl.mu.Unlock()
	require.True(t, pending, "mid-beat joiner starts pending")

	eventually(t, func() bool {
		bl.mu.Lock()
		defer bl.mu.Unlock()
		d, ok := bl.dancers["u1"]
		return ok && d.active
	}, "joiner should activate at the beat boundary")
	assert.Equal(t, 0, api.emoteCount(), "activation must not dispatch an emote of its own")
}

func TestBeatLoopPrunesFailedDancer(t *testing.T) {
	api := &fakeAPI{
		users: []platform.RoomUser{
			standing("u1", "alice", 0, 0, 0),
			standing("u2", "bob", 1, 0, 0),
		},
		emoteErr: map[string]error{"u2": errors.New("target gone")},
	}
	bl := newRunningBeatLoop(api)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bl.Enroll(ctx, "u1", "alice")
	bl.Enroll(ctx, "u2", "bob")
	go bl.Run(ctx)

	eventually(t, func() bool {
		return !bl.Enrolled("u2") && len(api.emotesFor("u1")) >= 2
	}, "failed dancer should be pruned while the beat goes on")
	assert.True(t, bl.Enrolled("u1"), "healthy dancers survive another's failure")
	assert.Empty(t, api.emotesFor("u2"))
}

func TestBeatLoopSkipsAndPrunesAbsentDancer(t *testing.T) {
	// u2 is enrolled but no longer in the room snapshot.
	api := &fakeAPI{users: []platform.RoomUser{standing("u1", "alice", 0, 0, 0)}}
	bl := newRunningBeatLoop(api)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bl.Enroll(ctx, "u1", "alice")
	bl.Enroll(ctx, "u2", "bob")
	go bl.Run(ctx)

	eventually(t, func() bool {
		return !bl.Enrolled("u2") && len(api.emotesFor("u1")) >= 2
	}, "absent dancer should be pruned against the occupant cache")
	assert.Empty(t, api.emotesFor("u2"), "absent dancers are skipped, never dispatched to")
}
