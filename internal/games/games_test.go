package games

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	awards  map[string]int
	notices []string
}

func newRecorder() *recorder {
	return &recorder{awards: map[string]int{}}
}

func (r *recorder) award(username string, points int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.awards[username] += points
}

func (r *recorder) notify(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *recorder) points(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.awards[username]
}

func (r *recorder) noticeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func newRiddleGame(rec *recorder) *RiddleGame {
	return NewRiddleGame(25*time.Second, 10, rec.award, rec.notify)
}

func TestRiddleOnePerUser(t *testing.T) {
	rec := newRecorder()
	g := newRiddleGame(rec)
	ctx := context.Background()

	_, err := g.Start(ctx, "u1", "alice")
	require.NoError(t, err)

	_, err = g.Start(ctx, "u1", "alice")
	assert.ErrorIs(t, err, ErrRiddleActive)

	// A different user gets their own riddle.
	_, err = g.Start(ctx, "u2", "bob")
	assert.NoError(t, err)
}

func TestRiddleCorrectAnswerAwards(t *testing.T) {
	rec := newRecorder()
	g := newRiddleGame(rec)
	r, err := g.Start(context.Background(), "u1", "alice")
	require.NoError(t, err)

	// Wrap the answer in extra words and punctuation; keyword matching
	// still resolves it.
	assert.True(t, g.TryAnswer("u1", "hmm, is it "+r.Answer+"?!"))
	assert.Equal(t, 10, rec.points("alice"))
	assert.False(t, g.Pending("u1"))

	// A second correct message after resolution is a no-op.
	assert.False(t, g.TryAnswer("u1", r.Answer))
	assert.Equal(t, 10, rec.points("alice"))
}

func TestRiddleWrongAnswerKeepsPending(t *testing.T) {
	rec := newRecorder()
	g := newRiddleGame(rec)
	_, err := g.Start(context.Background(), "u1", "alice")
	require.NoError(t, err)

	assert.False(t, g.TryAnswer("u1", "no idea honestly"))
	assert.True(t, g.Pending("u1"))
	assert.Equal(t, 0, rec.points("alice"))
}

func TestRiddleSkipRevealsAnswer(t *testing.T) {
	rec := newRecorder()
	g := newRiddleGame(rec)
	r, err := g.Start(context.Background(), "u1", "alice")
	require.NoError(t, err)

	answer, ok := g.Skip("u1")
	assert.True(t, ok)
	assert.Equal(t, r.Answer, answer)
	assert.False(t, g.Pending("u1"))

	_, ok = g.Skip("u1")
	assert.False(t, ok)
}

func TestRiddleExpiryRevealsAnswer(t *testing.T) {
	rec := newRecorder()
	g := NewRiddleGame(20*time.Millisecond, 10, rec.award, rec.notify)
	_, err := g.Start(context.Background(), "u1", "alice")
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for g.Pending("u1") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, g.Pending("u1"))
	assert.Equal(t, 1, rec.noticeCount())
	assert.Equal(t, 0, rec.points("alice"))
}

func TestAnswerMatches(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		message string
		want    bool
	}{
		{"exact", "a piano", "a piano", true},
		{"keyword only", "a piano", "piano!", true},
		{"embedded in sentence", "an echo", "is it an echo maybe", true},
		{"short words ignored", "an echo", "an", false},
		{"case insensitive", "a piano", "PIANO", true},
		{"punctuation stripped", "a coin", "c.o.i.n", false},
		{"no match", "a towel", "a blanket", false},
		{"partial word no match", "footsteps", "foot", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, answerMatches(tt.answer, tt.message))
		})
	}
}

func newWordGame(rec *recorder, bonusPaid bool) *WordGame {
	bonus := func(context.Context, string, int) bool { return bonusPaid }
	return NewWordGame(20*time.Second, 5, time.Minute, 8*time.Minute, 5, 5,
		rec.award, rec.notify, bonus)
}

func TestWordGameSingleRound(t *testing.T) {
	rec := newRecorder()
	g := newWordGame(rec, false)
	ctx := context.Background()

	require.True(t, g.StartRound(ctx))
	assert.False(t, g.StartRound(ctx), "no second round while one is live")
	assert.True(t, g.Active())
}

func TestWordGameFirstClaimWins(t *testing.T) {
	rec := newRecorder()
	g := newWordGame(rec, false)
	g.roll = func(int) int { return 1 } // fixed word, no bonus
	ctx := context.Background()

	require.True(t, g.StartRound(ctx))
	word := dropWords[1]

	assert.True(t, g.TryClaim(ctx, "u1", "alice", word))
	assert.False(t, g.TryClaim(ctx, "u2", "bob", word), "second claim loses the race")
	assert.Equal(t, 5, rec.points("alice"))
	assert.Equal(t, 0, rec.points("bob"))
	assert.False(t, g.Active())
}

func TestWordGameClaimRequiresExactWord(t *testing.T) {
	rec := newRecorder()
	g := newWordGame(rec, false)
	g.roll = func(int) int { return 0 }
	ctx := context.Background()

	require.True(t, g.StartRound(ctx))
	word := dropWords[0]

	assert.False(t, g.TryClaim(ctx, "u1", "alice", word+" please"))
	assert.True(t, g.TryClaim(ctx, "u1", "alice", "  "+word+"  "), "surrounding whitespace is fine")
}

func TestWordGameBonusAnnounced(t *testing.T) {
	rec := newRecorder()
	g := newWordGame(rec, true)
	g.roll = func(int) int { return 0 } // bonus roll always hits
	ctx := context.Background()

	require.True(t, g.StartRound(ctx))
	require.True(t, g.TryClaim(ctx, "u1", "alice", dropWords[0]))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.notices, 2)
	assert.Contains(t, rec.notices[1], "bonus")
}

func TestWordGameTimeout(t *testing.T) {
	rec := newRecorder()
	g := NewWordGame(20*time.Millisecond, 5, time.Minute, 8*time.Minute, 5, 5,
		rec.award, rec.notify, func(context.Context, string, int) bool { return false })
	ctx := context.Background()

	require.True(t, g.StartRound(ctx))
	deadline := time.Now().Add(2 * time.Second)
	for g.Active() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, g.Active())
	assert.Equal(t, 2, rec.noticeCount(), "drop announcement plus timeout notice")

	// A fresh round can start after the timeout.
	assert.True(t, g.StartRound(ctx))
}

func TestFunCommands(t *testing.T) {
	assert.NotEmpty(t, Truth())
	assert.NotEmpty(t, Dare())
	assert.NotEmpty(t, Joke())
	assert.Contains(t, Roll("alice"), "@alice rolled a")
	assert.Contains(t, Flip("alice"), "@alice flipped:")
}
