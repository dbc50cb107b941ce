package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highrise-room-bot/internal/model"
)

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "data.json"))

	s.Do(func(d *model.Document) {
		assert.Empty(t, d.UserRatings)
		assert.Nil(t, d.VIPFloor)
	})
}

func TestOpen_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := Open(path)
	s.Do(func(d *model.Document) {
		assert.Empty(t, d.TipTotals)
	})
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	s := Open(path)
	s.Do(func(d *model.Document) {
		d.UserRatings["ava"] = 42
		d.TipTotals["ava"] = 35
		d.VIPTimed["ava"] = 1700000000
		d.AddModerator("ben")
		d.DanceFloor = &model.Zone{X: 1, Y: 2, Z: 3, RX: 2, RY: 0.6, RZ: 2}
	})
	require.NoError(t, s.Save())

	reloaded := Open(path)
	reloaded.Do(func(d *model.Document) {
		assert.Equal(t, 42, d.UserRatings["ava"])
		assert.Equal(t, 35, d.TipTotals["ava"])
		assert.Equal(t, int64(1700000000), d.VIPTimed["ava"])
		assert.True(t, d.IsModerator("ben"))
		require.NotNil(t, d.DanceFloor)
		assert.Equal(t, 0.6, d.DanceFloor.RY)
	})
}

func TestSave_AtomicReplaceLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	s := Open(path)
	s.Do(func(d *model.Document) { d.UserRatings["ava"] = 1 })
	require.NoError(t, s.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())
}

func TestOpen_PartialDocumentNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"user_ratings":{"ava":7}}`), 0o644))

	s := Open(path)
	s.Do(func(d *model.Document) {
		assert.Equal(t, 7, d.UserRatings["ava"])
		// absent maps must still be writable
		d.CustomGreetings["ava"] = "hi"
		d.StatsFor("ava").Messages++
	})
}
