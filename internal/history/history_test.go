package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewEntry(t *testing.T) {
	now := time.Now()
	e := NewEntry(now)

	_, err := uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.Equal(t, now, e.StartedAt)
	assert.NotEqual(t, e.ID, NewEntry(now).ID)
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_750_000_000_000)

	ok := NewEntry(base)
	ok.Base, ok.Texture, ok.Mask, ok.Output = "k.jpg", "s.jpg", "m.png", "o.jpg"
	ok.Strategy = "tile"
	ok.Width, ok.Height, ok.Bytes = 800, 600, 12345
	ok.Duration = 1500 * time.Millisecond
	ok.Status = StatusOK
	require.NoError(t, s.Record(ctx, ok))

	failed := Entry{
		StartedAt: base.Add(time.Second),
		Base:      "k.jpg",
		Texture:   "missing.jpg",
		Mask:      "m.png",
		Output:    "o2.jpg",
		Strategy:  "cover",
		Status:    StatusFailed,
		ErrorKind: "input_not_found",
		Error:     "file not found: missing.jpg",
	}
	require.NoError(t, s.Record(ctx, failed))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, StatusFailed, entries[0].Status)
	assert.Equal(t, "input_not_found", entries[0].ErrorKind)
	assert.NotEmpty(t, entries[0].ID, "empty IDs are filled in")

	got := entries[1]
	assert.Equal(t, ok.ID, got.ID)
	assert.Equal(t, ok.StartedAt.UnixMilli(), got.StartedAt.UnixMilli())
	assert.Equal(t, 800, got.Width)
	assert.Equal(t, 600, got.Height)
	assert.Equal(t, int64(12345), got.Bytes)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, "tile", got.Strategy)
}

func TestStore_RecentLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := NewEntry(time.UnixMilli(int64(i) * 1000))
		e.Status = StatusOK
		require.NoError(t, s.Record(ctx, e))
	}

	entries, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(4000), entries[0].StartedAt.UnixMilli())
}

func TestStore_DuplicateID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	e := NewEntry(time.Now())
	e.Status = StatusOK
	require.NoError(t, s.Record(ctx, e))
	assert.Error(t, s.Record(ctx, e))
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	e := NewEntry(time.Now())
	e.Status = StatusOK
	require.NoError(t, s.Record(ctx, e))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
}
