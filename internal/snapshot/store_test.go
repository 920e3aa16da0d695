package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/pocket-matcher/internal/game"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := Open(context.Background(), "redis://"+mr.Addr()+"/0", 30*time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func sample(id string) game.Snapshot {
	return game.Snapshot{
		ID:        id,
		Level:     "tutorial",
		State:     game.StatePlaying,
		Layout:    []string{"RBGYR", "BGRRB", "RRBYG", "YBGRY", "GYRBG"},
		Score:     30,
		MovesLeft: 4,
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
	}
}

func TestSaveLoad(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample("a")))
	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, sample("a"), got)

	assert.Equal(t, 30*time.Minute, mr.TTL("pm:session:a"))
	assert.Equal(t, 30*time.Minute, mr.TTL("pm:index:level:tutorial"))
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIDsByLevelPrunesExpired(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample("a")))
	require.NoError(t, s.Save(ctx, sample("b")))
	mr.Del("pm:session:b")

	ids, err := s.IDsByLevel(ctx, "tutorial")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	members, err := mr.Members("pm:index:level:tutorial")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)
}

func TestDelete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample("a")))
	require.NoError(t, s.Delete(ctx, "a"))
	assert.False(t, mr.Exists("pm:session:a"))
	require.NoError(t, s.Delete(ctx, "a"))
}

func TestUpdate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sample("a")))

	got, err := s.Update(ctx, "a", func(snap *game.Snapshot) error {
		snap.Score += 60
		snap.MovesLeft--
		snap.ID = "ignored"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, 90, got.Score)

	stored, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	boom := errors.New("boom")
	_, err = s.Update(ctx, "a", func(*game.Snapshot) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = s.Update(ctx, "missing", func(*game.Snapshot) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "", time.Minute)
	assert.Error(t, err)
	_, err = Open(context.Background(), "http://localhost:6379", time.Minute)
	assert.Error(t, err)
}
