package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.bolt")
	s := NewBoltStore(path)
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() { s.Disconnect(context.Background()) })
	return s
}

func TestBoltStore_SetGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, NSFiles, "a.ts", []byte("hello")))
	v, found, err := s.Get(ctx, NSFiles, "a.ts")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", string(v))

	require.NoError(t, s.Delete(ctx, NSFiles, "a.ts"))
	_, found, err = s.Get(ctx, NSFiles, "a.ts")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoltStore_HGetAllAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, NSMetas, "a.ts", []byte("1")))
	require.NoError(t, s.Set(ctx, NSMetas, "b.ts", []byte("2")))

	all, err := s.HGetAll(ctx, NSMetas)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := s.Count(ctx, NSMetas)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBoltStore_ClearAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, NSMetas, "a.ts", []byte("1")))
	require.NoError(t, s.ClearAll(ctx, NSMetas))
	count, err := s.Count(ctx, NSMetas)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBoltStore_SessionHelpers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := `{"id":"s1","project_name":"demo","last_activity":"2026-01-01T00:00:00Z"}`
	require.NoError(t, s.Set(ctx, NSSessions, "s1", []byte(session)))

	ids, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	latest, found, err := s.LatestByProject(ctx, "demo")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "s1", latest)

	newTime := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	require.NoError(t, s.Touch(ctx, "s1", newTime))

	raw, _, err := s.Get(ctx, NSSessions, "s1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2026-06-01")
}

func TestBoltStore_NotConnected(t *testing.T) {
	s := NewBoltStore(filepath.Join(t.TempDir(), "x.bolt"))
	_, _, err := s.Get(context.Background(), NSFiles, "a")
	assert.Error(t, err)
}
