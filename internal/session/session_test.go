package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.bolt")
	s := storage.NewBoltStore(path)
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() { s.Disconnect(context.Background()) })
	return s
}

func TestStore_NewGetSave(t *testing.T) {
	st := NewStore(newTestBackend(t))
	ctx := context.Background()

	s, err := st.New(ctx, "demo")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "demo", s.ProjectName)

	s.Messages = append(s.Messages, model.Message{Role: model.RoleUser, Content: "hi"})
	require.NoError(t, st.Save(ctx, s))

	loaded, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "hi", loaded.Messages[0].Content)
}

func TestStore_Latest(t *testing.T) {
	st := NewStore(newTestBackend(t))
	ctx := context.Background()

	first, err := st.New(ctx, "demo")
	require.NoError(t, err)
	second, err := st.New(ctx, "demo")
	require.NoError(t, err)
	require.NoError(t, st.Touch(ctx, second))

	latest, found, err := st.Latest(ctx, "demo")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second.ID, latest.ID)
	assert.NotEqual(t, first.ID, latest.ID)
}

func TestStore_ListAndDelete(t *testing.T) {
	st := NewStore(newTestBackend(t))
	ctx := context.Background()

	s, err := st.New(ctx, "demo")
	require.NoError(t, err)

	ids, err := st.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, s.ID)

	require.NoError(t, st.Delete(ctx, s.ID))
	_, err = st.Get(ctx, s.ID)
	assert.Error(t, err)
}
