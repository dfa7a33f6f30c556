// Package session persists conversation/undo state through the
// storage port, adapted from the in-process Session/Store pattern
// into a store-backed one so a session survives process restarts
// (spec.md §6: sessions are addressed by id and keyed by project).
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/storage"
	"github.com/google/uuid"
)

// Store manages sessions through a storage.Store, serializing
// model.Session as JSON into the sessions namespace.
type Store struct {
	backend storage.Store
}

// NewStore wraps a storage backend.
func NewStore(backend storage.Store) *Store {
	return &Store{backend: backend}
}

// New creates a fresh session for project, persists it, and returns it.
func (st *Store) New(ctx context.Context, projectName string) (*model.Session, error) {
	now := time.Now()
	s := &model.Session{
		ID:           uuid.NewString(),
		ProjectName:  projectName,
		CreatedAt:    now,
		LastActivity: now,
		Messages:     []model.Message{},
		UndoStack:    []model.UndoEntry{},
		InputHistory: []string{},
	}
	if err := st.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get loads the session with id.
func (st *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	raw, found, err := st.backend.Get(ctx, storage.NSSessions, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, model.NewError(model.ErrStorage, fmt.Sprintf("session %s not found", id), nil)
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, model.NewError(model.ErrStorage, "corrupt session record", err)
	}
	return &s, nil
}

// Latest returns the most recently active session for projectName, if
// one exists.
func (st *Store) Latest(ctx context.Context, projectName string) (*model.Session, bool, error) {
	id, found, err := st.backend.LatestByProject(ctx, projectName)
	if err != nil || !found {
		return nil, false, err
	}
	s, err := st.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Save persists s in full.
func (st *Store) Save(ctx context.Context, s *model.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return st.backend.Set(ctx, storage.NSSessions, s.ID, raw)
}

// Touch updates only s's LastActivity timestamp, both in memory and
// in the store, patching the stored record's last_activity field
// instead of re-serializing s.
func (st *Store) Touch(ctx context.Context, s *model.Session) error {
	s.LastActivity = time.Now()
	return st.backend.Touch(ctx, s.ID, s.LastActivity.Format(time.RFC3339Nano))
}

// List returns every known session id.
func (st *Store) List(ctx context.Context) ([]string, error) {
	return st.backend.ListSessions(ctx)
}

// Delete removes a session.
func (st *Store) Delete(ctx context.Context, id string) error {
	return st.backend.Delete(ctx, storage.NSSessions, id)
}
