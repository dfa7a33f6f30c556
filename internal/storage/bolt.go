package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cascadehq/cascade/internal/model"
)

// BoltStore is the bbolt-backed Store, one bucket per namespace.
// Session blobs are JSON (spec.md §6), so list/latest-by-project/touch
// peek at a minimal subset of fields rather than keeping a separate
// index that could drift out of sync.
type BoltStore struct {
	mu   sync.RWMutex
	path string
	db   *bolt.DB
}

// NewBoltStore constructs a store backed by the bbolt file at path.
// Connect must be called before use.
func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

func (s *BoltStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return model.NewError(model.ErrStorage, "failed to open storage backend", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, ns := range allNamespaces {
			if _, err := tx.CreateBucketIfNotExists([]byte(ns)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return model.NewError(model.ErrStorage, "failed to provision storage buckets", err)
	}
	s.db = db
	return nil
}

func (s *BoltStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return model.NewError(model.ErrStorage, "failed to close storage backend", err)
	}
	return nil
}

func (s *BoltStore) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

func (s *BoltStore) boltDB() (*bolt.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, model.NewError(model.ErrStorage, "storage backend not connected", nil)
	}
	return s.db, nil
}

func (s *BoltStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error) {
	db, err := s.boltDB()
	if err != nil {
		return nil, false, err
	}
	var value []byte
	found := false
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, model.NewError(model.ErrStorage, "storage read failed", err)
	}
	return value, found, nil
}

func (s *BoltStore) Set(ctx context.Context, ns Namespace, key string, value []byte) error {
	db, err := s.boltDB()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(ns))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return model.NewError(model.ErrStorage, "storage write failed", err)
	}
	return nil
}

func (s *BoltStore) Delete(ctx context.Context, ns Namespace, key string) error {
	db, err := s.boltDB()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return model.NewError(model.ErrStorage, "storage delete failed", err)
	}
	return nil
}

func (s *BoltStore) HGetAll(ctx context.Context, ns Namespace) (map[string][]byte, error) {
	db, err := s.boltDB()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, model.NewError(model.ErrStorage, "storage scan failed", err)
	}
	return out, nil
}

func (s *BoltStore) Count(ctx context.Context, ns Namespace) (int, error) {
	db, err := s.boltDB()
	if err != nil {
		return 0, err
	}
	count := 0
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		count = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, model.NewError(model.ErrStorage, "storage count failed", err)
	}
	return count, nil
}

func (s *BoltStore) ClearAll(ctx context.Context, ns Namespace) error {
	db, err := s.boltDB()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(ns)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(ns))
		return err
	})
	if err != nil {
		return model.NewError(model.ErrStorage, "storage clear failed", err)
	}
	return nil
}

// sessionPeek is the minimal shape read out of a session blob to
// support list/latest-by-project/touch without fully decoding it into
// model.Session.
type sessionPeek struct {
	ID           string    `json:"id"`
	ProjectName  string    `json:"project_name"`
	LastActivity time.Time `json:"last_activity"`
}

func (s *BoltStore) ListSessions(ctx context.Context) ([]string, error) {
	all, err := s.HGetAll(ctx, NSSessions)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for k := range all {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *BoltStore) LatestByProject(ctx context.Context, project string) (string, bool, error) {
	all, err := s.HGetAll(ctx, NSSessions)
	if err != nil {
		return "", false, err
	}
	var bestID string
	var bestTime time.Time
	found := false
	for _, raw := range all {
		var peek sessionPeek
		if err := json.Unmarshal(raw, &peek); err != nil {
			continue
		}
		if peek.ProjectName != project {
			continue
		}
		if !found || peek.LastActivity.After(bestTime) {
			bestID = peek.ID
			bestTime = peek.LastActivity
			found = true
		}
	}
	return bestID, found, nil
}

func (s *BoltStore) Touch(ctx context.Context, sessionID string, lastActivityRFC3339 string) error {
	raw, found, err := s.Get(ctx, NSSessions, sessionID)
	if err != nil {
		return err
	}
	if !found {
		return model.NewError(model.ErrStorage, fmt.Sprintf("session %s not found", sessionID), nil)
	}
	ts, err := time.Parse(time.RFC3339, lastActivityRFC3339)
	if err != nil {
		return model.NewError(model.ErrValidation, "invalid timestamp", err)
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return model.NewError(model.ErrStorage, "corrupt session record", err)
	}
	stamped, err := json.Marshal(ts)
	if err != nil {
		return err
	}
	generic["last_activity"] = stamped

	updated, err := json.Marshal(generic)
	if err != nil {
		return err
	}
	return s.Set(ctx, NSSessions, sessionID, updated)
}
