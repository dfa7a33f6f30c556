// Package storage implements the blob key-value storage port spec.md
// §6 describes: namespaced get/set/delete, per-namespace enumeration,
// and session-specific list/latest/touch helpers, backed by bbolt.
package storage

import "context"

// Namespace identifies one of the storage port's fixed key spaces.
type Namespace string

const (
	NSFiles      Namespace = "files"
	NSASTs       Namespace = "asts"
	NSMetas      Namespace = "metas"
	NSIndexes    Namespace = "indexes"
	NSConfig     Namespace = "project-config"
	NSSessions   Namespace = "sessions"
	NSUndoStacks Namespace = "undo-stacks"
)

// allNamespaces lists every bucket the store must provision up front.
var allNamespaces = []Namespace{
	NSFiles, NSASTs, NSMetas, NSIndexes, NSConfig, NSSessions, NSUndoStacks,
}

// Store is the storage port: an asynchronous (context-bearing),
// key-oriented store whose values are opaque bytes. The core
// serializes/deserializes; the store never interprets a value.
type Store interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, ns Namespace, key string, value []byte) error
	Delete(ctx context.Context, ns Namespace, key string) error
	HGetAll(ctx context.Context, ns Namespace) (map[string][]byte, error)
	Count(ctx context.Context, ns Namespace) (int, error)
	ClearAll(ctx context.Context, ns Namespace) error

	// ListSessions, LatestByProject, and Touch extend the sessions
	// namespace per spec.md §6 ("Sessions additionally support
	// list/latest-by-project/touch").
	ListSessions(ctx context.Context) ([]string, error)
	LatestByProject(ctx context.Context, project string) (string, bool, error)
	Touch(ctx context.Context, sessionID string, lastActivityRFC3339 string) error
}
