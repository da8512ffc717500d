// Package backend defines the boundary to the remote document store:
// per-owner hierarchical collections with durable writes, server-assigned
// timestamps, and a live query that pushes the full ordered result set on
// every change within a collection.
package backend

import (
	"context"
	"errors"
	"time"
)

// Direction selects the sort order of a live or one-shot query.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// SortSpec names the document field a query orders by.
type SortSpec struct {
	Field string
	Dir   Direction
}

// Document is one item of an owner-scoped collection. CreatedAt and
// UpdatedAt are assigned by the store at write time, never by the client
// clock. Kind-specific fields live in Fields.
type Document struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]any
}

// Snapshot is the full ordered content of a collection at a point in time.
type Snapshot []Document

// serverTimestamp is the type of the ServerTimestamp sentinel.
type serverTimestamp struct{}

// ServerTimestamp marks a field to be filled with the store's own clock
// at write time.
var ServerTimestamp = serverTimestamp{}

var (
	// ErrNotFound reports an update or delete that targeted an id no
	// longer present, usually a lost race with a concurrent delete.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable reports a transport or connectivity failure. The
	// operation may be retried by the user.
	ErrUnavailable = errors.New("backend unavailable")
)

// DocumentStore is the contract every document backend implements.
// Collections are addressed by (owner, collection); owners never see each
// other's documents because every call carries the owner explicitly.
type DocumentStore interface {
	// Create stores a new document with a generated id and returns it.
	Create(ctx context.Context, owner, collection string, fields map[string]any) (string, error)

	// Update applies a partial update to an existing document. Returns
	// ErrNotFound if the id is gone.
	Update(ctx context.Context, owner, collection, id string, fields map[string]any) error

	// Delete removes a document. Returns ErrNotFound if the id is gone.
	Delete(ctx context.Context, owner, collection, id string) error

	// List returns the collection content once, ordered by sort.
	List(ctx context.Context, owner, collection string, sort SortSpec) (Snapshot, error)

	// Listen opens a live query. The first snapshot on the channel is the
	// current full content; every subsequent change in the collection
	// pushes a fresh full snapshot. The channel is closed when ctx is
	// canceled or the stream ends.
	Listen(ctx context.Context, owner, collection string, sort SortSpec) (<-chan Snapshot, error)
}
