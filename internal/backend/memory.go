package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DocumentStore with the same push contract
// as Firestore: every mutation delivers a fresh full snapshot to every
// open listener. It backs the test suite and local development without
// credentials.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]map[string]Document
	subs   map[string][]*memorySub
	clock  time.Time
	forced error
}

type memorySub struct {
	ch     chan Snapshot
	spec   SortSpec
	cancel <-chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]map[string]Document),
		subs:  make(map[string][]*memorySub),
		clock: time.Now(),
	}
}

// SetError forces every subsequent call to fail with err until reset with
// nil. Tests use it to exercise the unavailable path.
func (ms *MemoryStore) SetError(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.forced = err
}

func scopeKey(owner, collection string) string {
	return owner + "/" + collection
}

// tick advances the store clock so successive writes get strictly
// increasing timestamps. Callers hold mu.
func (ms *MemoryStore) tick() time.Time {
	ms.clock = ms.clock.Add(time.Millisecond)
	return ms.clock
}

func (ms *MemoryStore) Create(ctx context.Context, owner, collection string, fields map[string]any) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.forced != nil {
		return "", ms.forced
	}

	now := ms.tick()
	doc := Document{ID: uuid.New().String(), Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = now
		}
		switch k {
		case "createdAt":
			doc.CreatedAt, _ = v.(time.Time)
		case "updatedAt":
			doc.UpdatedAt, _ = v.(time.Time)
		default:
			doc.Fields[k] = copyValue(v)
		}
	}

	key := scopeKey(owner, collection)
	if ms.docs[key] == nil {
		ms.docs[key] = make(map[string]Document)
	}
	ms.docs[key][doc.ID] = doc

	ms.broadcast(owner, collection)
	return doc.ID, nil
}

func (ms *MemoryStore) Update(ctx context.Context, owner, collection, id string, fields map[string]any) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.forced != nil {
		return ms.forced
	}

	key := scopeKey(owner, collection)
	doc, ok := ms.docs[key][id]
	if !ok {
		return fmt.Errorf("failed to update document: %w", ErrNotFound)
	}

	now := ms.tick()
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = now
		}
		switch k {
		case "createdAt":
			doc.CreatedAt, _ = v.(time.Time)
		case "updatedAt":
			doc.UpdatedAt, _ = v.(time.Time)
		default:
			doc.Fields[k] = copyValue(v)
		}
	}
	ms.docs[key][id] = doc

	ms.broadcast(owner, collection)
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, owner, collection, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.forced != nil {
		return ms.forced
	}

	key := scopeKey(owner, collection)
	if _, ok := ms.docs[key][id]; !ok {
		return fmt.Errorf("failed to delete document: %w", ErrNotFound)
	}
	delete(ms.docs[key], id)

	ms.broadcast(owner, collection)
	return nil
}

func (ms *MemoryStore) List(ctx context.Context, owner, collection string, spec SortSpec) (Snapshot, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.forced != nil {
		return nil, ms.forced
	}

	return ms.snapshotLocked(owner, collection, spec), nil
}

func (ms *MemoryStore) Listen(ctx context.Context, owner, collection string, spec SortSpec) (<-chan Snapshot, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.forced != nil {
		return nil, ms.forced
	}

	sub := &memorySub{
		ch:     make(chan Snapshot, 64),
		spec:   spec,
		cancel: ctx.Done(),
	}
	key := scopeKey(owner, collection)
	ms.subs[key] = append(ms.subs[key], sub)

	// Initial full snapshot, then one per change.
	sub.ch <- ms.snapshotLocked(owner, collection, spec)

	go func() {
		<-ctx.Done()
		ms.mu.Lock()
		defer ms.mu.Unlock()
		live := ms.subs[key][:0]
		for _, s := range ms.subs[key] {
			if s != sub {
				live = append(live, s)
			}
		}
		ms.subs[key] = live
		close(sub.ch)
	}()

	return sub.ch, nil
}

// broadcast pushes the current snapshot to every listener of the scope.
// Callers hold mu. When a listener's buffer is full the oldest pending
// snapshot is evicted, so a slow listener misses intermediate states but
// always ends on the newest complete one.
func (ms *MemoryStore) broadcast(owner, collection string) {
	key := scopeKey(owner, collection)
	for _, sub := range ms.subs[key] {
		select {
		case <-sub.cancel:
			continue
		default:
		}

		snap := ms.snapshotLocked(owner, collection, sub.spec)
		for {
			select {
			case sub.ch <- snap:
			default:
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (ms *MemoryStore) snapshotLocked(owner, collection string, spec SortSpec) Snapshot {
	key := scopeKey(owner, collection)
	snap := make(Snapshot, 0, len(ms.docs[key]))
	for _, doc := range ms.docs[key] {
		copied := Document{ID: doc.ID, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt, Fields: make(map[string]any, len(doc.Fields))}
		for k, v := range doc.Fields {
			copied.Fields[k] = copyValue(v)
		}
		snap = append(snap, copied)
	}

	sort.SliceStable(snap, func(i, j int) bool {
		a, b := sortKey(snap[i], spec.Field), sortKey(snap[j], spec.Field)
		if a.Equal(b) {
			return snap[i].ID < snap[j].ID
		}
		if spec.Dir == Desc {
			return a.After(b)
		}
		return a.Before(b)
	})

	return snap
}

func sortKey(doc Document, field string) time.Time {
	if field == "updatedAt" {
		return doc.UpdatedAt
	}
	return doc.CreatedAt
}

func copyValue(v any) any {
	if s, ok := v.([]string); ok {
		return append([]string(nil), s...)
	}
	return v
}
