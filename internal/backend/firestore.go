package backend

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements DocumentStore on Cloud Firestore. Documents
// live under users/{owner}/{collection}/{id}, so owner scoping is part of
// the document path itself.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %v", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (fs *FirestoreStore) Close() error {
	return fs.client.Close()
}

// Client exposes the underlying Firestore client for callers that need
// top-level collections (the account store).
func (fs *FirestoreStore) Client() *firestore.Client {
	return fs.client
}

func (fs *FirestoreStore) coll(owner, collection string) *firestore.CollectionRef {
	return fs.client.Collection("users").Doc(owner).Collection(collection)
}

func (fs *FirestoreStore) Create(ctx context.Context, owner, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()

	_, err := fs.coll(owner, collection).Doc(id).Set(ctx, resolveTimestamps(fields))
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", mapStatus(err))
	}

	return id, nil
}

func (fs *FirestoreStore) Update(ctx context.Context, owner, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range resolveTimestamps(fields) {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	_, err := fs.coll(owner, collection).Doc(id).Update(ctx, updates)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", mapStatus(err))
	}

	return nil
}

func (fs *FirestoreStore) Delete(ctx context.Context, owner, collection, id string) error {
	_, err := fs.coll(owner, collection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", mapStatus(err))
	}

	return nil
}

func (fs *FirestoreStore) query(owner, collection string, sort SortSpec) firestore.Query {
	dir := firestore.Asc
	if sort.Dir == Desc {
		dir = firestore.Desc
	}
	return fs.coll(owner, collection).OrderBy(sort.Field, dir)
}

func (fs *FirestoreStore) List(ctx context.Context, owner, collection string, sort SortSpec) (Snapshot, error) {
	iter := fs.query(owner, collection, sort).Documents(ctx)
	defer iter.Stop()

	return collectDocs(iter)
}

func (fs *FirestoreStore) Listen(ctx context.Context, owner, collection string, sort SortSpec) (<-chan Snapshot, error) {
	snapshots := fs.query(owner, collection, sort).Snapshots(ctx)

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer snapshots.Stop()

		for {
			qs, err := snapshots.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("listen %s/%s ended: %v", owner, collection, err)
				}
				return
			}

			snap, err := collectDocs(qs.Documents)
			if err != nil {
				log.Printf("listen %s/%s decode: %v", owner, collection, err)
				continue
			}

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func collectDocs(iter *firestore.DocumentIterator) (Snapshot, error) {
	var snap Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate documents: %w", mapStatus(err))
		}

		snap = append(snap, decodeDoc(doc.Ref.ID, doc.Data()))
	}

	return snap, nil
}

func decodeDoc(id string, data map[string]any) Document {
	doc := Document{ID: id, Fields: data}
	if t, ok := data["createdAt"].(time.Time); ok {
		doc.CreatedAt = t
		delete(data, "createdAt")
	}
	if t, ok := data["updatedAt"].(time.Time); ok {
		doc.UpdatedAt = t
		delete(data, "updatedAt")
	}
	return doc
}

// resolveTimestamps swaps the backend-neutral ServerTimestamp sentinel for
// Firestore's own.
func resolveTimestamps(fields map[string]any) map[string]any {
	resolved := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			resolved[k] = firestore.ServerTimestamp
			continue
		}
		resolved[k] = v
	}
	return resolved
}

func mapStatus(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return err
	}
}
