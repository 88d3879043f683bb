package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view of one document kind.
//
// T is the document type; it is encoded with encoding/json, so custom
// MarshalJSON/UnmarshalJSON methods are honoured.
type Collection[T any] struct {
	store *Store
	kind  Kind
}

// NewCollection binds a Collection to a kind.
func NewCollection[T any](s *Store, kind Kind) *Collection[T] {
	return &Collection[T]{store: s, kind: kind}
}

// Kind returns the document kind.
func (c *Collection[T]) Kind() Kind { return c.kind }

// Save encodes v and upserts it under id.
func (c *Collection[T]) Save(ctx context.Context, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", c.kind, id, err)
	}
	return c.store.Put(ctx, c.kind, id, data)
}

// FindByID decodes the document stored under id, or returns ErrNotFound.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var v T
	doc, err := c.store.Get(ctx, c.kind, id)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return v, fmt.Errorf("decoding %s %s: %w", c.kind, id, err)
	}
	return v, nil
}

// FindAll decodes every document of the kind. A document that fails to
// decode aborts the load with an error naming its id.
func (c *Collection[T]) FindAll(ctx context.Context) ([]T, error) {
	docs, err := c.store.List(ctx, c.kind)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", c.kind, doc.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DeleteByID removes the document and reports whether it existed.
func (c *Collection[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	return c.store.Delete(ctx, c.kind, id)
}

// ExistsByID reports whether id is stored.
func (c *Collection[T]) ExistsByID(ctx context.Context, id string) (bool, error) {
	return c.store.Exists(ctx, c.kind, id)
}

// Count returns how many documents of the kind are stored.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	return c.store.Count(ctx, c.kind)
}
