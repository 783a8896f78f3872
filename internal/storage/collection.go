package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Entity is a value that can live in a Collection.
type Entity interface {
	EntityID() string
	PartitionKey() string
	SortKey() string
}

// Collection is a typed view over one Backend collection. Values are stored as JSON.
type Collection[T Entity] struct {
	backend Backend
	name    string
}

func NewCollection[T Entity](backend Backend, name string) *Collection[T] {
	return &Collection[T]{backend: backend, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Get returns the entity with id; ok is false when it does not exist.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	record, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("get %s %s: %w", c.name, id, err)
	}
	value, err := c.decode(record)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// Latest returns the entity with the highest sort key in partition.
func (c *Collection[T]) Latest(ctx context.Context, partition string) (T, bool, error) {
	var zero T
	values, err := c.Query(ctx, partition, Query{Limit: 1})
	if err != nil {
		return zero, false, err
	}
	if len(values) == 0 {
		return zero, false, nil
	}
	return values[0], true, nil
}

// Query returns the entities of partition matching q.
func (c *Collection[T]) Query(ctx context.Context, partition string, q Query) ([]T, error) {
	records, err := c.backend.Query(ctx, c.name, partition, q)
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", c.name, partition, err)
	}
	values := make([]T, 0, len(records))
	for _, record := range records {
		value, err := c.decode(record)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// Put creates or replaces the entity.
func (c *Collection[T]) Put(ctx context.Context, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.name, err)
	}
	record := Record{
		ID:        value.EntityID(),
		Partition: value.PartitionKey(),
		Sort:      value.SortKey(),
		Data:      data,
	}
	if err := c.backend.Put(ctx, c.name, record); err != nil {
		return fmt.Errorf("put %s %s: %w", c.name, record.ID, err)
	}
	return nil
}

// Delete removes the entity with id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.backend.Delete(ctx, c.name, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", c.name, id, err)
	}
	return nil
}

func (c *Collection[T]) decode(record Record) (T, error) {
	var value T
	if err := json.Unmarshal(record.Data, &value); err != nil {
		return value, fmt.Errorf("decode %s %s: %w", c.name, record.ID, err)
	}
	return value, nil
}
