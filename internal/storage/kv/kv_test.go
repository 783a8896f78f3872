package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"defiScope/internal/storage"
)

func put(t *testing.T, s *Store, id, partition, sort string) {
	t.Helper()
	err := s.Put(context.Background(), "swap", storage.Record{
		ID:        id,
		Partition: partition,
		Sort:      sort,
		Data:      []byte(`{"id":"` + id + `"}`),
	})
	require.NoError(t, err)
}

func ids(records []storage.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestStoreGetPutDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.Get(ctx, "swap", "a")
	require.ErrorIs(t, err, storage.ErrNotFound)

	put(t, s, "a", "1", "0000000a")
	got, err := s.Get(ctx, "swap", "a")
	require.NoError(t, err)
	require.Equal(t, "1", got.Partition)
	require.Equal(t, "0000000a", got.Sort)
	require.JSONEq(t, `{"id":"a"}`, string(got.Data))

	require.NoError(t, s.Delete(ctx, "swap", "a"))
	_, err = s.Get(ctx, "swap", "a")
	require.ErrorIs(t, err, storage.ErrNotFound)

	records, err := s.Query(ctx, "swap", "1", storage.Query{})
	require.NoError(t, err)
	require.Empty(t, records)

	require.NoError(t, s.Delete(ctx, "swap", "a"))
}

func TestStoreQueryOrderAndBounds(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	put(t, s, "p1-c", "1", "0000000300000000")
	put(t, s, "p1-a", "1", "0000000100000001")
	put(t, s, "p1-b", "1", "0000000200000000")
	put(t, s, "p1-a2", "1", "0000000100000000")
	put(t, s, "p10-x", "10", "0000000200000000")

	records, err := s.Query(ctx, "swap", "1", storage.Query{})
	require.NoError(t, err)
	require.Equal(t, []string{"p1-c", "p1-b", "p1-a", "p1-a2"}, ids(records))

	records, err = s.Query(ctx, "swap", "1", storage.Query{Ascending: true})
	require.NoError(t, err)
	require.Equal(t, []string{"p1-a2", "p1-a", "p1-b", "p1-c"}, ids(records))

	// A bare height bound keeps every ordinal recorded at that height.
	records, err = s.Query(ctx, "swap", "1", storage.Query{GT: "00000001", Ascending: true})
	require.NoError(t, err)
	require.Equal(t, []string{"p1-a2", "p1-a", "p1-b", "p1-c"}, ids(records))

	records, err = s.Query(ctx, "swap", "1", storage.Query{GT: "0000000100000000", Ascending: true})
	require.NoError(t, err)
	require.Equal(t, []string{"p1-a", "p1-b", "p1-c"}, ids(records))

	records, err = s.Query(ctx, "swap", "1", storage.Query{LT: "00000003"})
	require.NoError(t, err)
	require.Equal(t, []string{"p1-b", "p1-a", "p1-a2"}, ids(records))

	records, err = s.Query(ctx, "swap", "1", storage.Query{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"p1-c", "p1-b"}, ids(records))

	records, err = s.Query(ctx, "swap", "10", storage.Query{})
	require.NoError(t, err)
	require.Equal(t, []string{"p10-x"}, ids(records))
}

func TestStorePutMovesIndexEntry(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	put(t, s, "t", "a", "00000001")
	put(t, s, "t", "b", "00000002")

	records, err := s.Query(ctx, "swap", "a", storage.Query{})
	require.NoError(t, err)
	require.Empty(t, records)

	records, err = s.Query(ctx, "swap", "b", storage.Query{})
	require.NoError(t, err)
	require.Equal(t, []string{"t"}, ids(records))
}

func TestStoreCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	put(t, s, "x", "1", "00000001")
	_, err := s.Get(ctx, "token", "x")
	require.ErrorIs(t, err, storage.ErrNotFound)

	records, err := s.Query(ctx, "token", "1", storage.Query{})
	require.NoError(t, err)
	require.Empty(t, records)
}
