package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"

	"defiScope/internal/storage"
)

func TestBuildQuery(t *testing.T) {
	sql, args := buildQuery("pool_swap", "5", storage.Query{})
	require.Equal(t, `SELECT id, partition_key, sort_key, data FROM derived_records WHERE collection = $1 AND partition_key = $2 ORDER BY sort_key DESC, id DESC`, sql)
	require.Equal(t, []any{"pool_swap", "5"}, args)

	sql, args = buildQuery("pool_swap", "5", storage.Query{GT: "00000010", LT: "00000020", Limit: 3, Ascending: true})
	require.Equal(t, `SELECT id, partition_key, sort_key, data FROM derived_records WHERE collection = $1 AND partition_key = $2 AND sort_key > $3 AND sort_key < $4 ORDER BY sort_key ASC, id ASC LIMIT $5`, sql)
	require.Equal(t, []any{"pool_swap", "5", "00000010", "00000020", 3}, args)
}
