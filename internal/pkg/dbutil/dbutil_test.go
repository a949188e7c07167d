package dbutil

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalize_RebindsPlaceholders(t *testing.T) {
	query, args := Finalize("select * from t where a = ? and b = ?", []interface{}{1, 2})
	require.Equal(t, "select * from t where a = $1 and b = $2", query)
	require.Equal(t, []interface{}{1, 2}, args)
}

func TestFinalize_RewritesLimitPair(t *testing.T) {
	// gendry appends limit args as (offset, count); postgres wants LIMIT count OFFSET offset
	query, args := Finalize("select * from t where a = ? limit ?,?", []interface{}{1, 0, 50})
	require.Equal(t, "select * from t where a = $1 LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{1, 50, 0}, args)
}

func TestFinalize_NoLimitPairUntouched(t *testing.T) {
	query, args := Finalize("select * from t limit ?", []interface{}{10})
	require.Equal(t, "select * from t limit $1", query)
	require.Equal(t, []interface{}{10}, args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.False(t, IsConflict(&pq.Error{Code: "42P01"}))
	require.False(t, IsConflict(fmt.Errorf("plain error")))
}
