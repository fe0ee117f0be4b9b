package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreLazyMaterialization(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	// Selecting alone must not materialize the partition.
	p := store.Select("project_client_a")
	names, err := store.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	// First write materializes it.
	_, err = p.Query(ctx, "CREATE (:_InitMarker {initialized: true})", nil)
	require.NoError(t, err)

	names, err = store.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"project_client_a"}, names)
}

func TestMemStoreQuerySubset(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	p := store.Select("project_client_a")

	_, err := p.Query(ctx, "CREATE (:SAPSystem {sid: $param_1, landscape_tier: 'PRD'})",
		map[string]any{"param_1": "PRD"})
	require.NoError(t, err)
	_, err = p.Query(ctx, "CREATE (:SAPSystem {sid: 'QAS', landscape_tier: 'QAS'})", nil)
	require.NoError(t, err)

	t.Run("match with parameterized filter", func(t *testing.T) {
		res, err := p.Query(ctx, "MATCH (n:SAPSystem {sid: $sid})\nRETURN n",
			map[string]any{"sid": "PRD"})
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		node, ok := res.Rows[0][0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "PRD", node["sid"])
	})

	t.Run("return properties", func(t *testing.T) {
		res, err := p.Query(ctx, "MATCH (n:SAPSystem)\nRETURN n.sid", nil)
		require.NoError(t, err)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, []string{"n.sid"}, res.Columns)
	})

	t.Run("node count", func(t *testing.T) {
		res, err := p.Query(ctx, "MATCH (n) RETURN count(n) as count", nil)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, 2, res.Rows[0][0])
	})

	t.Run("edge count is zero", func(t *testing.T) {
		res, err := p.Query(ctx, "MATCH ()-[r]->() RETURN count(r) as count", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Rows[0][0])
	})

	t.Run("limit and skip", func(t *testing.T) {
		res, err := p.Query(ctx, "MATCH (n:SAPSystem)\nRETURN n.sid\nORDER BY n.sid ASC\nSKIP 1\nLIMIT 5", nil)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, "QAS", res.Rows[0][0])
	})

	t.Run("unsupported shape errors", func(t *testing.T) {
		_, err := p.Query(ctx, "MERGE (n:SAPSystem) RETURN n", nil)
		assert.ErrorIs(t, err, ErrUnsupportedQuery)
	})
}

func TestMemStoreCopyAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	src := store.Select("template")
	_, err := src.Query(ctx, "CREATE (:SAPSystem {sid: 'TPL'})", nil)
	require.NoError(t, err)

	dst, err := src.Copy(ctx, "project_clone")
	require.NoError(t, err)
	assert.Equal(t, "project_clone", dst.Name())

	res, err := dst.Query(ctx, "MATCH (n:SAPSystem)\nRETURN n.sid", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "TPL", res.Rows[0][0])

	// Copies are independent of the source.
	_, err = dst.Query(ctx, "CREATE (:SAPSystem {sid: 'NEW'})", nil)
	require.NoError(t, err)
	res, err = src.Query(ctx, "MATCH (n) RETURN count(n) as count", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows[0][0])

	t.Run("copy onto existing name fails", func(t *testing.T) {
		_, err := src.Copy(ctx, "project_clone")
		assert.ErrorIs(t, err, ErrPartitionExists)
	})

	t.Run("delete removes the partition", func(t *testing.T) {
		require.NoError(t, dst.Delete(ctx))
		names, err := store.ListPartitions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"template"}, names)
	})

	t.Run("delete of missing partition errors", func(t *testing.T) {
		err := store.Select("nope").Delete(ctx)
		assert.ErrorIs(t, err, ErrPartitionNotFound)
	})
}
