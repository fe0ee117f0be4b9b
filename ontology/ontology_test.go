package ontology

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/graphgate/cypher"
	"github.com/tessera-labs/graphgate/graph"
)

func TestDefinitionsLookup(t *testing.T) {
	nt, ok := NodeTypeByLabel("SAPSystem")
	require.True(t, ok)
	assert.Contains(t, nt.Required, "sid")

	_, ok = NodeTypeByLabel("Mainframe")
	assert.False(t, ok)

	rt, ok := RelationshipTypeByName("RUNS_ON")
	require.True(t, ok)
	assert.Equal(t, "SAPInstance", rt.FromLabel)
	assert.Equal(t, "Host", rt.ToLabel)

	_, ok = RelationshipTypeByName("LINKED_TO")
	assert.False(t, ok)
}

// The query layer's whitelist must accept every identifier the
// ontology defines, or templates built from definitions would fail
// validation.
func TestOntologyCoveredByQueryWhitelist(t *testing.T) {
	for _, nt := range NodeTypes() {
		assert.NoError(t, cypher.ValidateLabel(nt.Label), nt.Label)
	}
	for _, rt := range RelationshipTypes() {
		assert.NoError(t, cypher.ValidateRelationship(rt.Type), rt.Type)
		assert.NoError(t, cypher.ValidateLabel(rt.FromLabel), rt.FromLabel)
		assert.NoError(t, cypher.ValidateLabel(rt.ToLabel), rt.ToLabel)
	}
}

func TestCreateBaseTemplate(t *testing.T) {
	store := graph.NewMemStore()
	tm := NewTemplateManager(store, nil)
	ctx := context.Background()

	created, err := tm.CreateBaseTemplate(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	names, err := store.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, BaseTemplateName)

	// Seeded example nodes are queryable.
	result, err := store.Select(BaseTemplateName).Query(ctx,
		"MATCH (n:SAPSystem {sid: 'EXAMPLE'}) RETURN n.sid", nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "EXAMPLE", result.Rows[0][0])

	// Second call is a no-op.
	created, err = tm.CreateBaseTemplate(ctx)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestReference(t *testing.T) {
	ref := Reference()
	assert.True(t, strings.Contains(ref, "SAPSystem"))
	assert.True(t, strings.Contains(ref, "(SAPInstance)-[:RUNS_ON]->(Host)"))
}
