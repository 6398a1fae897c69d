package graph

import (
	"testing"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func TestTopoKindsRespectsDependsOn(t *testing.T) {
	g := New(catalog.New())
	order, err := g.TopoKinds()
	require.NoError(t, err)

	siteIdx := indexOf(order, "policy_list.site")
	defIdx := indexOf(order, "policy_definition.vedge")
	require.GreaterOrEqual(t, siteIdx, 0)
	require.GreaterOrEqual(t, defIdx, 0)
	assert.Less(t, siteIdx, defIdx, "policy_list.site must push before policy_definition.vedge, which references it")
}

func TestTopoKindsDeterministic(t *testing.T) {
	g := New(catalog.New())
	a, err := g.TopoKinds()
	require.NoError(t, err)
	b, err := g.TopoKinds()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeleteOrderIsReverseOfTopoKinds(t *testing.T) {
	g := New(catalog.New())
	push, err := g.TopoKinds()
	require.NoError(t, err)
	del, err := g.DeleteOrder()
	require.NoError(t, err)

	require.Equal(t, len(push), len(del))
	for i, k := range push {
		assert.Equal(t, k, del[len(del)-1-i])
	}
}

func TestTopoItemsOrdersByInternalReference(t *testing.T) {
	g := New(catalog.New())
	items := []*types.Item{
		{ID: "b", Name: "B", Kind: "policy_list.site", References: []types.Reference{{Kind: "policy_list.site", ID: "a"}}},
		{ID: "a", Name: "A", Kind: "policy_list.site"},
	}
	ordered, err := g.TopoItems("policy_list.site", items)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, "a", ordered[0].ID)
	assert.Equal(t, "b", ordered[1].ID)
}

func TestTopoItemsBreaksCycle(t *testing.T) {
	g := New(catalog.New())
	items := []*types.Item{
		{ID: "x", Name: "X", Kind: "policy_list.site", References: []types.Reference{{Kind: "policy_list.site", ID: "y"}}},
		{ID: "y", Name: "Y", Kind: "policy_list.site", References: []types.Reference{{Kind: "policy_list.site", ID: "x"}}},
	}
	ordered, err := g.TopoItems("policy_list.site", items)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Len(t, ordered, 2, "a broken cycle still yields a complete, usable order")
}

func TestRewriteReportsUnresolvedReferences(t *testing.T) {
	g := New(catalog.New())
	item := &types.Item{
		Kind: "policy_definition.vedge",
		Body: []byte(`{"definitionId":"d1","definition":{"sequences":[{"match":{"entries":[{"siteLists":["missing-1"]}]}}]}}`),
	}
	_, unresolved, err := g.Rewrite(item, func(kind, id string) (string, bool) {
		return "", false
	})
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "missing-1", unresolved[0].ID)
}
