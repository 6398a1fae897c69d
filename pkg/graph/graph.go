package graph

import (
	"sort"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// Graph computes push/delete order over a catalog and the items loaded
// from one backup.
type Graph struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Graph {
	return &Graph{cat: cat}
}

// TopoKinds returns every kind in cat ordered so that a kind always
// appears after every kind it depends on. Ties (kinds with no remaining
// dependency) are broken by ascending kind name. If the catalog's
// DependsOn edges contain a cycle, the order is still complete and a
// *CycleError is returned alongside it so the caller can log a warning
// rather than abort.
func (g *Graph) TopoKinds() ([]string, error) {
	var nodes []node
	for _, k := range g.cat.Kinds() {
		nodes = append(nodes, node{id: k, key: k, depends: g.cat.DependsOn(k)})
	}
	return toposort(nodes)
}

// TopoItems orders items of a single kind so that an item referencing
// another item of the same kind always appears after it. Ties are
// broken by ascending item name.
func (g *Graph) TopoItems(kind string, items []*types.Item) ([]*types.Item, error) {
	byID := make(map[string]*types.Item, len(items))
	var nodes []node
	for _, it := range items {
		byID[it.ID] = it
		var depends []string
		for _, ref := range it.References {
			if ref.Kind == kind {
				depends = append(depends, ref.ID)
			}
		}
		nodes = append(nodes, node{id: it.ID, key: it.Name, depends: depends})
	}

	order, err := toposort(nodes)
	out := make([]*types.Item, 0, len(order))
	for _, id := range order {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, err
}

// DeleteOrder returns kinds in the reverse of TopoKinds: a kind is safe
// to delete only once every kind depending on it is already gone.
func (g *Graph) DeleteOrder() ([]string, error) {
	kinds, err := g.TopoKinds()
	reversed := make([]string, len(kinds))
	for i, k := range kinds {
		reversed[len(kinds)-1-i] = k
	}
	return reversed, err
}

// Rewrite applies mapping to every declared reference site in item's
// body and returns the rewritten body alongside the set of references
// that mapping could not resolve (DependencyUnresolved candidates).
func (g *Graph) Rewrite(item *types.Item, mapping func(kind, id string) (string, bool)) (rewritten []byte, unresolved []types.Reference, err error) {
	unresolvedSet := make(map[types.Reference]bool)
	wrapped := func(kind, id string) (string, bool) {
		newID, ok := mapping(kind, id)
		if !ok {
			unresolvedSet[types.Reference{Kind: kind, ID: id}] = true
		}
		return newID, ok
	}

	body, err := g.cat.Rewrite(item.Kind, item.Body, wrapped)
	if err != nil {
		return nil, nil, err
	}
	for ref := range unresolvedSet {
		unresolved = append(unresolved, ref)
	}
	sort.Slice(unresolved, func(i, j int) bool {
		if unresolved[i].Kind != unresolved[j].Kind {
			return unresolved[i].Kind < unresolved[j].Kind
		}
		return unresolved[i].ID < unresolved[j].ID
	})
	return body, unresolved, nil
}
