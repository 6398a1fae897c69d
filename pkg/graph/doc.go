// Package graph implements the reference graph: the dependency order in
// which item kinds (and, within a kind, individual items) must be
// pushed to a controller so that every reference an item makes already
// exists by the time that item is created.
//
// Kind-level order comes from the item catalog's DependsOn edges.
// Item-level order, within a kind, comes from each item's own
// Reference list, since two items of the same kind can still depend on
// each other (e.g. one policy list nested inside another). Both orders
// are topological sorts with a deterministic tie-break — ascending kind
// name for kinds, and for items the item name as stored, not its
// filesystem-safe form — so two runs over the same backup always
// produce the same push order, which in turn makes backup/restore
// output diffable.
package graph
