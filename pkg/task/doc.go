// Package task implements the task orchestrator: the five operations a
// user actually invokes against a controller — backup, restore, delete,
// migrate, and transform — built on top of the item catalog, the
// reference graph, the item store, and the controller client.
//
// Restore, delete and migrate accept a dry-run flag; backup, which only
// reads from the controller, has none.
// With dry-run set, the push plan (what would be created, updated,
// skipped, or deleted, in what order) is computed and returned exactly
// as it would be executed, but no request that mutates controller state
// is issued.
package task
