/*
Package catalog implements the item catalog: a declarative, table-driven
registry mapping a kind tag (e.g. "template_device", "policy_list.site")
to the metadata every other component needs to operate on items of that
kind — REST endpoints, identity field paths, dependency kinds, reference
sites, and a minimum controller version.

# Why table-driven

A class-per-kind design would need 80+ Go types, one per controller
object. Instead every kind is one KindDescriptor value, and reference
extraction/rewriting are generic JSON walkers (see pathwalk.go) driven by
that value's ReferenceSites. Adding a kind is adding a row to kinds.go,
never a new walker.

# Version gating

Catalog.FilterByVersion drops kinds whose MinVersion exceeds the target
controller's reported version. Callers build one Catalog per controller
connection via New().FilterByVersion(version), where version is the one
the controller reports at /client/about, and use that
filtered catalog for the remainder of the task; a kind absent from the
filtered catalog is simply not listed, not pushed, and not deleted.

# Tags

Tags are human-friendly selectors that expand to sets of kinds (see
tags.go). "all" expands to every kind in the catalog; family tags like
"policy_list" expand by kind-name prefix or explicit Tags membership.
*/
package catalog
