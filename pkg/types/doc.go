/*
Package types defines the core data structures shared across the Sastre
item engine.

This package contains all fundamental types that represent the engine's
domain model: configuration items pulled from or pushed to a Cisco SD-WAN
controller, the per-kind index summaries the controller exposes, device
template attachments, and the connection/task inputs threaded through the
catalog, store, graph, action, and task packages.

# Architecture

The types package is the foundation of the engine's data model. It defines:

  - Item identity and body (kind, id, name, factory_default, version)
  - References: (kind, id) pairs naming the items a body points at (the
    reference sites that locate them live in pkg/catalog)
  - Index entries: the per-kind list summaries under a backup
  - Attachments: device_template -> device variable bindings
  - Connection configuration and per-task name filters
  - The closed set of error kinds from the engine's error handling design

# Core Types

Item model:
  - Item: a single configuration artifact
  - Reference: a (kind, id) pair extracted from an item's body
  - IndexEntry: an (id, name, factory_default, version) summary
  - Attachment: a device template attachment record with variable values

Connection and task inputs:
  - ConnectionConfig: controller address, credentials, tenant, timeouts
  - NameFilter: include/exclude regexes applied within a tag set

Errors:
  - Kind: the closed set of error kinds (ConnectionError, AuthError, ...)
  - Error: a Kind plus message and optional wrapped cause

# Design Patterns

Enumeration Pattern:

	Kind tags and error kinds are plain strings rather than Go iota
	constants, because the catalog in pkg/catalog is itself data-driven:
	new kinds are added by appending table rows, not by extending a type.

Optional Fields:

	Item.Version and Item.FactoryDefault default to their zero values
	when a controller omits them; callers should not assume non-zero.

# Thread Safety

Item, IndexEntry, and Attachment values are treated as immutable snapshots
once constructed by the store or controller client; nothing in this
package mutates a value after handing it to a caller. Concurrent readers
are always safe; a caller that wants to mutate and reuse a value must
copy it first (see Item.Clone).
*/
package types
