// Package store implements the item store: the on-disk representation of
// one backup. A backup is a directory tree (optionally packed into a zip
// archive for transport) with one subdirectory per item kind, an
// index.json listing every item of that kind, and one body file per
// item. Device template attachments, WAN edge certificates, and raw
// device configurations each get their own well-known location alongside
// the per-kind directories.
//
// A second backup taken against the same root does not overwrite the
// first: FileStore rotates the existing tree to a numbered sibling
// before writing the new one, the way a logrotate policy keeps a bounded
// history instead of silently losing the last good backup.
package store
