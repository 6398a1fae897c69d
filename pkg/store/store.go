package store

import (
	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// ServerInfo records which controller a backup was taken from, written
// to server_info.json at the root of every backup tree.
type ServerInfo struct {
	Address string `json:"address"`
	Version string `json:"version"`
	TakenAt string `json:"takenAt"`
}

// Store is the on-disk backup interface the Task Orchestrator drives.
// One Store instance owns one backup root directory; callers open a new
// Store per backup/restore operation. No Store reads or writes a zip
// archive directly: PackZip and UnpackZip convert between a backup
// directory and an archive.
type Store interface {
	// WriteServerInfo records the origin controller. Called once per
	// backup, before any items are written.
	WriteServerInfo(info ServerInfo) error
	ReadServerInfo() (ServerInfo, error)

	// WriteIndex persists the full item list for kind, replacing any
	// existing index. Call after all items of that kind are written.
	WriteIndex(kind string, entries []types.IndexEntry) error
	ReadIndex(kind string) ([]types.IndexEntry, error)

	// WriteItem persists one item's body under kind, named from the
	// item's filesystem-safe name (falling back to name_id on
	// collision). WriteItem does not update the kind's index.
	WriteItem(kind string, item *types.Item) error
	ReadItem(kind, id, name string) (*types.Item, error)

	// WriteAttachment records a device template attachment or its
	// template variable values.
	WriteAttachment(templateID string, attachments []types.Attachment) error
	ReadAttachments(templateID string) ([]types.Attachment, error)

	// WriteCertificates persists the WAN edge certificate list.
	WriteCertificates(raw []byte) error
	ReadCertificates() ([]byte, error)

	// WriteDeviceConfig persists one device's raw running configuration,
	// named by hostname.
	WriteDeviceConfig(hostname string, config []byte) error
	ReadDeviceConfig(hostname string) ([]byte, error)

	// Kinds lists every kind directory present in the backup.
	Kinds() ([]string, error)

	// Close releases the store's file lock.
	Close() error
}
