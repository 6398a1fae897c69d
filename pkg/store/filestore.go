package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/gofrs/flock"
)

const (
	serverInfoFile    = "server_info.json"
	indexFile         = "index.json"
	certsDir          = "certificates"
	wanEdgeListFile   = "wan_edge_list.json"
	deviceConfigsDir  = "device_configs"
	attachmentsSuffix = "_attached.json"
	valuesSuffix      = "_values.json"
	lockFileName      = ".sastre.lock"
)

// FileStore is a directory-backed Store. One FileStore instance holds an
// advisory OS lock on root for its lifetime, so two sastre processes
// never write the same backup concurrently.
type FileStore struct {
	root string
	lock *flock.Flock

	mu    sync.Mutex
	taken map[string]map[string]bool // kind -> file names already used
}

// Open opens (creating if absent) a directory-backed store at root,
// acquiring an exclusive lock. If fresh is true and root already holds a
// backup, the existing tree is rotated out of the way first.
func Open(root string, fresh bool) (*FileStore, error) {
	if fresh {
		if err := rotate(root); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "create backup root %s", root)
	}

	l := flock.New(filepath.Join(root, lockFileName))
	ok, err := l.TryLock()
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "lock backup root %s", root)
	}
	if !ok {
		return nil, types.NewError(types.ErrConflict, "backup root %s is locked by another process", root)
	}

	return &FileStore{
		root:  root,
		lock:  l,
		taken: make(map[string]map[string]bool),
	}, nil
}

func (s *FileStore) Close() error {
	return s.lock.Unlock()
}

func (s *FileStore) WriteServerInfo(info ServerInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.root, serverInfoFile), data, 0o644)
}

func (s *FileStore) ReadServerInfo() (ServerInfo, error) {
	var info ServerInfo
	data, err := os.ReadFile(filepath.Join(s.root, serverInfoFile))
	if err != nil {
		return info, types.WrapError(types.ErrInvalidBackup, err, "read server info")
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, types.WrapError(types.ErrInvalidBackup, err, "decode server info")
	}
	return info, nil
}

// kindDir returns the directory for kind. Kind tags are internal catalog
// identifiers (e.g. "policy_list.site"), not user-supplied data, so they
// are used as-is rather than run through safeName.
func (s *FileStore) kindDir(kind string) string {
	return filepath.Join(s.root, kind)
}

func (s *FileStore) WriteIndex(kind string, entries []types.IndexEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.kindDir(kind), indexFile), data, 0o644)
}

func (s *FileStore) ReadIndex(kind string) ([]types.IndexEntry, error) {
	var entries []types.IndexEntry
	data, err := os.ReadFile(filepath.Join(s.kindDir(kind), indexFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "read index for %s", kind)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "decode index for %s", kind)
	}
	return entries, nil
}

func (s *FileStore) WriteItem(kind string, item *types.Item) error {
	s.mu.Lock()
	if s.taken[kind] == nil {
		s.taken[kind] = make(map[string]bool)
	}
	fileName := bodyFileName(item.Name, item.ID, s.taken[kind])
	s.taken[kind][fileName] = true
	s.mu.Unlock()

	return writeFileAtomic(filepath.Join(s.kindDir(kind), fileName), item.Body, 0o644)
}

// ReadItem loads one item's body. name is the item's original (not
// sanitized) name; ReadItem recomputes the safe name and, for a
// collision-suffixed file, retries with the id appended.
func (s *FileStore) ReadItem(kind, id, name string) (*types.Item, error) {
	dir := s.kindDir(kind)
	candidates := []string{
		filepath.Join(dir, safeName(name)+".json"),
		filepath.Join(dir, fmt.Sprintf("%s_%s.json", safeName(name), id)),
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return &types.Item{Kind: kind, ID: id, Name: name, Body: data}, nil
		}
		if !os.IsNotExist(err) {
			return nil, types.WrapError(types.ErrInvalidBackup, err, "read item %s/%s", kind, name)
		}
	}
	return nil, types.NewError(types.ErrNotFound, "item %s/%s (%s) not found in backup", kind, name, id)
}

func (s *FileStore) WriteAttachment(templateID string, attachments []types.Attachment) error {
	data, err := json.MarshalIndent(attachments, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.root, "template_device", safeName(templateID)+attachmentsSuffix)
	return writeFileAtomic(path, data, 0o644)
}

func (s *FileStore) ReadAttachments(templateID string) ([]types.Attachment, error) {
	path := filepath.Join(s.root, "template_device", safeName(templateID)+attachmentsSuffix)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "read attachments for %s", templateID)
	}
	var attachments []types.Attachment
	if err := json.Unmarshal(data, &attachments); err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "decode attachments for %s", templateID)
	}
	return attachments, nil
}

func (s *FileStore) WriteCertificates(raw []byte) error {
	return writeFileAtomic(filepath.Join(s.root, certsDir, wanEdgeListFile), raw, 0o644)
}

func (s *FileStore) ReadCertificates() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, certsDir, wanEdgeListFile))
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "read certificates")
	}
	return data, nil
}

func (s *FileStore) WriteDeviceConfig(hostname string, config []byte) error {
	path := filepath.Join(s.root, deviceConfigsDir, safeName(hostname)+".cfg")
	return writeFileAtomic(path, config, 0o644)
}

func (s *FileStore) ReadDeviceConfig(hostname string) ([]byte, error) {
	path := filepath.Join(s.root, deviceConfigsDir, safeName(hostname)+".cfg")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "read device config for %s", hostname)
	}
	return data, nil
}

func (s *FileStore) Kinds() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidBackup, err, "list backup root %s", s.root)
	}
	var kinds []string
	skip := map[string]bool{certsDir: true, deviceConfigsDir: true}
	for _, e := range entries {
		if !e.IsDir() || skip[e.Name()] {
			continue
		}
		kinds = append(kinds, e.Name())
	}
	return kinds, nil
}
