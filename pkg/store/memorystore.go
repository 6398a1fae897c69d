package store

import (
	"sync"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// MemoryStore is an in-process Store, used as the handoff between the
// read and write halves of a migrate so no backup directory is left on
// disk unless the caller explicitly wants one.
type MemoryStore struct {
	mu          sync.Mutex
	serverInfo  ServerInfo
	indexes     map[string][]types.IndexEntry
	items       map[string]map[string]*types.Item // kind -> id -> item
	attachments map[string][]types.Attachment
	certs       []byte
	deviceCfgs  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		indexes:     make(map[string][]types.IndexEntry),
		items:       make(map[string]map[string]*types.Item),
		attachments: make(map[string][]types.Attachment),
		deviceCfgs:  make(map[string][]byte),
	}
}

func (s *MemoryStore) WriteServerInfo(info ServerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverInfo = info
	return nil
}

func (s *MemoryStore) ReadServerInfo() (ServerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverInfo, nil
}

func (s *MemoryStore) WriteIndex(kind string, entries []types.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[kind] = entries
	return nil
}

func (s *MemoryStore) ReadIndex(kind string) ([]types.IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexes[kind], nil
}

func (s *MemoryStore) WriteItem(kind string, item *types.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[kind] == nil {
		s.items[kind] = make(map[string]*types.Item)
	}
	s.items[kind][item.ID] = item.Clone()
	return nil
}

func (s *MemoryStore) ReadItem(kind, id, name string) (*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[kind][id]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "item %s/%s not found", kind, id)
	}
	return item.Clone(), nil
}

func (s *MemoryStore) WriteAttachment(templateID string, attachments []types.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[templateID] = attachments
	return nil
}

func (s *MemoryStore) ReadAttachments(templateID string) ([]types.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachments[templateID], nil
}

func (s *MemoryStore) WriteCertificates(raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs = raw
	return nil
}

func (s *MemoryStore) ReadCertificates() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.certs == nil {
		return nil, types.NewError(types.ErrNotFound, "no certificates recorded")
	}
	return s.certs, nil
}

func (s *MemoryStore) WriteDeviceConfig(hostname string, config []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceCfgs[hostname] = config
	return nil
}

func (s *MemoryStore) ReadDeviceConfig(hostname string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.deviceCfgs[hostname]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "no config recorded for %s", hostname)
	}
	return cfg, nil
}

func (s *MemoryStore) Kinds() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
