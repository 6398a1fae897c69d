package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
)

// ControllerLiveIndex answers Restore's create-vs-update question by
// listing each kind directly from the target controller. It caches one
// listing per kind for the lifetime of a single Restore call, since
// Restore queries find() once per item rather than once per kind.
type ControllerLiveIndex struct {
	ctx     context.Context
	c       client
	cat     *catalog.Catalog
	byKind  map[string]map[string]string // kind -> name -> id
	fetched map[string]bool
}

func NewControllerLiveIndex(ctx context.Context, c client, cat *catalog.Catalog) *ControllerLiveIndex {
	return &ControllerLiveIndex{
		ctx:     ctx,
		c:       c,
		cat:     cat,
		byKind:  make(map[string]map[string]string),
		fetched: make(map[string]bool),
	}
}

func (l *ControllerLiveIndex) find(kind, name string) (string, bool) {
	if !l.fetched[kind] {
		l.load(kind)
	}
	id, ok := l.byKind[kind][name]
	return id, ok
}

func (l *ControllerLiveIndex) load(kind string) {
	l.fetched[kind] = true
	d, ok := l.cat.Get(kind)
	if !ok || d.Endpoints.List == "" {
		return
	}
	raw, err := l.c.GetJSON(l.ctx, d.Endpoints.List)
	if err != nil {
		return // a failed live listing degrades to "nothing exists yet"; Restore then attempts create
	}
	var bodies []json.RawMessage
	if err := json.Unmarshal(raw, &bodies); err != nil {
		return
	}
	names := make(map[string]string, len(bodies))
	for _, body := range bodies {
		id, name, _, err := l.cat.ExtractIdentity(kind, body)
		if err == nil && name != "" {
			names[name] = id
		}
	}
	l.byKind[kind] = names
}

// body fetches the live item's current body directly by id, used by
// Restore's update path to compare against the item it would otherwise
// push unconditionally. It does not share the load() cache: the listing
// endpoint a kind's find() uses often returns summaries rather than full
// bodies, so a per-item Get is the only reliable source of the live body.
func (l *ControllerLiveIndex) body(kind, id string) (json.RawMessage, bool) {
	d, ok := l.cat.Get(kind)
	if !ok || d.Endpoints.Get == "" {
		return nil, false
	}
	raw, err := l.c.GetJSON(l.ctx, fmt.Sprintf(d.Endpoints.Get, id))
	if err != nil {
		return nil, false
	}
	return raw, true
}

var _ liveIndex = (*ControllerLiveIndex)(nil)

// staticLiveIndex is a fixed, pre-populated liveIndex, useful for tests
// and for dry-run previews computed from a previously captured listing.
type staticLiveIndex map[string]map[string]string

func (s staticLiveIndex) find(kind, name string) (string, bool) {
	id, ok := s[kind][name]
	return id, ok
}

// body always reports no live body available: a staticLiveIndex is
// populated from a prior listing (names and ids only), never from a
// per-item fetch, so Restore's update path falls back to treating the
// item as changed and pushes it.
func (s staticLiveIndex) body(kind, id string) (json.RawMessage, bool) {
	return nil, false
}

// EmptyLiveIndex reports every item as absent, the correct behavior for
// a restore into a brand-new controller with nothing provisioned yet
// besides factory defaults (which Restore checks separately by name).
func EmptyLiveIndex() liveIndex {
	return staticLiveIndex{}
}

var _ liveIndex = EmptyLiveIndex()
