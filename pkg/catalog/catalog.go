// Package catalog implements the Item Catalog: a declarative, table-driven
// registry mapping a kind tag to per-kind metadata (endpoints, identity
// fields, dependency kinds, reference sites, version gating). Reference
// extraction and rewriting are generic JSON walkers driven by that
// metadata; no kind ever needs bespoke Go code.
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// ReferenceSite locates embedded IDs of TargetKind inside a body.
type ReferenceSite struct {
	TargetKind string
	Path       fieldPath
}

// Endpoints holds the REST paths for one kind. %s is replaced with an item
// ID where applicable; List and Post take no parameter.
type Endpoints struct {
	List   string
	Get    string // expects one %s for id
	Post   string
	Put    string // expects one %s for id
	Delete string // expects one %s for id
}

// KindDescriptor is the catalog's per-kind static metadata.
type KindDescriptor struct {
	Kind string

	Endpoints Endpoints

	IDPath             fieldPath
	NamePath           fieldPath
	FactoryDefaultPath fieldPath
	VersionPath        fieldPath

	DependsOn      []string
	ReferenceSites []ReferenceSite

	// MinVersion is the lowest controller major.minor that carries this
	// kind. Empty means "always available".
	MinVersion string

	// Tags this kind belongs to, beyond its own kind name and "all".
	Tags []string
}

// Catalog is an immutable, version-filtered table of kind descriptors.
type Catalog struct {
	byKind     map[string]KindDescriptor
	dependedBy map[string][]string
	order      []string // insertion order, for reproducible iteration
}

// New returns the full, unfiltered catalog of built-in kinds.
func New() *Catalog {
	return build(allKinds())
}

// FilterByVersion returns a new Catalog containing only kinds whose
// MinVersion does not exceed controllerVersion. Kinds above the
// controller's version are silently unavailable, not an error.
func (c *Catalog) FilterByVersion(controllerVersion string) *Catalog {
	var kept []KindDescriptor
	for _, k := range c.order {
		d := c.byKind[k]
		if versionAtLeast(controllerVersion, d.MinVersion) {
			kept = append(kept, d)
		}
	}
	return build(kept)
}

func build(kinds []KindDescriptor) *Catalog {
	c := &Catalog{
		byKind:     make(map[string]KindDescriptor, len(kinds)),
		dependedBy: make(map[string][]string),
	}
	for _, k := range kinds {
		c.byKind[k.Kind] = k
		c.order = append(c.order, k.Kind)
	}
	// Derive depended_by from depends_on, restricted to kinds actually
	// present in this (possibly version-filtered) catalog.
	for _, k := range c.order {
		for _, dep := range c.byKind[k].DependsOn {
			if _, ok := c.byKind[dep]; ok {
				c.dependedBy[dep] = append(c.dependedBy[dep], k)
			}
		}
	}
	for k := range c.dependedBy {
		sort.Strings(c.dependedBy[k])
	}
	return c
}

// Get returns the descriptor for kind and whether it is present in this
// catalog (it may have been filtered out by version).
func (c *Catalog) Get(kind string) (KindDescriptor, bool) {
	d, ok := c.byKind[kind]
	return d, ok
}

// Kinds returns every kind tag in this catalog, in stable registration
// order (not dependency order; see graph.Graph.TopoKinds for that).
func (c *Catalog) Kinds() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// DependsOn returns the dependency kinds declared for kind, filtered to
// kinds present in this catalog.
func (c *Catalog) DependsOn(kind string) []string {
	d, ok := c.byKind[kind]
	if !ok {
		return nil
	}
	var out []string
	for _, dep := range d.DependsOn {
		if _, ok := c.byKind[dep]; ok {
			out = append(out, dep)
		}
	}
	return out
}

// DependedBy returns the kinds that declare a dependency on kind.
func (c *Catalog) DependedBy(kind string) []string {
	return c.dependedBy[kind]
}

// ExtractIdentity pulls id, name, and factory_default out of a raw body
// using the kind's declared identity paths.
func (c *Catalog) ExtractIdentity(kind string, body json.RawMessage) (id, name string, factoryDefault bool, err error) {
	d, ok := c.byKind[kind]
	if !ok {
		return "", "", false, fmt.Errorf("catalog: unknown kind %q", kind)
	}
	root, err := decode(body)
	if err != nil {
		return "", "", false, fmt.Errorf("catalog: decode body for kind %q: %w", kind, err)
	}
	if v := walkStrings(root, d.IDPath); len(v) > 0 {
		id = v[0]
	}
	if v := walkStrings(root, d.NamePath); len(v) > 0 {
		name = v[0]
	}
	for _, v := range walkGet(root, d.FactoryDefaultPath) {
		if b, ok := v.(bool); ok {
			factoryDefault = b
		}
	}
	return id, name, factoryDefault, nil
}

// ExtractReferences walks every declared reference site for kind and
// returns the (kind, id) pairs found in body.
func (c *Catalog) ExtractReferences(kind string, body json.RawMessage) ([]types.Reference, error) {
	d, ok := c.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown kind %q", kind)
	}
	root, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("catalog: decode body for kind %q: %w", kind, err)
	}
	var refs []types.Reference
	for _, site := range d.ReferenceSites {
		for _, id := range walkStrings(root, site.Path) {
			refs = append(refs, types.Reference{Kind: site.TargetKind, ID: id})
		}
	}
	return refs, nil
}

// Rewrite returns a copy of body with every embedded reference ID
// rewritten through mapping. IDs with no entry in mapping are left
// untouched (the caller is responsible for reporting DependencyUnresolved
// when that matters).
func (c *Catalog) Rewrite(kind string, body json.RawMessage, mapping func(kind, id string) (string, bool)) (json.RawMessage, error) {
	d, ok := c.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown kind %q", kind)
	}
	root, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("catalog: decode body for kind %q: %w", kind, err)
	}
	for _, site := range d.ReferenceSites {
		target := site.TargetKind
		rewriteStrings(root, site.Path, func(old string) string {
			if newID, ok := mapping(target, old); ok {
				return newID
			}
			return old
		})
	}
	out, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("catalog: re-encode body for kind %q: %w", kind, err)
	}
	return out, nil
}

// versionAtLeast compares "MAJOR.MINOR[.PATCH]" strings, treating an empty
// minVersion as always satisfied and an empty controllerVersion as
// satisfying anything (best-effort: an unknown controller version should
// not hide kinds).
func versionAtLeast(controllerVersion, minVersion string) bool {
	if minVersion == "" {
		return true
	}
	if controllerVersion == "" {
		return true
	}
	cv := parseVersion(controllerVersion)
	mv := parseVersion(minVersion)
	for i := 0; i < 2; i++ {
		if cv[i] != mv[i] {
			return cv[i] > mv[i]
		}
	}
	return true
}

func parseVersion(v string) [2]int {
	var out [2]int
	var part, idx int
	for _, r := range v {
		if r == '.' {
			if idx < 2 {
				out[idx] = part
			}
			idx++
			part = 0
			if idx >= 2 {
				break
			}
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		part = part*10 + int(r-'0')
	}
	if idx < 2 {
		out[idx] = part
	}
	return out
}
