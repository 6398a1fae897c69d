package nametemplate

import (
	"regexp"
	"strings"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

var placeholder = regexp.MustCompile(`\{name(?:\s+(.+?))?\}`)

// Transformer renames item names according to an explicit override map
// and a fallback template. Apply records every target name it produces,
// so collisions accumulate across calls and Err reports all of them
// after one pass; because Apply mutates that record without locking, a
// Transformer is not safe for concurrent use.
type Transformer struct {
	overrides map[string]string
	template  string

	seen       map[string]string // target name -> first source name that produced it
	collisions []Collision
}

// Collision records two distinct source names mapping to the same
// target name.
type Collision struct {
	Target string
	First  string
	Second string
}

// New builds a Transformer. template may be empty, meaning names pass
// through unchanged except where overrides apply.
func New(overrides map[string]string, template string) *Transformer {
	return &Transformer{
		overrides: overrides,
		template:  template,
		seen:      make(map[string]string),
	}
}

// Apply returns the new name for name, recording a collision (but still
// returning a name) if two different source names already produced the
// same target.
func (t *Transformer) Apply(name string) string {
	target := t.resolve(name)
	if existing, ok := t.seen[target]; ok && existing != name {
		t.collisions = append(t.collisions, Collision{Target: target, First: existing, Second: name})
	} else if !ok {
		t.seen[target] = name
	}
	return target
}

func (t *Transformer) resolve(name string) string {
	if override, ok := t.overrides[name]; ok {
		return override
	}
	if t.template == "" {
		return name
	}
	return placeholder.ReplaceAllStringFunc(t.template, func(match string) string {
		groups := placeholder.FindStringSubmatch(match)
		pattern := groups[1]
		if pattern == "" {
			return name
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return ""
		}
		sub := re.FindStringSubmatch(name)
		if len(sub) < 2 {
			return ""
		}
		return strings.Join(sub[1:], "")
	})
}

// Err returns a types.ErrNameCollision summarizing every collision
// Apply has recorded, or nil if there were none.
func (t *Transformer) Err() error {
	if len(t.collisions) == 0 {
		return nil
	}
	var parts []string
	for _, c := range t.collisions {
		parts = append(parts, c.First+" and "+c.Second+" both map to "+c.Target)
	}
	return types.NewError(types.ErrNameCollision, "name template produced %d collision(s): %s", len(t.collisions), strings.Join(parts, "; "))
}
