package catalog

import (
	"sort"
	"strings"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// TagAll expands to every catalog kind, the WAN edge certificate index
// (certificate.wan_edge) among them; backup additionally treats each
// device's running configuration, which is not a catalog kind, as part
// of "all" when requested.
const TagAll = "all"

// knownTags is the closed set of family selectors. A tag not in this set,
// and not itself a kind name, is rejected with ErrInvalidTag.
var knownTags = map[string]bool{
	TagAll:                true,
	"policy_customapp":    true,
	"policy_definition":   true,
	"policy_list":         true,
	"policy_profile":      true,
	"policy_security":     true,
	"policy_vedge":        true,
	"policy_voice":        true,
	"policy_vsmart":       true,
	"template_device":     true,
	"template_feature":    true,
	"config_group":        true,
	"feature_profile":     true,
}

// ExpandTags expands a set of tags to the set of kinds they select,
// filtered to kinds present in this catalog. The result is de-duplicated
// and sorted for reproducibility. An unknown tag (one that is neither a
// registered kind nor in knownTags) is rejected.
func (c *Catalog) ExpandTags(tags []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, tag := range tags {
		if tag == TagAll {
			for _, k := range c.order {
				seen[k] = true
			}
			continue
		}
		if _, isKind := c.byKind[tag]; isKind {
			seen[tag] = true
			continue
		}
		if !knownTags[tag] {
			return nil, types.NewError(types.ErrInvalidTag, "unknown tag %q", tag)
		}
		matched := false
		for _, k := range c.order {
			if kindMatchesTag(c.byKind[k], tag) {
				seen[k] = true
				matched = true
			}
		}
		_ = matched // a tag with zero matching kinds under the active version filter is not an error
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func kindMatchesTag(d KindDescriptor, tag string) bool {
	if strings.HasPrefix(d.Kind, tag+".") {
		return true
	}
	if d.Kind == tag {
		return true
	}
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
