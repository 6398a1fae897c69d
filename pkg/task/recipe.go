package task

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
	"github.com/cisco-sastre/sastre-engine/pkg/nametemplate"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"gopkg.in/yaml.v3"
)

// Recipe is a declarative rename/field-rewrite document driving Migrate
// (source-version to target-version field translation) and Transform
// (rename or copy-and-rename). Both operations are "read a snapshot,
// write a transformed snapshot" shaped, so they share one format.
type Recipe struct {
	Tag          string            `yaml:"tag"`
	NameTemplate *NameTemplateSpec `yaml:"name_template,omitempty"`
	NameMap      map[string]string `yaml:"name_map,omitempty"`
	FieldRecipes []FieldRecipe     `yaml:"field_recipes,omitempty"`

	// Copy, when set, tells Transform to duplicate each matched item
	// under its new name (assigning it a fresh id) rather than renaming
	// the original in place. The original item is carried through to the
	// output workdir unchanged alongside its copy.
	Copy bool `yaml:"copy,omitempty"`

	// RedirectReferences, meaningful only when Copy is set, tells
	// Transform to point every other item's reference to a copied item at
	// the new copy instead of leaving it pointed at the original. Ignored
	// when Copy is false, since a plain rename has only one surviving
	// item for references to resolve to.
	RedirectReferences bool `yaml:"redirect_references,omitempty"`
}

// NameTemplateSpec is the YAML form of a nametemplate placeholder
// template, split into the two halves the original recipe format
// names: regex selects which names this template governs (informational
// only; matching itself happens per-placeholder inside NameRegex), and
// NameRegex is the literal `{name <regex>}` template string.
type NameTemplateSpec struct {
	Regex     string `yaml:"regex"`
	NameRegex string `yaml:"name_regex"`
}

// FieldRecipe rewrites a literal value at Path inside every item of
// Kind whose current value equals From, setting it to To. This covers
// the per-kind per-field value translations a cross-controller-version
// migration needs (e.g. a renamed enum value or a moved setting) without
// requiring kind-specific Go code, consistent with the catalog's own
// declarative, table-driven approach to per-kind behavior.
type FieldRecipe struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadRecipe parses and validates raw YAML against cat, the catalog the
// resulting recipe will be applied with.
func LoadRecipe(raw []byte, cat *catalog.Catalog) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, types.WrapError(types.ErrInvalidRecipe, err, "parse recipe")
	}
	if r.Tag == "" {
		return nil, types.NewError(types.ErrInvalidRecipe, "recipe must name a tag")
	}
	if _, err := cat.ExpandTags([]string{r.Tag}); err != nil {
		return nil, types.WrapError(types.ErrInvalidTag, err, "recipe tag %q", r.Tag)
	}
	if r.NameTemplate != nil {
		if _, err := regexp.Compile(r.NameTemplate.Regex); r.NameTemplate.Regex != "" && err != nil {
			return nil, types.WrapError(types.ErrInvalidRecipe, err, "recipe name_template.regex")
		}
	}
	for _, fr := range r.FieldRecipes {
		if fr.Kind == "" || fr.Path == "" {
			return nil, types.NewError(types.ErrInvalidRecipe, "field_recipes entries require kind and path")
		}
	}
	return &r, nil
}

// Transformer builds the nametemplate.Transformer this recipe implies:
// the explicit name map always wins, falling back to the name-template
// string when set.
func (r *Recipe) Transformer() *nametemplate.Transformer {
	template := ""
	if r.NameTemplate != nil {
		template = r.NameTemplate.NameRegex
	}
	return nametemplate.New(r.NameMap, template)
}

// ApplyFieldRecipes rewrites body's matching top-level fields per this
// recipe's FieldRecipes for kind. Only literal top-level string fields
// are addressed by Path, matching the catalog's own NamePath convention
// (see catalog.fieldPath) — none of the current per-kind field recipes
// this tool ships need nested paths.
func (r *Recipe) ApplyFieldRecipes(kind string, body json.RawMessage) (json.RawMessage, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(body, &generic); err != nil {
		return body, nil
	}
	changed := false
	for _, fr := range r.FieldRecipes {
		if fr.Kind != kind {
			continue
		}
		raw, ok := generic[fr.Path]
		if !ok {
			continue
		}
		var current string
		if err := json.Unmarshal(raw, &current); err != nil {
			continue
		}
		if current != fr.From {
			continue
		}
		encoded, err := json.Marshal(fr.To)
		if err != nil {
			return body, fmt.Errorf("encode field recipe value for %s.%s: %w", kind, fr.Path, err)
		}
		generic[fr.Path] = encoded
		changed = true
	}
	if !changed {
		return body, nil
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return body, fmt.Errorf("re-encode %s body after field recipe: %w", kind, err)
	}
	return out, nil
}
