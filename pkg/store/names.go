package store

import (
	"fmt"
	"regexp"
)

var unsafeNameChar = regexp.MustCompile(`[^A-Za-z0-9 _-]`)

// safeName replaces any character outside [A-Za-z0-9 _-] with an
// underscore, so an item name containing a controller-allowed but
// filesystem-hostile character (e.g. "/", ":") never escapes the
// backup's kind directory.
func safeName(name string) string {
	if name == "" {
		return "_"
	}
	return unsafeNameChar.ReplaceAllString(name, "_")
}

// bodyFileName returns the file name an item's body is written under.
// Two items of the same kind can legitimately share a filesystem-safe
// name (e.g. "My List" and "My/List" both sanitize to "My_List"); when
// that happens the second and later items fall back to
// "<safe-name>_<id>" so no write ever silently clobbers another item.
func bodyFileName(name, id string, taken map[string]bool) string {
	base := safeName(name)
	candidate := base + ".json"
	if !taken[candidate] {
		return candidate
	}
	return fmt.Sprintf("%s_%s.json", base, id)
}
