// Package nametemplate implements the name transformer: the rules a
// migrate or restore-under-new-names operation applies to rename items
// as they cross from one backup/controller to another.
//
// Two mechanisms compose, applied in order:
//
//  1. An explicit old-to-new map, matched by exact name, always wins.
//  2. A template string applied to any name the explicit map did not
//     match. "{name}" substitutes the original name verbatim;
//     "{name <regex>}" substitutes the text matched by every capture
//     group of regex against the original name, concatenated in order
//     (an empty string when regex does not match), so "{name (\\d+)}"
//     on "vedge-template-12" yields just "12" in that position.
//
// Applying a template is expected to sometimes collide two distinct
// source names onto the same target name; Transformer surfaces that as
// a types.ErrNameCollision rather than silently overwriting one item
// with another.
package nametemplate
