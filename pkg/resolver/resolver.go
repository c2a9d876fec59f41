// Package resolver defines the contract between the enrichment engine and
// field-value resolvers, including resolvers compiled as Go plugins.
package resolver

import "time"

// NewResolversSymbol is the symbol a resolver plugin must export: a
// func() []Resolver returning the resolvers the plugin contributes.
const NewResolversSymbol = "NewResolvers"

// Context carries the inputs available to a resolver at enrichment time.
// Every field is optional; resolvers must tolerate a nil Context.
type Context struct {
	// Path is the vault-relative path of the file being enriched.
	Path string

	// TemplateType is the canonical template type of the note.
	TemplateType string

	// Levels maps hierarchy level names (program, course, class, module,
	// lesson) to folder names. Levels that do not exist for the path are
	// absent from the map.
	Levels map[string]string

	// Metadata is a read-only snapshot of the metadata assembled so far.
	Metadata map[string]any

	// Now is the enrichment timestamp.
	Now time.Time
}

// Timestamp returns Now, falling back to the wall clock when the context is
// nil or carries no timestamp.
func (c *Context) Timestamp() time.Time {
	if c == nil || c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// Level returns the folder name recorded for the named hierarchy level, or
// the empty string when the level is absent.
func (c *Context) Level(name string) string {
	if c == nil {
		return ""
	}
	return c.Levels[name]
}

// Resolver computes a field value at enrichment time instead of a static
// schema default. Returning a nil value with a nil error means the resolver
// has no value for the field.
type Resolver interface {
	Resolve(field string, ctx *Context) (any, error)
}

// FileTyped marks a resolver specialised for one content file type, such as
// "pdf" or "mp4". A FileTyped resolver is additionally indexed under its
// file type when registered.
type FileTyped interface {
	FileType() string
}
