package resolve

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/vault"
	"github.com/starford/othala/pkg/resolver"
)

// dateLayout is the format used by the timestamp resolvers.
const dateLayout = "2006-01-02"

// RegisterBuiltins installs the standard resolver set against the given
// vault: timestamps, note identifiers, friendly titles, and the PDF and
// video file-type resolvers.
func RegisterBuiltins(g *Registry, store vault.Provider) {
	ts := NewTimestampResolver(store)
	g.Register("date-created", ts)
	g.Register("date-modified", ts)
	g.Register("note-id", NoteIDResolver{})
	g.Register("friendly-title", TitleResolver{})
	g.Register("pdf", NewPDFResolver(store))
	g.Register("video", NewVideoResolver(store))
}

// TimestampResolver resolves date-created and date-modified from the file's
// modification time, falling back to the enrichment timestamp for files
// that do not exist yet. Once written, the non-destructive merge keeps
// date-created stable across reprocessing.
type TimestampResolver struct {
	store vault.Provider
}

// NewTimestampResolver returns a TimestampResolver over the given vault.
func NewTimestampResolver(store vault.Provider) TimestampResolver {
	return TimestampResolver{store: store}
}

// Resolve implements resolver.Resolver.
func (t TimestampResolver) Resolve(field string, ctx *resolver.Context) (any, error) {
	_ = field
	if ctx != nil && ctx.Path != "" {
		if f, err := t.store.Stat(ctx.Path); err == nil {
			return f.ModTime.Format(dateLayout), nil
		}
	}
	return ctx.Timestamp().Format(dateLayout), nil
}

// NoteIDResolver issues a fresh UUID per resolved field.
type NoteIDResolver struct{}

// Resolve implements resolver.Resolver.
func (NoteIDResolver) Resolve(string, *resolver.Context) (any, error) {
	return uuid.NewString(), nil
}

// TitleResolver derives a human-readable title from the context path's base
// name: extension stripped, separators spaced, words capitalised.
type TitleResolver struct{}

// Resolve implements resolver.Resolver.
func (TitleResolver) Resolve(_ string, ctx *resolver.Context) (any, error) {
	if ctx == nil || ctx.Path == "" {
		return nil, nil
	}
	title := FriendlyTitle(ctx.Path)
	if title == "" {
		return nil, nil
	}
	return title, nil
}

// FriendlyTitle converts a file path into a display title: "01_intro-week.md"
// becomes "01 Intro Week".
func FriendlyTitle(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)

	words := strings.Fields(base)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// PDFResolver supplies source metadata for pdf-reference notes. The context
// path is expected to name the referenced PDF itself.
type PDFResolver struct {
	store vault.Provider
}

// NewPDFResolver returns a PDFResolver over the given vault.
func NewPDFResolver(store vault.Provider) PDFResolver {
	return PDFResolver{store: store}
}

// FileType implements resolver.FileTyped.
func (PDFResolver) FileType() string { return "pdf" }

// Resolve implements resolver.Resolver.
func (p PDFResolver) Resolve(field string, ctx *resolver.Context) (any, error) {
	switch field {
	case "source-file":
		return sourceFile(ctx), nil
	case "file-size":
		return fileSize(p.store, ctx)
	}
	return nil, nil
}

func sourceFile(ctx *resolver.Context) any {
	if ctx == nil || ctx.Path == "" {
		return nil
	}
	return filepath.ToSlash(ctx.Path)
}

func fileSize(store vault.Provider, ctx *resolver.Context) (any, error) {
	if ctx == nil || ctx.Path == "" {
		return nil, nil
	}
	f, err := store.Stat(ctx.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve: stat %s: %w", ctx.Path, err)
	}
	return f.Size, nil
}
