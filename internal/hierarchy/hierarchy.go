// Package hierarchy classifies vault paths into the program, course, class,
// module, and lesson tiers of a course vault. Classification is pure string
// arithmetic over path segments: classified paths do not need to exist on
// disk.
package hierarchy

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
)

// ErrOutsideVault is returned when a path does not live under the effective
// vault root.
var ErrOutsideVault = errors.New("hierarchy: path outside vault root")

// Level identifies a named tier of the vault hierarchy.
type Level int

const (
	LevelMain Level = iota
	LevelProgram
	LevelCourse
	LevelClass
	LevelModule
	LevelLesson
	LevelUnknown
)

// String returns the tier name used in template types and metadata keys.
func (l Level) String() string {
	switch l {
	case LevelMain:
		return "main"
	case LevelProgram:
		return "program"
	case LevelCourse:
		return "course"
	case LevelClass:
		return "class"
	case LevelModule:
		return "module"
	case LevelLesson:
		return "lesson"
	default:
		return "unknown"
	}
}

// levelForDepth maps a segment depth below the vault root to its tier.
// Depths beyond the lesson tier are unknown.
func levelForDepth(depth int) Level {
	switch depth {
	case 0:
		return LevelMain
	case 1:
		return LevelProgram
	case 2:
		return LevelCourse
	case 3:
		return LevelClass
	case 4:
		return LevelModule
	case 5:
		return LevelLesson
	default:
		return LevelUnknown
	}
}

// Info records the folder name observed at each hierarchy level of a
// classified path. Levels the path does not reach hold the empty string.
type Info struct {
	Program string
	Course  string
	Class   string
	Module  string
	Lesson  string
}

// Get returns the folder name recorded for the given level.
func (i Info) Get(l Level) string {
	switch l {
	case LevelProgram:
		return i.Program
	case LevelCourse:
		return i.Course
	case LevelClass:
		return i.Class
	case LevelModule:
		return i.Module
	case LevelLesson:
		return i.Lesson
	default:
		return ""
	}
}

// Map returns the level-name to folder-name mapping for all populated
// levels. Empty levels are omitted.
func (i Info) Map() map[string]string {
	out := make(map[string]string, 5)
	for _, l := range []Level{LevelProgram, LevelCourse, LevelClass, LevelModule, LevelLesson} {
		if v := i.Get(l); v != "" {
			out[l.String()] = v
		}
	}
	return out
}

// InfoFromMap builds an Info from a level-name to folder-name mapping, the
// inverse of Map. Unrecognised keys are ignored.
func InfoFromMap(m map[string]string) Info {
	return Info{
		Program: m["program"],
		Course:  m["course"],
		Class:   m["class"],
		Module:  m["module"],
		Lesson:  m["lesson"],
	}
}

// Classification is the result of classifying a single path.
type Classification struct {
	// Depth is the number of directory segments between the effective root
	// and the classified directory; the root itself is depth 0.
	Depth int

	// Level is the tier implied by Depth.
	Level Level

	// IndexType is the template-type selector for the classified directory:
	// the positional type for Depth unless a recognised folder name
	// overrides it.
	IndexType string

	// Info holds the folder names feeding hierarchy metadata injection.
	Info Info
}

// Classifier assigns vault paths to hierarchy tiers relative to a vault
// root. The zero value classifies relative paths against an empty root.
type Classifier struct {
	vaultRoot string
}

// NewClassifier returns a Classifier rooted at vaultRoot. The root may be
// absolute or relative; backslash separators are tolerated.
func NewClassifier(vaultRoot string) *Classifier {
	return &Classifier{vaultRoot: normalize(vaultRoot)}
}

// Root returns the configured vault root in normalized form.
func (c *Classifier) Root() string {
	return c.vaultRoot
}

// Classify classifies p against the configured vault root. An empty p names
// the root itself; a path outside the root returns ErrOutsideVault.
func (c *Classifier) Classify(p string) (*Classification, error) {
	return classify(p, c.vaultRoot)
}

// ClassifyUnder classifies p against an explicit override root. The
// override fully replaces the configured root: a path under the configured
// root but not under the override is outside the vault. An empty override
// falls back to the configured root.
func (c *Classifier) ClassifyUnder(p, root string) (*Classification, error) {
	if root == "" {
		return c.Classify(p)
	}
	return classify(p, normalize(root))
}

func classify(p, root string) (*Classification, error) {
	// An empty path names the vault root itself.
	if strings.TrimSpace(p) == "" {
		return &Classification{Depth: 0, Level: LevelMain, IndexType: LevelMain.String()}, nil
	}

	rel, err := relativize(normalize(p), root)
	if err != nil {
		return nil, err
	}

	segments := splitSegments(rel)

	// A trailing filename classifies as its containing directory.
	if n := len(segments); n > 0 && looksLikeFile(segments[n-1]) {
		segments = segments[:n-1]
	}

	depth := len(segments)
	level := levelForDepth(depth)
	cls := &Classification{Depth: depth, Level: level, IndexType: level.String()}

	if depth >= 1 {
		cls.Info.Program = segments[0]
	}
	if depth >= 2 {
		cls.Info.Course = segments[1]
	}
	if depth >= 3 {
		cls.Info.Class = segments[2]
	}
	if depth >= 4 {
		cls.Info.Module = segments[3]
	}
	if depth == 5 {
		cls.Info.Lesson = segments[4]
	}

	// Recognised folder names select the template type without changing
	// depth or levels.
	if depth > 0 {
		cls.IndexType = overrideIndexType(segments[depth-1], cls.IndexType)
	}
	return cls, nil
}

// looksLikeFile reports whether a path segment names a file rather than a
// directory: it carries an alphanumeric extension with at least one letter.
// Dotted directory names like "Module 1.2" or "Prof. Smith" stay directories.
func looksLikeFile(segment string) bool {
	ext := path.Ext(segment)
	if len(ext) < 2 {
		return false
	}
	hasLetter := false
	for _, r := range ext[1:] {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
		default:
			return false
		}
	}
	return hasLetter
}

// overrideIndexType maps recognised folder names to a forced template-type
// selector. Lesson markers take precedence over module markers when a name
// matches both.
func overrideIndexType(folder, fallback string) string {
	name := strings.ToLower(folder)
	switch {
	case strings.Contains(name, "lesson"):
		return LevelLesson.String()
	case strings.Contains(name, "module"), strings.Contains(name, "case stud"):
		return LevelModule.String()
	}
	return fallback
}

// normalize rewrites p with forward slashes and collapses redundant
// separators and dot segments.
func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return ""
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return ""
	}
	return strings.TrimSuffix(cleaned, "/")
}

// relativize strips the effective root from p. Accepted forms, in order:
// p equal to or under the root; a relative p prefixed with the root's last
// segment (callers often hand vault-prefixed relative paths against an
// absolute root); a bare relative p, taken as already root-relative.
// Anything else is outside the vault.
func relativize(p, root string) (string, error) {
	if root == "" {
		return strings.TrimPrefix(p, "/"), nil
	}
	if p == root {
		return "", nil
	}
	if strings.HasPrefix(p, root+"/") {
		return p[len(root)+1:], nil
	}
	if !isAbs(p) {
		base := path.Base(root)
		if p == base {
			return "", nil
		}
		if strings.HasPrefix(p, base+"/") {
			return p[len(base)+1:], nil
		}
		return p, nil
	}
	return "", fmt.Errorf("hierarchy: %q not under root %q: %w", p, root, ErrOutsideVault)
}

// isAbs reports whether p is absolute, including drive-letter forms.
func isAbs(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 2 && p[1] == ':'
}

func splitSegments(rel string) []string {
	if rel == "" {
		return nil
	}
	parts := strings.Split(rel, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}
