package resolve

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/othala/internal/vault"
	"github.com/starford/othala/pkg/resolver"
)

func testVault(t *testing.T) (string, vault.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := vault.NewFS(root, []string{".pdf", ".mp4"})
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

func TestFriendlyTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a/b/01_intro-week.md", "01 Intro Week"},
		{"lecture.pdf", "Lecture"},
		{"Weekly Plan.md", "Weekly Plan"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FriendlyTitle(tt.path); got != tt.want {
			t.Errorf("FriendlyTitle(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestTimestampResolverMissingFile(t *testing.T) {
	_, store := testVault(t)
	ts := NewTimestampResolver(store)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	v, err := ts.Resolve("date-created", &resolver.Context{Path: "no/such.md", Now: now})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != "2026-03-14" {
		t.Fatalf("got %v, want enrichment date for a missing file", v)
	}
}

func TestTimestampResolverExistingFile(t *testing.T) {
	root, store := testVault(t)
	path := filepath.Join(root, "note.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mtime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	want := info.ModTime().Format("2006-01-02")

	ts := NewTimestampResolver(store)
	v, err := ts.Resolve("date-modified", &resolver.Context{Path: "note.md"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != want {
		t.Fatalf("got %v, want %v", v, want)
	}
}

func TestNoteIDResolver(t *testing.T) {
	var r NoteIDResolver

	a, err := r.Resolve("note-id", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := r.Resolve("note-id", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a == b {
		t.Fatalf("two ids are equal: %v", a)
	}
	if s, ok := a.(string); !ok || len(s) != 36 {
		t.Fatalf("id %v is not a UUID string", a)
	}
}

func TestPDFResolver(t *testing.T) {
	root, store := testVault(t)
	if err := os.WriteFile(filepath.Join(root, "slides.pdf"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := NewPDFResolver(store)
	ctx := &resolver.Context{Path: "slides.pdf"}

	v, err := p.Resolve("source-file", ctx)
	if err != nil {
		t.Fatalf("source-file: %v", err)
	}
	if v != "slides.pdf" {
		t.Fatalf("source-file = %v, want slides.pdf", v)
	}

	v, err = p.Resolve("file-size", ctx)
	if err != nil {
		t.Fatalf("file-size: %v", err)
	}
	if v != int64(5) {
		t.Fatalf("file-size = %v, want 5", v)
	}

	// Unhandled fields resolve as absent without error.
	v, err = p.Resolve("unrelated", ctx)
	if err != nil || v != nil {
		t.Fatalf("unrelated field = (%v, %v), want (nil, nil)", v, err)
	}
}

func TestPDFResolverFileType(t *testing.T) {
	g := NewRegistry(testDoc(t), testLogger())
	_, store := testVault(t)
	RegisterBuiltins(g, store)

	if _, ok := g.GetFileTypeResolver("pdf"); !ok {
		t.Fatal("pdf resolver not indexed by file type")
	}
	if _, ok := g.GetFileTypeResolver("mp4"); !ok {
		t.Fatal("video resolver not indexed by file type")
	}
	for _, name := range []string{"date-created", "date-modified", "note-id", "friendly-title"} {
		if _, ok := g.Get(name); !ok {
			t.Errorf("builtin %q not registered", name)
		}
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
  "streams": [
    {"codec_type": "audio"},
    {"codec_type": "video", "width": 1920, "height": 1080}
  ],
  "format": {"duration": "3725.840000"}
}`)
	probe, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if got := probe.duration(); got != "01:02:05" {
		t.Errorf("duration = %q, want 01:02:05", got)
	}
	if got := probe.resolution(); got != "1920x1080" {
		t.Errorf("resolution = %q, want 1920x1080", got)
	}
}

func TestParseProbeEmpty(t *testing.T) {
	probe, err := parseProbe([]byte(`{}`))
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if got := probe.duration(); got != "" {
		t.Errorf("duration = %q, want empty", got)
	}
	if got := probe.resolution(); got != "" {
		t.Errorf("resolution = %q, want empty", got)
	}
}
