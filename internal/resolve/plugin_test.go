package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/pkg/resolver"
)

func TestLoadFromDirectoryMissingDir(t *testing.T) {
	g := NewRegistry(testDoc(t), testLogger())

	if err := g.LoadFromDirectory(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing directory should be a no-op, got %v", err)
	}
}

func TestLoadFromDirectorySkipsBadBinaries(t *testing.T) {
	dir := t.TempDir()
	// Not a real shared object: plugin.Open must fail and the scan continue.
	for _, name := range []string{"broken.so", "also-broken.so"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("not an ELF"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	// Non-.so files are not even attempted.
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("docs"), 0o644); err != nil {
		t.Fatalf("write README: %v", err)
	}

	g := NewRegistry(testDoc(t), testLogger())
	if err := g.LoadFromDirectory(dir); err != nil {
		t.Fatalf("corrupt plugins should be skipped, got %v", err)
	}
	if names := g.Names(); len(names) != 0 {
		t.Fatalf("registered %v from corrupt plugins", names)
	}
}

// The happy path past plugin.Open is covered here through registerFactory
// rather than a real .so: plugin.Open only accepts binaries built with the
// toolchain and build flags of the host process, so a shared object built
// during the test mismatches -race and coverage runs. Loading a genuine
// plugin is exercised manually via the resolvers.plugin_dir config.
func TestRegisterFactory(t *testing.T) {
	g := NewRegistry(testDoc(t), testLogger())

	factory := func() []resolver.Resolver {
		return []resolver.Resolver{
			fakeResolver{value: "a"},
			nil, // must be skipped
			fakeTypedResolver{fileType: "pdf"},
		}
	}
	g.registerFactory(factory, "test.so")

	if _, ok := g.Get("fakeResolver"); !ok {
		t.Fatal("factory resolver not registered under its type name")
	}
	if _, ok := g.GetFileTypeResolver("pdf"); !ok {
		t.Fatal("file-typed factory resolver not indexed by file type")
	}
	if got := len(g.Names()); got != 2 {
		t.Fatalf("registered %d resolvers, want 2", got)
	}
}

func TestQualifiedName(t *testing.T) {
	want := "github.com/starford/othala/internal/resolve.fakeResolver"
	if got := qualifiedName(fakeResolver{}); got != want {
		t.Fatalf("qualifiedName = %q, want %q", got, want)
	}
	// Pointers unwrap to the element type.
	if got := qualifiedName(&fakeResolver{}); got != want {
		t.Fatalf("qualifiedName(ptr) = %q, want %q", got, want)
	}
}
