package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/catalog"
	"github.com/starford/othala/internal/enrich"
	"github.com/starford/othala/internal/hierarchy"
	"github.com/starford/othala/internal/pipeline"
	"github.com/starford/othala/internal/resolve"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/internal/testutil"
	"github.com/starford/othala/internal/vault"
)

// watcherTestEnv sets up a vault dir, pipeline service, and catalog for
// watcher tests.
func watcherTestEnv(t *testing.T) (string, *pipeline.Service, *catalog.DB, vault.Provider) {
	t.Helper()
	vaultDir, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	doc := schema.Default()
	logger := testutil.Logger()

	registry := resolve.NewRegistry(doc, logger)
	resolve.RegisterBuiltins(registry, store)

	classifier := hierarchy.NewClassifier(vaultDir)
	enricher := enrich.New(doc, registry, logger)
	svc := pipeline.New(store, db, classifier, enricher, doc, logger)
	return vaultDir, svc, db, store
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcherProcessesNewNote(t *testing.T) {
	vaultDir, svc, db, store := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, svc, store, vaultDir, testutil.Logger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.Checksum("new.md")
		return cs != ""
	}, "new note not processed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md callback")
}

func TestWatcherNewDirWatched(t *testing.T) {
	vaultDir, svc, db, store := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, store, vaultDir, testutil.Logger(), nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(vaultDir, "Program A")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.Checksum("Program A/deep.md")
		return cs != ""
	}, "note in new subdir not processed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		entry, err := db.Get("Program A/deep.md")
		return err == nil && entry.Levels.Program == "Program A"
	}, "note in new subdir not classified")
}

func TestWatcherGeneratesReferenceForNewMedia(t *testing.T) {
	vaultDir, svc, _, store := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, store, vaultDir, testutil.Logger(), nil)

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(vaultDir, "slides.pdf"), []byte("%PDF-1.4"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := os.Stat(filepath.Join(vaultDir, "slides.md"))
		return err == nil
	}, "reference note not generated for new media file")
}

func TestWatcherRemovalDropsEntry(t *testing.T) {
	vaultDir, svc, db, store := watcherTestEnv(t)

	testutil.WriteFile(t, vaultDir, "del.md", "# Delete Me\n")
	if _, err := svc.ProcessNote(context.Background(), "del.md"); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.Checksum("del.md"); cs == "" {
		t.Fatal("precondition: del.md not cataloged")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, store, vaultDir, testutil.Logger(), nil)

	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.Get("del.md")
		return errors.Is(err, apperr.ErrNotFound)
	}, "deleted note still cataloged")
}

func TestWatcherMediaRemovalSweepsReference(t *testing.T) {
	vaultDir, svc, db, store := watcherTestEnv(t)

	testutil.WriteFile(t, vaultDir, "deck.pdf", "%PDF-1.4")
	if _, err := svc.ProcessNote(context.Background(), "deck.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, "deck.md")); err != nil {
		t.Fatal("precondition: reference note missing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, store, vaultDir, testutil.Logger(), nil)

	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(vaultDir, "deck.pdf"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, statErr := os.Stat(filepath.Join(vaultDir, "deck.md"))
		if !os.IsNotExist(statErr) {
			return false
		}
		_, getErr := db.Get("deck.md")
		return errors.Is(getErr, apperr.ErrNotFound)
	}, "reference note not swept after media removal")
}

func TestWatcherRenameReconciles(t *testing.T) {
	vaultDir, svc, db, store := watcherTestEnv(t)

	testutil.WriteFile(t, vaultDir, "old.md", "# Old\n")
	if _, err := svc.ProcessNote(context.Background(), "old.md"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, store, vaultDir, testutil.Logger(), nil)

	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "new.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		if _, err := db.Get("old.md"); !errors.Is(err, apperr.ErrNotFound) {
			return false
		}
		cs, _ := db.Checksum("new.md")
		return cs != ""
	}, "rename did not move the catalog entry")
}
