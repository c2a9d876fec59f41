package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/frontmatter"
	"github.com/starford/othala/internal/vault"
)

// Summary aggregates the outcome of a vault-wide pass.
type Summary struct {
	Processed int `json:"processed"`
	Changed   int `json:"changed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Findings  int `json:"findings"`
}

// ProcessVault walks dir and brings every note and media reference up to
// date with bounded parallelism:
//   - media files get reference notes generated or refreshed
//   - new and changed notes are enriched and rewritten
//   - notes whose checksum matches the catalog are skipped
//   - stale catalog entries and orphaned reference notes are swept
//
// Individual file failures are logged and counted, never fatal; only
// context cancellation aborts the pass.
func (s *Service) ProcessVault(ctx context.Context, dir string) (*Summary, error) {
	files, err := s.store.List(dir)
	if err != nil {
		return nil, err
	}
	checksums, err := s.db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var notes, media []vault.File
	for _, f := range files {
		switch f.Kind {
		case vault.KindNote:
			notes = append(notes, f)
		case vault.KindMedia:
			media = append(media, f)
		}
	}

	summary := &Summary{}
	var mu sync.Mutex

	run := func(batch []vault.File, skipUnchanged bool) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for _, f := range batch {
			if gctx.Err() != nil {
				break
			}
			if skipUnchanged && f.Checksum != "" && checksums[f.Path] == f.Checksum {
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				continue
			}
			path := f.Path
			g.Go(func() error {
				res, err := s.ProcessNote(gctx, path)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					summary.Failed++
					s.logger.Warn("pipeline: process failed",
						slog.String("path", path),
						slog.String("error", err.Error()))
					return nil
				}
				summary.Processed++
				if res.Changed {
					summary.Changed++
				}
				if len(res.MissingFields)+len(res.ReservedTags) > 0 {
					summary.Findings++
				}
				return nil
			})
		}
		return g.Wait()
	}

	// Media first, so reference notes exist before the note pass.
	if err := run(media, false); err != nil {
		return summary, err
	}
	if err := run(notes, true); err != nil {
		return summary, err
	}

	if !s.dryRun {
		if err := s.Sweep(ctx); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// Sweep removes catalog entries whose files vanished and deletes generated
// reference notes whose source media is gone.
func (s *Service) Sweep(ctx context.Context) error {
	files, err := s.store.List("")
	if err != nil {
		return err
	}
	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Path] = struct{}{}
	}

	catalogued, err := s.db.AllPaths()
	if err != nil {
		return err
	}
	for path := range catalogued {
		if _, ok := disk[path]; ok {
			continue
		}
		if err := s.db.Delete(path); err != nil {
			s.logger.Warn("pipeline: sweep delete failed",
				slog.String("path", path), slog.String("error", err.Error()))
		} else {
			s.logger.Debug("pipeline: removed stale entry", slog.String("path", path))
		}
	}

	return s.sweepOrphanedReferences(ctx, disk)
}

// sweepOrphanedReferences deletes auto-generated reference notes whose
// source media no longer exists. Reference types are recognised by their
// source-file schema field, so only their notes are read back.
func (s *Service) sweepOrphanedReferences(ctx context.Context, disk map[string]struct{}) error {
	for _, typeName := range s.doc.TypeNames() {
		tt, ok := s.doc.Type(typeName)
		if !ok {
			continue
		}
		if _, ok := tt.Fields["source-file"]; !ok {
			continue
		}
		entries, err := s.db.ListByType(typeName, 0)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, onDisk := disk[e.Path]; !onDisk {
				continue
			}
			data, err := s.store.Read(e.Path)
			if err != nil {
				continue
			}
			n, err := frontmatter.Parse(data)
			if err != nil || n.Fields == nil {
				continue
			}
			if state, _ := n.Fields.Get("auto-generated-state"); state != "auto" {
				continue
			}
			src, _ := n.Fields.Get("source-file")
			srcPath, _ := src.(string)
			if srcPath == "" {
				continue
			}
			if _, onDisk := disk[filepath.ToSlash(srcPath)]; onDisk {
				continue
			}
			if err := s.store.Delete(e.Path); err != nil {
				s.logger.Warn("pipeline: orphan cleanup failed",
					slog.String("path", e.Path), slog.String("error", err.Error()))
				continue
			}
			_ = s.db.Delete(e.Path)
			s.logger.Info("pipeline: removed orphaned reference note",
				slog.String("path", e.Path), slog.String("source", srcPath))
		}
	}
	return nil
}

// HandleRemoval drops the catalog entry for a deleted file. A removed
// media file also takes its auto-generated reference note with it.
func (s *Service) HandleRemoval(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Delete(path); err != nil {
		return err
	}
	if s.store.Kind(path) != vault.KindMedia {
		return nil
	}
	refPath := referencePath(path)
	data, err := s.store.Read(refPath)
	if err != nil {
		return nil
	}
	n, err := frontmatter.Parse(data)
	if err != nil || n.Fields == nil {
		return nil
	}
	if state, _ := n.Fields.Get("auto-generated-state"); state != "auto" {
		return nil
	}
	if err := s.store.Delete(refPath); err != nil {
		return err
	}
	s.logger.Info("pipeline: removed reference note for deleted media",
		slog.String("path", refPath), slog.String("source", path))
	return s.db.Delete(refPath)
}

// Lint renders every note under dir without writing anything and returns
// the results that carry audit findings: required fields still missing
// after enrichment, or reserved tags misused in the tags list.
func (s *Service) Lint(ctx context.Context, dir string) ([]Result, error) {
	files, err := s.store.List(dir)
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if f.Kind != vault.KindNote {
			continue
		}
		data, err := s.store.Read(f.Path)
		if err != nil {
			s.logger.Warn("pipeline: lint read failed",
				slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		r, err := s.render(f.Path, data)
		if err != nil {
			s.logger.Warn("pipeline: lint render failed",
				slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if len(r.result.MissingFields)+len(r.result.ReservedTags) > 0 {
			out = append(out, r.result)
		}
	}
	return out, nil
}
