// Package pipeline orchestrates note processing: classification, metadata
// enrichment, frontmatter rewriting, and catalog upkeep.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/catalog"
	"github.com/starford/othala/internal/enrich"
	"github.com/starford/othala/internal/frontmatter"
	"github.com/starford/othala/internal/hierarchy"
	"github.com/starford/othala/internal/note"
	"github.com/starford/othala/internal/resolve"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/internal/vault"
)

// defaultWorkers bounds vault-wide processing parallelism.
const defaultWorkers = 4

// Result summarises the processing of one file.
type Result struct {
	Path          string   `json:"path"`
	TemplateType  string   `json:"template_type"`
	Changed       bool     `json:"changed"`
	MissingFields []string `json:"missing_fields,omitempty"`
	ReservedTags  []string `json:"reserved_tags,omitempty"`
}

// Service coordinates the vault, classifier, enricher, and catalog.
type Service struct {
	store      vault.Provider
	db         catalog.NoteCatalog
	classifier *hierarchy.Classifier
	enricher   *enrich.Enricher
	doc        *schema.Document
	logger     *slog.Logger
	dryRun     bool
	workers    int
}

// New creates a processing service.
func New(store vault.Provider, db catalog.NoteCatalog, classifier *hierarchy.Classifier,
	enricher *enrich.Enricher, doc *schema.Document, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		db:         db,
		classifier: classifier,
		enricher:   enricher,
		doc:        doc,
		logger:     logger,
		workers:    defaultWorkers,
	}
}

// SetDryRun makes the service render and audit without writing files or
// touching the catalog.
func (s *Service) SetDryRun(on bool) {
	s.dryRun = on
}

// SetWorkers bounds the parallelism of vault-wide passes.
func (s *Service) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// ProcessNote classifies and enriches a single file, rewrites it when the
// enrichment added fields, and records the outcome in the catalog. Media
// paths are routed to reference-note generation.
func (s *Service) ProcessNote(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch s.store.Kind(path) {
	case vault.KindNote:
	case vault.KindMedia:
		return s.GenerateReference(ctx, path)
	default:
		return nil, fmt.Errorf("pipeline: %s: %w", path, apperr.ErrNotManaged)
	}

	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("pipeline: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	// The watcher sees the pipeline's own rewrites as fresh Write events;
	// content already catalogued at this checksum needs no second pass.
	if cs, csErr := s.db.Checksum(path); csErr == nil && cs != "" && cs == vault.Checksum(data) {
		s.logger.Debug("pipeline: note unchanged since last pass", slog.String("path", path))
		if e, getErr := s.db.Get(path); getErr == nil {
			return &Result{
				Path:          path,
				TemplateType:  e.TemplateType,
				MissingFields: e.MissingFields,
				ReservedTags:  e.ReservedTags,
			}, nil
		}
		return &Result{Path: path}, nil
	}
	r, err := s.render(path, data)
	if err != nil {
		return nil, err
	}
	return s.persist(r)
}

// GenerateReference ensures the media file at mediaPath has an up-to-date
// reference note beside it. An existing note is re-enriched without losing
// hand-edited fields; a missing one is created with a stub body embedding
// the media.
func (s *Service) GenerateReference(ctx context.Context, mediaPath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.store.Kind(mediaPath) != vault.KindMedia {
		return nil, fmt.Errorf("pipeline: %s: %w", mediaPath, apperr.ErrNotManaged)
	}
	cls, err := s.classifier.Classify(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: classify %s: %w", mediaPath, err)
	}

	refPath := referencePath(mediaPath)
	noteType := mediaAlias(mediaPath)
	fields := note.NewMetadata()
	body := defaultReferenceBody(mediaPath)

	var existing []byte
	if data, err := s.store.Read(refPath); err == nil {
		existing = data
		n, err := frontmatter.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("pipeline: parse %s: %w", refPath, err)
		}
		if n.Fields != nil {
			fields = n.Fields
		}
		body = n.Body
		if declared := n.TemplateType(); declared != "" {
			noteType = declared
		}
	}

	// Enrichment runs against the media path so file-type resolvers stat
	// and probe the media itself; source-file lands as the media path.
	s.enricher.Enrich(fields, mediaPath, noteType, cls.Info)

	content, err := frontmatter.Compose(fields, body)
	if err != nil {
		return nil, fmt.Errorf("pipeline: compose %s: %w", refPath, err)
	}
	canonical := s.doc.Canonical(noteType)
	missing, reserved := s.audit(canonical, fields)
	title := fieldTitle(fields)
	if title == "" {
		title = resolve.FriendlyTitle(mediaPath)
	}

	r := &rendered{
		result: Result{
			Path:          refPath,
			TemplateType:  canonical,
			Changed:       !bytes.Equal(content, existing),
			MissingFields: missing,
			ReservedTags:  reserved,
		},
		entry:   buildEntry(refPath, canonical, title, cls.Info, content, missing, reserved),
		content: content,
	}
	return s.persist(r)
}

// rendered is the outcome of processing a note in memory, before any
// writes.
type rendered struct {
	result  Result
	entry   catalog.Entry
	content []byte
}

// render parses, classifies, and enriches one note without touching disk.
// The frontmatter template-type wins over the positional index type.
func (s *Service) render(path string, data []byte) (*rendered, error) {
	n, err := frontmatter.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse %s: %w", path, err)
	}
	n.Path = path

	cls, err := s.classifier.Classify(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: classify %s: %w", path, err)
	}
	noteType := n.TemplateType()
	if noteType == "" {
		noteType = cls.IndexType
	}

	fields := n.Fields
	if fields == nil {
		fields = note.NewMetadata()
	}
	s.enricher.Enrich(fields, path, noteType, cls.Info)

	content, err := frontmatter.Compose(fields, n.Body)
	if err != nil {
		return nil, fmt.Errorf("pipeline: compose %s: %w", path, err)
	}
	canonical := s.doc.Canonical(noteType)
	missing, reserved := s.audit(canonical, fields)
	title := n.Title
	if title == "" {
		title = fieldTitle(fields)
	}

	return &rendered{
		result: Result{
			Path:          path,
			TemplateType:  canonical,
			Changed:       !bytes.Equal(content, data),
			MissingFields: missing,
			ReservedTags:  reserved,
		},
		entry:   buildEntry(path, canonical, title, cls.Info, content, missing, reserved),
		content: content,
	}, nil
}

// persist applies a rendered outcome: file write when changed, catalog
// upsert always. Dry-run skips both.
func (s *Service) persist(r *rendered) (*Result, error) {
	if s.dryRun {
		return &r.result, nil
	}
	if r.result.Changed {
		if err := s.store.Write(r.result.Path, r.content); err != nil {
			return nil, fmt.Errorf("pipeline: write %s: %w", r.result.Path, err)
		}
		s.logger.Info("pipeline: updated note",
			slog.String("path", r.result.Path),
			slog.String("type", r.result.TemplateType))
	} else {
		s.logger.Debug("pipeline: note unchanged", slog.String("path", r.result.Path))
	}
	if err := s.db.Upsert(r.entry); err != nil {
		return nil, err
	}
	return &r.result, nil
}

// audit reports required fields the enriched metadata still lacks and
// reserved tags misused in the tags list.
func (s *Service) audit(canonical string, fields *note.Metadata) (missing, reserved []string) {
	tt, ok := s.doc.Type(canonical)
	if ok {
		for _, field := range tt.RequiredFields {
			if _, present := fields.Get(field); !present {
				missing = append(missing, field)
			}
		}
	}
	reservedSet := make(map[string]struct{}, len(s.doc.ReservedTags))
	for _, tag := range s.doc.ReservedTags {
		reservedSet[tag] = struct{}{}
	}
	n := note.Note{Fields: fields}
	for _, tag := range n.Tags() {
		if _, hit := reservedSet[tag]; hit {
			reserved = append(reserved, tag)
		}
	}
	return missing, reserved
}

func buildEntry(path, canonical, title string, info hierarchy.Info, content []byte, missing, reserved []string) catalog.Entry {
	return catalog.Entry{
		Path:          path,
		Title:         title,
		TemplateType:  canonical,
		Levels:        info,
		Checksum:      vault.Checksum(content),
		MissingFields: missing,
		ReservedTags:  reserved,
	}
}

func fieldTitle(fields *note.Metadata) string {
	if v, ok := fields.Get("title"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// referencePath maps a media file to its reference note: the media path
// with the extension swapped for .md.
func referencePath(mediaPath string) string {
	ext := filepath.Ext(mediaPath)
	return strings.TrimSuffix(mediaPath, ext) + vault.NoteExt
}

// mediaAlias maps a media file to the schema alias enriched for it. The
// default schema maps pdf→pdf-reference and video→video-reference.
func mediaAlias(mediaPath string) string {
	if strings.EqualFold(filepath.Ext(mediaPath), ".pdf") {
		return "pdf"
	}
	return "video"
}

func defaultReferenceBody(mediaPath string) string {
	return fmt.Sprintf("# %s\n\n![[%s]]\n",
		resolve.FriendlyTitle(mediaPath), filepath.Base(mediaPath))
}
