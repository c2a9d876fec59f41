// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the classification and enrichment engine for LLM
// integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/catalog"
	"github.com/starford/othala/internal/enrich"
	"github.com/starford/othala/internal/hierarchy"
	"github.com/starford/othala/internal/note"
	"github.com/starford/othala/internal/pipeline"
	"github.com/starford/othala/internal/schema"
)

// schemaResourceURI identifies the template-type schema resource.
const schemaResourceURI = "othala://schema"

// Server wraps the MCP server with vault classification tools.
type Server struct {
	mcp        *server.MCPServer
	svc        *pipeline.Service
	db         catalog.NoteCatalog
	classifier *hierarchy.Classifier
	enricher   *enrich.Enricher
	doc        *schema.Document
}

// New creates a new MCP server with all tools registered.
func New(svc *pipeline.Service, db catalog.NoteCatalog, classifier *hierarchy.Classifier,
	enricher *enrich.Enricher, doc *schema.Document) *Server {
	s := &Server{
		svc:        svc,
		db:         db,
		classifier: classifier,
		enricher:   enricher,
		doc:        doc,
	}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("classify_path",
		mcp.WithDescription("Classify a vault path into its hierarchy tier: "+
			"depth, level, the index template-type it implies, and the folder "+
			"names that feed hierarchy metadata."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to classify (e.g. Program/Course/Class/index.md)")),
		mcp.WithString("root", mcp.Description("Optional override for the vault root the path is resolved against")),
	), s.classifyPath)

	s.mcp.AddTool(mcp.NewTool("get_template_type",
		mcp.WithDescription("Return the resolved definition of a template type: "+
			"required fields and the full field set after inheritance. Accepts "+
			"canonical names and mapped aliases."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Template type name or alias (e.g. module-index, pdf)")),
	), s.getTemplateType)

	s.mcp.AddTool(mcp.NewTool("list_template_types",
		mcp.WithDescription("List all template types known to the schema, plus the alias mapping."),
	), s.listTemplateTypes)

	s.mcp.AddTool(mcp.NewTool("enrich_metadata",
		mcp.WithDescription("Enrich note metadata for a vault path without touching disk: "+
			"injects hierarchy fields and resolves schema defaults. Existing keys are "+
			"never overwritten. Returns the enriched metadata as JSON in field order."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path the metadata belongs to")),
		mcp.WithString("template_type", mcp.Description("Optional template type override; defaults to the metadata's template-type, then the classified index type")),
		mcp.WithString("metadata", mcp.Description("Optional existing metadata as a JSON object")),
	), s.enrichMetadata)

	s.mcp.AddTool(mcp.NewTool("query_notes",
		mcp.WithDescription("Query the note catalog by template type, or list notes "+
			"with audit findings (missing required fields or misused reserved tags)."),
		mcp.WithString("template_type", mcp.Description("Optional template type or alias to filter by")),
		mcp.WithBoolean("incomplete", mcp.Description("When true, return only notes with audit findings")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes to return (default 500)")),
	), s.queryNotes)

	s.mcp.AddTool(mcp.NewTool("process_note",
		mcp.WithDescription("Run the processing pipeline on a single vault file: "+
			"classify, enrich, rewrite frontmatter, and update the catalog. Media "+
			"files get a reference note generated."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note or media file")),
	), s.processNote)

	s.mcp.AddTool(mcp.NewTool("vault_stats",
		mcp.WithDescription("Return note counts per template type."),
	), s.vaultStats)

	// Resource: the resolved template-type schema.
	s.mcp.AddResource(
		mcp.NewResource(schemaResourceURI, "Template Type Schema",
			mcp.WithResourceDescription("The active schema document: template types, universal fields, type mapping, and reserved tags."),
			mcp.WithMIMEType("application/yaml"),
		),
		s.readSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// classificationView is the wire shape of a classification result.
type classificationView struct {
	Path      string            `json:"path"`
	Depth     int               `json:"depth"`
	Level     string            `json:"level"`
	IndexType string            `json:"index_type"`
	Hierarchy map[string]string `json:"hierarchy"`
}

// noteView is the wire shape of a catalog entry.
type noteView struct {
	Path          string            `json:"path"`
	Title         string            `json:"title,omitempty"`
	TemplateType  string            `json:"template_type"`
	Hierarchy     map[string]string `json:"hierarchy,omitempty"`
	MissingFields []string          `json:"missing_fields,omitempty"`
	ReservedTags  []string          `json:"reserved_tags,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (s *Server) classifyPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	root := ""
	if r, rErr := req.RequireString("root"); rErr == nil {
		root = r
	}

	cls, err := s.classifier.ClassifyUnder(path, root)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(classificationView{
		Path:      path,
		Depth:     cls.Depth,
		Level:     cls.Level.String(),
		IndexType: s.doc.Canonical(cls.IndexType),
		Hierarchy: cls.Info.Map(),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTemplateType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	canonical := s.doc.Canonical(name)
	tt, ok := s.doc.Type(canonical)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown template type: %s", name)), nil
	}
	out, err := yaml.Marshal(map[string]*schema.TemplateType{canonical: tt})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTemplateTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(struct {
		Types   []string          `json:"types"`
		Aliases map[string]string `json:"aliases,omitempty"`
	}{
		Types:   s.doc.TypeNames(),
		Aliases: s.doc.TypeMapping,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) enrichMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields := note.NewMetadata()
	if raw, mErr := req.RequireString("metadata"); mErr == nil && raw != "" {
		if jsonErr := json.Unmarshal([]byte(raw), fields); jsonErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid metadata: %v", jsonErr)), nil
		}
	}

	cls, err := s.classifier.Classify(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	noteType := ""
	if t, tErr := req.RequireString("template_type"); tErr == nil {
		noteType = t
	}
	if noteType == "" {
		n := note.Note{Fields: fields}
		noteType = n.TemplateType()
	}
	if noteType == "" {
		noteType = cls.IndexType
	}

	fields = s.enricher.Enrich(fields, path, noteType, cls.Info)
	out, jsonErr := json.MarshalIndent(fields, "", "  ")
	if jsonErr != nil {
		return mcp.NewToolResultError(jsonErr.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) queryNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 0
	if n, lErr := req.RequireInt("limit"); lErr == nil {
		limit = n
	}
	incomplete := false
	if b, bErr := req.RequireBool("incomplete"); bErr == nil {
		incomplete = b
	}

	var (
		entries []catalog.Entry
		err     error
	)
	if incomplete {
		entries, err = s.db.ListIncomplete(limit)
	} else {
		templateType := ""
		if tt, tErr := req.RequireString("template_type"); tErr == nil && tt != "" {
			templateType = s.doc.Canonical(tt)
		}
		entries, err = s.db.ListByType(templateType, limit)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	views := make([]noteView, 0, len(entries))
	for _, e := range entries {
		views = append(views, noteView{
			Path:          e.Path,
			Title:         e.Title,
			TemplateType:  e.TemplateType,
			Hierarchy:     e.Levels.Map(),
			MissingFields: e.MissingFields,
			ReservedTags:  e.ReservedTags,
			UpdatedAt:     e.UpdatedAt,
		})
	}
	out, _ := json.MarshalIndent(views, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) processNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ProcessNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) vaultStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.db.Stats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	total := 0
	for _, n := range stats {
		total += n
	}
	out, _ := json.MarshalIndent(struct {
		Total  int            `json:"total"`
		ByType map[string]int `json:"by_type"`
	}{Total: total, ByType: stats}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := yaml.Marshal(s.doc)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaResourceURI,
			MIMEType: "application/yaml",
			Text:     string(out),
		},
	}, nil
}
