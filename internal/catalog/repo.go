package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/hierarchy"
)

// Entry represents a row in the notes table: one classified note.
type Entry struct {
	Path          string
	Title         string
	TemplateType  string
	Levels        hierarchy.Info
	Checksum      string
	MissingFields []string
	ReservedTags  []string
	UpdatedAt     time.Time
}

// Incomplete reports whether the entry carries audit findings.
func (e Entry) Incomplete() bool {
	return len(e.MissingFields) > 0 || len(e.ReservedTags) > 0
}

// Upsert inserts or replaces an entry.
func (db *DB) Upsert(e Entry) error {
	missingJSON := marshalStrings(e.MissingFields)
	reservedJSON := marshalStrings(e.ReservedTags)
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	_, err := db.conn.Exec(`
		INSERT INTO notes (path, title, template_type, program, course, class, module, lesson,
		                   checksum, missing_fields, reserved_tags, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title          = excluded.title,
			template_type  = excluded.template_type,
			program        = excluded.program,
			course         = excluded.course,
			class          = excluded.class,
			module         = excluded.module,
			lesson         = excluded.lesson,
			checksum       = excluded.checksum,
			missing_fields = excluded.missing_fields,
			reserved_tags  = excluded.reserved_tags,
			updated_at     = excluded.updated_at
	`, e.Path, e.Title, e.TemplateType,
		e.Levels.Program, e.Levels.Course, e.Levels.Class, e.Levels.Module, e.Levels.Lesson,
		e.Checksum, missingJSON, reservedJSON, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert %s: %w", e.Path, err)
	}
	return nil
}

// Delete removes an entry. Deleting an absent path is a no-op.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("catalog: delete %s: %w", path, err)
	}
	return nil
}

// Get returns the entry stored under path.
func (db *DB) Get(path string) (*Entry, error) {
	row := db.conn.QueryRow(selectColumns+` FROM notes WHERE path = ?`, path)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("catalog: get %s: %w", path, err)
	}
	return e, nil
}

// Checksum returns the stored checksum for a note, or empty string when the
// path is not catalogued.
func (db *DB) Checksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("catalog: checksum %s: %w", path, err)
	}
	return cs, nil
}

// AllChecksums returns the path→checksum mapping for every entry.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// AllPaths returns every catalogued note path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// ListByType returns entries of the given template type ordered by path.
// An empty templateType lists every entry.
func (db *DB) ListByType(templateType string, limit int) ([]Entry, error) {
	query := selectColumns + ` FROM notes`
	args := []any{}
	if templateType != "" {
		query += ` WHERE template_type = ?`
		args = append(args, templateType)
	}
	query += ` ORDER BY path LIMIT ?`
	args = append(args, normalizeLimit(limit))

	return db.listEntries(query, args...)
}

// ListIncomplete returns entries carrying audit findings, ordered by path.
func (db *DB) ListIncomplete(limit int) ([]Entry, error) {
	query := selectColumns + ` FROM notes
		WHERE missing_fields != '[]' OR reserved_tags != '[]'
		ORDER BY path LIMIT ?`
	return db.listEntries(query, normalizeLimit(limit))
}

// Stats returns the entry count per template type.
func (db *DB) Stats() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT template_type, COUNT(*) FROM notes GROUP BY template_type`)
	if err != nil {
		return nil, fmt.Errorf("catalog: stats: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var tt string
		var n int
		if err := rows.Scan(&tt, &n); err != nil {
			return nil, err
		}
		out[tt] = n
	}
	return out, rows.Err()
}

const selectColumns = `SELECT path, title, template_type, program, course, class, module, lesson,
	checksum, missing_fields, reserved_tags, updated_at`

func (db *DB) listEntries(query string, args ...any) ([]Entry, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var missingJSON, reservedJSON string
	err := row.Scan(&e.Path, &e.Title, &e.TemplateType,
		&e.Levels.Program, &e.Levels.Course, &e.Levels.Class, &e.Levels.Module, &e.Levels.Lesson,
		&e.Checksum, &missingJSON, &reservedJSON, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(missingJSON), &e.MissingFields)
	_ = json.Unmarshal([]byte(reservedJSON), &e.ReservedTags)
	return &e, nil
}

// marshalStrings encodes a slice for storage. Nil encodes as "[]" so the
// ListIncomplete filter and Entry.Incomplete stay consistent.
func marshalStrings(s []string) string {
	if len(s) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(s)
	return string(b)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 500
	}
	return limit
}
