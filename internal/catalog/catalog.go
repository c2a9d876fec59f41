package catalog

// NoteCatalog defines the interface for catalog operations. Consumers
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type NoteCatalog interface {
	Upsert(e Entry) error
	Delete(path string) error
	Get(path string) (*Entry, error)
	Checksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	AllPaths() (map[string]struct{}, error)
	ListByType(templateType string, limit int) ([]Entry, error)
	ListIncomplete(limit int) ([]Entry, error)
	Stats() (map[string]int, error)
	Close() error
}

// Verify *DB satisfies NoteCatalog at compile time.
var _ NoteCatalog = (*DB)(nil)
