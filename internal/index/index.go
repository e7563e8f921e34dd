package index

// DocumentIndex defines the read-model operations the service layer uses.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocRow, body string, edges []Edge) error
	DeleteDocument(path string) error
	GetDocument(path string) (*DocRow, error)
	Tree() ([]TreeNode, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Backlinks(targetStem string) ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
