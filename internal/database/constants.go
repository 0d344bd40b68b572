package database

// Backend names accepted by LEDGER_BACKEND and GALLERY_SOURCE.
const (
	BackendCSV      = "csv"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMariaDB  = "mariadb"
	BackendFile     = "file"
)

// HNSW index parameters for 128-dim face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 64

	// HNSWNeighborsPerPerson is how many nearest neighbors are inspected per
	// enrolled person when looking for duplicate enrollments.
	HNSWNeighborsPerPerson = 8
)
