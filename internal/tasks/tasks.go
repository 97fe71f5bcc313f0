package tasks

import (
	"context"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/services"
)

// SnapshotEngine defines the catalog archival operation.
type SnapshotEngine interface {
	// Snapshot exports books and their comment threads to disk, concurrently
	// and rate limited. An empty ids slice snapshots the whole catalog.
	Snapshot(ctx context.Context, progress chan<- ProgressUpdate, ids []string, opts SnapshotOpts) (*SnapshotResult, error)
}

// CatalogEngine implements [SnapshotEngine] over the Book Haven API.
type CatalogEngine struct {
	catalog services.Catalog
}

// NewCatalogEngine creates a new CatalogEngine with the provided catalog client.
func NewCatalogEngine(catalog services.Catalog) *CatalogEngine {
	return &CatalogEngine{catalog: catalog}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *CatalogEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// BookSnapshotJob carries one book and its fetched thread into the worker pool.
type BookSnapshotJob struct {
	Book     models.Book
	Comments []models.Comment
}

// BookSnapshotResult records the outcome of exporting a single book.
type BookSnapshotResult struct {
	BookID  string   `json:"book_id"`
	Title   string   `json:"title"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   error    `json:"-"`
	Reason  string   `json:"error,omitempty"`
}

// SnapshotResult contains all data from a full snapshot operation.
type SnapshotResult struct {
	TotalBooks        int                  `json:"total_books"`
	SuccessfulExports int                  `json:"successful_exports"`
	FailedExports     int                  `json:"failed_exports"`
	OutputDirectory   string               `json:"output_directory"`
	ManifestPath      string               `json:"manifest_path,omitempty"`
	Results           []BookSnapshotResult `json:"results"`
}
