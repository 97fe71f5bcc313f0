package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bookhaven/haven/internal/formatter"
	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
	"golang.org/x/time/rate"
)

// SnapshotOpts contains configuration for catalog snapshots.
type SnapshotOpts struct {
	Format      string  // Export format: json, csv, markdown, txt
	OutputDir   string  // Base output directory (default: haven_snapshot_{epoch})
	NumWorkers  int     // Concurrent workers (default: 5)
	RateLimit   float64 // Requests per second (default: 5)
	SkipThreads bool    // Export book metadata only, without comment threads
	CoverImages bool    // Download cover images (markdown format only)
}

// Snapshot exports books and their comment threads concurrently with rate
// limiting and progress tracking.
//
// This method implements a worker pool pattern to efficiently archive the
// catalog. It respects API rate limits, handles partial failures gracefully,
// and generates a manifest file summarizing the snapshot results.
func (e *CatalogEngine) Snapshot(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts SnapshotOpts,
) (*SnapshotResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog client not initialized", shared.ErrFetchFailed)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("haven_snapshot_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	e.sendProgress(prog, fetchCatalogUpdate(1, 1))

	books, err := e.resolveBooks(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &SnapshotResult{
		TotalBooks:      len(books),
		OutputDirectory: opts.OutputDir,
		Results:         make([]BookSnapshotResult, 0, len(books)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan BookSnapshotJob, len(books))
	results := make(chan BookSnapshotResult, len(books))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.snapshotWorker(&wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, book := range books {
			select {
			case <-ctx.Done():
				return
			default:
			}

			e.sendProgress(prog, fetchThreadUpdate(i+1, len(books), book.Title))

			var comments []models.Comment
			if !opts.SkipThreads {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				comments, err = e.catalog.ListComments(ctx, book.ID)
				if err != nil {
					results <- BookSnapshotResult{
						BookID:  book.ID,
						Title:   book.Title,
						Success: false,
						Error:   fmt.Errorf("failed to fetch comments: %w", err),
					}
					continue
				}
			}

			jobs <- BookSnapshotJob{Book: book, Comments: comments}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.Reason = res.Error.Error()
		}
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(books), res.Title, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(books), res.Title, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "snapshot_manifest.json")
	e.sendProgress(prog, writeManifestUpdate(manifestPath))
	if err := formatter.WriteSnapshotManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("snapshot completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// resolveBooks fetches the target book set: the whole catalog when ids is
// empty, otherwise each listed book.
func (e *CatalogEngine) resolveBooks(ctx context.Context, ids []string) ([]models.Book, error) {
	if len(ids) == 0 {
		books, err := e.catalog.ListBooks(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch catalog: %w", err)
		}
		return books, nil
	}

	books := make([]models.Book, 0, len(ids))
	for _, id := range ids {
		book, err := e.catalog.GetBook(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch book %s: %w", id, err)
		}
		books = append(books, *book)
	}
	return books, nil
}

// snapshotWorker is a worker goroutine that exports books from the jobs channel.
func (e *CatalogEngine) snapshotWorker(
	wg *sync.WaitGroup,
	jobs <-chan BookSnapshotJob,
	results chan<- BookSnapshotResult,
	opts SnapshotOpts,
) {
	defer wg.Done()

	for job := range jobs {
		results <- e.exportSingleBook(job, opts)
	}
}

// exportSingleBook exports a single book to the appropriate format.
func (e *CatalogEngine) exportSingleBook(j BookSnapshotJob, opts SnapshotOpts) BookSnapshotResult {
	result := BookSnapshotResult{
		BookID:  j.Book.ID,
		Title:   j.Book.Title,
		Success: false,
		Files:   []string{},
	}

	switch opts.Format {
	case "csv":
		baseFilepath := filepath.Join(opts.OutputDir, j.Book.ID)
		csvRes, err := formatter.WriteCSVExport([]models.Book{j.Book}, baseFilepath)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.BooksFile, csvRes.MetadataFile}
		result.Success = true

	case "markdown":
		outputDir := filepath.Join(opts.OutputDir, j.Book.ID)

		var imageURL string
		if opts.CoverImages {
			imageURL = j.Book.ImageURL
		}

		mdRes, err := formatter.WriteMarkdownExport(j.Book, j.Comments, outputDir, imageURL)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files
		result.Success = true

	case "txt":
		txtPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_thread.txt", j.Book.ID))
		filepath, err := formatter.WriteTextExport(j.Book, j.Comments, txtPath)
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{filepath}
		result.Success = true
	case "json":
		fallthrough
	default:
		jsonPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.json", j.Book.ID))
		payload := struct {
			Book     models.Book      `json:"book"`
			Comments []models.Comment `json:"comments"`
		}{Book: j.Book, Comments: j.Comments}

		data, err := shared.MarshalJSON(payload, true)
		if err != nil {
			result.Error = fmt.Errorf("JSON marshal failed: %w", err)
			return result
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			result.Error = fmt.Errorf("JSON write failed: %w", err)
			return result
		}
		result.Files = []string{jsonPath}
		result.Success = true
	}
	return result
}
