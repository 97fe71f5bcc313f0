package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bookhaven/haven/internal/formatter"
	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/bookhaven/haven/internal/tasks"
	"github.com/urfave/cli/v3"
)

// BooksList lists books in the catalog, optionally only the signed-in user's.
func (r *Runner) BooksList(ctx context.Context, cmd *cli.Command) error {
	ownerID := ""
	if cmd.Bool("mine") {
		r.restoreSession(ctx)
		who := r.manager.Identity()
		if who == nil {
			return fmt.Errorf("%w: sign in to list your books", shared.ErrNotAuthenticated)
		}
		ownerID = who.SubjectID
	}

	books, err := r.catalog.ListBooks(ctx, ownerID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(books, cmd.Bool("pretty"))
	}

	if len(books) == 0 {
		return r.writePlain("No books found\n")
	}
	for _, book := range books {
		r.writePlain("%s  %s — %s  ($%.2f)\n", book.ID, book.Title, book.Author, book.Price)
	}
	return nil
}

// BooksLatest shows the most recently added books.
func (r *Runner) BooksLatest(ctx context.Context, cmd *cli.Command) error {
	books, err := r.catalog.LatestBooks(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(books, cmd.Bool("pretty"))
	}

	for _, book := range books {
		r.writePlain("%s  %s — %s\n", book.ID, book.Title, book.Author)
	}
	return nil
}

// BooksGet shows a single book.
func (r *Runner) BooksGet(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: book ID", shared.ErrMissingArgument)
	}

	book, err := r.catalog.GetBook(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(book, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", book.Title)
	r.writePlain("Author: %s\n", book.Author)
	r.writePlain("Category: %s\n", book.Category)
	r.writePlain("Price: $%.2f\n", book.Price)
	r.writePlain("Rating: %.1f/5\n", book.Rating)
	if book.OwnerName != "" {
		r.writePlain("Listed by: %s\n", book.OwnerName)
	}
	if book.Description != "" {
		r.writePlainln("%s", book.Description)
	}
	return nil
}

// BooksAdd adds a book to the catalog, uploading a cover image first when
// one is provided.
func (r *Runner) BooksAdd(ctx context.Context, cmd *cli.Command) error {
	r.restoreSession(ctx)
	who := r.manager.Identity()
	if who == nil {
		return fmt.Errorf("%w: sign in to add books", shared.ErrNotAuthenticated)
	}

	book := models.Book{
		Title:       cmd.String("title"),
		Author:      cmd.String("author"),
		Category:    cmd.String("category"),
		Description: cmd.String("description"),
		Price:       cmd.Float("price"),
		Rating:      cmd.Float("rating"),
		OwnerName:   who.DisplayName,
		OwnerID:     who.SubjectID,
	}

	if coverPath := cmd.String("cover"); coverPath != "" {
		f, err := os.Open(coverPath)
		if err != nil {
			return fmt.Errorf("failed to open cover image: %w", err)
		}
		defer f.Close()

		r.logger.Info("uploading cover image", "path", coverPath)
		url, err := r.images.Upload(ctx, filepath.Base(coverPath), f)
		if err != nil {
			return err
		}
		book.ImageURL = url
	}

	created, err := r.catalog.CreateBook(ctx, book)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Added '%s' (%s)\n", created.Title, created.ID)
}

// BooksUpdate updates fields of a book the signed-in user owns. Unset flags
// keep the book's current values.
func (r *Runner) BooksUpdate(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: book ID", shared.ErrMissingArgument)
	}

	r.restoreSession(ctx)
	if r.manager.Identity() == nil {
		return fmt.Errorf("%w: sign in to update books", shared.ErrNotAuthenticated)
	}

	book, err := r.catalog.GetBook(ctx, id)
	if err != nil {
		return err
	}

	if v := cmd.String("title"); v != "" {
		book.Title = v
	}
	if v := cmd.String("author"); v != "" {
		book.Author = v
	}
	if v := cmd.String("category"); v != "" {
		book.Category = v
	}
	if v := cmd.String("description"); v != "" {
		book.Description = v
	}
	if v := cmd.Float("price"); v >= 0 {
		book.Price = v
	}
	if v := cmd.Float("rating"); v >= 0 {
		book.Rating = v
	}

	if err := r.catalog.UpdateBook(ctx, id, *book); err != nil {
		return err
	}
	return r.writePlain("✓ Updated '%s'\n", book.Title)
}

// BooksDelete deletes a book the signed-in user owns.
func (r *Runner) BooksDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: book ID", shared.ErrMissingArgument)
	}

	r.restoreSession(ctx)
	if r.manager.Identity() == nil {
		return fmt.Errorf("%w: sign in to delete books", shared.ErrNotAuthenticated)
	}

	if err := r.catalog.DeleteBook(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// BooksExport writes the catalog to disk as CSV or JSON.
func (r *Runner) BooksExport(ctx context.Context, cmd *cli.Command) error {
	books, err := r.catalog.ListBooks(ctx, "")
	if err != nil {
		return err
	}

	base := cmd.String("output")

	switch cmd.String("format") {
	case "json":
		data, err := shared.MarshalJSON(books, true)
		if err != nil {
			return fmt.Errorf("failed to marshal catalog: %w", err)
		}
		path := base + ".json"
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		return r.writePlain("✓ Exported %d books to %s\n", len(books), path)
	case "csv":
		result, err := formatter.WriteCSVExport(books, base)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d books to %s\n", len(books), result.BooksFile)
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, cmd.String("format"))
	}
}

// BooksHistory shows recently viewed books from the local database.
func (r *Runner) BooksHistory(ctx context.Context, cmd *cli.Command) error {
	if r.history == nil {
		return fmt.Errorf("%w: local database unavailable", shared.ErrMissingConfig)
	}

	records, err := r.history.List(map[string]any{})
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return r.writePlain("No view history\n")
	}
	for _, record := range records {
		r.writePlain("%s  %s  (%s)\n", record.BookID(), record.BookTitle(), shared.RelativeTime(record.UpdatedAt()))
	}
	return nil
}

// Snapshot archives books and their comment threads to disk.
func (r *Runner) Snapshot(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.SnapshotOpts{
		Format:      cmd.String("format"),
		OutputDir:   cmd.String("output"),
		NumWorkers:  cmd.Int("workers"),
		RateLimit:   cmd.Float("rate"),
		SkipThreads: cmd.Bool("skip-threads"),
		CoverImages: cmd.Bool("covers"),
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.Snapshot(ctx, progress, cmd.Args().Slice(), opts)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("✓ Snapshot complete: %d succeeded, %d failed\n", result.SuccessfulExports, result.FailedExports)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}
