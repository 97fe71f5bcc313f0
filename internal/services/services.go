// package services defines clients for the Book Haven client's external collaborators
//
// Book Haven REST API, third-party image host
package services

import (
	"context"

	"github.com/bookhaven/haven/internal/models"
)

// CredentialSource mints a bearer credential for an outbound request.
// Implemented by identity.Manager. A nil credential (without error) means no
// Identity is live and the request is dispatched unauthenticated.
type CredentialSource interface {
	MintCredential(ctx context.Context) (*models.Credential, error)
}

// Catalog defines the operations the Book Haven REST API exposes.
type Catalog interface {
	// ListBooks retrieves all books, optionally filtered to one owner.
	ListBooks(ctx context.Context, ownerID string) ([]models.Book, error)

	// LatestBooks retrieves the most recently added books.
	LatestBooks(ctx context.Context) ([]models.Book, error)

	// GetBook retrieves a single book by ID.
	GetBook(ctx context.Context, id string) (*models.Book, error)

	// CreateBook adds a book to the catalog. Requires a live Identity.
	CreateBook(ctx context.Context, book models.Book) (*models.Book, error)

	// UpdateBook replaces a book's fields. Requires ownership.
	UpdateBook(ctx context.Context, id string, book models.Book) error

	// DeleteBook removes a book. Requires ownership.
	DeleteBook(ctx context.Context, id string) error

	// ListComments retrieves the full comment history for a book.
	ListComments(ctx context.Context, bookID string) ([]models.Comment, error)

	// PostComment submits a comment to a book's thread. Requires a live Identity.
	PostComment(ctx context.Context, comment models.Comment) error
}
