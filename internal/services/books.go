// Book Haven REST API implementation of [Catalog]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
)

// BooksService implements [Catalog] against the Book Haven REST API.
//
// Authenticated requests carry "Authorization: Bearer <credential>"; the
// credential is minted fresh from the injected [CredentialSource] immediately
// before each dispatch and borrowed only for that one call.
type BooksService struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
}

// NewBooksService creates a catalog client for the given API base URL.
//
// creds may be nil, in which case every request is dispatched unauthenticated.
func NewBooksService(baseURL string, client *http.Client, creds CredentialSource) *BooksService {
	if baseURL == "" {
		baseURL = "http://localhost:3000/api"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &BooksService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		creds:      creds,
	}
}

type apiError struct {
	Message string `json:"message"`
}

// doRequest performs an HTTP request against the API, attaching a freshly
// minted bearer credential when one is available.
func (s *BooksService) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if s.creds != nil {
		cred, err := s.creds.MintCredential(ctx)
		if err != nil {
			return fmt.Errorf("failed to mint credential: %w", err)
		}
		if cred != nil {
			req.Header.Set("Authorization", "Bearer "+cred.Token)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.classifyStatus(method, resp.StatusCode, resp.Body)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// classifyStatus maps HTTP failures onto the client's error taxonomy:
// read failures are fetch errors, write failures are mutation errors, and
// ownership rejections are reported distinctly so callers can redirect.
func (s *BooksService) classifyStatus(method string, status int, body io.Reader) error {
	var payload apiError
	json.NewDecoder(body).Decode(&payload)
	detail := payload.Message
	if detail == "" {
		detail = fmt.Sprintf("status %d", status)
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, detail)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrNotOwner, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrBookNotFound, detail)
	}

	if method == http.MethodGet {
		return fmt.Errorf("%w: %s", shared.ErrFetchFailed, detail)
	}
	return fmt.Errorf("%w: %s", shared.ErrMutationFailed, detail)
}

// ListBooks retrieves all books, optionally filtered to one owner's books.
func (s *BooksService) ListBooks(ctx context.Context, ownerID string) ([]models.Book, error) {
	path := "/books"
	if ownerID != "" {
		path = fmt.Sprintf("/books?userId=%s", url.QueryEscape(ownerID))
	}

	var books []models.Book
	if err := s.doRequest(ctx, http.MethodGet, path, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// LatestBooks retrieves the most recently added books.
func (s *BooksService) LatestBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := s.doRequest(ctx, http.MethodGet, "/books/latest", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBook retrieves a single book by ID.
func (s *BooksService) GetBook(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	if err := s.doRequest(ctx, http.MethodGet, "/books/"+id, nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateBook adds a book to the catalog after client-side validation.
func (s *BooksService) CreateBook(ctx context.Context, book models.Book) (*models.Book, error) {
	if err := book.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidBook, err)
	}

	var created models.Book
	if err := s.doRequest(ctx, http.MethodPost, "/books", book, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateBook replaces a book's fields after client-side validation.
func (s *BooksService) UpdateBook(ctx context.Context, id string, book models.Book) error {
	if err := book.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidBook, err)
	}

	return s.doRequest(ctx, http.MethodPut, "/books/"+id, book, nil)
}

// DeleteBook removes a book from the catalog.
func (s *BooksService) DeleteBook(ctx context.Context, id string) error {
	return s.doRequest(ctx, http.MethodDelete, "/books/"+id, nil, nil)
}

// ListComments retrieves the full comment history for a book.
func (s *BooksService) ListComments(ctx context.Context, bookID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/books/%s/comments", bookID), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// PostComment submits a comment to the thread named by its BookID.
func (s *BooksService) PostComment(ctx context.Context, comment models.Comment) error {
	return s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/books/%s/comments", comment.BookID), comment, nil)
}
