package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
)

// staticCreds mints the same credential for every request, or none at all.
type staticCreds struct {
	token string
	err   error
	mints int
}

func (c *staticCreds) MintCredential(ctx context.Context) (*models.Credential, error) {
	c.mints++
	if c.err != nil {
		return nil, c.err
	}
	if c.token == "" {
		return nil, nil
	}
	return &models.Credential{Token: c.token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func validBook() models.Book {
	return models.Book{
		Title:    "The Go Programming Language",
		Author:   "Donovan & Kernighan",
		Category: "Technical",
		Price:    39.99,
		Rating:   4.5,
	}
}

func TestBooksServiceAuth(t *testing.T) {
	t.Run("Mints Fresh Bearer Per Request", func(t *testing.T) {
		var headers []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers = append(headers, r.Header.Get("Authorization"))
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		creds := &staticCreds{token: "minted"}
		service := NewBooksService(server.URL, server.Client(), creds)

		for i := 0; i < 2; i++ {
			if _, err := service.ListBooks(context.Background(), ""); err != nil {
				t.Fatalf("list failed: %v", err)
			}
		}

		if creds.mints != 2 {
			t.Errorf("expected one mint per request, got %d", creds.mints)
		}
		for _, h := range headers {
			if h != "Bearer minted" {
				t.Errorf("expected bearer header, got %q", h)
			}
		}
	})

	t.Run("Dispatches Unauthenticated Without Credential", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h := r.Header.Get("Authorization"); h != "" {
				t.Errorf("expected no auth header, got %q", h)
			}
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		service := NewBooksService(server.URL, server.Client(), &staticCreds{})
		if _, err := service.ListBooks(context.Background(), ""); err != nil {
			t.Fatalf("list failed: %v", err)
		}
	})
}

func TestBooksServiceErrors(t *testing.T) {
	statusServer := func(status int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"message": "nope"})
		}))
	}

	t.Run("Unauthorized", func(t *testing.T) {
		server := statusServer(http.StatusUnauthorized)
		defer server.Close()
		service := NewBooksService(server.URL, server.Client(), nil)

		err := service.DeleteBook(context.Background(), "b1")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Forbidden Means Not Owner", func(t *testing.T) {
		server := statusServer(http.StatusForbidden)
		defer server.Close()
		service := NewBooksService(server.URL, server.Client(), nil)

		err := service.UpdateBook(context.Background(), "b1", validBook())
		if !errors.Is(err, shared.ErrNotOwner) {
			t.Fatalf("expected ErrNotOwner, got %v", err)
		}
	})

	t.Run("Missing Book", func(t *testing.T) {
		server := statusServer(http.StatusNotFound)
		defer server.Close()
		service := NewBooksService(server.URL, server.Client(), nil)

		_, err := service.GetBook(context.Background(), "missing")
		if !errors.Is(err, shared.ErrBookNotFound) {
			t.Fatalf("expected ErrBookNotFound, got %v", err)
		}
	})

	t.Run("Read Failures Are Fetch Errors", func(t *testing.T) {
		server := statusServer(http.StatusInternalServerError)
		defer server.Close()
		service := NewBooksService(server.URL, server.Client(), nil)

		_, err := service.ListBooks(context.Background(), "")
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}
	})

	t.Run("Write Failures Are Mutation Errors", func(t *testing.T) {
		server := statusServer(http.StatusInternalServerError)
		defer server.Close()
		service := NewBooksService(server.URL, server.Client(), nil)

		_, err := service.CreateBook(context.Background(), validBook())
		if !errors.Is(err, shared.ErrMutationFailed) {
			t.Fatalf("expected ErrMutationFailed, got %v", err)
		}
	})
}

func TestBooksServiceValidation(t *testing.T) {
	// Any request reaching the server fails the test: validation must reject
	// the payload before dispatch.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer server.Close()
	service := NewBooksService(server.URL, server.Client(), nil)

	t.Run("Create Rejects Invalid Book", func(t *testing.T) {
		book := validBook()
		book.Title = "   "
		_, err := service.CreateBook(context.Background(), book)
		if !errors.Is(err, shared.ErrInvalidBook) {
			t.Fatalf("expected ErrInvalidBook, got %v", err)
		}
	})

	t.Run("Update Rejects Out Of Range Rating", func(t *testing.T) {
		book := validBook()
		book.Rating = 7
		err := service.UpdateBook(context.Background(), "b1", book)
		if !errors.Is(err, shared.ErrInvalidBook) {
			t.Fatalf("expected ErrInvalidBook, got %v", err)
		}
	})
}

func TestBooksServiceRoutes(t *testing.T) {
	t.Run("Owner Filter Is Escaped", func(t *testing.T) {
		var gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		service := NewBooksService(server.URL, server.Client(), nil)
		if _, err := service.ListBooks(context.Background(), "user 1"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if gotQuery != "userId=user+1" {
			t.Errorf("expected escaped owner filter, got %q", gotQuery)
		}
	})

	t.Run("Comments Scoped To Book", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if r.Method == http.MethodPost {
				w.WriteHeader(http.StatusCreated)
				return
			}
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		service := NewBooksService(server.URL, server.Client(), nil)

		if _, err := service.ListComments(context.Background(), "b1"); err != nil {
			t.Fatalf("list comments failed: %v", err)
		}
		if gotPath != "/books/b1/comments" {
			t.Errorf("unexpected path %q", gotPath)
		}

		comment := models.Comment{BookID: "b1", AuthorEmail: "ana@example.com", Text: "hi"}
		if err := service.PostComment(context.Background(), comment); err != nil {
			t.Fatalf("post comment failed: %v", err)
		}
		if gotPath != "/books/b1/comments" {
			t.Errorf("unexpected path %q", gotPath)
		}
	})

	t.Run("Trailing Slash Trimmed From Base", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		service := NewBooksService(server.URL+"/", server.Client(), nil)
		if _, err := service.LatestBooks(context.Background()); err != nil {
			t.Fatalf("latest failed: %v", err)
		}
		if strings.Contains(gotPath, "//") {
			t.Errorf("double slash in path %q", gotPath)
		}
	})
}
