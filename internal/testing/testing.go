// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/bookhaven/haven/internal/models"
)

// MockCatalog is a configurable test double for [services.Catalog]
type MockCatalog struct {
	ListBooksFunc    func(ctx context.Context, ownerID string) ([]models.Book, error)
	LatestBooksFunc  func(ctx context.Context) ([]models.Book, error)
	GetBookFunc      func(ctx context.Context, id string) (*models.Book, error)
	CreateBookFunc   func(ctx context.Context, book models.Book) (*models.Book, error)
	UpdateBookFunc   func(ctx context.Context, id string, book models.Book) error
	DeleteBookFunc   func(ctx context.Context, id string) error
	ListCommentsFunc func(ctx context.Context, bookID string) ([]models.Comment, error)
	PostCommentFunc  func(ctx context.Context, comment models.Comment) error
}

func (m *MockCatalog) ListBooks(ctx context.Context, ownerID string) ([]models.Book, error) {
	if m.ListBooksFunc != nil {
		return m.ListBooksFunc(ctx, ownerID)
	}
	return []models.Book{}, nil
}

func (m *MockCatalog) LatestBooks(ctx context.Context) ([]models.Book, error) {
	if m.LatestBooksFunc != nil {
		return m.LatestBooksFunc(ctx)
	}
	return []models.Book{}, nil
}

func (m *MockCatalog) GetBook(ctx context.Context, id string) (*models.Book, error) {
	if m.GetBookFunc != nil {
		return m.GetBookFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockCatalog) CreateBook(ctx context.Context, book models.Book) (*models.Book, error) {
	if m.CreateBookFunc != nil {
		return m.CreateBookFunc(ctx, book)
	}
	return &book, nil
}

func (m *MockCatalog) UpdateBook(ctx context.Context, id string, book models.Book) error {
	if m.UpdateBookFunc != nil {
		return m.UpdateBookFunc(ctx, id, book)
	}
	return nil
}

func (m *MockCatalog) DeleteBook(ctx context.Context, id string) error {
	if m.DeleteBookFunc != nil {
		return m.DeleteBookFunc(ctx, id)
	}
	return nil
}

func (m *MockCatalog) ListComments(ctx context.Context, bookID string) ([]models.Comment, error) {
	if m.ListCommentsFunc != nil {
		return m.ListCommentsFunc(ctx, bookID)
	}
	return []models.Comment{}, nil
}

func (m *MockCatalog) PostComment(ctx context.Context, comment models.Comment) error {
	if m.PostCommentFunc != nil {
		return m.PostCommentFunc(ctx, comment)
	}
	return nil
}

// MockBroadcast is a test double for comments.BroadcastChannel.
//
// It records joins and leaves and lets tests push comments into registered
// handlers as if the server had broadcast them.
type MockBroadcast struct {
	mu       sync.Mutex
	handlers map[string]func(models.Comment)
	Joined   []string
	Left     []string
	JoinErr  error
	LeaveErr error
}

func NewMockBroadcast() *MockBroadcast {
	return &MockBroadcast{handlers: map[string]func(models.Comment){}}
}

func (m *MockBroadcast) Join(bookID string, fn func(models.Comment)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.JoinErr != nil {
		return m.JoinErr
	}
	m.handlers[bookID] = fn
	m.Joined = append(m.Joined, bookID)
	return nil
}

func (m *MockBroadcast) Leave(bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LeaveErr != nil {
		return m.LeaveErr
	}
	delete(m.handlers, bookID)
	m.Left = append(m.Left, bookID)
	return nil
}

// Push delivers a comment to the handler registered for its book room.
func (m *MockBroadcast) Push(comment models.Comment) {
	m.mu.Lock()
	fn := m.handlers[comment.BookID]
	m.mu.Unlock()
	if fn != nil {
		fn(comment)
	}
}

// Handler returns the handler currently registered for bookID, or nil.
// Tests capture it before Leave to simulate events in flight during teardown.
func (m *MockBroadcast) Handler(bookID string) func(models.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[bookID]
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
