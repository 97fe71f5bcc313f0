package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all locally persisted models.
// Implementations include Session and ViewRecord.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for local data access operations.
// Implementations handle sqlite interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Book represents a catalog entry from the Book Haven API.
type Book struct {
	ID          string    `json:"_id,omitempty"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	Price       float64   `json:"price"`
	Rating      float64   `json:"rating"`
	OwnerName   string    `json:"userName"`
	OwnerID     string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Validate enforces the form-level constraints applied before any network
// dispatch: required title/author/category, non-negative price, rating in [0, 5].
func (b Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(b.Author) == "" {
		return fmt.Errorf("author is required")
	}
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("category is required")
	}
	if b.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if b.Rating < 0 || b.Rating > 5 {
		return fmt.Errorf("rating must be between 0 and 5")
	}
	return nil
}

// Comment represents a single entry in a book's comment thread.
// Comments are append-only from the client's perspective: once received they
// are never mutated, and the local sequence only grows or is replaced
// wholesale by a refetch.
type Comment struct {
	ID          string    `json:"_id,omitempty"`
	BookID      string    `json:"bookId"`
	AuthorName  string    `json:"userName"`
	AuthorEmail string    `json:"userEmail"`
	AvatarURL   string    `json:"photoURL"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Key returns the stable identity used to de-duplicate a comment that arrives
// via both the initial fetch and the push channel. Falls back to content
// identity when the server did not assign an ID.
func (c Comment) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.BookID + "|" + c.AuthorEmail + "|" + c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.Text
}

// Identity mirrors the authenticated user's profile from the identity
// provider. Exactly one Identity (or none) is live per process at a time.
type Identity struct {
	SubjectID   string `json:"localId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"photoUrl"`
	Email       string `json:"email"`
}

// Credential is a short-lived signed token bound to an Identity.
// It is minted fresh per outbound request and never persisted.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the credential's expiry has passed.
func (c Credential) Expired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}
