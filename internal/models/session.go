package models

import (
	"fmt"
	"strings"
	"time"
)

// Session is the locally persisted record of a signed-in Identity.
//
// Only the provider's long-lived refresh token is stored; short-lived
// credentials are always minted fresh and never written to disk.
type Session struct {
	id           string
	sequence     int
	subjectID    string
	email        string
	displayName  string
	avatarURL    string
	refreshToken string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewSession creates a Session for the given identity and refresh token.
func NewSession(sequence int, identity Identity, refreshToken string) *Session {
	now := time.Now()
	return &Session{
		sequence:     sequence,
		subjectID:    identity.SubjectID,
		email:        identity.Email,
		displayName:  identity.DisplayName,
		avatarURL:    identity.AvatarURL,
		refreshToken: refreshToken,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Sequence() int         { return s.sequence }
func (s *Session) SubjectID() string     { return s.subjectID }
func (s *Session) Email() string         { return s.email }
func (s *Session) DisplayName() string   { return s.displayName }
func (s *Session) AvatarURL() string     { return s.avatarURL }
func (s *Session) RefreshToken() string  { return s.refreshToken }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) UpdatedAt() time.Time  { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time { return s.deletedAt }

func (s *Session) SetID(id string)             { s.id = id }
func (s *Session) SetUpdatedAt(t time.Time)    { s.updatedAt = t }
func (s *Session) SetDeletedAt(t *time.Time)   { s.deletedAt = t }
func (s *Session) SetRefreshToken(tok string)  { s.refreshToken = tok }
func (s *Session) SetDisplayName(name string)  { s.displayName = name }
func (s *Session) SetAvatarURL(url string)     { s.avatarURL = url }

// Validate checks that the session carries enough state to restore an identity.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.subjectID) == "" {
		return fmt.Errorf("session subject ID is required")
	}
	if strings.TrimSpace(s.email) == "" {
		return fmt.Errorf("session email is required")
	}
	if strings.TrimSpace(s.refreshToken) == "" {
		return fmt.Errorf("session refresh token is required")
	}
	return nil
}

// Identity reconstructs the mirrored Identity from the persisted session.
func (s *Session) Identity() Identity {
	return Identity{
		SubjectID:   s.subjectID,
		Email:       s.email,
		DisplayName: s.displayName,
		AvatarURL:   s.avatarURL,
	}
}

// ViewRecord tracks a recently opened book for the TUI's history list.
type ViewRecord struct {
	id        string
	sequence  int
	bookID    string
	bookTitle string
	createdAt time.Time
	updatedAt time.Time
}

// NewViewRecord creates a ViewRecord for the given book.
func NewViewRecord(sequence int, bookID, bookTitle string) *ViewRecord {
	now := time.Now()
	return &ViewRecord{
		sequence:  sequence,
		bookID:    bookID,
		bookTitle: bookTitle,
		createdAt: now,
		updatedAt: now,
	}
}

func (v *ViewRecord) ID() string           { return v.id }
func (v *ViewRecord) Sequence() int        { return v.sequence }
func (v *ViewRecord) BookID() string       { return v.bookID }
func (v *ViewRecord) BookTitle() string    { return v.bookTitle }
func (v *ViewRecord) CreatedAt() time.Time { return v.createdAt }
func (v *ViewRecord) UpdatedAt() time.Time { return v.updatedAt }

func (v *ViewRecord) SetID(id string)          { v.id = id }
func (v *ViewRecord) SetUpdatedAt(t time.Time) { v.updatedAt = t }

// Validate checks that the view record references a book.
func (v *ViewRecord) Validate() error {
	if strings.TrimSpace(v.bookID) == "" {
		return fmt.Errorf("view record book ID is required")
	}
	return nil
}
