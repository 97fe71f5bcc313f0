package repositories

import (
	"fmt"

	"github.com/bookhaven/haven/internal/models"
)

// SessionStore adapts [SessionRepository] to the single-session storage the
// identity manager expects. At most one live session exists at a time;
// saving a new one retires any predecessor.
type SessionStore struct {
	repo *SessionRepository
}

// NewSessionStore creates a store backed by the given repository.
func NewSessionStore(repo *SessionRepository) *SessionStore {
	return &SessionStore{repo: repo}
}

// Save persists identity and its refresh token as the live session,
// soft-deleting any session saved before it.
func (s *SessionStore) Save(identity models.Identity, refreshToken string) error {
	if err := s.Clear(); err != nil {
		return err
	}

	session := models.NewSession(0, identity, refreshToken)
	if err := s.repo.Create(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the live session's identity and refresh token, or nil when no
// session is persisted.
func (s *SessionStore) Load() (*models.Identity, string, error) {
	sessions, err := s.repo.List(map[string]any{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to load session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, "", nil
	}

	// Highest sequence is the most recently saved.
	latest := sessions[len(sessions)-1]
	identity := latest.Identity()
	return &identity, latest.RefreshToken(), nil
}

// Clear soft-deletes every live session.
func (s *SessionStore) Clear() error {
	sessions, err := s.repo.List(map[string]any{})
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, session := range sessions {
		if err := s.repo.Delete(session.ID()); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	return nil
}
