package comments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/charmbracelet/log"
)

// API is the slice of the catalog the channel consumes.
// Implemented by services.BooksService.
type API interface {
	ListComments(ctx context.Context, bookID string) ([]models.Comment, error)
	PostComment(ctx context.Context, comment models.Comment) error
}

// BroadcastChannel is the push transport collaborator.
//
// The connection behind it is process-wide and shared across all views; only
// room membership is per-channel state. Implemented by socket.Client;
// injectable for tests.
type BroadcastChannel interface {
	// Join enters the broadcast room scoped to bookID and registers fn for
	// comments pushed to that room.
	Join(bookID string, fn func(models.Comment)) error

	// Leave exits the room and detaches the handler registered by Join.
	Leave(bookID string) error
}

// Channel maintains a live-updating ordered comment sequence for exactly one
// book at a time, for the lifetime of a view.
//
// The sequence is append-only after the initial load. Pushed comments are
// upserted by comment identity rather than blindly appended, so a comment
// that arrives via both the initial fetch and the push channel lands exactly
// once; genuinely new comments append in arrival order.
type Channel struct {
	mu        sync.Mutex
	api       API
	broadcast BroadcastChannel
	logger    *log.Logger

	bookID   string
	active   bool // broadcast room joined
	loadGen  int  // suppresses stale fetch results
	comments []models.Comment
	index    map[string]int
	onUpdate func([]models.Comment)
}

// NewChannel creates a comment channel over the given collaborators.
func NewChannel(api API, broadcast BroadcastChannel, logger *log.Logger) *Channel {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Channel{
		api:       api,
		broadcast: broadcast,
		logger:    logger,
		index:     map[string]int{},
	}
}

// OnUpdate registers a callback invoked with a snapshot of the sequence
// after every mutation. Used by the TUI to refresh the comment view.
func (ch *Channel) OnUpdate(fn func([]models.Comment)) {
	ch.mu.Lock()
	ch.onUpdate = fn
	ch.mu.Unlock()
}

// Load performs one blocking fetch of the full comment history for bookID
// and replaces the local sequence wholesale.
//
// On failure the sequence is cleared and a fetch error surfaced; no partial
// data is kept. A result that arrives after the channel moved on (new load,
// different book, teardown) is discarded without effect.
func (ch *Channel) Load(ctx context.Context, bookID string) error {
	ch.mu.Lock()
	ch.loadGen++
	gen := ch.loadGen
	ch.bookID = bookID
	ch.mu.Unlock()

	history, err := ch.api.ListComments(ctx, bookID)

	ch.mu.Lock()
	if gen != ch.loadGen || ch.bookID != bookID {
		ch.mu.Unlock()
		return nil
	}

	if err != nil {
		ch.comments = nil
		ch.index = map[string]int{}
		ch.mu.Unlock()
		ch.notify()
		return fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}

	ch.comments = make([]models.Comment, 0, len(history))
	ch.index = map[string]int{}
	for _, c := range history {
		ch.upsertLocked(c)
	}
	ch.mu.Unlock()

	ch.notify()
	return nil
}

// Subscribe joins the broadcast room scoped to bookID.
//
// At most one room is joined at a time: subscribing to a different book
// leaves the previous room before joining the new one, never holding both.
func (ch *Channel) Subscribe(bookID string) error {
	ch.mu.Lock()
	if ch.active && ch.bookID == bookID {
		ch.mu.Unlock()
		return nil
	}
	previous := ""
	if ch.active {
		previous = ch.bookID
		ch.active = false
	}
	ch.mu.Unlock()

	if previous != "" {
		if err := ch.broadcast.Leave(previous); err != nil {
			ch.logger.Warn("failed to leave previous room", "book", previous, "error", err)
		}
	}

	handler := func(c models.Comment) {
		ch.deliver(bookID, c)
	}
	if err := ch.broadcast.Join(bookID, handler); err != nil {
		return fmt.Errorf("failed to join room for book %s: %w", bookID, err)
	}

	ch.mu.Lock()
	ch.bookID = bookID
	ch.active = true
	ch.mu.Unlock()
	return nil
}

// Unsubscribe leaves the current room and detaches the push handler.
//
// Idempotent: it is called on every view teardown regardless of outcome.
// Push events that race the teardown are dropped, not applied.
func (ch *Channel) Unsubscribe() error {
	ch.mu.Lock()
	if !ch.active {
		// Invalidate any in-flight load so the torn-down view's state
		// is never touched by its late result.
		ch.loadGen++
		ch.mu.Unlock()
		return nil
	}
	bookID := ch.bookID
	ch.active = false
	ch.loadGen++
	ch.mu.Unlock()

	if err := ch.broadcast.Leave(bookID); err != nil {
		return fmt.Errorf("failed to leave room for book %s: %w", bookID, err)
	}
	return nil
}

// Post submits a comment to the thread. It requires a live Identity and
// non-empty trimmed text, both enforced before any network dispatch.
//
// The result is not appended locally; the broadcast delivers the author's
// own comment back through the push path.
func (ch *Channel) Post(ctx context.Context, bookID, text string, author *models.Identity) error {
	if author == nil {
		return fmt.Errorf("%w: sign in to comment", shared.ErrNotAuthenticated)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return shared.ErrEmptyComment
	}

	comment := models.Comment{
		BookID:      bookID,
		AuthorName:  author.DisplayName,
		AuthorEmail: author.Email,
		AvatarURL:   author.AvatarURL,
		Text:        trimmed,
	}

	if err := ch.api.PostComment(ctx, comment); err != nil {
		return err
	}
	return nil
}

// Comments returns a snapshot of the local sequence in arrival order.
func (ch *Channel) Comments() []models.Comment {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]models.Comment, len(ch.comments))
	copy(out, ch.comments)
	return out
}

// BookID returns the book the channel currently tracks.
func (ch *Channel) BookID() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.bookID
}

// deliver applies one pushed comment. Late arrivals after unsubscribe, and
// pushes for a room the channel has already left, are no-ops.
func (ch *Channel) deliver(bookID string, c models.Comment) {
	ch.mu.Lock()
	if !ch.active || ch.bookID != bookID {
		ch.mu.Unlock()
		return
	}
	ch.upsertLocked(c)
	ch.mu.Unlock()

	ch.notify()
}

// Merge upserts a polled batch of comments for bookID. Used by the poll
// fallback; batches for a book the channel no longer tracks are dropped.
func (ch *Channel) Merge(bookID string, batch []models.Comment) {
	ch.mu.Lock()
	if ch.bookID != bookID {
		ch.mu.Unlock()
		return
	}
	for _, c := range batch {
		ch.upsertLocked(c)
	}
	ch.mu.Unlock()

	ch.notify()
}

// upsertLocked inserts c keyed by its stable identity, replacing in place on
// a duplicate so the sequence position of the first arrival is kept.
func (ch *Channel) upsertLocked(c models.Comment) {
	key := c.Key()
	if i, ok := ch.index[key]; ok {
		ch.comments[i] = c
		return
	}
	ch.index[key] = len(ch.comments)
	ch.comments = append(ch.comments, c)
}

// notify invokes the update callback with a fresh snapshot.
func (ch *Channel) notify() {
	ch.mu.Lock()
	fn := ch.onUpdate
	var snapshot []models.Comment
	if fn != nil {
		snapshot = make([]models.Comment, len(ch.comments))
		copy(snapshot, ch.comments)
	}
	ch.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}
