package comments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
	tu "github.com/bookhaven/haven/internal/testing"
)

func makeComment(id, bookID, author, text string) models.Comment {
	return models.Comment{
		ID:          id,
		BookID:      bookID,
		AuthorName:  author,
		AuthorEmail: author + "@example.com",
		Text:        text,
		CreatedAt:   time.Now(),
	}
}

func threadTexts(thread []models.Comment) []string {
	texts := make([]string, len(thread))
	for i, c := range thread {
		texts[i] = c.Text
	}
	return texts
}

func assertTexts(t *testing.T, thread []models.Comment, want ...string) {
	t.Helper()
	if len(thread) != len(want) {
		t.Fatalf("expected %d comments, got %d: %v", len(want), len(thread), threadTexts(thread))
	}
	for i, text := range want {
		if thread[i].Text != text {
			t.Errorf("position %d: expected %q, got %q", i, text, thread[i].Text)
		}
	}
}

func TestChannelLoad(t *testing.T) {
	t.Run("Replaces Sequence Wholesale", func(t *testing.T) {
		api := &tu.MockCatalog{
			ListCommentsFunc: func(ctx context.Context, bookID string) ([]models.Comment, error) {
				return []models.Comment{
					makeComment("c1", bookID, "ana", "first"),
					makeComment("c2", bookID, "bob", "second"),
				}, nil
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)

		if err := ch.Load(context.Background(), "book-1"); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		assertTexts(t, ch.Comments(), "first", "second")

		api.ListCommentsFunc = func(ctx context.Context, bookID string) ([]models.Comment, error) {
			return []models.Comment{makeComment("c9", bookID, "cal", "only")}, nil
		}
		if err := ch.Load(context.Background(), "book-1"); err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		assertTexts(t, ch.Comments(), "only")
	})

	t.Run("Failure Clears Sequence", func(t *testing.T) {
		calls := 0
		api := &tu.MockCatalog{
			ListCommentsFunc: func(ctx context.Context, bookID string) ([]models.Comment, error) {
				calls++
				if calls == 1 {
					return []models.Comment{makeComment("c1", bookID, "ana", "first")}, nil
				}
				return nil, errors.New("boom")
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)

		if err := ch.Load(context.Background(), "book-1"); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		err := ch.Load(context.Background(), "book-1")
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}
		if len(ch.Comments()) != 0 {
			t.Errorf("expected empty sequence after failed load, got %v", threadTexts(ch.Comments()))
		}
	})

	t.Run("Stale Result Discarded After New Load", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		api := &tu.MockCatalog{
			ListCommentsFunc: func(ctx context.Context, bookID string) ([]models.Comment, error) {
				if bookID == "slow" {
					close(started)
					<-release
					return []models.Comment{makeComment("s1", bookID, "ana", "stale")}, nil
				}
				return []models.Comment{makeComment("f1", bookID, "bob", "fresh")}, nil
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)

		done := make(chan error, 1)
		go func() { done <- ch.Load(context.Background(), "slow") }()
		<-started

		// The fast load for another book supersedes the in-flight one.
		if err := ch.Load(context.Background(), "fast"); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("stale load should resolve without error, got %v", err)
		}
		assertTexts(t, ch.Comments(), "fresh")
	})

	t.Run("Result After Teardown Is No-Op", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		api := &tu.MockCatalog{
			ListCommentsFunc: func(ctx context.Context, bookID string) ([]models.Comment, error) {
				close(started)
				<-release
				return []models.Comment{makeComment("c1", bookID, "ana", "late")}, nil
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)

		done := make(chan error, 1)
		go func() { done <- ch.Load(context.Background(), "book-1") }()
		<-started

		if err := ch.Unsubscribe(); err != nil {
			t.Fatalf("unsubscribe failed: %v", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("late load should resolve without error, got %v", err)
		}
		if len(ch.Comments()) != 0 {
			t.Errorf("expected no comments after teardown, got %v", threadTexts(ch.Comments()))
		}
	})
}

func TestChannelSubscribe(t *testing.T) {
	t.Run("Pushed Comments Append In Arrival Order", func(t *testing.T) {
		api := &tu.MockCatalog{
			ListCommentsFunc: func(ctx context.Context, bookID string) ([]models.Comment, error) {
				return []models.Comment{makeComment("c1", bookID, "ana", "loaded")}, nil
			},
		}
		broadcast := tu.NewMockBroadcast()
		ch := NewChannel(api, broadcast, nil)

		if err := ch.Load(context.Background(), "book-1"); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if err := ch.Subscribe("book-1"); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		for i := 0; i < 3; i++ {
			broadcast.Push(makeComment(fmt.Sprintf("p%d", i), "book-1", "bob", fmt.Sprintf("push-%d", i)))
		}

		assertTexts(t, ch.Comments(), "loaded", "push-0", "push-1", "push-2")
	})

	t.Run("Duplicate Push Lands Exactly Once", func(t *testing.T) {
		history := makeComment("c1", "book-1", "ana", "hi")
		api := &tu.MockCatalog{
			ListCommentsFunc: func(ctx context.Context, bookID string) ([]models.Comment, error) {
				return []models.Comment{history}, nil
			},
		}
		broadcast := tu.NewMockBroadcast()
		ch := NewChannel(api, broadcast, nil)

		if err := ch.Load(context.Background(), "book-1"); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if err := ch.Subscribe("book-1"); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		broadcast.Push(makeComment("c2", "book-1", "bob", "bye"))
		broadcast.Push(history) // server re-delivers the loaded comment

		assertTexts(t, ch.Comments(), "hi", "bye")
	})

	t.Run("Switching Books Leaves Previous Room First", func(t *testing.T) {
		broadcast := &orderedBroadcast{}
		ch := NewChannel(&tu.MockCatalog{}, broadcast, nil)

		if err := ch.Subscribe("book-a"); err != nil {
			t.Fatalf("subscribe a failed: %v", err)
		}
		if err := ch.Subscribe("book-b"); err != nil {
			t.Fatalf("subscribe b failed: %v", err)
		}

		want := []string{"join:book-a", "leave:book-a", "join:book-b"}
		if len(broadcast.events) != len(want) {
			t.Fatalf("expected events %v, got %v", want, broadcast.events)
		}
		for i, ev := range want {
			if broadcast.events[i] != ev {
				t.Errorf("event %d: expected %s, got %s", i, ev, broadcast.events[i])
			}
		}
	})

	t.Run("Resubscribing Same Book Is Idempotent", func(t *testing.T) {
		broadcast := tu.NewMockBroadcast()
		ch := NewChannel(&tu.MockCatalog{}, broadcast, nil)

		if err := ch.Subscribe("book-1"); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		if err := ch.Subscribe("book-1"); err != nil {
			t.Fatalf("resubscribe failed: %v", err)
		}

		if len(broadcast.Joined) != 1 {
			t.Errorf("expected one join, got %d", len(broadcast.Joined))
		}
	})
}

// orderedBroadcast records join/leave ordering.
type orderedBroadcast struct {
	events []string
}

func (b *orderedBroadcast) Join(bookID string, fn func(models.Comment)) error {
	b.events = append(b.events, "join:"+bookID)
	return nil
}

func (b *orderedBroadcast) Leave(bookID string) error {
	b.events = append(b.events, "leave:"+bookID)
	return nil
}

func TestChannelUnsubscribe(t *testing.T) {
	t.Run("Leaves Room And Detaches Handler", func(t *testing.T) {
		broadcast := tu.NewMockBroadcast()
		ch := NewChannel(&tu.MockCatalog{}, broadcast, nil)

		if err := ch.Subscribe("book-1"); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		if err := ch.Unsubscribe(); err != nil {
			t.Fatalf("unsubscribe failed: %v", err)
		}

		if len(broadcast.Left) != 1 || broadcast.Left[0] != "book-1" {
			t.Errorf("expected leave for book-1, got %v", broadcast.Left)
		}
	})

	t.Run("Late Push After Teardown Is Dropped", func(t *testing.T) {
		broadcast := tu.NewMockBroadcast()
		ch := NewChannel(&tu.MockCatalog{}, broadcast, nil)

		if err := ch.Subscribe("book-1"); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		// Capture the handler as the transport holds it, then tear down.
		handler := broadcast.Handler("book-1")
		if err := ch.Unsubscribe(); err != nil {
			t.Fatalf("unsubscribe failed: %v", err)
		}

		handler(makeComment("c1", "book-1", "ana", "late"))

		if len(ch.Comments()) != 0 {
			t.Errorf("late push should not mutate, got %v", threadTexts(ch.Comments()))
		}
	})

	t.Run("Idempotent Without Subscription", func(t *testing.T) {
		ch := NewChannel(&tu.MockCatalog{}, tu.NewMockBroadcast(), nil)
		if err := ch.Unsubscribe(); err != nil {
			t.Errorf("unsubscribe without subscription should be a no-op, got %v", err)
		}
	})
}

func TestChannelPost(t *testing.T) {
	author := &models.Identity{
		SubjectID:   "u1",
		DisplayName: "Ana",
		Email:       "ana@example.com",
	}

	t.Run("Dispatches Trimmed Comment", func(t *testing.T) {
		var posted *models.Comment
		api := &tu.MockCatalog{
			PostCommentFunc: func(ctx context.Context, comment models.Comment) error {
				posted = &comment
				return nil
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)

		if err := ch.Post(context.Background(), "book-1", "  hello  ", author); err != nil {
			t.Fatalf("post failed: %v", err)
		}
		if posted == nil {
			t.Fatal("expected comment to be dispatched")
		}
		if posted.Text != "hello" {
			t.Errorf("expected trimmed text, got %q", posted.Text)
		}
		if posted.AuthorEmail != "ana@example.com" {
			t.Errorf("expected author email, got %q", posted.AuthorEmail)
		}
	})

	t.Run("Does Not Append Locally", func(t *testing.T) {
		ch := NewChannel(&tu.MockCatalog{}, tu.NewMockBroadcast(), nil)
		if err := ch.Post(context.Background(), "book-1", "hello", author); err != nil {
			t.Fatalf("post failed: %v", err)
		}
		if len(ch.Comments()) != 0 {
			t.Error("post must not append locally; the push path delivers it")
		}
	})

	t.Run("Rejects Empty Text Before Dispatch", func(t *testing.T) {
		dispatched := false
		api := &tu.MockCatalog{
			PostCommentFunc: func(ctx context.Context, comment models.Comment) error {
				dispatched = true
				return nil
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)

		err := ch.Post(context.Background(), "book-1", "   ", author)
		if !errors.Is(err, shared.ErrEmptyComment) {
			t.Fatalf("expected ErrEmptyComment, got %v", err)
		}
		if dispatched {
			t.Error("empty comment must not reach the network")
		}
	})

	t.Run("Rejects Missing Identity Before Dispatch", func(t *testing.T) {
		dispatched := false
		api := &tu.MockCatalog{
			PostCommentFunc: func(ctx context.Context, comment models.Comment) error {
				dispatched = true
				return nil
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)

		err := ch.Post(context.Background(), "book-1", "hello", nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if dispatched {
			t.Error("unauthenticated comment must not reach the network")
		}
	})
}

func TestChannelMerge(t *testing.T) {
	t.Run("Upserts Polled Batch", func(t *testing.T) {
		api := &tu.MockCatalog{
			ListCommentsFunc: func(ctx context.Context, bookID string) ([]models.Comment, error) {
				return []models.Comment{makeComment("c1", bookID, "ana", "hi")}, nil
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)
		if err := ch.Load(context.Background(), "book-1"); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		ch.Merge("book-1", []models.Comment{
			makeComment("c1", "book-1", "ana", "hi"),
			makeComment("c2", "book-1", "bob", "bye"),
		})

		assertTexts(t, ch.Comments(), "hi", "bye")
	})

	t.Run("Drops Batch For Other Book", func(t *testing.T) {
		ch := NewChannel(&tu.MockCatalog{}, tu.NewMockBroadcast(), nil)
		if err := ch.Load(context.Background(), "book-1"); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		ch.Merge("book-2", []models.Comment{makeComment("x1", "book-2", "cal", "wrong")})

		if len(ch.Comments()) != 0 {
			t.Errorf("batch for another book must be dropped, got %v", threadTexts(ch.Comments()))
		}
	})
}

func TestPoller(t *testing.T) {
	t.Run("Merges On Interval Until Cancelled", func(t *testing.T) {
		api := &tu.MockCatalog{
			ListCommentsFunc: func(ctx context.Context, bookID string) ([]models.Comment, error) {
				return []models.Comment{makeComment("c1", bookID, "ana", "polled")}, nil
			},
		}
		ch := NewChannel(api, tu.NewMockBroadcast(), nil)
		if err := ch.Load(context.Background(), "book-1"); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		updated := make(chan struct{}, 1)
		ch.OnUpdate(func(thread []models.Comment) {
			if len(thread) > 0 {
				select {
				case updated <- struct{}{}:
				default:
				}
			}
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		poller := NewPoller(api, ch, 5*time.Millisecond, nil)
		go func() { done <- poller.Run(ctx) }()

		select {
		case <-updated:
		case <-time.After(2 * time.Second):
			t.Fatal("poller never merged a batch")
		}

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}

		assertTexts(t, ch.Comments(), "polled")
	})

	t.Run("Defaults Interval", func(t *testing.T) {
		poller := NewPoller(&tu.MockCatalog{}, NewChannel(&tu.MockCatalog{}, tu.NewMockBroadcast(), nil), 0, nil)
		if poller.interval != DefaultPollInterval {
			t.Errorf("expected default interval, got %v", poller.interval)
		}
	})
}
