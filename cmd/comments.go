package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bookhaven/haven/internal/comments"
	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/urfave/cli/v3"
)

// CommentsList shows a book's comment thread.
func (r *Runner) CommentsList(ctx context.Context, cmd *cli.Command) error {
	bookID := cmd.StringArg("book")
	if bookID == "" {
		return fmt.Errorf("%w: book ID", shared.ErrMissingArgument)
	}

	thread, err := r.catalog.ListComments(ctx, bookID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(thread, cmd.Bool("pretty"))
	}

	if len(thread) == 0 {
		return r.writePlain("No comments yet\n")
	}
	for _, comment := range thread {
		r.writePlain("%s (%s)\n  %s\n", comment.AuthorName, shared.RelativeTime(comment.CreatedAt), comment.Text)
	}
	return nil
}

// CommentsPost posts a comment to a book's thread.
func (r *Runner) CommentsPost(ctx context.Context, cmd *cli.Command) error {
	bookID := cmd.StringArg("book")
	if bookID == "" {
		return fmt.Errorf("%w: book ID", shared.ErrMissingArgument)
	}

	r.restoreSession(ctx)

	channel := comments.NewChannel(r.catalog, r.broadcast, r.logger)
	if err := channel.Post(ctx, bookID, cmd.String("text"), r.manager.Identity()); err != nil {
		return err
	}
	return r.writePlain("✓ Comment posted\n")
}

// CommentsWatch streams a book's comment thread until interrupted.
//
// It prefers the push channel and falls back to polling when the broadcast
// connection cannot be established or drops mid-stream.
func (r *Runner) CommentsWatch(ctx context.Context, cmd *cli.Command) error {
	bookID := cmd.StringArg("book")
	if bookID == "" {
		return fmt.Errorf("%w: book ID", shared.ErrMissingArgument)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	channel := comments.NewChannel(r.catalog, r.broadcast, r.logger)

	var mu sync.Mutex
	printed := 0
	channel.OnUpdate(func(thread []models.Comment) {
		mu.Lock()
		defer mu.Unlock()
		if len(thread) < printed {
			printed = 0
		}
		for _, comment := range thread[printed:] {
			r.writePlain("%s: %s\n", comment.AuthorName, comment.Text)
		}
		printed = len(thread)
	})

	if err := channel.Load(ctx, bookID); err != nil {
		return err
	}

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	startPoller := func() {
		poller := comments.NewPoller(r.catalog, channel, cmd.Duration("poll-interval"), r.logger)
		go poller.Run(pollCtx)
	}

	r.broadcast.OnDisconnect(func(err error) {
		r.logger.Warn("push channel lost, polling instead", "error", err)
		startPoller()
	})

	if err := r.broadcast.Connect(ctx); err != nil {
		r.logger.Warn("push channel unavailable, polling instead", "error", err)
		startPoller()
	} else {
		if err := channel.Subscribe(bookID); err != nil {
			return err
		}
		defer r.broadcast.Close()
	}

	r.writePlain("Watching comments for %s (ctrl+c to stop)\n", bookID)
	<-ctx.Done()

	if err := channel.Unsubscribe(); err != nil {
		r.logger.Debug("unsubscribe failed", "error", err)
	}
	return nil
}
