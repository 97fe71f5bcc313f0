package main

import (
	"context"
	"fmt"

	"github.com/bookhaven/haven/internal/comments"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/bookhaven/haven/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for browsing the catalog.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.catalog == nil {
		return fmt.Errorf("%w: catalog client not initialized", shared.ErrMissingConfig)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/haven-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	r.restoreSession(ctx)

	channel := comments.NewChannel(r.catalog, r.broadcast, fileLogger)

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	startPoller := func() {
		poller := comments.NewPoller(r.catalog, channel, 0, fileLogger)
		go poller.Run(pollCtx)
	}

	r.broadcast.OnDisconnect(func(err error) {
		fileLogger.Warn("push channel lost, polling instead", "error", err)
		startPoller()
	})

	if err := r.broadcast.Connect(ctx); err != nil {
		fileLogger.Warn("push channel unavailable, polling instead", "error", err)
		startPoller()
	} else {
		defer r.broadcast.Close()
	}

	var history ui.HistoryRecorder
	if r.history != nil {
		history = r.history
	}
	model := ui.NewModel(ctx, r.catalog, channel, r.manager, history)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
