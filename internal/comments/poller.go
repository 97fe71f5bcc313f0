package comments

import (
	"context"
	"time"

	"github.com/bookhaven/haven/internal/shared"
	"github.com/charmbracelet/log"
)

// DefaultPollInterval matches the refresh cadence used when the push
// transport is unavailable.
const DefaultPollInterval = 5 * time.Second

// Poller refetches a book's comment thread on a fixed interval and merges
// each batch into the channel. It is the degraded-mode substitute for the
// broadcast subscription: same upsert semantics, higher latency.
type Poller struct {
	api      API
	channel  *Channel
	interval time.Duration
	logger   *log.Logger
}

// NewPoller creates a poller over the given channel. A non-positive interval
// falls back to [DefaultPollInterval].
func NewPoller(api API, channel *Channel, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Poller{api: api, channel: channel, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled. Individual fetch failures are logged and
// skipped; the next tick retries.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			bookID := p.channel.BookID()
			if bookID == "" {
				continue
			}
			batch, err := p.api.ListComments(ctx, bookID)
			if err != nil {
				p.logger.Warn("comment poll failed", "book", bookID, "error", err)
				continue
			}
			p.channel.Merge(bookID, batch)
		}
	}
}
