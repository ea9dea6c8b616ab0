package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// Poll cadence. Regular users poll faster because they are waiting on a
// reply; the admin view tolerates more staleness.
const (
	UserPollInterval  = 3 * time.Second
	AdminPollInterval = 5 * time.Second
)

// Poller drives the periodic snapshot fetches that keep a client converged
// with the server. A failed poll is logged and retried on the next tick;
// there is no backoff because the cadence is already slow.
type Poller struct {
	API *API
	Log zerolog.Logger

	// Interval overrides the role-based default cadence when positive.
	Interval time.Duration

	// OnResponses receives the newly merged entry count after each
	// successful user poll. Optional.
	OnResponses func(added int)
	// OnPending receives the full pending snapshot after each successful
	// admin poll. Optional.
	OnPending func(msgs []domain.PendingMessage)
}

func (p *Poller) interval(def time.Duration) time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return def
}

// RunUser polls /api/user-response for userID every UserPollInterval and
// merges each snapshot into hist until ctx is cancelled.
func (p *Poller) RunUser(ctx context.Context, userID string, hist *History) {
	ticker := time.NewTicker(p.interval(UserPollInterval))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			responses, err := p.API.UserResponses(ctx, userID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.Log.Warn().Err(err).Msg("response poll failed, will retry")
				continue
			}
			if added := hist.Merge(responses); added > 0 {
				p.Log.Debug().Int("added", added).Msg("merged new responses")
				if p.OnResponses != nil {
					p.OnResponses(added)
				}
			}
		}
	}
}

// RunAdmin polls /api/pending-messages every AdminPollInterval and hands each
// snapshot to OnPending until ctx is cancelled.
func (p *Poller) RunAdmin(ctx context.Context) {
	ticker := time.NewTicker(p.interval(AdminPollInterval))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msgs, err := p.API.PendingMessages(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.Log.Warn().Err(err).Msg("pending poll failed, will retry")
				continue
			}
			if p.OnPending != nil {
				p.OnPending(msgs)
			}
		}
	}
}
