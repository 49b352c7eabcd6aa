package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pairchat/internal/models"
)

// matchResult is a successful matchmaking outcome reported by the poller.
type matchResult struct {
	RoomID      string
	PartnerName string
}

// poller drives the waiting phase: one status check immediately, then one per
// interval until it observes a match or is stopped. Check failures are
// swallowed and polling continues; matchmaking hiccups are expected to be
// transient. On a match the poller cancels its own future ticks before
// reporting, so a concurrently-arriving immediate-match response cannot race a
// second tick.
type poller struct {
	check    func(ctx context.Context) (models.HeartbeatResponse, error)
	interval time.Duration
	onMatch  func(matchResult)
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newPoller(
	check func(ctx context.Context) (models.HeartbeatResponse, error),
	interval time.Duration,
	onMatch func(matchResult),
	log zerolog.Logger,
) *poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &poller{
		check:    check,
		interval: interval,
		onMatch:  onMatch,
		log:      log.With().Str("component", "poller").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// run blocks until the poller matches or is stopped. Callers start it with go.
func (p *poller) run() {
	if p.tick() {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if p.tick() {
				return
			}
		}
	}
}

// tick performs one status check. Reports whether polling should stop.
func (p *poller) tick() bool {
	resp, err := p.check(p.ctx)
	if err != nil {
		if p.ctx.Err() != nil {
			return true
		}
		p.log.Debug().Err(err).Msg("status check failed, continuing")
		return false
	}
	if p.ctx.Err() != nil {
		// Stopped while the check was in flight; the result is stale.
		return true
	}
	if resp.Status != models.MatchStatusMatched || resp.RoomPublicID == "" {
		return false
	}

	p.stop()
	p.onMatch(matchResult{RoomID: resp.RoomPublicID, PartnerName: resp.PartnerName})
	return true
}

// stop cancels future ticks. Safe to call more than once; a check already in
// flight is cancelled through the poller context.
func (p *poller) stop() {
	p.once.Do(p.cancel)
}
