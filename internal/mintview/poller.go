package mintview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"drop-mint/internal/domain"
	"drop-mint/internal/evm"
)

// DefaultRefreshInterval is used when PollerOptions.Interval is zero.
const DefaultRefreshInterval = 15 * time.Second

var (
	// ErrStaleGeneration is returned by a refresh whose results were
	// discarded because the poller was restarted or closed meanwhile.
	ErrStaleGeneration = errors.New("stale generation")

	// ErrPollerRunning is returned by Start on a running poller.
	ErrPollerRunning = errors.New("poller already running")
)

// Refresh triggers.
const (
	TriggerStart    = "start"
	TriggerInterval = "interval"
	TriggerHead     = "head"
	TriggerManual   = "manual"
)

// RefreshResult describes one completed refresh.
type RefreshResult struct {
	Trigger    string
	Generation uint64
	Duration   time.Duration
	Err        error
	Stale      bool
	Snapshot   Snapshot
}

// Poller keeps a Snapshot of the drop up to date. It refreshes on an
// interval and, when a head subscriber is configured, on every new block.
type Poller struct {
	reader    Reader
	heads     HeadSubscriber
	interval  time.Duration
	logger    *zap.Logger
	onRefresh func(RefreshResult)

	snap atomic.Pointer[Snapshot]
	gen  atomic.Uint64

	commitMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// PollerOptions contains configuration for creating a Poller.
type PollerOptions struct {
	Reader    Reader
	Heads     HeadSubscriber // optional
	Interval  time.Duration  // Default: DefaultRefreshInterval
	Logger    *zap.Logger
	OnRefresh func(RefreshResult) // called after every refresh, in the refreshing goroutine
}

// NewPoller creates a stopped poller with an empty snapshot.
func NewPoller(opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultRefreshInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Poller{
		reader:    opts.Reader,
		heads:     opts.Heads,
		interval:  interval,
		logger:    logger,
		onRefresh: opts.OnRefresh,
	}
	p.snap.Store(&Snapshot{})
	return p
}

// Start begins a new generation with an empty snapshot and refreshes in the
// background until ctx is cancelled or Close is called.
func (p *Poller) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.cancel != nil {
		return ErrPollerRunning
	}

	ctx, cancel := context.WithCancel(ctx)

	p.commitMu.Lock()
	gen := p.gen.Add(1)
	p.snap.Store(&Snapshot{Generation: gen})
	p.commitMu.Unlock()

	var heads <-chan evm.Head
	if p.heads != nil {
		ch, err := p.heads.SubscribeNewHeads(ctx)
		if err != nil {
			p.logger.Warn("new heads subscription failed, polling on interval only", zap.Error(err))
		} else {
			heads = ch
		}
	}

	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, gen, heads, p.done)

	p.logger.Info("poller started",
		zap.Uint64("generation", gen),
		zap.Duration("interval", p.interval),
		zap.Bool("heads", heads != nil),
	)
	return nil
}

// Close stops the poller and invalidates every in-flight refresh. It waits
// for the background goroutine to exit.
func (p *Poller) Close() error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.commitMu.Lock()
	p.gen.Add(1)
	p.commitMu.Unlock()

	if p.cancel == nil {
		return nil
	}

	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	return nil
}

func (p *Poller) run(ctx context.Context, gen uint64, heads <-chan evm.Head, done chan struct{}) {
	defer close(done)

	p.refresh(ctx, gen, TriggerStart)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			p.refresh(ctx, gen, TriggerInterval)

		case head, ok := <-heads:
			if !ok {
				p.logger.Warn("new heads subscription closed, polling on interval only")
				heads = nil
				continue
			}
			p.logger.Debug("new head", zap.Uint64("block", head.Number))
			p.refresh(ctx, gen, TriggerHead)
		}
	}
}

// Refresh fetches all snapshots once in the current generation.
func (p *Poller) Refresh(ctx context.Context) error {
	return p.refresh(ctx, p.gen.Load(), TriggerManual)
}

func (p *Poller) refresh(ctx context.Context, gen uint64, trigger string) (err error) {
	start := time.Now()
	next := p.Snapshot()
	stale := false

	defer func() {
		if p.onRefresh != nil {
			p.onRefresh(RefreshResult{
				Trigger:    trigger,
				Generation: gen,
				Duration:   time.Since(start),
				Err:        err,
				Stale:      stale,
				Snapshot:   next,
			})
		}
	}()

	if !next.ContractReady {
		if err := p.reader.Ready(ctx); err != nil {
			p.logger.Warn("contract not ready", zap.String("trigger", trigger), zap.Error(err))
			return fmt.Errorf("contract: %w", err)
		}
		next.ContractReady = true
	}

	var g errgroup.Group

	if next.Metadata == nil {
		g.Go(func() error {
			meta, err := p.reader.Metadata(ctx)
			if err != nil {
				return fmt.Errorf("metadata: %w", err)
			}
			next.Metadata = meta
			return nil
		})
	}

	g.Go(func() error {
		claimed, err := p.reader.ClaimedSupply(ctx)
		if err != nil {
			return fmt.Errorf("claimed supply: %w", err)
		}
		next.Claimed = &claimed
		return nil
	})

	g.Go(func() error {
		unclaimed, err := p.reader.UnclaimedSupply(ctx)
		if err != nil {
			return fmt.Errorf("unclaimed supply: %w", err)
		}
		next.Unclaimed = &unclaimed
		return nil
	})

	g.Go(func() error {
		cond, err := p.reader.ActiveClaimCondition(ctx)
		if err != nil {
			return fmt.Errorf("claim condition: %w", err)
		}
		next.Condition = cond
		return nil
	})

	fetchErr := g.Wait()

	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	if p.gen.Load() != gen {
		stale = true
		p.logger.Debug("discarding stale refresh",
			zap.Uint64("generation", gen),
			zap.String("trigger", trigger),
		)
		return ErrStaleGeneration
	}

	next.Generation = gen
	next.UpdatedAt = time.Now()
	p.snap.Store(&next)

	if fetchErr != nil {
		p.logger.Warn("refresh incomplete, keeping last values",
			zap.String("trigger", trigger),
			zap.Error(fetchErr),
		)
	}
	return fetchErr
}

// Snapshot returns the latest committed snapshot.
func (p *Poller) Snapshot() Snapshot {
	return *p.snap.Load()
}

// Generation returns the current generation token.
func (p *Poller) Generation() uint64 {
	return p.gen.Load()
}

// Contract reports whether the contract handle is available.
func (p *Poller) Contract() bool {
	return p.Snapshot().ContractReady
}

// Metadata returns the collection metadata, or nil before it is fetched.
func (p *Poller) Metadata() *domain.ContractMetadata {
	return p.Snapshot().Metadata
}

// ClaimedSupply returns the claimed count and whether it has been fetched.
func (p *Poller) ClaimedSupply() (uint64, bool) {
	s := p.Snapshot()
	if s.Claimed == nil {
		return 0, false
	}
	return *s.Claimed, true
}

// UnclaimedSupply returns the unclaimed count and whether it has been fetched.
func (p *Poller) UnclaimedSupply() (uint64, bool) {
	s := p.Snapshot()
	if s.Unclaimed == nil {
		return 0, false
	}
	return *s.Unclaimed, true
}

// ActiveClaimCondition returns the active claim phase, or nil if none is
// known.
func (p *Poller) ActiveClaimCondition() *domain.ClaimCondition {
	return p.Snapshot().Condition
}
