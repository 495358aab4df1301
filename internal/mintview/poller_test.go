package mintview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"drop-mint/internal/domain"
	"drop-mint/internal/evm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeReader serves configurable values; block, when set, stalls
// ClaimedSupply until closed.
type fakeReader struct {
	mu sync.Mutex

	readyErr     error
	meta         *domain.ContractMetadata
	metaErr      error
	metaCalls    int
	claimed      uint64
	claimedErr   error
	unclaimed    uint64
	unclaimedErr error
	cond         *domain.ClaimCondition
	condErr      error

	block   chan struct{}
	blocked chan struct{}
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		meta:      testMetadata(),
		claimed:   3,
		unclaimed: 7,
		cond:      condition(7, "0", 18, "MATIC"),
	}
}

func (r *fakeReader) Ready(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readyErr
}

func (r *fakeReader) Metadata(context.Context) (*domain.ContractMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metaCalls++
	return r.meta, r.metaErr
}

func (r *fakeReader) ClaimedSupply(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	block, blocked := r.block, r.blocked
	r.mu.Unlock()

	if block != nil {
		close(blocked)
		select {
		case <-block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimed, r.claimedErr
}

func (r *fakeReader) UnclaimedSupply(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unclaimed, r.unclaimedErr
}

func (r *fakeReader) ActiveClaimCondition(context.Context) (*domain.ClaimCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cond, r.condErr
}

func (r *fakeReader) set(fn func(r *fakeReader)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

type fakeHeads struct {
	ch chan evm.Head
}

func (h *fakeHeads) SubscribeNewHeads(context.Context) (<-chan evm.Head, error) {
	return h.ch, nil
}

// refreshes collects RefreshResults without ever blocking the poller.
func refreshes() (chan RefreshResult, func(RefreshResult)) {
	ch := make(chan RefreshResult, 64)
	return ch, func(r RefreshResult) {
		select {
		case ch <- r:
		default:
		}
	}
}

func waitRefresh(t *testing.T, ch <-chan RefreshResult, trigger string) RefreshResult {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			if r.Trigger == trigger {
				return r
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %s refresh", trigger)
			return RefreshResult{}
		}
	}
}

func TestPoller_Refresh(t *testing.T) {
	p := NewPoller(PollerOptions{Reader: newFakeReader()})

	require.NoError(t, p.Refresh(context.Background()))

	assert.True(t, p.Contract())
	assert.Equal(t, "Tiny Kittens", p.Metadata().Name)

	claimed, ok := p.ClaimedSupply()
	assert.True(t, ok)
	assert.Equal(t, uint64(3), claimed)

	unclaimed, ok := p.UnclaimedSupply()
	assert.True(t, ok)
	assert.Equal(t, uint64(7), unclaimed)

	require.NotNil(t, p.ActiveClaimCondition())

	v := Derive(p.Snapshot(), DefaultQuantity)
	assert.Equal(t, StateMintReady, v.State)
	assert.Equal(t, "Mint (Free)", v.Label)
}

func TestPoller_EmptyBeforeFirstRefresh(t *testing.T) {
	p := NewPoller(PollerOptions{Reader: newFakeReader()})

	assert.False(t, p.Contract())
	assert.Nil(t, p.Metadata())
	_, ok := p.ClaimedSupply()
	assert.False(t, ok)
	assert.Equal(t, StateLoading, Derive(p.Snapshot(), 1).State)
}

func TestPoller_NotReadyStaysLoading(t *testing.T) {
	reader := newFakeReader()
	reader.readyErr = errors.New("dial tcp: connection refused")
	p := NewPoller(PollerOptions{Reader: reader})

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StateLoading, Derive(p.Snapshot(), 1).State)
}

func TestPoller_KeepsLastGoodValues(t *testing.T) {
	reader := newFakeReader()
	p := NewPoller(PollerOptions{Reader: reader})
	ctx := context.Background()

	require.NoError(t, p.Refresh(ctx))

	reader.set(func(r *fakeReader) {
		r.claimed = 4
		r.unclaimedErr = errors.New("timeout")
	})
	err := p.Refresh(ctx)
	require.Error(t, err)

	claimed, _ := p.ClaimedSupply()
	unclaimed, ok := p.UnclaimedSupply()
	assert.Equal(t, uint64(4), claimed)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), unclaimed)
}

func TestPoller_ReplacesSnapshotWholesale(t *testing.T) {
	reader := newFakeReader()
	p := NewPoller(PollerOptions{Reader: reader})
	ctx := context.Background()

	require.NoError(t, p.Refresh(ctx))
	require.NotNil(t, p.ActiveClaimCondition())

	reader.set(func(r *fakeReader) {
		r.unclaimed = 0
		r.cond = nil
	})
	require.NoError(t, p.Refresh(ctx))

	assert.Nil(t, p.ActiveClaimCondition())
	assert.Equal(t, StateSoldOut, Derive(p.Snapshot(), 1).State)
}

func TestPoller_MetadataFetchedOnce(t *testing.T) {
	reader := newFakeReader()
	p := NewPoller(PollerOptions{Reader: reader})
	ctx := context.Background()

	require.NoError(t, p.Refresh(ctx))
	require.NoError(t, p.Refresh(ctx))
	require.NoError(t, p.Refresh(ctx))

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, 1, reader.metaCalls)
}

func TestPoller_DiscardsStaleGeneration(t *testing.T) {
	reader := newFakeReader()
	reader.block = make(chan struct{})
	reader.blocked = make(chan struct{})

	results, onRefresh := refreshes()
	p := NewPoller(PollerOptions{Reader: reader, OnRefresh: onRefresh})

	errCh := make(chan error, 1)
	go func() { errCh <- p.Refresh(context.Background()) }()

	<-reader.blocked
	before := p.Generation()
	require.NoError(t, p.Close())
	assert.NotEqual(t, before, p.Generation())
	close(reader.block)

	assert.ErrorIs(t, <-errCh, ErrStaleGeneration)
	assert.False(t, p.Contract(), "stale results must not be written")

	r := waitRefresh(t, results, TriggerManual)
	assert.True(t, r.Stale)
}

func TestPoller_StartRefreshesOnHeads(t *testing.T) {
	heads := &fakeHeads{ch: make(chan evm.Head, 1)}
	results, onRefresh := refreshes()

	p := NewPoller(PollerOptions{
		Reader:    newFakeReader(),
		Heads:     heads,
		Interval:  time.Hour,
		OnRefresh: onRefresh,
	})
	require.NoError(t, p.Start(context.Background()))
	defer p.Close()

	first := waitRefresh(t, results, TriggerStart)
	assert.NoError(t, first.Err)
	assert.Equal(t, p.Generation(), first.Generation)

	heads.ch <- evm.Head{Number: 100}
	r := waitRefresh(t, results, TriggerHead)
	assert.NoError(t, r.Err)
	assert.Equal(t, StateMintReady, Derive(p.Snapshot(), 1).State)
}

func TestPoller_IntervalContinuesAfterHeadsClose(t *testing.T) {
	heads := &fakeHeads{ch: make(chan evm.Head)}
	results, onRefresh := refreshes()

	p := NewPoller(PollerOptions{
		Reader:    newFakeReader(),
		Heads:     heads,
		Interval:  20 * time.Millisecond,
		OnRefresh: onRefresh,
	})
	require.NoError(t, p.Start(context.Background()))
	defer p.Close()

	waitRefresh(t, results, TriggerStart)
	close(heads.ch)

	waitRefresh(t, results, TriggerInterval)
	waitRefresh(t, results, TriggerInterval)
}

func TestPoller_StartTwice(t *testing.T) {
	p := NewPoller(PollerOptions{Reader: newFakeReader(), Interval: time.Hour})
	require.NoError(t, p.Start(context.Background()))
	defer p.Close()

	assert.ErrorIs(t, p.Start(context.Background()), ErrPollerRunning)
}

func TestPoller_RestartBeginsNewGeneration(t *testing.T) {
	results, onRefresh := refreshes()
	p := NewPoller(PollerOptions{Reader: newFakeReader(), Interval: time.Hour, OnRefresh: onRefresh})

	require.NoError(t, p.Start(context.Background()))
	first := waitRefresh(t, results, TriggerStart)
	require.NoError(t, p.Close())

	require.NoError(t, p.Start(context.Background()))
	second := waitRefresh(t, results, TriggerStart)
	require.NoError(t, p.Close())

	assert.Greater(t, second.Generation, first.Generation)
	assert.Equal(t, second.Generation, p.Snapshot().Generation)
}

func TestPoller_CloseIdempotent(t *testing.T) {
	p := NewPoller(PollerOptions{Reader: newFakeReader()})
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}
