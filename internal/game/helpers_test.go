package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/kiliankoe/parodyparty/internal/config"
	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/kiliankoe/parodyparty/internal/prompts"
	"github.com/kiliankoe/parodyparty/internal/store"
	"github.com/kiliankoe/parodyparty/internal/store/memory"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc   *Service
	store *store.Store
	clock *fakeClock
	cfg   config.Game
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarnessWithConfig(t, config.Default().Game, opts...)
}

func newHarnessWithConfig(t *testing.T, cfg config.Game, opts ...Option) *harness {
	t.Helper()
	st := store.New(memory.New(), store.WithMaxAttempts(128))
	t.Cleanup(func() { _ = st.Close() })
	clk := newFakeClock()
	all := append([]Option{WithClock(clk.Now), WithRand(rand.New(rand.NewSource(7)))}, opts...)
	svc := NewService(st, prompts.Default(), cfg, all...)
	return &harness{svc: svc, store: st, clock: clk, cfg: cfg}
}

var ctx = context.Background()

// lobby creates a session hosted by "host" (playing) with extra players
// p1..pN, all connected.
func (h *harness) lobby(t *testing.T, extra ...string) string {
	t.Helper()
	code, err := h.svc.CreateSession(ctx, CreateRequest{HostID: "host", HostName: "Host"})
	require.NoError(t, err)
	for _, id := range extra {
		_, err := h.svc.JoinSession(ctx, code, id, "Name "+id)
		require.NoError(t, err)
	}
	return code
}

// started returns a four-player game in its first prompt phase.
func (h *harness) started(t *testing.T) string {
	t.Helper()
	code := h.lobby(t, "p1", "p2", "p3")
	require.NoError(t, h.svc.StartGame(ctx, code, "host"))
	return code
}

// voting returns a four-player game in its first voting phase with every
// answer submitted.
func (h *harness) voting(t *testing.T) string {
	t.Helper()
	code := h.started(t)
	for _, id := range []string{"host", "p1", "p2", "p3"} {
		require.NoError(t, h.svc.SubmitAnswer(ctx, code, id, "answer from "+id))
	}
	advanced, err := h.svc.AdvanceIfReady(ctx, code)
	require.NoError(t, err)
	require.True(t, advanced)
	return code
}

// castFullBallots has every player rank the others in id order.
func (h *harness) castFullBallots(t *testing.T, code string) {
	t.Helper()
	ballots := map[string][]string{
		"host": {"p1", "p2", "p3"},
		"p1":   {"host", "p2", "p3"},
		"p2":   {"host", "p1", "p3"},
		"p3":   {"host", "p1", "p2"},
	}
	for voter, ranked := range ballots {
		require.NoError(t, h.svc.SubmitBallot(ctx, code, voter, ranked))
	}
}

func (h *harness) get(t *testing.T, code string) *model.Session {
	t.Helper()
	s, err := h.svc.Snapshot(ctx, code)
	require.NoError(t, err)
	return s
}
