package game

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/kiliankoe/parodyparty/internal/config"
	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/kiliankoe/parodyparty/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	h := newHarness(t)
	code, err := h.svc.CreateSession(ctx, CreateRequest{HostID: "host", HostName: "  Host  ", Difficulty: "easy"})
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	if len(code) != 4 {
		t.Fatalf("expected 4 letter code, got %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			t.Fatalf("code %q should be upper-case letters only", code)
		}
	}

	s := h.get(t, code)
	if s.Phase != model.PhaseLobby {
		t.Fatalf("expected phase %s, got %s", model.PhaseLobby, s.Phase)
	}
	if s.Round != 0 || s.ScoredRound != 0 {
		t.Fatalf("expected zero round counters, got %d/%d", s.Round, s.ScoredRound)
	}
	host := s.Players["host"]
	if host == nil || host.Name != "Host" || !host.Connected {
		t.Fatalf("host should auto-join with trimmed name, got %+v", host)
	}
	if s.Difficulty != "easy" {
		t.Fatalf("expected difficulty easy, got %q", s.Difficulty)
	}
}

func TestCreateSessionDisplayOnlyHostHasNoPlayerRecord(t *testing.T) {
	h := newHarness(t)
	code, err := h.svc.CreateSession(ctx, CreateRequest{HostID: "screen", HostIsDisplayOnly: true})
	require.NoError(t, err)

	s := h.get(t, code)
	assert.Empty(t, s.Players)
	assert.True(t, s.HostIsDisplayOnly)
}

func TestCreateSessionUsesDefaultDifficulty(t *testing.T) {
	h := newHarness(t, WithDefaultDifficulty("hard"))
	code, err := h.svc.CreateSession(ctx, CreateRequest{HostID: "host", HostName: "Host"})
	require.NoError(t, err)
	assert.Equal(t, "hard", h.get(t, code).Difficulty)

	code, err = h.svc.CreateSession(ctx, CreateRequest{HostID: "host", HostName: "Host", Difficulty: "easy"})
	require.NoError(t, err)
	assert.Equal(t, "easy", h.get(t, code).Difficulty)
}

func TestCreateSessionValidatesHost(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateSession(ctx, CreateRequest{HostID: "", HostName: "Host"})
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, err = h.svc.CreateSession(ctx, CreateRequest{HostID: "host", HostName: "   "})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateSessionRetriesOnCollision(t *testing.T) {
	h := newHarness(t)
	first, err := h.svc.CreateSession(ctx, CreateRequest{HostID: "a", HostName: "A"})
	require.NoError(t, err)

	// Same seed as the harness: the first code drawn collides.
	twin := NewService(h.store, nil, h.cfg, WithClock(h.clock.Now), WithRand(rand.New(rand.NewSource(7))))
	second, err := twin.CreateSession(ctx, CreateRequest{HostID: "b", HostName: "B"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCreateSessionGivesUpAfterRetryBudget(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateSession(ctx, CreateRequest{HostID: "a", HostName: "A"})
	require.NoError(t, err)

	cfg := h.cfg
	cfg.CodeAttempts = 1
	twin := NewService(h.store, nil, cfg, WithRand(rand.New(rand.NewSource(7))))
	_, err = twin.CreateSession(ctx, CreateRequest{HostID: "b", HostName: "B"})
	assert.ErrorIs(t, err, ErrCodeAllocation)
}

func TestStartGame(t *testing.T) {
	h := newHarness(t)
	code := h.lobby(t, "p1", "p2")

	assert.ErrorIs(t, h.svc.StartGame(ctx, code, "p1"), ErrNotHost)
	require.NoError(t, h.svc.StartGame(ctx, code, "host"))

	s := h.get(t, code)
	assert.Equal(t, model.PhasePrompt, s.Phase)
	assert.Equal(t, 1, s.Round)
	require.NotNil(t, s.CurrentPrompt)
	assert.Equal(t, []string{s.CurrentPrompt.ID}, s.UsedPromptIDs)
	require.NotNil(t, s.TimerEndsAt)
	assert.True(t, h.clock.Now().Add(90*time.Second).Equal(*s.TimerEndsAt))

	assert.ErrorIs(t, h.svc.StartGame(ctx, code, "host"), ErrGameStarted)
}

func TestStartGameNeedsMinimumPlayers(t *testing.T) {
	h := newHarness(t)
	code := h.lobby(t, "p1")
	assert.ErrorIs(t, h.svc.StartGame(ctx, code, "host"), ErrNotEnoughPlayers)
	assert.Equal(t, model.PhaseLobby, h.get(t, code).Phase)
}

func TestStartGameDisplayOnlyHostDoesNotCount(t *testing.T) {
	h := newHarness(t)
	code, err := h.svc.CreateSession(ctx, CreateRequest{HostID: "screen", HostIsDisplayOnly: true})
	require.NoError(t, err)
	for _, id := range []string{"p1", "p2"} {
		_, err := h.svc.JoinSession(ctx, code, id, id)
		require.NoError(t, err)
	}
	assert.ErrorIs(t, h.svc.StartGame(ctx, code, "screen"), ErrNotEnoughPlayers)

	_, err = h.svc.JoinSession(ctx, code, "p3", "p3")
	require.NoError(t, err)
	require.NoError(t, h.svc.StartGame(ctx, code, "screen"))
	assert.ErrorIs(t, h.svc.SubmitAnswer(ctx, code, "screen", "hi"), ErrDisplayOnlyHost)
}

func TestSubmitAnswerKeepsLatestText(t *testing.T) {
	h := newHarness(t)
	code := h.started(t)

	require.NoError(t, h.svc.SubmitAnswer(ctx, code, "p1", "first draft"))
	require.NoError(t, h.svc.SubmitAnswer(ctx, code, "p1", "  final answer "))
	require.NoError(t, h.svc.SubmitAnswer(ctx, code, "p1", "final answer"))

	s := h.get(t, code)
	require.NotNil(t, s.Players["p1"].Submission)
	assert.Equal(t, "final answer", *s.Players["p1"].Submission)
}

func TestSubmitAnswerValidation(t *testing.T) {
	h := newHarness(t)
	code := h.lobby(t, "p1", "p2")
	assert.ErrorIs(t, h.svc.SubmitAnswer(ctx, code, "p1", "too early"), ErrSubmissionsClosed)

	require.NoError(t, h.svc.StartGame(ctx, code, "host"))
	assert.ErrorIs(t, h.svc.SubmitAnswer(ctx, code, "p1", "   "), ErrInvalidAnswer)
	long := make([]rune, h.cfg.MaxAnswerLength+1)
	for i := range long {
		long[i] = 'x'
	}
	assert.ErrorIs(t, h.svc.SubmitAnswer(ctx, code, "p1", string(long)), ErrInvalidAnswer)
	assert.ErrorIs(t, h.svc.SubmitAnswer(ctx, code, "stranger", "hi"), ErrUnknownPlayer)
	assert.ErrorIs(t, h.svc.SubmitAnswer(ctx, "ZZZZ", "p1", "hi"), ErrSessionNotFound)

	h.clock.Advance(h.cfg.PromptDuration)
	assert.ErrorIs(t, h.svc.SubmitAnswer(ctx, code, "p1", "late"), ErrSubmissionsClosed)
}

func TestCodesAreNormalized(t *testing.T) {
	h := newHarness(t)
	code := h.lobby(t)
	res, err := h.svc.JoinSession(ctx, "  "+strings.ToLower(code)+" ", "p1", "One")
	require.NoError(t, err)
	assert.Equal(t, code, res.Session.Code)
}

func TestResetSession(t *testing.T) {
	h := newHarness(t)
	code := h.voting(t)
	h.castFullBallots(t, code)
	_, err := h.svc.AdvanceIfReady(ctx, code)
	require.NoError(t, err)

	require.Equal(t, model.PhaseResults, h.get(t, code).Phase)
	assert.ErrorIs(t, h.svc.ResetSession(ctx, code, "host"), ErrInvalidPhase)

	// Two players walking out ends the game.
	require.NoError(t, h.svc.LeaveSession(ctx, code, "p2"))
	require.NoError(t, h.svc.LeaveSession(ctx, code, "p3"))
	require.Equal(t, model.PhaseGameOver, h.get(t, code).Phase)

	assert.ErrorIs(t, h.svc.ResetSession(ctx, code, "p1"), ErrNotHost)
	require.NoError(t, h.svc.ResetSession(ctx, code, "host"))

	s := h.get(t, code)
	assert.Equal(t, model.PhaseLobby, s.Phase)
	assert.Zero(t, s.Round)
	assert.Zero(t, s.ScoredRound)
	assert.Nil(t, s.CurrentPrompt)
	assert.Empty(t, s.UsedPromptIDs)
	assert.Nil(t, s.TimerEndsAt)
	assert.Nil(t, s.RoundResult)
	assert.Empty(t, s.WinnerIDs)
	for id, p := range s.Players {
		assert.Zero(t, p.Score, id)
		assert.Zero(t, p.TotalFirstPlaceVotes, id)
		assert.Nil(t, p.Submission, id)
		assert.Nil(t, p.Votes, id)
	}

	// The lobby can be started again once enough players are back.
	_, err = h.svc.JoinSession(ctx, code, "p2", "Name p2")
	require.NoError(t, err)
	require.NoError(t, h.svc.StartGame(ctx, code, "host"))
	assert.Equal(t, 1, h.get(t, code).Round)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrBallotSize))
	assert.True(t, IsValidation(ErrSessionFull))
	assert.False(t, IsValidation(ErrSessionNotFound))
	assert.False(t, IsValidation(ErrCodeAllocation))
	assert.False(t, IsValidation(nil))

	assert.Equal(t, CodeSessionNotFound, ErrorCode(ErrSessionNotFound))
	assert.Equal(t, CodeValidation, ErrorCode(fmt.Errorf("join: %w", ErrNameTaken)))
	assert.Equal(t, CodeBusy, ErrorCode(fmt.Errorf("%w: gave up", store.ErrContention)))
	assert.Equal(t, CodeInternal, ErrorCode(ErrCodeAllocation))
}

func TestSubscribeSeesPhaseChanges(t *testing.T) {
	h := newHarness(t)
	code := h.lobby(t, "p1", "p2")

	phases := make(chan model.Phase, 8)
	cancel, err := h.svc.Subscribe(ctx, code, func(s *model.Session) { phases <- s.Phase })
	require.NoError(t, err)
	defer cancel()

	assert.Equal(t, model.PhaseLobby, <-phases)
	require.NoError(t, h.svc.StartGame(ctx, code, "host"))
	select {
	case p := <-phases:
		assert.Equal(t, model.PhasePrompt, p)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after start")
	}

	_, err = h.svc.Subscribe(ctx, "NONE", func(*model.Session) {})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceWorksWithCustomSchedule(t *testing.T) {
	cfg := config.Default().Game
	cfg.VotePoints = []int{10, 4, 2}
	cfg.PlacementBase, cfg.PlacementStep, cfg.PlacementFloor = 500, 50, 0
	h := newHarnessWithConfig(t, cfg)
	code := h.voting(t)
	h.castFullBallots(t, code)
	_, err := h.svc.AdvanceIfReady(ctx, code)
	require.NoError(t, err)

	s := h.get(t, code)
	assert.Equal(t, 450, s.Players["host"].Score)
	assert.Equal(t, 400, s.Players["p1"].Score)
}
