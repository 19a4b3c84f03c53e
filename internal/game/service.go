// Package game runs the session state machine. Every operation is a single
// store transaction that re-reads the session before deciding, so any number
// of clients may call any operation concurrently.
package game

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kiliankoe/parodyparty/internal/config"
	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/kiliankoe/parodyparty/internal/scoring"
	"github.com/kiliankoe/parodyparty/internal/store"
	"github.com/rs/zerolog/log"
)

// PromptSource hands out prompts, avoiding ids in exclude when it can.
type PromptSource interface {
	Random(difficulty string, exclude []string) (model.Prompt, error)
}

// RoundHook observes a session right after one of its rounds was scored.
type RoundHook func(ctx context.Context, snap *model.Session)

type Service struct {
	store   *store.Store
	prompts PromptSource
	cfg     config.Game
	sched   scoring.Schedule
	now     func() time.Time
	hooks   []RoundHook

	defaultDifficulty string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rnd = r }
}

func WithRoundHook(h RoundHook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, h) }
}

// WithDefaultDifficulty sets the difficulty of sessions created without one.
func WithDefaultDifficulty(d string) Option {
	return func(s *Service) { s.defaultDifficulty = d }
}

func NewService(st *store.Store, prompts PromptSource, cfg config.Game, opts ...Option) *Service {
	s := &Service{
		store:   st,
		prompts: prompts,
		cfg:     cfg,
		sched: scoring.Schedule{
			VotePoints:     cfg.VotePoints,
			PlacementBase:  cfg.PlacementBase,
			PlacementStep:  cfg.PlacementStep,
			PlacementFloor: cfg.PlacementFloor,
			WinScore:       cfg.WinScore,
		},
		now: time.Now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CreateRequest struct {
	HostID            string
	HostName          string
	HostIsDisplayOnly bool
	Difficulty        string
}

// CreateSession allocates a fresh code and stores a lobby for it. Unless the
// host is a display-only screen, the host joins as the first player.
func (s *Service) CreateSession(ctx context.Context, req CreateRequest) (string, error) {
	if strings.TrimSpace(req.HostID) == "" {
		return "", ErrUnknownPlayer
	}
	name := strings.TrimSpace(req.HostName)
	if !req.HostIsDisplayOnly {
		if err := s.validateName(name); err != nil {
			return "", err
		}
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = s.defaultDifficulty
	}
	now := s.now().UTC()
	for attempt := 0; attempt < s.cfg.CodeAttempts; attempt++ {
		s.rndMu.Lock()
		code := randomCode(s.rnd, codeLength)
		s.rndMu.Unlock()

		sess := model.NewSession(code, req.HostID, req.HostIsDisplayOnly, now)
		sess.Difficulty = difficulty
		if !req.HostIsDisplayOnly {
			sess.Players[req.HostID] = model.NewPlayer(name, now)
		}
		err := s.store.Create(ctx, sess)
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Debug().Str("code", code).Int("attempt", attempt+1).Msg("session code collision")
			continue
		}
		if err != nil {
			return "", err
		}
		log.Info().Str("code", code).Str("hostId", req.HostID).Bool("displayOnly", req.HostIsDisplayOnly).Msg("session created")
		return code, nil
	}
	return "", ErrCodeAllocation
}

// Snapshot returns the current session document.
func (s *Service) Snapshot(ctx context.Context, code string) (*model.Session, error) {
	sess, err := s.store.Get(ctx, model.NormalizeCode(code))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return sess, nil
}

// Subscribe streams snapshots of the session until cancelled.
func (s *Service) Subscribe(ctx context.Context, code string, onChange func(*model.Session)) (func(), error) {
	cancel, err := s.store.Subscribe(ctx, model.NormalizeCode(code), onChange)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return cancel, nil
}

// StartGame moves a lobby into round 1. Only the host may start.
func (s *Service) StartGame(ctx context.Context, code, hostID string) error {
	_, err := s.tx(ctx, code, func(sess *model.Session, now time.Time) (bool, error) {
		if sess.HostID != hostID {
			return false, ErrNotHost
		}
		if sess.Phase != model.PhaseLobby {
			return false, ErrGameStarted
		}
		if len(sess.EligibleIDs()) < s.cfg.MinPlayers {
			return false, ErrNotEnoughPlayers
		}
		return true, s.beginRound(sess, now)
	})
	if err != nil {
		return err
	}
	log.Info().Str("code", model.NormalizeCode(code)).Str("from", string(model.PhaseLobby)).Str("to", string(model.PhasePrompt)).Int("round", 1).Msg("phase transition")
	return nil
}

// SubmitAnswer stores or replaces the player's answer until the prompt
// deadline passes or the round moves on.
func (s *Service) SubmitAnswer(ctx context.Context, code, playerID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > s.cfg.MaxAnswerLength {
		return ErrInvalidAnswer
	}
	_, err := s.tx(ctx, code, func(sess *model.Session, now time.Time) (bool, error) {
		if sess.Phase != model.PhasePrompt || sess.DeadlinePassed(now) {
			return false, ErrSubmissionsClosed
		}
		if err := s.checkPlayer(sess, playerID); err != nil {
			return false, err
		}
		p := sess.Players[playerID]
		if p.Submission != nil && *p.Submission == text {
			return false, nil
		}
		p.Submission = &text
		return true, nil
	})
	return err
}

// SubmitBallot replaces the voter's ranked picks for the current round.
// ranked[0] receives rank 1.
func (s *Service) SubmitBallot(ctx context.Context, code, voterID string, ranked []string) error {
	_, err := s.tx(ctx, code, func(sess *model.Session, now time.Time) (bool, error) {
		if sess.Phase != model.PhaseVoting || sess.ScoredRound == sess.Round {
			return false, ErrInvalidPhase
		}
		if sess.HostIsDisplayOnly && voterID == sess.HostID {
			return false, ErrDisplayOnlyHost
		}
		if !sess.InVotingRoster(voterID) || sess.Players[voterID] == nil {
			return false, ErrNotVoter
		}
		if err := validateBallot(sess, voterID, ranked); err != nil {
			return false, err
		}
		sess.ClearVotesBy(voterID)
		for i, target := range ranked {
			p := sess.Players[target]
			if p.Votes == nil {
				p.Votes = make(model.VoteMap)
			}
			p.Votes[voterID] = i + 1
		}
		return true, nil
	})
	return err
}

func validateBallot(sess *model.Session, voterID string, ranked []string) error {
	if len(ranked) != *sess.VotingRequiredCount {
		return ErrBallotSize
	}
	seen := make(map[string]bool, len(ranked))
	for _, target := range ranked {
		if target == voterID {
			return ErrSelfVote
		}
		if seen[target] {
			return ErrDuplicateTarget
		}
		seen[target] = true
		if !sess.InVotingRoster(target) || sess.Players[target] == nil {
			return ErrTargetNotInRound
		}
	}
	return nil
}

// ResetSession returns a finished game to the lobby with all scores zeroed.
// Only the host may reset, and only once the game is over.
func (s *Service) ResetSession(ctx context.Context, code, hostID string) error {
	_, err := s.tx(ctx, code, func(sess *model.Session, now time.Time) (bool, error) {
		if sess.HostID != hostID {
			return false, ErrNotHost
		}
		if sess.Phase == model.PhaseLobby {
			return false, nil
		}
		if !sess.Phase.CanTransitionTo(model.PhaseLobby) {
			return false, ErrInvalidPhase
		}
		sess.Phase = model.PhaseLobby
		sess.Round = 0
		sess.ScoredRound = 0
		sess.CurrentPrompt = nil
		sess.UsedPromptIDs = []string{}
		sess.TimerEndsAt = nil
		sess.VotingPlayerIDs = nil
		sess.VotingRequiredCount = nil
		sess.GameOverReason = ""
		sess.WinnerIDs = nil
		sess.RoundResult = nil
		for _, p := range sess.Players {
			p.Score = 0
			p.TotalFirstPlaceVotes = 0
			p.Submission = nil
			p.Votes = nil
		}
		return true, nil
	})
	if err == nil {
		log.Info().Str("code", model.NormalizeCode(code)).Msg("session reset")
	}
	return err
}

func (s *Service) checkPlayer(sess *model.Session, playerID string) error {
	if sess.HostIsDisplayOnly && playerID == sess.HostID {
		return ErrDisplayOnlyHost
	}
	p := sess.Players[playerID]
	if p == nil || !p.Connected {
		return ErrUnknownPlayer
	}
	return nil
}

func (s *Service) validateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > s.cfg.MaxNameLength {
		return ErrInvalidName
	}
	return nil
}

// txFunc is a store transaction body with the clock reading taken for this
// attempt.
type txFunc func(sess *model.Session, now time.Time) (bool, error)

// tx runs fn in a store transaction and refuses to commit a document that
// breaks the session invariants.
func (s *Service) tx(ctx context.Context, code string, fn txFunc) (*model.Session, error) {
	var committed *model.Session
	ok, err := s.store.Transaction(ctx, model.NormalizeCode(code), func(sess *model.Session) (bool, error) {
		commit, err := fn(sess, s.now().UTC())
		if err != nil || !commit {
			return false, err
		}
		if err := sess.CheckInvariants(); err != nil {
			return false, err
		}
		committed = sess
		return true, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !ok {
		return nil, nil
	}
	return committed, nil
}
