package game

import (
	"context"
	"fmt"
	"time"

	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/kiliankoe/parodyparty/internal/scoring"
	"github.com/rs/zerolog/log"
)

// Transition describes one committed phase change.
type Transition struct {
	From   model.Phase
	To     model.Phase
	Round  int
	Scored bool
}

// AdvanceIfReady runs whichever guard applies to the session's phase and
// reports whether this call moved the session. Calls that find nothing to do
// return false with no error, so it is safe to invoke from every client on
// every tick.
func (s *Service) AdvanceIfReady(ctx context.Context, code string) (bool, error) {
	var tr Transition
	committed, err := s.tx(ctx, code, func(sess *model.Session, now time.Time) (bool, error) {
		tr = Transition{From: sess.Phase}
		changed, scored, err := s.advance(sess, now)
		if err != nil || !changed {
			return false, err
		}
		if !sess.Phase.Valid() || (sess.Phase != tr.From && !tr.From.CanTransitionTo(sess.Phase)) {
			return false, fmt.Errorf("%w: %s -> %s", model.ErrInvariant, tr.From, sess.Phase)
		}
		tr.To, tr.Round, tr.Scored = sess.Phase, sess.Round, scored
		return true, nil
	})
	if err != nil || committed == nil {
		return false, err
	}
	log.Info().Str("code", committed.Code).Str("from", string(tr.From)).Str("to", string(tr.To)).Int("round", tr.Round).Msg("phase transition")
	if tr.Scored {
		snap := committed.Clone()
		for _, h := range s.hooks {
			h(ctx, snap)
		}
	}
	return true, nil
}

func (s *Service) advance(sess *model.Session, now time.Time) (changed, scored bool, err error) {
	switch sess.Phase {
	case model.PhasePrompt:
		return s.advancePrompt(sess, now), false, nil
	case model.PhaseVoting:
		return s.advanceVoting(sess, now)
	case model.PhaseResults:
		changed, err := s.advanceResults(sess, now)
		return changed, false, err
	}
	return false, false, nil
}

// forceGameOverIfShort ends an active game whose eligible players dropped
// below the minimum. It takes priority over every other guard.
func (s *Service) forceGameOverIfShort(sess *model.Session) bool {
	if !sess.Phase.Active() || len(sess.EligibleIDs()) >= s.cfg.MinPlayers {
		return false
	}
	sess.Phase = model.PhaseGameOver
	sess.GameOverReason = model.ReasonNotEnoughPlayers
	sess.TimerEndsAt = nil
	return true
}

func (s *Service) advancePrompt(sess *model.Session, now time.Time) bool {
	if s.forceGameOverIfShort(sess) {
		return true
	}
	roster := sess.EligibleIDs()
	allSubmitted := true
	for _, id := range roster {
		if sess.Players[id].Submission == nil {
			allSubmitted = false
			break
		}
	}
	if !allSubmitted && !sess.DeadlinePassed(now) {
		return false
	}

	k := model.RequiredVoteCount(len(roster), s.cfg.MaxBallotSize)
	for _, id := range roster {
		p := sess.Players[id]
		if p.Submission == nil {
			placeholder := p.Name + " did not answer"
			p.Submission = &placeholder
		}
		p.Votes = nil
	}
	sess.VotingPlayerIDs = roster
	sess.VotingRequiredCount = &k
	sess.Phase = model.PhaseVoting
	deadline := now.Add(s.cfg.VotingDuration)
	sess.TimerEndsAt = &deadline
	return true
}

func (s *Service) advanceVoting(sess *model.Session, now time.Time) (changed, scored bool, err error) {
	if sess.ScoredRound == sess.Round {
		return false, false, nil
	}
	if s.forceGameOverIfShort(sess) {
		return true, false, nil
	}
	k := *sess.VotingRequiredCount
	complete := true
	for _, id := range sess.VotingPlayerIDs {
		if !sess.IsEligible(id) {
			continue
		}
		if !sess.HasCompletedBallot(id, k) {
			complete = false
			break
		}
	}
	if !complete && !sess.DeadlinePassed(now) {
		return false, false, nil
	}

	out := s.scoreRound(sess)
	if out.GameOver() {
		sess.Phase = model.PhaseGameOver
		sess.GameOverReason = model.ReasonWinner
		sess.WinnerIDs = out.WinnerIDs
		sess.TimerEndsAt = nil
	} else {
		sess.Phase = model.PhaseResults
		deadline := now.Add(s.cfg.ResultsDuration)
		sess.TimerEndsAt = &deadline
	}
	// Closing the fence is the last write of the round.
	sess.ScoredRound = sess.Round
	return true, true, nil
}

func (s *Service) advanceResults(sess *model.Session, now time.Time) (bool, error) {
	if s.forceGameOverIfShort(sess) {
		return true, nil
	}
	if len(sess.WinnerIDs) > 0 {
		sess.Phase = model.PhaseGameOver
		sess.GameOverReason = model.ReasonWinner
		sess.TimerEndsAt = nil
		return true, nil
	}
	if !sess.DeadlinePassed(now) {
		return false, nil
	}
	return true, s.beginRound(sess, now)
}

// beginRound picks an unused prompt and opens the next prompt phase.
func (s *Service) beginRound(sess *model.Session, now time.Time) error {
	prompt, err := s.prompts.Random(sess.Difficulty, sess.UsedPromptIDs)
	if err != nil {
		return fmt.Errorf("pick prompt: %w", err)
	}
	sess.Round++
	sess.CurrentPrompt = &prompt
	if !sess.HasUsedPrompt(prompt.ID) {
		sess.UsedPromptIDs = append(sess.UsedPromptIDs, prompt.ID)
	}
	for _, p := range sess.Players {
		p.Submission = nil
		p.Votes = nil
	}
	sess.VotingPlayerIDs = nil
	sess.VotingRequiredCount = nil
	sess.RoundResult = nil
	sess.Phase = model.PhasePrompt
	deadline := now.Add(s.cfg.PromptDuration)
	sess.TimerEndsAt = &deadline
	return nil
}

// scoreRound folds the frozen roster's ballots into cumulative scores and
// clears every player's round state.
func (s *Service) scoreRound(sess *model.Session) scoring.Outcome {
	entries := make([]scoring.Entry, 0, len(sess.VotingPlayerIDs))
	for _, id := range sess.VotingPlayerIDs {
		p := sess.Players[id]
		if p == nil {
			continue
		}
		e := scoring.Entry{PlayerID: id, Votes: p.Votes}
		if p.Submission != nil {
			e.Answer = *p.Submission
		}
		entries = append(entries, e)
	}
	prior := make(map[string]scoring.Total, len(sess.Players))
	for id, p := range sess.Players {
		prior[id] = scoring.Total{Score: p.Score, FirstPlaceVotes: p.TotalFirstPlaceVotes}
	}

	out := scoring.Score(entries, prior, s.sched)

	for id, t := range out.Totals {
		p := sess.Players[id]
		p.Score = t.Score
		p.TotalFirstPlaceVotes = t.FirstPlaceVotes
	}
	for _, p := range sess.Players {
		p.Submission = nil
		p.Votes = nil
	}
	rr := &model.RoundResult{Round: sess.Round, TopAnswerPoints: out.TopAnswerPoints, TopAnswers: []model.TopAnswer{}}
	for _, ta := range out.TopAnswers {
		rr.TopAnswers = append(rr.TopAnswers, model.TopAnswer{PlayerID: ta.PlayerID, Answer: ta.Answer})
	}
	sess.RoundResult = rr
	return out
}
