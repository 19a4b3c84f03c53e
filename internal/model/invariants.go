package model

import (
	"errors"
	"fmt"
)

// ErrInvariant marks a document that no legal sequence of operations produces.
var ErrInvariant = errors.New("session invariant violated")

// CheckInvariants validates the cross-field rules of a session document.
func (s *Session) CheckInvariants() error {
	if !s.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrInvariant, s.Phase)
	}
	if s.Round < 0 || s.ScoredRound < 0 {
		return fmt.Errorf("%w: negative round counters", ErrInvariant)
	}
	if s.ScoredRound > s.Round {
		return fmt.Errorf("%w: scored round %d ahead of round %d", ErrInvariant, s.ScoredRound, s.Round)
	}
	if s.Phase == PhaseLobby {
		if s.Round != 0 {
			return fmt.Errorf("%w: lobby with round %d", ErrInvariant, s.Round)
		}
		for id, p := range s.Players {
			if p.Submission != nil || p.Votes != nil {
				return fmt.Errorf("%w: player %s carries round state in lobby", ErrInvariant, id)
			}
		}
	}
	if s.Phase == PhasePrompt || s.Phase == PhaseVoting {
		if s.Round < 1 {
			return fmt.Errorf("%w: %s phase before round 1", ErrInvariant, s.Phase)
		}
	}
	if s.Phase == PhaseVoting {
		if s.VotingPlayerIDs == nil || s.VotingRequiredCount == nil {
			return fmt.Errorf("%w: voting without a frozen roster", ErrInvariant)
		}
		if err := s.checkBallots(*s.VotingRequiredCount); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) checkBallots(k int) error {
	seen := make(map[string]map[int]bool)
	for target, p := range s.Players {
		for voter, rank := range p.Votes {
			if voter == target {
				return fmt.Errorf("%w: %s voted for themself", ErrInvariant, voter)
			}
			if rank < 1 || rank > k {
				return fmt.Errorf("%w: rank %d outside 1..%d", ErrInvariant, rank, k)
			}
			if !s.InVotingRoster(voter) || !s.InVotingRoster(target) {
				return fmt.Errorf("%w: vote %s->%s outside roster", ErrInvariant, voter, target)
			}
			if seen[voter] == nil {
				seen[voter] = make(map[int]bool)
			}
			if seen[voter][rank] {
				return fmt.Errorf("%w: %s reused rank %d", ErrInvariant, voter, rank)
			}
			seen[voter][rank] = true
		}
	}
	return nil
}
