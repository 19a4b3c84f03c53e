package model

import "time"

// Clone returns a deep copy so snapshots handed to subscribers never alias
// the document a transaction is mutating.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.CurrentPrompt != nil {
		p := *s.CurrentPrompt
		out.CurrentPrompt = &p
	}
	out.UsedPromptIDs = cloneStrings(s.UsedPromptIDs)
	if s.TimerEndsAt != nil {
		t := *s.TimerEndsAt
		out.TimerEndsAt = &t
	}
	out.VotingPlayerIDs = cloneStrings(s.VotingPlayerIDs)
	if s.VotingRequiredCount != nil {
		k := *s.VotingRequiredCount
		out.VotingRequiredCount = &k
	}
	out.WinnerIDs = cloneStrings(s.WinnerIDs)
	if s.RoundResult != nil {
		rr := *s.RoundResult
		rr.TopAnswers = append([]TopAnswer(nil), s.RoundResult.TopAnswers...)
		out.RoundResult = &rr
	}
	if s.Players != nil {
		out.Players = make(map[string]*Player, len(s.Players))
		for id, p := range s.Players {
			out.Players[id] = p.Clone()
		}
	}
	return &out
}

func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	out := *p
	if p.Submission != nil {
		sub := *p.Submission
		out.Submission = &sub
	}
	if p.Votes != nil {
		out.Votes = make(VoteMap, len(p.Votes))
		for k, v := range p.Votes {
			out.Votes[k] = v
		}
	}
	return &out
}

// TimeRemaining is the time left before TimerEndsAt, clamped at zero.
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	if s.TimerEndsAt == nil {
		return 0
	}
	return max(0, s.TimerEndsAt.Sub(now))
}

// DeadlinePassed reports whether a deadline is set and has elapsed.
func (s *Session) DeadlinePassed(now time.Time) bool {
	return s.TimerEndsAt != nil && !now.Before(*s.TimerEndsAt)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
