// Package scoring turns one round of ranked ballots into placement awards
// and decides whether the game has a winner. It has no side effects.
package scoring

import (
	"sort"
)

// Schedule holds the point tables. Values are tunable; only their ordering
// matters to the algorithm.
type Schedule struct {
	VotePoints     []int // VotePoints[r-1] is the value of a rank-r vote
	PlacementBase  int
	PlacementStep  int
	PlacementFloor int
	WinScore       int
}

func (s Schedule) PointsForRank(rank int) int {
	if rank < 1 || rank > len(s.VotePoints) {
		return 0
	}
	return s.VotePoints[rank-1]
}

// PlacementScore converts a finishing position to the round's award.
func (s Schedule) PlacementScore(place int) int {
	return max(s.PlacementFloor, s.PlacementBase-place*s.PlacementStep)
}

// Entry is one roster player's answer and the ballots cast for it.
type Entry struct {
	PlayerID string
	Answer   string
	Votes    map[string]int // voter id -> rank
}

// Total is a player's cumulative standing.
type Total struct {
	Score           int
	FirstPlaceVotes int
}

type Standing struct {
	PlayerID        string
	Answer          string
	Points          int
	FirstPlaceVotes int
	Place           int
	Award           int
}

type TopAnswer struct {
	PlayerID string
	Answer   string
}

type Outcome struct {
	Standings       []Standing
	Totals          map[string]Total
	TopAnswerPoints int
	TopAnswers      []TopAnswer
	WinnerIDs       []string
}

func (o Outcome) GameOver() bool { return len(o.WinnerIDs) > 0 }

// Score ranks the round's entries and folds the awards into prior, which
// must hold every player in the session. prior is not modified.
func Score(entries []Entry, prior map[string]Total, sched Schedule) Outcome {
	standings := make([]Standing, 0, len(entries))
	for _, e := range entries {
		st := Standing{PlayerID: e.PlayerID, Answer: e.Answer}
		for _, rank := range e.Votes {
			st.Points += sched.PointsForRank(rank)
			if rank == 1 {
				st.FirstPlaceVotes++
			}
		}
		standings = append(standings, st)
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.FirstPlaceVotes != b.FirstPlaceVotes {
			return a.FirstPlaceVotes > b.FirstPlaceVotes
		}
		return a.PlayerID < b.PlayerID
	})

	// Tied groups share a place and consume its width: 1, 1, 3, ...
	place := 1
	for i := 0; i < len(standings); {
		j := i + 1
		for j < len(standings) &&
			standings[j].Points == standings[i].Points &&
			standings[j].FirstPlaceVotes == standings[i].FirstPlaceVotes {
			j++
		}
		award := sched.PlacementScore(place)
		for k := i; k < j; k++ {
			standings[k].Place = place
			standings[k].Award = award
		}
		place += j - i
		i = j
	}

	totals := make(map[string]Total, len(prior))
	for id, t := range prior {
		totals[id] = t
	}
	for _, st := range standings {
		t := totals[st.PlayerID]
		t.Score += st.Award
		t.FirstPlaceVotes += st.FirstPlaceVotes
		totals[st.PlayerID] = t
	}

	out := Outcome{Standings: standings, Totals: totals}
	if len(standings) > 0 {
		out.TopAnswerPoints = standings[0].Points
		for _, st := range standings {
			if st.Points != out.TopAnswerPoints {
				break
			}
			out.TopAnswers = append(out.TopAnswers, TopAnswer{PlayerID: st.PlayerID, Answer: st.Answer})
		}
	}
	out.WinnerIDs = Winners(totals, sched.WinScore)
	return out
}

// Winners returns the players at or above threshold with the highest score,
// tie-broken by cumulative first-place votes. Full ties share the win.
func Winners(totals map[string]Total, threshold int) []string {
	var crossers []string
	for id, t := range totals {
		if t.Score >= threshold {
			crossers = append(crossers, id)
		}
	}
	if len(crossers) == 0 {
		return nil
	}
	sort.Slice(crossers, func(i, j int) bool {
		a, b := totals[crossers[i]], totals[crossers[j]]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.FirstPlaceVotes != b.FirstPlaceVotes {
			return a.FirstPlaceVotes > b.FirstPlaceVotes
		}
		return crossers[i] < crossers[j]
	})
	best := totals[crossers[0]]
	winners := []string{crossers[0]}
	for _, id := range crossers[1:] {
		if totals[id] != best {
			break
		}
		winners = append(winners, id)
	}
	return winners
}
