// Package model defines the session document shared by every writer: the
// phase machine, the embedded player map and the per-round fences.
package model

import (
	"sort"
	"strings"
	"time"
)

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePrompt   Phase = "prompt"
	PhaseVoting   Phase = "voting"
	PhaseResults  Phase = "results"
	PhaseGameOver Phase = "gameOver"
)

var transitions = map[Phase][]Phase{
	PhaseLobby:    {PhasePrompt},
	PhasePrompt:   {PhaseVoting, PhaseGameOver},
	PhaseVoting:   {PhaseResults, PhaseGameOver},
	PhaseResults:  {PhasePrompt, PhaseGameOver},
	PhaseGameOver: {PhaseLobby},
}

// CanTransitionTo reports whether target is reachable from p in one step.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range transitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// Active is true while a round is being played.
func (p Phase) Active() bool {
	return p == PhasePrompt || p == PhaseVoting || p == PhaseResults
}

func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}

type GameOverReason string

const (
	ReasonWinner           GameOverReason = "winner"
	ReasonNotEnoughPlayers GameOverReason = "not_enough_players"
)

// Prompt is the snapshot of a catalog entry taken when a round starts.
type Prompt struct {
	ID     string `json:"promptId"`
	Text   string `json:"text"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

type TopAnswer struct {
	PlayerID string `json:"playerId"`
	Answer   string `json:"answer"`
}

// RoundResult summarises the answers tied for the most points in a round.
type RoundResult struct {
	Round           int         `json:"round"`
	TopAnswerPoints int         `json:"topAnswerPoints"`
	TopAnswers      []TopAnswer `json:"topAnswers"`
}

type Player struct {
	Name                 string    `json:"name"`
	Score                int       `json:"score"`
	TotalFirstPlaceVotes int       `json:"totalFirstPlaceVotes"`
	Connected            bool      `json:"connected"`
	Submission           *string   `json:"submission"`
	Votes                VoteMap   `json:"votes"`
	JoinedAt             time.Time `json:"joinedAt"`
}

// VoteMap holds the ballots cast for one player's answer: voter id -> rank.
type VoteMap map[string]int

type Session struct {
	Code                string             `json:"code"`
	Version             int64              `json:"version"`
	HostID              string             `json:"hostId"`
	HostIsDisplayOnly   bool               `json:"hostIsDisplayOnly"`
	Difficulty          string             `json:"difficulty,omitempty"`
	Phase               Phase              `json:"phase"`
	Round               int                `json:"round"`
	ScoredRound         int                `json:"scoredRound"`
	CurrentPrompt       *Prompt            `json:"currentPrompt"`
	UsedPromptIDs       []string           `json:"usedPromptIds"`
	TimerEndsAt         *time.Time         `json:"timerEndsAt"`
	VotingPlayerIDs     []string           `json:"votingPlayerIds"`
	VotingRequiredCount *int               `json:"votingRequiredCount"`
	GameOverReason      GameOverReason     `json:"gameOverReason,omitempty"`
	WinnerIDs           []string           `json:"winnerIds"`
	RoundResult         *RoundResult       `json:"roundResult"`
	Players             map[string]*Player `json:"players"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// NewSession returns an empty lobby.
func NewSession(code, hostID string, hostIsDisplayOnly bool, now time.Time) *Session {
	return &Session{
		Code:              code,
		HostID:            hostID,
		HostIsDisplayOnly: hostIsDisplayOnly,
		Phase:             PhaseLobby,
		UsedPromptIDs:     []string{},
		Players:           make(map[string]*Player),
		CreatedAt:         now.UTC(),
	}
}

// NewPlayer returns a connected player with no round state.
func NewPlayer(name string, now time.Time) *Player {
	return &Player{Name: name, Connected: true, JoinedAt: now.UTC()}
}

// IsEligible reports whether id takes part in submitting and voting.
func (s *Session) IsEligible(id string) bool {
	p := s.Players[id]
	if p == nil || !p.Connected {
		return false
	}
	return !(s.HostIsDisplayOnly && id == s.HostID)
}

// EligibleIDs lists connected, participating players in id order.
func (s *Session) EligibleIDs() []string {
	out := make([]string, 0, len(s.Players))
	for id := range s.Players {
		if s.IsEligible(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Session) ConnectedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// InVotingRoster reports whether id was frozen into the current voting round.
func (s *Session) InVotingRoster(id string) bool {
	for _, v := range s.VotingPlayerIDs {
		if v == id {
			return true
		}
	}
	return false
}

// VotesCastBy counts the targets that hold a rank from voterID.
func (s *Session) VotesCastBy(voterID string) int {
	n := 0
	for _, p := range s.Players {
		if _, ok := p.Votes[voterID]; ok {
			n++
		}
	}
	return n
}

func (s *Session) HasCompletedBallot(voterID string, required int) bool {
	return s.VotesCastBy(voterID) == required
}

// ClearVotesBy removes every rank voterID has handed out this round.
func (s *Session) ClearVotesBy(voterID string) {
	for _, p := range s.Players {
		if p.Votes == nil {
			continue
		}
		delete(p.Votes, voterID)
		if len(p.Votes) == 0 {
			p.Votes = nil
		}
	}
}

// FindByName returns the id of the player whose normalized name matches.
func (s *Session) FindByName(name string) (string, bool) {
	want := NormalizeName(name)
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if NormalizeName(s.Players[id].Name) == want {
			return id, true
		}
	}
	return "", false
}

func (s *Session) HasUsedPrompt(id string) bool {
	for _, used := range s.UsedPromptIDs {
		if used == id {
			return true
		}
	}
	return false
}

// RequiredVoteCount is the ballot size for a round with n frozen voters.
func RequiredVoteCount(n, ballotCap int) int {
	return min(ballotCap, max(0, n-1))
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeCode upper-cases and trims a user-entered session code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
