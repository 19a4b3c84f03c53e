package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Game holds the tunables of the session state machine.
type Game struct {
	MinPlayers      int           `env:"PARODY_MIN_PLAYERS"       envDefault:"3"`
	MaxPlayers      int           `env:"PARODY_MAX_PLAYERS"       envDefault:"10"`
	PromptDuration  time.Duration `env:"PARODY_PROMPT_DURATION"   envDefault:"90s"`
	VotingDuration  time.Duration `env:"PARODY_VOTING_DURATION"   envDefault:"120s"`
	ResultsDuration time.Duration `env:"PARODY_RESULTS_DURATION"  envDefault:"10s"`
	MaxBallotSize   int           `env:"PARODY_MAX_BALLOT_SIZE"   envDefault:"3"`
	WinScore        int           `env:"PARODY_WIN_SCORE"         envDefault:"10000"`
	VotePoints      []int         `env:"PARODY_VOTE_POINTS"       envDefault:"5,3,1" envSeparator:","`
	PlacementBase   int           `env:"PARODY_PLACEMENT_BASE"    envDefault:"1100"`
	PlacementStep   int           `env:"PARODY_PLACEMENT_STEP"    envDefault:"100"`
	PlacementFloor  int           `env:"PARODY_PLACEMENT_FLOOR"   envDefault:"100"`
	CodeAttempts    int           `env:"PARODY_CODE_ATTEMPTS"     envDefault:"5"`
	MaxNameLength   int           `env:"PARODY_MAX_NAME_LENGTH"   envDefault:"24"`
	MaxAnswerLength int           `env:"PARODY_MAX_ANSWER_LENGTH" envDefault:"200"`
}

type Config struct {
	Game         Game
	TickInterval time.Duration `env:"PARODY_TICK_INTERVAL" envDefault:"1s"`
	Difficulty   string        `env:"PARODY_DEFAULT_DIFFICULTY"`
}

// Default returns the built-in tunables without consulting the environment.
func Default() Config {
	return Config{
		Game: Game{
			MinPlayers:      3,
			MaxPlayers:      10,
			PromptDuration:  90 * time.Second,
			VotingDuration:  120 * time.Second,
			ResultsDuration: 10 * time.Second,
			MaxBallotSize:   3,
			WinScore:        10000,
			VotePoints:      []int{5, 3, 1},
			PlacementBase:   1100,
			PlacementStep:   100,
			PlacementFloor:  100,
			CodeAttempts:    5,
			MaxNameLength:   24,
			MaxAnswerLength: 200,
		},
		TickInterval: time.Second,
	}
}

// FromEnv parses PARODY_* variables on top of the defaults.
func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	return c.Game.Validate()
}

func (g Game) Validate() error {
	if g.MinPlayers < 2 {
		return fmt.Errorf("min players must be at least 2, got %d", g.MinPlayers)
	}
	if g.MaxPlayers < g.MinPlayers {
		return fmt.Errorf("max players %d below min players %d", g.MaxPlayers, g.MinPlayers)
	}
	if g.PromptDuration <= 0 || g.VotingDuration <= 0 || g.ResultsDuration <= 0 {
		return errors.New("phase durations must be positive")
	}
	if g.MaxBallotSize < 1 {
		return errors.New("ballot size must be at least 1")
	}
	if len(g.VotePoints) < g.MaxBallotSize {
		return fmt.Errorf("vote points schedule has %d entries, ballot size is %d", len(g.VotePoints), g.MaxBallotSize)
	}
	for i := 1; i < len(g.VotePoints); i++ {
		if g.VotePoints[i] >= g.VotePoints[i-1] {
			return errors.New("vote points must be strictly decreasing")
		}
	}
	if g.PlacementStep <= 0 || g.PlacementFloor < 0 || g.PlacementBase < g.PlacementFloor {
		return errors.New("placement schedule must decrease towards a non-negative floor")
	}
	if g.WinScore <= 0 {
		return errors.New("win score must be positive")
	}
	if g.CodeAttempts < 1 {
		return errors.New("code attempts must be at least 1")
	}
	return nil
}
