package game

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/rs/zerolog/log"
)

// Exporter appends a plain-text transcript of every scored round to a file.
type Exporter struct {
	path string
	mu   sync.Mutex
}

func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

// Hook adapts the exporter to a RoundHook. Export failures are logged, never
// propagated into the game.
func (e *Exporter) Hook(_ context.Context, snap *model.Session) {
	if err := e.ExportRound(snap); err != nil {
		log.Error().Err(err).Str("code", snap.Code).Msg("failed to export round")
		return
	}
	log.Info().Str("code", snap.Code).Str("file", e.path).Int("round", snap.ScoredRound).Msg("exported round")
}

// ExportRound writes the round just scored in s.
func (e *Exporter) ExportRound(s *model.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	_, statErr := os.Stat(e.path)
	fileExists := statErr == nil

	file, err := os.OpenFile(e.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(transcript(s, fileExists)); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

func transcript(s *model.Session, appending bool) string {
	var sb strings.Builder
	now := time.Now().Format("2006-01-02 15:04:05")

	if s.ScoredRound == 1 {
		if appending {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Parody Party Results - Session %s\n", s.Code)
		fmt.Fprintf(&sb, "Started: %s\n", now)
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")
		sb.WriteString("Players:\n")
		for _, id := range playerIDsByName(s) {
			fmt.Fprintf(&sb, "- %s\n", s.Players[id].Name)
		}
		sb.WriteString("\n")
	}

	title := ""
	if s.CurrentPrompt != nil {
		title = s.CurrentPrompt.Title
	}
	fmt.Fprintf(&sb, "Round %d: %q\n", s.ScoredRound, title)
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	if rr := s.RoundResult; rr != nil && len(rr.TopAnswers) > 0 {
		fmt.Fprintf(&sb, "Top answers (%d points):\n", rr.TopAnswerPoints)
		for _, ta := range rr.TopAnswers {
			fmt.Fprintf(&sb, "- %s: %q\n", playerName(s, ta.PlayerID), ta.Answer)
		}
	}

	sb.WriteString("\nScores after this round:\n")
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.Players[ids[i]], s.Players[ids[j]]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Name < b.Name
	})
	for _, id := range ids {
		fmt.Fprintf(&sb, "- %s: %d points\n", s.Players[id].Name, s.Players[id].Score)
	}
	sb.WriteString("\n")

	if s.Phase == model.PhaseGameOver {
		names := make([]string, 0, len(s.WinnerIDs))
		for _, id := range s.WinnerIDs {
			names = append(names, playerName(s, id))
		}
		fmt.Fprintf(&sb, "Game ended at %s, won by %s\n", now, strings.Join(names, ", "))
		sb.WriteString(strings.Repeat("=", 50) + "\n")
	}
	return sb.String()
}

func playerIDsByName(s *model.Session) []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.Players[ids[i]].Name < s.Players[ids[j]].Name })
	return ids
}

func playerName(s *model.Session, id string) string {
	if p := s.Players[id]; p != nil {
		return p.Name
	}
	return "Unknown"
}
