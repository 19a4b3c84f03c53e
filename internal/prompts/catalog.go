// Package prompts is the read-only catalog of song lines players rewrite.
package prompts

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/kiliankoe/parodyparty/internal/model"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var ErrEmptyCatalog = errors.New("prompt catalog is empty")

// Song is a verse with one line blanked out for players to replace.
type Song struct {
	ID         string
	Title      string
	Artist     string
	Lines      []string
	BlankLine  int
	Difficulty Difficulty
}

// Text renders the verse with the blank line replaced by underscores.
func (s Song) Text() string {
	out := make([]string, len(s.Lines))
	for i, line := range s.Lines {
		if i == s.BlankLine {
			line = "_____"
		}
		out[i] = line
	}
	return strings.Join(out, "\n")
}

func (s Song) Prompt() model.Prompt {
	return model.Prompt{ID: s.ID, Text: s.Text(), Title: s.Title, Artist: s.Artist}
}

type Catalog struct {
	songs []Song
	mu    sync.Mutex
	rnd   *rand.Rand
}

func New(songs []Song, seed int64) *Catalog {
	return &Catalog{songs: songs, rnd: rand.New(rand.NewSource(seed))}
}

// Default returns the built-in catalog seeded from the clock.
func Default() *Catalog {
	return New(builtin, time.Now().UnixNano())
}

func (c *Catalog) Len() int { return len(c.songs) }

// Random picks a song matching difficulty (any, if empty or unmatched) whose
// id is not in exclude. Once the matching songs are used up it moves on to
// unused songs of other difficulties, and only repeats when the whole catalog
// is excluded.
func (c *Catalog) Random(difficulty string, exclude []string) (model.Prompt, error) {
	if len(c.songs) == 0 {
		return model.Prompt{}, ErrEmptyCatalog
	}
	pool := c.songs
	if difficulty != "" {
		var filtered []Song
		for _, s := range c.songs {
			if string(s.Difficulty) == difficulty {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	if fresh := unused(pool, skip); len(fresh) > 0 {
		pool = fresh
	} else if fresh := unused(c.songs, skip); len(fresh) > 0 {
		pool = fresh
	}

	c.mu.Lock()
	idx := c.rnd.Intn(len(pool))
	c.mu.Unlock()
	return pool[idx].Prompt(), nil
}

func unused(songs []Song, skip map[string]bool) []Song {
	var out []Song
	for _, s := range songs {
		if !skip[s.ID] {
			out = append(out, s)
		}
	}
	return out
}
