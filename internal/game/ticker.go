package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Ticker polls the guards of every session returned by codes. It is one more
// redundant caller of AdvanceIfReady, the same as any client's local timer.
type Ticker struct {
	svc      *Service
	interval time.Duration
	codes    func() []string
}

func NewTicker(svc *Service, interval time.Duration, codes func() []string) *Ticker {
	return &Ticker{svc: svc, interval: interval, codes: codes}
}

// Run ticks until ctx is done.
func (t *Ticker) Run(ctx context.Context) error {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			t.Tick(ctx)
		}
	}
}

// Tick runs one pass and returns how many sessions advanced.
func (t *Ticker) Tick(ctx context.Context) int {
	advanced := 0
	for _, code := range t.codes() {
		ok, err := t.svc.AdvanceIfReady(ctx, code)
		if err != nil {
			// Retried on the next tick.
			log.Warn().Err(err).Str("code", code).Msg("guard failed")
			continue
		}
		if ok {
			advanced++
		}
	}
	return advanced
}
