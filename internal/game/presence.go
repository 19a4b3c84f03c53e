package game

import (
	"context"
	"strings"
	"time"

	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/rs/zerolog/log"
)

// JoinResult is the session as the joining player sees it right after joining.
type JoinResult struct {
	Session  *model.Session
	PlayerID string
	Resumed  bool
}

// JoinSession adds a player to a lobby, or resumes a known player in any
// phase. A known player is matched by id first and then by name among
// disconnected players, so a reconnecting client keeps its score.
func (s *Service) JoinSession(ctx context.Context, code, playerID, name string) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(playerID) == "" {
		return JoinResult{}, ErrUnknownPlayer
	}
	var res JoinResult
	committed, err := s.tx(ctx, code, func(sess *model.Session, now time.Time) (bool, error) {
		res = JoinResult{PlayerID: playerID}

		if sess.HostIsDisplayOnly && playerID == sess.HostID {
			return false, nil
		}
		if p := sess.Players[playerID]; p != nil {
			res.Resumed = true
			return s.reconnect(sess, p)
		}
		if err := s.validateName(name); err != nil {
			return false, err
		}
		if id, ok := sess.FindByName(name); ok {
			p := sess.Players[id]
			if p.Connected {
				return false, ErrNameTaken
			}
			res.PlayerID, res.Resumed = id, true
			return s.reconnect(sess, p)
		}
		if sess.Phase != model.PhaseLobby {
			return false, ErrGameStarted
		}
		if sess.ConnectedCount() >= s.cfg.MaxPlayers {
			return false, ErrSessionFull
		}
		sess.Players[playerID] = model.NewPlayer(name, now)
		return true, nil
	})
	if err != nil {
		return JoinResult{}, err
	}
	if committed != nil {
		res.Session = committed.Clone()
		log.Info().Str("code", committed.Code).Str("playerId", res.PlayerID).Bool("resumed", res.Resumed).Msg("player joined")
		return res, nil
	}
	snap, err := s.Snapshot(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	res.Session = snap
	return res, nil
}

func (s *Service) reconnect(sess *model.Session, p *model.Player) (bool, error) {
	if p.Connected {
		return false, nil
	}
	if sess.ConnectedCount() >= s.cfg.MaxPlayers {
		return false, ErrSessionFull
	}
	p.Connected = true
	return true, nil
}

// LeaveSession marks the player disconnected. Scores and ballots stay
// attributed to them. If the game is running and too few players remain, the
// game ends in the same transaction.
func (s *Service) LeaveSession(ctx context.Context, code, playerID string) error {
	var ended bool
	committed, err := s.tx(ctx, code, func(sess *model.Session, now time.Time) (bool, error) {
		p := sess.Players[playerID]
		if p == nil {
			return false, ErrUnknownPlayer
		}
		if !p.Connected {
			return false, nil
		}
		p.Connected = false
		ended = s.forceGameOverIfShort(sess)
		return true, nil
	})
	if err != nil {
		return err
	}
	if committed != nil {
		ev := log.Info().Str("code", committed.Code).Str("playerId", playerID)
		if ended {
			ev = ev.Str("reason", string(model.ReasonNotEnoughPlayers))
		}
		ev.Msg("player left")
	}
	return nil
}
