// Package store persists session documents and notifies subscribers of
// committed changes. All multi-field writes go through Transaction, which
// re-reads the document, lets the caller decide, and commits only if no other
// writer got there first.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
	// ErrContention is returned when a transaction kept losing the
	// compare-and-swap race. Nothing was written; callers may retry.
	ErrContention = errors.New("transaction contention")
)

// Record is one encoded document with its monotonically increasing version.
type Record struct {
	Version int64
	Data    []byte
}

// Backend is the minimal capability set a document database must offer.
type Backend interface {
	Load(ctx context.Context, code string) (Record, error)
	Insert(ctx context.Context, code string, data []byte) error
	// CompareAndSwap writes data only if the stored version still equals
	// version, returning the new version or ErrContention.
	CompareAndSwap(ctx context.Context, code string, version int64, data []byte) (int64, error)
	Close() error
}

// TxFunc inspects and mutates sess. Returning commit=false discards the
// mutation without writing.
type TxFunc func(sess *model.Session) (commit bool, err error)

type Store struct {
	backend     Backend
	broker      *broker
	maxAttempts int
}

type Option func(*Store)

// WithMaxAttempts bounds how often a transaction retries after losing a race.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func New(b Backend, opts ...Option) *Store {
	s := &Store{backend: b, broker: newBroker(), maxAttempts: 8}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Close() error {
	s.broker.closeAll()
	return s.backend.Close()
}

// Get returns the current document.
func (s *Store) Get(ctx context.Context, code string) (*model.Session, error) {
	rec, err := s.backend.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

// Create inserts sess if no document with its code exists.
func (s *Store) Create(ctx context.Context, sess *model.Session) error {
	sess.Version = 1
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.backend.Insert(ctx, sess.Code, data); err != nil {
		return err
	}
	s.broker.publish(sess.Code, sess.Clone())
	return nil
}

// Update applies a blind partial mutation; it never declines to commit.
func (s *Store) Update(ctx context.Context, code string, mutate func(*model.Session)) error {
	_, err := s.Transaction(ctx, code, func(sess *model.Session) (bool, error) {
		mutate(sess)
		return true, nil
	})
	return err
}

// Transaction runs fn against a fresh read of the document and commits its
// changes atomically. Losing a concurrent race re-runs fn on the newer
// version, so fn must derive every decision from sess alone.
func (s *Store) Transaction(ctx context.Context, code string, fn TxFunc) (bool, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		rec, err := s.backend.Load(ctx, code)
		if err != nil {
			return false, err
		}
		sess, err := decode(rec)
		if err != nil {
			return false, err
		}
		commit, err := fn(sess)
		if err != nil || !commit {
			return false, err
		}
		sess.Version = rec.Version + 1
		data, err := json.Marshal(sess)
		if err != nil {
			return false, fmt.Errorf("encode session: %w", err)
		}
		version, err := s.backend.CompareAndSwap(ctx, code, rec.Version, data)
		if errors.Is(err, ErrContention) {
			log.Debug().Str("code", code).Int("attempt", attempt).Msg("transaction conflict, retrying")
			continue
		}
		if err != nil {
			return false, err
		}
		sess.Version = version
		s.broker.publish(code, sess.Clone())
		return true, nil
	}
	return false, fmt.Errorf("%w: gave up after %d attempts", ErrContention, s.maxAttempts)
}

// Subscribe delivers the current snapshot and then every committed change to
// fn until ctx is done or the returned cancel func is called.
func (s *Store) Subscribe(ctx context.Context, code string, fn func(*model.Session)) (func(), error) {
	current, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	sub := s.broker.subscribe(code, fn)
	sub.offer(current)
	go func() {
		select {
		case <-ctx.Done():
			s.broker.unsubscribe(code, sub)
		case <-sub.done:
		}
	}()
	return func() { s.broker.unsubscribe(code, sub) }, nil
}

// Watched lists the codes that have at least one live subscriber.
func (s *Store) Watched() []string {
	return s.broker.codes()
}

func decode(rec Record) (*model.Session, error) {
	var sess model.Session
	if err := json.Unmarshal(rec.Data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.Players == nil {
		sess.Players = make(map[string]*model.Player)
	}
	sess.Version = rec.Version
	return &sess, nil
}
