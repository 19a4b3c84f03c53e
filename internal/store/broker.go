package store

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kiliankoe/parodyparty/internal/model"
)

type broker struct {
	mu   sync.Mutex
	subs map[string]map[string]*subscriber // code -> subscription id -> subscriber
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[string]*subscriber)}
}

// subscriber delivers snapshots in version order on its own goroutine. A
// backlog collapses to the newest pending snapshot.
type subscriber struct {
	id      string
	fn      func(*model.Session)
	mu      sync.Mutex
	pending *model.Session
	last    int64
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (b *broker) subscribe(code string, fn func(*model.Session)) *subscriber {
	sub := &subscriber{
		id:   uuid.NewString(),
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	if b.subs[code] == nil {
		b.subs[code] = make(map[string]*subscriber)
	}
	b.subs[code][sub.id] = sub
	b.mu.Unlock()
	go sub.run()
	return sub
}

func (b *broker) unsubscribe(code string, sub *subscriber) {
	b.mu.Lock()
	if m := b.subs[code]; m != nil {
		delete(m, sub.id)
		if len(m) == 0 {
			delete(b.subs, code)
		}
	}
	b.mu.Unlock()
	sub.stop()
}

func (b *broker) publish(code string, snap *model.Session) {
	b.mu.Lock()
	targets := make([]*subscriber, 0, len(b.subs[code]))
	for _, sub := range b.subs[code] {
		targets = append(targets, sub)
	}
	b.mu.Unlock()
	for _, sub := range targets {
		sub.offer(snap)
	}
}

func (b *broker) codes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.subs))
	for code := range b.subs {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func (b *broker) closeAll() {
	b.mu.Lock()
	all := b.subs
	b.subs = make(map[string]map[string]*subscriber)
	b.mu.Unlock()
	for _, m := range all {
		for _, sub := range m {
			sub.stop()
		}
	}
}

func (s *subscriber) offer(snap *model.Session) {
	s.mu.Lock()
	if s.pending == nil || snap.Version > s.pending.Version {
		s.pending = snap
	}
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		snap := s.pending
		s.pending = nil
		s.mu.Unlock()
		if snap == nil || snap.Version <= s.last {
			continue
		}
		s.last = snap.Version
		s.fn(snap.Clone())
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
