// Package votes owns the yes/no tally: it loads it from a durable slot,
// persists every cast and keeps the bar chart in sync.
//
// Failures on the vote path are never surfaced to voters. A slot that cannot
// be read or parsed loads as an empty tally, and a failed write loses that
// vote's durability but not the vote itself. This is the intended trade of
// durability for availability.
package votes

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/maaaruch/memory-tribunal/internal/domain"
	"github.com/maaaruch/memory-tribunal/internal/storage"
)

// Renderer is the chart side of the binding. It only ever receives copies.
type Renderer interface {
	Render(t domain.Tally) error
}

// Notifier receives cosmetic feedback after a vote is applied. It runs on
// its own goroutine; its latency and failures do not affect the vote.
type Notifier interface {
	Voted(ctx context.Context, o domain.Option, t domain.Tally)
}

type Store struct {
	slot     storage.Slot
	key      string
	chart    Renderer
	notifier Notifier

	mu    sync.Mutex
	tally domain.Tally

	pending sync.WaitGroup
}

type Option func(*Store)

// WithKey overrides storage.DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// Open loads the tally from slot and binds it to chart with an initial render.
func Open(ctx context.Context, slot storage.Slot, chart Renderer, opts ...Option) *Store {
	s := &Store{
		slot:  slot,
		key:   storage.DefaultKey,
		chart: chart,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tally = s.Load(ctx)
	s.render(s.tally)
	return s
}

// Load reads the persisted tally. Anything missing or malformed yields the
// zero tally.
func (s *Store) Load(ctx context.Context) domain.Tally {
	raw, err := s.slot.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Println("load tally:", err)
		}
		return domain.Tally{}
	}

	t, err := decodeTally(raw)
	if err != nil {
		log.Printf("load tally: %v, starting from zero", err)
		return domain.Tally{}
	}
	return t
}

// Save overwrites the persisted tally.
func (s *Store) Save(ctx context.Context, t domain.Tally) error {
	raw, err := encodeTally(t)
	if err != nil {
		return err
	}
	return s.slot.Set(ctx, s.key, raw)
}

// CastVote adds one vote for option and returns the resulting tally.
// Options other than "yes" and "no" are ignored and reported as not accepted.
func (s *Store) CastVote(ctx context.Context, option string) (domain.Tally, bool) {
	o, ok := domain.ParseOption(option)
	if !ok {
		return s.Tally(), false
	}

	s.mu.Lock()
	s.tally = s.tally.Inc(o)
	t := s.tally
	if err := s.Save(ctx, t); err != nil {
		log.Printf("cast vote %s: save: %v", o, err)
	}
	s.render(t)
	s.mu.Unlock()

	if s.notifier != nil {
		// detached: the caller's request may end before feedback is sent
		fctx := context.WithoutCancel(ctx)
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.notifier.Voted(fctx, o, t)
		}()
	}
	return t, true
}

// Wait blocks until feedback for every cast so far has been sent.
func (s *Store) Wait() {
	s.pending.Wait()
}

// Tally returns a snapshot of the in-memory tally.
func (s *Store) Tally() domain.Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tally
}

func (s *Store) render(t domain.Tally) {
	if s.chart == nil {
		return
	}
	if err := s.chart.Render(t); err != nil {
		log.Println("render chart:", err)
	}
}
