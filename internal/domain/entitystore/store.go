// Package entitystore is the process-wide, versioned cache of KPIs, staff
// profiles, assignments and review items.
package entitystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/kpi"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/staff"
)

type Collection string

const (
	KPIs        Collection = "kpis"
	Profiles    Collection = "profiles"
	Assignments Collection = "assignments"
	ReviewItems Collection = "review_items"
)

var Collections = []Collection{KPIs, Profiles, Assignments, ReviewItems}

type Source[T any] interface {
	ListAll(ctx context.Context) ([]T, error)
}

type Sources struct {
	KPIs        Source[kpi.KPI]
	Profiles    Source[staff.Profile]
	Assignments Source[hierarchy.Assignment]
	ReviewItems Source[review.Item]
}

// Change is delivered to observers after a reload altered a collection.
type Change struct {
	Collection Collection
	Version    uint64
}

type observer struct {
	id int
	fn func(Change)
}

// Store holds the last successfully loaded copy of each collection. Each
// collection has a single writer at a time; readers take immutable snapshots.
type Store struct {
	sources Sources
	writers map[Collection]*sync.Mutex

	mu       sync.RWMutex
	snap     *Snapshot
	loadedAt map[Collection]time.Time

	obsMu     sync.Mutex
	observers []observer
	nextObs   int
}

func New(sources Sources) *Store {
	writers := make(map[Collection]*sync.Mutex, len(Collections))
	for _, c := range Collections {
		writers[c] = &sync.Mutex{}
	}
	return &Store{
		sources:  sources,
		writers:  writers,
		snap:     &Snapshot{},
		loadedAt: map[Collection]time.Time{},
	}
}

// Snapshot returns the current immutable view.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) Version() uint64 {
	return s.Snapshot().version
}

// LoadedAt reports when each collection last loaded successfully.
func (s *Store) LoadedAt() map[Collection]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Collection]time.Time, len(s.loadedAt))
	for k, v := range s.loadedAt {
		out[k] = v
	}
	return out
}

// Subscribe registers fn for change notifications and returns its cancel func.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observer{id: id, fn: fn})
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Refresh reloads every collection concurrently. A collection that fails to
// load keeps its last-known-good copy; the joined errors are returned.
func (s *Store) Refresh(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, c := range Collections {
		c := c
		g.Go(func() error {
			if err := s.RefreshCollection(ctx, c); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// RefreshCollection reloads one collection. On error the cached copy is kept.
// The version moves, and observers hear about it, only when the loaded rows
// differ from the cached ones or the collection had never loaded.
func (s *Store) RefreshCollection(ctx context.Context, c Collection) error {
	w, ok := s.writers[c]
	if !ok {
		return fmt.Errorf("unknown collection %q", c)
	}
	w.Lock()
	defer w.Unlock()

	apply, err := s.load(ctx, c)
	if err != nil {
		slog.Warn("entity store refresh failed, keeping cached copy", "collection", string(c), "err", err)
		return fmt.Errorf("refresh %s: %w", c, err)
	}

	s.mu.Lock()
	_, seen := s.loadedAt[c]
	next := *s.snap
	changed := apply(&next) || !seen
	if changed {
		next.version = s.snap.version + 1
		s.snap = &next
	}
	s.loadedAt[c] = time.Now()
	s.mu.Unlock()

	if changed {
		s.notify(Change{Collection: c, Version: next.version})
	}
	return nil
}

// load fetches c and returns a func that installs it into a snapshot copy,
// reporting whether anything differed.
func (s *Store) load(ctx context.Context, c Collection) (func(*Snapshot) bool, error) {
	switch c {
	case KPIs:
		v, err := loadFrom(ctx, s.sources.KPIs)
		return func(sn *Snapshot) bool { return replace(&sn.kpis, v) }, err
	case Profiles:
		v, err := loadFrom(ctx, s.sources.Profiles)
		return func(sn *Snapshot) bool { return replace(&sn.profiles, v) }, err
	case Assignments:
		v, err := loadFrom(ctx, s.sources.Assignments)
		return func(sn *Snapshot) bool { return replace(&sn.assignments, v) }, err
	case ReviewItems:
		v, err := loadFrom(ctx, s.sources.ReviewItems)
		return func(sn *Snapshot) bool { return replace(&sn.items, v) }, err
	}
	return nil, fmt.Errorf("unknown collection %q", c)
}

// replace stores v in field unless the two hold the same rows. Nil and empty
// count as equal.
func replace[T any](field *[]T, v []T) bool {
	if len(*field) == len(v) && (len(v) == 0 || reflect.DeepEqual(*field, v)) {
		return false
	}
	*field = v
	return true
}

func loadFrom[T any](ctx context.Context, src Source[T]) ([]T, error) {
	if src == nil {
		return nil, errors.New("no source configured")
	}
	return src.ListAll(ctx)
}

func (s *Store) notify(ch Change) {
	s.obsMu.Lock()
	obs := append([]observer(nil), s.observers...)
	s.obsMu.Unlock()
	for _, o := range obs {
		o.fn(ch)
	}
}
