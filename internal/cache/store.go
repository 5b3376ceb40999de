// Package cache implements the query-result cache that sits between the
// service layer and the repository. Entries are keyed by a signature
// (operation name + normalized filter parameters) and governed by one of
// three policy classes:
//
//   - Static:   long-lived, rarely invalidated (niche lists, profiles)
//   - Dynamic:  short-lived, revalidated on read (idea lists, details)
//   - Realtime: actively polled on a fixed interval (transaction queues)
//
// Behavior contract:
//   - A fresh hit returns the exact cached value, no fetch issued.
//   - A stale hit with a value returns the stale value immediately and
//     revalidates in the background (stale-while-revalidate).
//   - A miss fetches synchronously.
//   - Fetch errors never touch cached state.
//   - A superseded fetch (a newer fetch for the same signature started,
//     or the signature was invalidated, while it was in flight) is
//     discarded on arrival, never stored.
//   - Mutations tag themselves with per-entity sequence numbers so an
//     older write response can never clobber the effects of a newer one.
//
// The store is an explicit, constructed object with an injectable clock
// and per-class TTL table plus a Clear lifecycle, so tests can build
// isolated instances. It is safe for concurrent use.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Class selects the freshness policy for an entry.
type Class int

const (
	// Static entries stay fresh for a long window and are only refetched
	// after explicit invalidation or expiry.
	Static Class = iota
	// Dynamic entries have a short freshness window and revalidate in the
	// background whenever read stale.
	Dynamic
	// Realtime entries are kept current by Poll; reads treat them like
	// Dynamic entries between ticks.
	Realtime
)

// Fetcher loads the authoritative value for a signature.
type Fetcher func(ctx context.Context) (any, error)

// DefaultTTLs is the freshness window per class used unless overridden.
var DefaultTTLs = map[Class]time.Duration{
	Static:   10 * time.Minute,
	Dynamic:  15 * time.Second,
	Realtime: 3 * time.Second,
}

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
	seeded    bool
}

// Store is the cache coordinator. Construct with New.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     map[Class]time.Duration
	now     func() time.Time

	fetchSeq     uint64            // monotonic, one per issued fetch
	latest       map[string]uint64 // newest issued fetch per signature
	revalidating map[string]bool   // signatures with a background fetch running
	writeSeq     uint64            // monotonic, one per issued mutation
	writes       map[string]uint64 // last committed mutation per entity key

	reval sync.WaitGroup // in-flight background revalidations
}

// Option customizes a Store.
type Option func(*Store)

// WithClock injects the time source (tests freeze or step it).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTTL overrides the freshness window for one class.
func WithTTL(class Class, ttl time.Duration) Option {
	return func(s *Store) { s.ttl[class] = ttl }
}

// New constructs an empty Store with default TTLs and the wall clock.
func New(opts ...Option) *Store {
	s := &Store{
		entries:      make(map[string]*entry),
		ttl:          make(map[Class]time.Duration, len(DefaultTTLs)),
		now:          time.Now,
		latest:       make(map[string]uint64),
		revalidating: make(map[string]bool),
		writes:       make(map[string]uint64),
	}
	for c, d := range DefaultTTLs {
		s.ttl[c] = d
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signature builds a normalized cache key from an operation name and its
// filter parameters. Filters are sorted by key so equivalent queries map
// to the same signature regardless of argument order.
func Signature(op string, filters map[string]string) string {
	if len(filters) == 0 {
		return op
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(op)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(filters[k])
	}
	return b.String()
}

// Read returns the value for sig under the given policy class.
//
// Fresh hit: the cached value is returned as-is and no fetch is issued.
// Stale hit: the stale value is returned immediately and a background
// revalidation is started (at most one per signature at a time). Miss:
// fetch runs synchronously and its result is stored unless superseded.
// Fetch failures leave the cache untouched.
func (s *Store) Read(ctx context.Context, sig string, class Class, fetch Fetcher) (any, error) {
	s.mu.Lock()
	if e, ok := s.entries[sig]; ok {
		if s.freshLocked(e, class) {
			v := e.value
			s.mu.Unlock()
			return v, nil
		}
		// Stale or seeded but present: serve it, revalidate behind. At most
		// one background revalidation per signature at a time.
		v := e.value
		if s.revalidating[sig] {
			s.mu.Unlock()
			return v, nil
		}
		s.revalidating[sig] = true
		seq := s.beginFetchLocked(sig)
		s.mu.Unlock()

		s.reval.Add(1)
		go func() {
			defer s.reval.Done()
			got, err := fetch(context.WithoutCancel(ctx))
			s.mu.Lock()
			delete(s.revalidating, sig)
			s.mu.Unlock()
			if err == nil {
				s.complete(sig, seq, got)
			}
		}()
		return v, nil
	}
	seq := s.beginFetchLocked(sig)
	s.mu.Unlock()

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.complete(sig, seq, v)
	return v, nil
}

// Prefetch proactively loads sig so a subsequent Read is a fresh hit. A
// fresh existing entry makes it a no-op.
func (s *Store) Prefetch(ctx context.Context, sig string, class Class, fetch Fetcher) error {
	s.mu.Lock()
	if e, ok := s.entries[sig]; ok && s.freshLocked(e, class) {
		s.mu.Unlock()
		return nil
	}
	seq := s.beginFetchLocked(sig)
	s.mu.Unlock()

	v, err := fetch(ctx)
	if err != nil {
		return err
	}
	s.complete(sig, seq, v)
	return nil
}

// Seed pre-populates sig with a placeholder value (typically list-derived
// data for a detail view). Seeded entries serve reads instantly but are
// always revalidated, so the authoritative fetch replaces them.
func (s *Store) Seed(sig string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Never downgrade an authoritative value to a placeholder.
	if e, ok := s.entries[sig]; ok && !e.seeded && !e.stale {
		return
	}
	s.entries[sig] = &entry{value: value, fetchedAt: s.now(), seeded: true}
}

// Peek returns the current value for sig without fetching, along with
// whether any value (fresh, stale, or seeded) is present.
func (s *Store) Peek(sig string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sig]; ok {
		return e.value, true
	}
	return nil, false
}

// Invalidate marks every entry whose signature starts with prefix as
// stale and returns how many entries were touched. The next Read of a
// touched signature issues a fetch. Fetches still in flight for a
// matching signature are superseded: they were issued before the
// invalidation and may carry pre-mutation data, so complete discards
// them instead of storing them fresh.
func (s *Store) Invalidate(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sig, e := range s.entries {
		if strings.HasPrefix(sig, prefix) && !e.stale {
			e.stale = true
			n++
		}
	}
	for sig := range s.latest {
		if strings.HasPrefix(sig, prefix) {
			s.fetchSeq++
			s.latest[sig] = s.fetchSeq
		}
	}
	return n
}

// Poll keeps sig current by refetching on a fixed interval until ctx is
// done or the returned stop function is called. Poll results obey the
// same supersede rules as reads, so an explicit Read racing a tick cannot
// be clobbered by an older response.
func (s *Store) Poll(ctx context.Context, sig string, interval time.Duration, fetch Fetcher) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.reval.Add(1)
	go func() {
		defer s.reval.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.mu.Lock()
				seq := s.beginFetchLocked(sig)
				s.mu.Unlock()
				if v, err := fetch(ctx); err == nil {
					s.complete(sig, seq, v)
				}
			}
		}
	}()
	return cancel
}

// BeginWrite reserves a sequence tag for a mutation against entityKey.
// Call it before issuing the write so racing mutations order themselves
// by issue time.
func (s *Store) BeginWrite(entityKey string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeSeq++
	return s.writeSeq
}

// CommitWrite applies the cache effects of a completed mutation (usually
// invalidations inside commit) only if no later write against the same
// entity has already committed. It returns false when the response is
// stale and was discarded.
func (s *Store) CommitWrite(entityKey string, seq uint64, commit func()) bool {
	s.mu.Lock()
	if s.writes[entityKey] > seq {
		s.mu.Unlock()
		return false
	}
	s.writes[entityKey] = seq
	s.mu.Unlock()
	if commit != nil {
		commit()
	}
	return true
}

// Wait blocks until all background revalidations and polls have finished.
// Intended for shutdown and tests.
func (s *Store) Wait() { s.reval.Wait() }

// Clear drops every entry and sequence record, returning the store to its
// initial state. Viewer-scoped entries must be cleared on identity change.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.latest = make(map[string]uint64)
	s.revalidating = make(map[string]bool)
	s.writes = make(map[string]uint64)
}

// freshLocked reports whether e may be served without revalidation.
func (s *Store) freshLocked(e *entry, class Class) bool {
	if e.stale || e.seeded {
		return false
	}
	return s.now().Sub(e.fetchedAt) < s.ttl[class]
}

// beginFetchLocked allocates a fetch sequence number and records it as
// the newest in-flight fetch for sig. Callers hold s.mu.
func (s *Store) beginFetchLocked(sig string) uint64 {
	s.fetchSeq++
	s.latest[sig] = s.fetchSeq
	return s.fetchSeq
}

// complete stores a fetch result unless a newer fetch for the same
// signature was issued while this one was in flight.
func (s *Store) complete(sig string, seq uint64, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[sig] != seq {
		return // superseded: discard, never overwrite newer data
	}
	s.entries[sig] = &entry{value: value, fetchedAt: s.now()}
}
