package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// stepClock is a manually advanced time source.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// countingFetcher returns v and counts invocations.
func countingFetcher(v any) (Fetcher, *int) {
	n := new(int)
	return func(context.Context) (any, error) {
		*n++
		return v, nil
	}, n
}

func TestSignature_NormalizesFilterOrder(t *testing.T) {
	a := Signature("ideas:list", map[string]string{"niche": "saas", "page": "1"})
	b := Signature("ideas:list", map[string]string{"page": "1", "niche": "saas"})
	if a != b {
		t.Fatalf("signatures differ: %q vs %q", a, b)
	}
	if a != "ideas:list?niche=saas&page=1" {
		t.Fatalf("unexpected signature %q", a)
	}
	if got := Signature("ideas:list", nil); got != "ideas:list" {
		t.Fatalf("filterless signature = %q", got)
	}
}

func TestRead_StaticFreshHitReturnsSameValueNoSecondFetch(t *testing.T) {
	clk := newStepClock()
	s := New(WithClock(clk.Now))
	val := &struct{ X int }{X: 1}
	fetch, n := countingFetcher(val)

	got1, err := s.Read(context.Background(), "ideas:list", Static, fetch)
	if err != nil {
		t.Fatalf("read 1: %v", err)
	}
	got2, err := s.Read(context.Background(), "ideas:list", Static, fetch)
	if err != nil {
		t.Fatalf("read 2: %v", err)
	}
	if *n != 1 {
		t.Fatalf("expected exactly one fetch, got %d", *n)
	}
	if got1 != got2 || got1 != any(val) {
		t.Fatalf("fresh hit must return the identical cached value")
	}
}

func TestRead_InvalidateForcesExactlyOneRefetch(t *testing.T) {
	clk := newStepClock()
	s := New(WithClock(clk.Now))
	fetch, n := countingFetcher("v1")

	if _, err := s.Read(context.Background(), "ideas:list", Static, fetch); err != nil {
		t.Fatal(err)
	}
	if touched := s.Invalidate("ideas:list"); touched != 1 {
		t.Fatalf("Invalidate touched %d entries; want 1", touched)
	}

	// Stale hit serves the old value and revalidates in the background.
	if _, err := s.Read(context.Background(), "ideas:list", Static, fetch); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if *n != 2 {
		t.Fatalf("expected exactly one refetch after invalidate, total %d", *n)
	}

	// Entry is authoritative again: further reads hit the cache.
	if _, err := s.Read(context.Background(), "ideas:list", Static, fetch); err != nil {
		t.Fatal(err)
	}
	if *n != 2 {
		t.Fatalf("fresh entry refetched; total %d", *n)
	}
}

func TestInvalidate_PrefixCoversListAndDetail(t *testing.T) {
	s := New(WithClock(newStepClock().Now))
	seedRead := func(sig string) {
		f, _ := countingFetcher(sig)
		if _, err := s.Read(context.Background(), sig, Static, f); err != nil {
			t.Fatal(err)
		}
	}
	seedRead("ideas:list?niche=saas")
	seedRead("ideas:list?niche=fintech")
	seedRead("ideas:detail?id=i1")
	seedRead("profiles:get?user=u1")

	if n := s.Invalidate("ideas:"); n != 3 {
		t.Fatalf("prefix invalidation touched %d; want 3", n)
	}
}

func TestRead_TTLExpiryByClass(t *testing.T) {
	clk := newStepClock()
	s := New(WithClock(clk.Now), WithTTL(Dynamic, 10*time.Second))
	fetch, n := countingFetcher("v")

	if _, err := s.Read(context.Background(), "sig", Dynamic, fetch); err != nil {
		t.Fatal(err)
	}
	clk.Advance(5 * time.Second)
	if _, err := s.Read(context.Background(), "sig", Dynamic, fetch); err != nil {
		t.Fatal(err)
	}
	if *n != 1 {
		t.Fatalf("entry expired early; fetches=%d", *n)
	}

	clk.Advance(6 * time.Second) // past TTL
	if _, err := s.Read(context.Background(), "sig", Dynamic, fetch); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if *n != 2 {
		t.Fatalf("expired entry not revalidated; fetches=%d", *n)
	}
}

func TestRead_FetchErrorLeavesCacheUntouched(t *testing.T) {
	s := New(WithClock(newStepClock().Now))
	boom := errors.New("store unreachable")
	failing := func(context.Context) (any, error) { return nil, boom }

	if _, err := s.Read(context.Background(), "sig", Static, failing); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, ok := s.Peek("sig"); ok {
		t.Fatalf("failed fetch must not write cache state")
	}
}

func TestSeed_ServesInstantlyThenAuthoritativeFetchReplaces(t *testing.T) {
	s := New(WithClock(newStepClock().Now))
	s.Seed("ideas:detail?id=i1", "from-list")

	fetch, n := countingFetcher("authoritative")
	got, err := s.Read(context.Background(), "ideas:detail?id=i1", Dynamic, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if got != "from-list" {
		t.Fatalf("seeded read returned %v; want placeholder", got)
	}
	s.Wait()
	if *n != 1 {
		t.Fatalf("authoritative fetch not issued, n=%d", *n)
	}
	if v, _ := s.Peek("ideas:detail?id=i1"); v != "authoritative" {
		t.Fatalf("authoritative value did not replace seed, got %v", v)
	}
}

func TestSeed_NeverDowngradesAuthoritativeValue(t *testing.T) {
	s := New(WithClock(newStepClock().Now))
	fetch, _ := countingFetcher("real")
	if _, err := s.Read(context.Background(), "sig", Static, fetch); err != nil {
		t.Fatal(err)
	}
	s.Seed("sig", "placeholder")
	if v, _ := s.Peek("sig"); v != "real" {
		t.Fatalf("seed overwrote authoritative value")
	}
}

func TestPrefetch_MakesNextReadAHit(t *testing.T) {
	s := New(WithClock(newStepClock().Now))
	fetch, n := countingFetcher("v")

	if err := s.Prefetch(context.Background(), "sig", Static, fetch); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(context.Background(), "sig", Static, fetch); err != nil {
		t.Fatal(err)
	}
	if *n != 1 {
		t.Fatalf("read after prefetch issued a fetch; n=%d", *n)
	}

	// Prefetch on a fresh entry is a no-op.
	if err := s.Prefetch(context.Background(), "sig", Static, fetch); err != nil {
		t.Fatal(err)
	}
	if *n != 1 {
		t.Fatalf("prefetch refetched a fresh entry; n=%d", *n)
	}
}

func TestSupersededFetchIsDiscarded(t *testing.T) {
	s := New(WithClock(newStepClock().Now))

	// Simulate two overlapping fetches for one signature: the older one
	// resolves after the newer one started. Drive the internals the same
	// way Read does.
	s.mu.Lock()
	seqOld := s.beginFetchLocked("sig")
	seqNew := s.beginFetchLocked("sig")
	s.mu.Unlock()

	s.complete("sig", seqNew, "newer")
	s.complete("sig", seqOld, "older") // must be discarded

	if v, _ := s.Peek("sig"); v != "newer" {
		t.Fatalf("older superseded fetch overwrote cache: %v", v)
	}
}

func TestInvalidate_SupersedesInFlightFetch(t *testing.T) {
	s := New(WithClock(newStepClock().Now))

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		if calls == 1 {
			close(entered)
			<-release
			return "pre-mutation", nil
		}
		return "post-mutation", nil
	}

	// A miss fetch blocks mid-flight while a mutation invalidates the
	// signature.
	done := make(chan any)
	go func() {
		v, _ := s.Read(context.Background(), "ideas:list", Static, fetch)
		done <- v
	}()
	<-entered
	s.Invalidate("ideas:")
	close(release)
	if v := <-done; v != "pre-mutation" {
		t.Fatalf("in-flight read returned %v; want the value it fetched", v)
	}

	// The late result must not have been stored as fresh: the next read
	// fetches again and sees post-mutation data.
	got, err := s.Read(context.Background(), "ideas:list", Static, fetch)
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if got != "post-mutation" {
		t.Fatalf("read after invalidate served %v without refetching", got)
	}
	if calls != 2 {
		t.Fatalf("expected a refetch after invalidate; fetches=%d", calls)
	}
}

func TestInvalidate_DuringRevalidationDiscardsLateResult(t *testing.T) {
	s := New(WithClock(newStepClock().Now))

	first, _ := countingFetcher("v1")
	if _, err := s.Read(context.Background(), "ideas:list", Static, first); err != nil {
		t.Fatal(err)
	}
	s.Invalidate("ideas:")

	// Stale read starts a background revalidation that blocks; a second
	// invalidation lands before it resolves.
	release := make(chan struct{})
	blocked := func(context.Context) (any, error) {
		<-release
		return "stale-fetch", nil
	}
	if v, err := s.Read(context.Background(), "ideas:list", Static, blocked); err != nil || v != "v1" {
		t.Fatalf("stale read = %v, %v; want served v1", v, err)
	}
	s.Invalidate("ideas:")
	close(release)
	s.Wait()

	// The superseded revalidation result was discarded and the entry is
	// still stale, so the next read revalidates again.
	if v, _ := s.Peek("ideas:list"); v != "v1" {
		t.Fatalf("superseded revalidation stored %v", v)
	}
	next, n := countingFetcher("v2")
	if _, err := s.Read(context.Background(), "ideas:list", Static, next); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if *n != 1 {
		t.Fatalf("entry not revalidated after second invalidate; fetches=%d", *n)
	}
}

func TestCommitWrite_OutOfOrderResponses(t *testing.T) {
	s := New(WithClock(newStepClock().Now))

	// Two favorite toggles issued back-to-back for the same idea.
	seq1 := s.BeginWrite("idea:i1")
	seq2 := s.BeginWrite("idea:i1")

	var state string
	// Responses resolve out of order: the later-issued write lands first.
	if ok := s.CommitWrite("idea:i1", seq2, func() { state = "second" }); !ok {
		t.Fatalf("newest write must commit")
	}
	if ok := s.CommitWrite("idea:i1", seq1, func() { state = "first" }); ok {
		t.Fatalf("older write response must be discarded")
	}
	if state != "second" {
		t.Fatalf("final state = %q; want result of later sequence tag", state)
	}

	// Writes against other entities are unaffected.
	if ok := s.CommitWrite("idea:i2", s.BeginWrite("idea:i2"), nil); !ok {
		t.Fatalf("independent entity write blocked")
	}
}

func TestPoll_RefreshesUntilStopped(t *testing.T) {
	s := New(WithClock(newStepClock().Now))
	fetch, n := countingFetcher("v")

	stop := s.Poll(context.Background(), "sig", 5*time.Millisecond, fetch)
	time.Sleep(30 * time.Millisecond)
	stop()
	s.Wait()

	if *n == 0 {
		t.Fatalf("poll never fetched")
	}
	if v, ok := s.Peek("sig"); !ok || v != "v" {
		t.Fatalf("poll did not store result")
	}
}

func TestClear_ResetsEverything(t *testing.T) {
	s := New(WithClock(newStepClock().Now))
	fetch, n := countingFetcher("v")
	if _, err := s.Read(context.Background(), "sig", Static, fetch); err != nil {
		t.Fatal(err)
	}
	s.Clear()
	if _, ok := s.Peek("sig"); ok {
		t.Fatalf("entries survived Clear")
	}
	if _, err := s.Read(context.Background(), "sig", Static, fetch); err != nil {
		t.Fatal(err)
	}
	if *n != 2 {
		t.Fatalf("read after Clear should miss; fetches=%d", *n)
	}
}
