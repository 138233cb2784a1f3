package clock

import "sync"

import "time"

// Fake is a manually-advanced Clock for deterministic tests.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d and fires any ticker whose period
// has elapsed.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	tickers := append([]*fakeTicker(nil), f.tickers...)
	f.mu.Unlock()

	for _, t := range tickers {
		t.maybeFire(now)
	}
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	t := &fakeTicker{
		period: d,
		ch:     make(chan time.Time, 1),
		next:   f.Now().Add(d),
	}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// Sleep advances the fake clock by d (firing any due tickers) and returns
// immediately; it never blocks. Callers that need to wait for fake time to
// pass should use a Ticker instead.
func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

type fakeTicker struct {
	mu     sync.Mutex
	period time.Duration
	next   time.Time
	ch     chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) maybeFire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	for !now.Before(t.next) {
		select {
		case t.ch <- now:
		default:
		}
		t.next = t.next.Add(t.period)
	}
}
