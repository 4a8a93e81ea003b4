package transcriber

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Fake returns canned results after an optional delay. Tests use the
// delay to hold the controller in its processing state. All fields are
// guarded so tests can reconfigure it while a call is in flight.
type Fake struct {
	mu          sync.Mutex
	text        string
	err         error
	delay       time.Duration
	unavailable bool

	calls atomic.Int64
}

func NewFake(text string, err error) *Fake {
	return &Fake{text: text, err: err}
}

func (f *Fake) SetText(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = s
}

func (f *Fake) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

func (f *Fake) SetUnavailable(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = v
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unavailable
}

func (f *Fake) Calls() int64 { return f.calls.Load() }

func (f *Fake) Transcribe(ctx context.Context, req Request) (*Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	text, err, delay := f.text, f.err, f.delay
	f.mu.Unlock()

	start := time.Now()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, classify(ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	return &Result{Text: text, Language: req.Language, Elapsed: time.Since(start)}, nil
}
