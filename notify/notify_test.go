package notify

import (
	"sync"
	"testing"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []Event
}

func (r *recordingSink) Notify(ev Event) {
	r.mu.Lock()
	r.calls = append(r.calls, ev)
	r.mu.Unlock()
}

func TestMultiFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := Multi{a, b}

	m.Notify(Event{Kind: RecordStart, Title: "Recording", Body: "started"})

	for i, s := range []*recordingSink{a, b} {
		if len(s.calls) != 1 || s.calls[0].Title != "Recording" {
			t.Errorf("sink %d: calls = %v", i, s.calls)
		}
	}
}

func TestMultiEmpty(t *testing.T) {
	Multi{}.Notify(Event{Kind: Failed, Title: "x", Body: "y"})
}
