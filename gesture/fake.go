package gesture

import "time"

// FakeSource is an in-memory Source for tests and doctor checks.
type FakeSource struct {
	events chan KeyEvent
}

func NewFake() *FakeSource {
	return &FakeSource{events: make(chan KeyEvent, 16)}
}

func (f *FakeSource) Start() (<-chan KeyEvent, error) { return f.events, nil }

func (f *FakeSource) Close() {}

// SimPress injects a press edge stamped with the current time.
func (f *FakeSource) SimPress(k Key) {
	f.events <- KeyEvent{Key: k, Edge: Press, At: time.Now()}
}

// SimRelease injects a release edge stamped with the current time.
func (f *FakeSource) SimRelease(k Key) {
	f.events <- KeyEvent{Key: k, Edge: Release, At: time.Now()}
}
