package controller

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"dictap/audio"
	"dictap/gesture"
	"dictap/injector"
	"dictap/notify"
	"dictap/transcriber"
)

type fakeRecorder struct {
	mu        sync.Mutex
	startErr  error
	stopErr   error
	emptyStop bool
	starts    int
	stops     int
	cancels   int
}

func (f *fakeRecorder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	return nil
}

func (f *fakeRecorder) Stop() (*audio.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	if f.emptyStop {
		return audio.NewBuffer(nil), nil
	}
	return audio.NewBuffer(audio.TonePCM(440, 0.5, 100*time.Millisecond)), nil
}

func (f *fakeRecorder) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeRecorder) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.cancels
}

// recordingSink captures every notification for assertions.
type recordingSink struct {
	mu    sync.Mutex
	kinds []notify.Kind
}

func (s *recordingSink) Notify(ev notify.Event) {
	s.mu.Lock()
	s.kinds = append(s.kinds, ev.Kind)
	s.mu.Unlock()
}

func (s *recordingSink) count(k notify.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.kinds {
		if got == k {
			n++
		}
	}
	return n
}

func waitKind(t *testing.T, s *recordingSink, k notify.Kind, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.count(k) < n {
		if time.Now().After(deadline) {
			t.Fatalf("saw %d notifications of kind %d, want %d", s.count(k), k, n)
		}
		time.Sleep(time.Millisecond)
	}
}

type fixture struct {
	rec    *fakeRecorder
	trans  *transcriber.Fake
	inj    *injector.Fake
	sink   *recordingSink
	ctrl   *Controller
	cancel context.CancelFunc
	done   chan struct{}
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		rec:   &fakeRecorder{},
		trans: transcriber.NewFake("hello world", nil),
		inj:   injector.NewFakeInjector(),
		sink:  &recordingSink{},
		done:  make(chan struct{}),
	}
	f.ctrl = New(f.rec, f.trans, f.inj, nil, f.sink, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() {
		defer close(f.done)
		f.ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})
	return f
}

func (f *fixture) send(kind gesture.Kind) {
	f.ctrl.Handle(gesture.Event{Kind: kind, At: time.Now()})
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", c.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitTexts(t *testing.T, inj *injector.Fake, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		texts := inj.Texts()
		if len(texts) >= n {
			return texts
		}
		if time.Now().After(deadline) {
			t.Fatalf("injected %d texts, want %d", len(texts), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDictationRoundTrip(t *testing.T) {
	f := newFixture(t, Config{})

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)

	f.send(gesture.Activate)
	texts := waitTexts(t, f.inj, 1)
	if texts[0] != "hello world" {
		t.Errorf("injected %q", texts[0])
	}
	waitState(t, f.ctrl, StateIdle)

	starts, stops, _ := f.rec.counts()
	if starts != 1 || stops != 1 {
		t.Errorf("recorder starts=%d stops=%d", starts, stops)
	}

	waitKind(t, f.sink, notify.Done, 1)
	if n := f.sink.count(notify.RecordStart); n != 1 {
		t.Errorf("record-start notifications = %d, want 1", n)
	}
	if n := f.sink.count(notify.RecordStop); n != 1 {
		t.Errorf("record-stop notifications = %d, want 1", n)
	}
	if n := f.sink.count(notify.Failed); n != 0 {
		t.Errorf("failure notifications = %d on the happy path", n)
	}
}

func TestCancelDuringRecording(t *testing.T) {
	f := newFixture(t, Config{})

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)

	f.send(gesture.Cancel)
	waitState(t, f.ctrl, StateIdle)

	time.Sleep(50 * time.Millisecond)
	if f.trans.Calls() != 0 {
		t.Error("cancelled recording reached the transcriber")
	}
	if len(f.inj.Texts()) != 0 {
		t.Error("cancelled recording injected text")
	}
	if _, _, cancels := f.rec.counts(); cancels != 1 {
		t.Errorf("recorder cancels = %d, want 1", cancels)
	}
	waitKind(t, f.sink, notify.Cancelled, 1)
	if n := f.sink.count(notify.Failed); n != 0 {
		t.Errorf("cancel produced %d failure notifications", n)
	}
}

func TestCancelDuringProcessingAbandonsResult(t *testing.T) {
	f := newFixture(t, Config{})
	f.trans.SetDelay(50 * time.Millisecond)

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateProcessing)

	f.send(gesture.Cancel)
	waitState(t, f.ctrl, StateIdle)

	// let the abandoned transcription finish
	time.Sleep(150 * time.Millisecond)
	if texts := f.inj.Texts(); len(texts) != 0 {
		t.Errorf("abandoned result was injected: %v", texts)
	}
	waitKind(t, f.sink, notify.Cancelled, 1)
	if n := f.sink.count(notify.Done); n != 0 {
		t.Errorf("abandoned result produced %d done notifications", n)
	}
	if n := f.sink.count(notify.Failed); n != 0 {
		t.Errorf("abandoned result produced %d failure notifications", n)
	}
}

func TestAbandonedResultNotMisattributed(t *testing.T) {
	f := newFixture(t, Config{})
	f.trans.SetDelay(80 * time.Millisecond)
	f.trans.SetText("stale words")

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateProcessing)
	f.send(gesture.Cancel)
	waitState(t, f.ctrl, StateIdle)

	// new dictation starts while the abandoned one is still running
	f.trans.SetDelay(0)
	f.trans.SetText("fresh words")
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)

	texts := waitTexts(t, f.inj, 1)
	time.Sleep(150 * time.Millisecond) // stale completion arrives and is dropped

	texts = f.inj.Texts()
	if len(texts) != 1 || texts[0] != "fresh words" {
		t.Errorf("injected %v, want only fresh words", texts)
	}
}

func TestActivateWhileProcessingIgnored(t *testing.T) {
	f := newFixture(t, Config{})
	f.trans.SetDelay(80 * time.Millisecond)

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateProcessing)

	f.send(gesture.Activate)
	time.Sleep(20 * time.Millisecond)
	if f.ctrl.State() != StateProcessing {
		t.Errorf("state = %s, activation should be ignored", f.ctrl.State())
	}

	waitTexts(t, f.inj, 1)
	if starts, _, _ := f.rec.counts(); starts != 1 {
		t.Errorf("recorder started %d times, want 1", starts)
	}
}

func TestCancelWhileIdleIsNoop(t *testing.T) {
	f := newFixture(t, Config{})

	f.send(gesture.Cancel)
	f.send(gesture.Cancel)
	time.Sleep(20 * time.Millisecond)

	if f.ctrl.State() != StateIdle {
		t.Errorf("state = %s", f.ctrl.State())
	}
	if _, _, cancels := f.rec.counts(); cancels != 0 {
		t.Error("idle cancel reached the recorder")
	}
}

func TestMicrophoneFailureStaysIdle(t *testing.T) {
	f := newFixture(t, Config{})
	f.rec.startErr = errors.New("device busy")

	f.send(gesture.Activate)
	time.Sleep(20 * time.Millisecond)

	if f.ctrl.State() != StateIdle {
		t.Errorf("state = %s, want idle after start failure", f.ctrl.State())
	}

	// a later activation works once the device recovers
	f.rec.mu.Lock()
	f.rec.startErr = nil
	f.rec.mu.Unlock()
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
}

func TestStopFailureNotified(t *testing.T) {
	f := newFixture(t, Config{})
	f.rec.mu.Lock()
	f.rec.stopErr = errors.New("stream torn down")
	f.rec.mu.Unlock()

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateIdle)

	waitKind(t, f.sink, notify.Failed, 1)
	time.Sleep(50 * time.Millisecond)
	if n := f.sink.count(notify.Failed); n != 1 {
		t.Errorf("failure notifications = %d, want exactly 1", n)
	}
	if f.trans.Calls() != 0 {
		t.Error("failed stop reached the transcriber")
	}
	if len(f.inj.Texts()) != 0 {
		t.Error("failed stop injected text")
	}
}

func TestEmptyRecordingNotified(t *testing.T) {
	f := newFixture(t, Config{})
	f.rec.mu.Lock()
	f.rec.emptyStop = true
	f.rec.mu.Unlock()

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateIdle)

	waitKind(t, f.sink, notify.NoSpeech, 1)
	if f.trans.Calls() != 0 {
		t.Error("empty recording reached the transcriber")
	}
}

func TestTranscriptionFailureNotified(t *testing.T) {
	f := newFixture(t, Config{})
	f.trans.SetErr(&transcriber.Failure{Kind: transcriber.KindProvider, Code: 500, Message: "boom"})

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateIdle)

	if len(f.inj.Texts()) != 0 {
		t.Error("failed transcription injected text")
	}
	waitKind(t, f.sink, notify.Failed, 1)
	time.Sleep(50 * time.Millisecond)
	if n := f.sink.count(notify.Failed); n != 1 {
		t.Errorf("failure notifications = %d, want exactly 1", n)
	}
}

func TestEmptyTranscriptionNotInjected(t *testing.T) {
	f := newFixture(t, Config{})
	f.trans.SetText("   ")

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateIdle)

	if len(f.inj.Texts()) != 0 {
		t.Error("whitespace-only text was injected")
	}
}

func TestProcessingTimeout(t *testing.T) {
	f := newFixture(t, Config{ProcessingTimeout: 30 * time.Millisecond})
	f.trans.SetDelay(time.Second)

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateProcessing)

	waitState(t, f.ctrl, StateIdle)
	if len(f.inj.Texts()) != 0 {
		t.Error("timed-out transcription injected text")
	}
	waitKind(t, f.sink, notify.Failed, 1)
	time.Sleep(50 * time.Millisecond)
	if n := f.sink.count(notify.Failed); n != 1 {
		t.Errorf("failure notifications = %d, want exactly 1", n)
	}
}

func TestShutdownDuringRecording(t *testing.T) {
	f := newFixture(t, Config{})

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)

	f.cancel()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not shut down")
	}
	if _, _, cancels := f.rec.counts(); cancels != 1 {
		t.Errorf("recorder cancels = %d, want 1", cancels)
	}
}

func TestShutdownDuringProcessing(t *testing.T) {
	f := newFixture(t, Config{})
	f.trans.SetDelay(time.Second)

	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateProcessing)

	f.cancel()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not shut down")
	}
}

func TestRandomizedGestureStorm(t *testing.T) {
	f := newFixture(t, Config{})
	f.trans.SetDelay(2 * time.Millisecond)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		if rng.Intn(3) == 0 {
			f.send(gesture.Cancel)
		} else {
			f.send(gesture.Activate)
		}
		time.Sleep(time.Duration(rng.Intn(3)) * time.Millisecond)
	}

	// drain: keep cancelling until the controller stays idle long
	// enough for the backlog to be gone
	deadline := time.Now().Add(5 * time.Second)
	var idleSince time.Time
	for idleSince.IsZero() || time.Since(idleSince) < 100*time.Millisecond {
		if time.Now().After(deadline) {
			t.Fatalf("controller stuck in %s", f.ctrl.State())
		}
		if f.ctrl.State() == StateIdle {
			if idleSince.IsZero() {
				idleSince = time.Now()
			}
		} else {
			idleSince = time.Time{}
			f.send(gesture.Cancel)
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.trans.SetDelay(0)
	f.trans.SetText("final check")
	before := len(f.inj.Texts())
	f.send(gesture.Activate)
	waitState(t, f.ctrl, StateRecording)
	f.send(gesture.Activate)
	texts := waitTexts(t, f.inj, before+1)
	if texts[len(texts)-1] != "final check" {
		t.Errorf("last injected text = %q", texts[len(texts)-1])
	}
}

func TestControllerWithRealRecorder(t *testing.T) {
	rec := audio.NewRecorder(audio.NewFakeContext(audio.TonePCM(440, 0.5, 50*time.Millisecond)), nil)
	trans := transcriber.NewFake("integration", nil)
	inj := injector.NewFakeInjector()
	ctrl := New(rec, trans, inj, nil, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()

	ctrl.Handle(gesture.Event{Kind: gesture.Activate, At: time.Now()})
	waitState(t, ctrl, StateRecording)
	ctrl.Handle(gesture.Event{Kind: gesture.Activate, At: time.Now()})

	texts := waitTexts(t, inj, 1)
	if texts[0] != "integration" {
		t.Errorf("injected %q", texts[0])
	}

	cancel()
	<-done
}
