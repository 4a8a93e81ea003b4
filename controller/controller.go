// Package controller owns the dictation state machine. A single
// goroutine moves between Idle, Recording and Processing in response
// to gesture events and transcription completions, so no state is
// ever shared between concurrent activations.
package controller

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"dictap/audio"
	"dictap/gesture"
	"dictap/log"
	"dictap/notify"
	"dictap/transcriber"
)

type State int32

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	}
	return "unknown"
}

// Recorder is the slice of the audio recorder the controller drives.
type Recorder interface {
	Start() error
	Stop() (*audio.Buffer, error)
	Cancel()
}

// Trimmer removes silence from a finished recording. A nil Trimmer
// passes audio through unchanged.
type Trimmer interface {
	Trim(*audio.Buffer) (*audio.Buffer, bool)
}

type Injector interface {
	Inject(text string) error
}

type Config struct {
	Language string
	// ProcessingTimeout bounds a transcription attempt. Zero means
	// no bound.
	ProcessingTimeout time.Duration
}

type Controller struct {
	rec    Recorder
	trans  transcriber.Transcriber
	inj    Injector
	trim   Trimmer
	sink   notify.Sink
	cfg    Config

	state atomic.Int32

	events      chan gesture.Event
	completions chan completion

	// session identifies the transcription currently awaited.
	// Bumping it abandons any in-flight work, whose completion then
	// arrives with a stale id and is discarded.
	session    uint64
	cancelProc context.CancelFunc
	deadline   *time.Timer

	count int // injections this run
}

type completion struct {
	session  uint64
	res      *transcriber.Result
	err      error
	audioLen time.Duration
	started  time.Time
}

func New(rec Recorder, trans transcriber.Transcriber, inj Injector, trim Trimmer, sink notify.Sink, cfg Config) *Controller {
	if sink == nil {
		sink = notify.Multi{}
	}
	return &Controller{
		rec:         rec,
		trans:       trans,
		inj:         inj,
		trim:        trim,
		sink:        sink,
		cfg:         cfg,
		events:      make(chan gesture.Event, 16),
		completions: make(chan completion, 8),
	}
}

// State reports the current state. It is safe from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Handle enqueues a gesture event. It never blocks; events arriving
// faster than the loop can drain them are dropped.
func (c *Controller) Handle(ev gesture.Event) {
	select {
	case c.events <- ev:
	default:
		log.Warn("gesture event dropped, controller busy")
	}
}

// Run processes events until ctx is done. It owns all state; callers
// interact only through Handle and State.
func (c *Controller) Run(ctx context.Context) error {
	log.SessionStart(c.trans.Name(), "")
	defer log.SessionEnd(c.count)

	for {
		var deadlineCh <-chan time.Time
		if c.deadline != nil {
			deadlineCh = c.deadline.C
		}

		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()

		case ev := <-c.events:
			c.onGesture(ctx, ev)

		case comp := <-c.completions:
			c.onCompletion(comp)

		case <-deadlineCh:
			c.onDeadline()
		}
	}
}

func (c *Controller) onGesture(ctx context.Context, ev gesture.Event) {
	state := c.State()
	log.Debugf("gesture %s in state %s", ev.Kind, state)

	switch {
	case state == StateIdle && ev.Kind == gesture.Activate:
		c.startRecording()

	case state == StateIdle && ev.Kind == gesture.Cancel:
		// nothing to cancel

	case state == StateRecording && ev.Kind == gesture.Activate:
		c.finishRecording(ctx)

	case state == StateRecording && ev.Kind == gesture.Cancel:
		c.rec.Cancel()
		c.state.Store(int32(StateIdle))
		c.sink.Notify(notify.Event{Kind: notify.Cancelled, Title: "Cancelled", Body: "recording discarded"})

	case state == StateProcessing && ev.Kind == gesture.Cancel:
		c.abandon()
		c.state.Store(int32(StateIdle))
		c.sink.Notify(notify.Event{Kind: notify.Cancelled, Title: "Cancelled", Body: "transcription abandoned"})

	case state == StateProcessing && ev.Kind == gesture.Activate:
		log.Debug("activation ignored while processing")
	}
}

func (c *Controller) startRecording() {
	if err := c.rec.Start(); err != nil {
		log.Errorf("starting recording: %v", err)
		c.sink.Notify(notify.Event{Kind: notify.Failed, Title: "Microphone error", Body: err.Error()})
		return
	}
	c.state.Store(int32(StateRecording))
	c.sink.Notify(notify.Event{Kind: notify.RecordStart, Title: "Recording", Body: "speak now, double-press to finish"})
}

func (c *Controller) finishRecording(ctx context.Context) {
	buf, err := c.rec.Stop()
	if err != nil {
		log.Errorf("stopping recording: %v", err)
		c.state.Store(int32(StateIdle))
		c.sink.Notify(notify.Event{Kind: notify.Failed, Title: "Recording failed", Body: err.Error()})
		return
	}

	if c.trim != nil {
		trimmed, ok := c.trim.Trim(buf)
		if !ok {
			c.state.Store(int32(StateIdle))
			c.sink.Notify(notify.Event{Kind: notify.NoSpeech, Title: "No speech", Body: "nothing to transcribe"})
			return
		}
		buf = trimmed
	}
	if buf.Frames() == 0 {
		c.state.Store(int32(StateIdle))
		c.sink.Notify(notify.Event{Kind: notify.NoSpeech, Title: "No speech", Body: "nothing was recorded"})
		return
	}

	c.session++
	sid := c.session

	var procCtx context.Context
	if c.cfg.ProcessingTimeout > 0 {
		procCtx, c.cancelProc = context.WithTimeout(ctx, c.cfg.ProcessingTimeout)
		c.deadline = time.NewTimer(c.cfg.ProcessingTimeout + time.Second)
	} else {
		procCtx, c.cancelProc = context.WithCancel(ctx)
	}

	started := time.Now()
	audioLen := buf.Duration()
	go func() {
		res, err := c.trans.Transcribe(procCtx, transcriber.Request{
			Audio:    buf,
			Language: c.cfg.Language,
		})
		comp := completion{
			session:  sid,
			res:      res,
			err:      err,
			audioLen: audioLen,
			started:  started,
		}
		// once Run has returned nobody drains completions; bail out
		// instead of blocking forever
		select {
		case c.completions <- comp:
		case <-ctx.Done():
		}
	}()

	c.state.Store(int32(StateProcessing))
	c.sink.Notify(notify.Event{Kind: notify.RecordStop, Title: "Transcribing", Body: ""})
}

func (c *Controller) onCompletion(comp completion) {
	if comp.session != c.session || c.State() != StateProcessing {
		log.Debugf("discarding stale completion for session %d", comp.session)
		return
	}
	c.clearProcessing()
	c.state.Store(int32(StateIdle))

	if comp.err != nil {
		log.Errorf("transcription failed: %v", comp.err)
		c.sink.Notify(notify.Event{Kind: notify.Failed, Title: "Transcription failed", Body: failureSummary(comp.err)})
		return
	}

	text := strings.TrimSpace(comp.res.Text)
	if text == "" {
		c.sink.Notify(notify.Event{Kind: notify.NoSpeech, Title: "No speech", Body: "backend returned empty text"})
		return
	}

	if err := c.inj.Inject(text); err != nil {
		log.Errorf("injecting text: %v", err)
		c.sink.Notify(notify.Event{Kind: notify.Failed, Title: "Paste failed", Body: err.Error()})
		return
	}

	c.count++
	log.Transcription(c.trans.Name(), comp.audioLen, time.Since(comp.started), len(text))
	log.TranscriptionText(text)
	c.sink.Notify(notify.Event{Kind: notify.Done, Title: "Done", Body: text})
}

// onDeadline fires when a transcription overruns its timeout even
// after its context expired, which means the backend is stuck.
func (c *Controller) onDeadline() {
	if c.State() != StateProcessing {
		c.clearProcessing()
		return
	}
	log.Errorf("transcription deadline exceeded, abandoning session %d", c.session)
	c.abandon()
	c.state.Store(int32(StateIdle))
	c.sink.Notify(notify.Event{Kind: notify.Failed, Title: "Transcription failed", Body: "timed out"})
}

// abandon invalidates the in-flight transcription. Its completion
// will arrive with a stale session id and be ignored.
func (c *Controller) abandon() {
	c.session++
	c.clearProcessing()
}

func (c *Controller) clearProcessing() {
	if c.cancelProc != nil {
		c.cancelProc()
		c.cancelProc = nil
	}
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
}

func (c *Controller) shutdown() {
	switch c.State() {
	case StateRecording:
		c.rec.Cancel()
	case StateProcessing:
		c.abandon()
	}
	c.state.Store(int32(StateIdle))
}

func failureSummary(err error) string {
	var f *transcriber.Failure
	if errors.As(err, &f) {
		return f.Error()
	}
	return err.Error()
}
