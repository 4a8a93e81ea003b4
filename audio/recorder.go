package audio

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDeviceUnavailable wraps capture startup failures so callers can
// keep running without a working microphone.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// Recorder accumulates PCM from a capture device between Start and
// Stop. A Recorder is not safe for concurrent use; the controller
// drives it from a single goroutine.
type Recorder struct {
	ctx    Context
	device *DeviceInfo

	mu        sync.Mutex // guards buf against the capture callback
	buf       *Buffer
	capture   CaptureDevice
	recording bool
}

func NewRecorder(ctx Context, device *DeviceInfo) *Recorder {
	return &Recorder{ctx: ctx, device: device}
}

// Start opens the capture device and begins accumulating PCM.
// Failures to open or start the device are reported as
// ErrDeviceUnavailable; the recorder stays idle.
func (r *Recorder) Start() error {
	if r.recording {
		return errors.New("recorder already started")
	}

	capture, err := r.ctx.NewCapture(r.device, CaptureConfig{
		SampleRate: SampleRate,
		Channels:   Channels,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	buf := &Buffer{}
	capture.SetCallback(func(data []byte, _ uint32) {
		r.mu.Lock()
		buf.Append(data)
		r.mu.Unlock()
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.mu.Lock()
	r.buf = buf
	r.mu.Unlock()
	r.capture = capture
	r.recording = true
	return nil
}

// Stop ends the recording and returns everything captured since
// Start. The device is released before returning.
func (r *Recorder) Stop() (*Buffer, error) {
	if !r.recording {
		return nil, errors.New("recorder not started")
	}
	r.teardown()

	r.mu.Lock()
	buf := r.buf
	r.buf = nil
	r.mu.Unlock()
	return buf, nil
}

// Cancel ends the recording and discards the captured audio. Safe to
// call when not recording.
func (r *Recorder) Cancel() {
	if !r.recording {
		return
	}
	r.teardown()

	r.mu.Lock()
	r.buf = nil
	r.mu.Unlock()
}

func (r *Recorder) teardown() {
	r.capture.ClearCallback()
	r.capture.Stop()
	r.capture.Close()
	r.capture = nil
	r.recording = false
}

// Recording reports whether a capture is active. Like Start and Stop
// it must be called from the goroutine driving the recorder.
func (r *Recorder) Recording() bool { return r.recording }
