//go:build !linux

package gesture

import (
	"runtime"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// hookSource uses a global keyboard hook on platforms without evdev.
type hookSource struct {
	events chan KeyEvent
	stop   chan struct{}
	once   sync.Once
}

// platform raw keycodes for the tracked keys
var (
	rawLCtrl uint16 = 162 // VK_LCONTROL
	rawRCtrl uint16 = 163 // VK_RCONTROL
	rawEsc   uint16 = 27  // VK_ESCAPE
)

func init() {
	if runtime.GOOS == "darwin" {
		rawLCtrl, rawRCtrl, rawEsc = 59, 62, 53
	}
}

func NewSource() Source {
	return &hookSource{
		events: make(chan KeyEvent, 64),
	}
}

func (s *hookSource) Start() (<-chan KeyEvent, error) {
	s.stop = make(chan struct{})
	raw := hook.Start()

	go func() {
		for {
			select {
			case <-s.stop:
				return
			case ev, ok := <-raw:
				if !ok {
					return
				}
				var edge Edge
				switch ev.Kind {
				case hook.KeyDown:
					edge = Press
				case hook.KeyUp:
					edge = Release
				default:
					continue
				}
				at := ev.When
				if at.IsZero() {
					at = time.Now()
				}
				out := KeyEvent{Key: mapRawcode(ev.Rawcode), Edge: edge, At: at}
				select {
				case s.events <- out:
				default:
				}
			}
		}
	}()

	return s.events, nil
}

func mapRawcode(code uint16) Key {
	switch code {
	case rawLCtrl:
		return KeyLeftCtrl
	case rawRCtrl:
		return KeyRightCtrl
	case rawEsc:
		return KeyEscape
	default:
		return KeyOther
	}
}

func (s *hookSource) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		hook.End()
	})
}

// Diagnose reports whether the key event source can work at all.
func Diagnose() (string, error) {
	return "global keyboard hook available", nil
}
