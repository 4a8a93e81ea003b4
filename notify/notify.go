// Package notify surfaces recording state changes to the user.
// Notifications are best effort; dictation never fails because a
// notification could not be shown.
package notify

import "dictap/log"

type Kind int

const (
	RecordStart Kind = iota
	RecordStop
	Done
	Cancelled
	NoSpeech
	Failed
)

type Event struct {
	Kind  Kind
	Title string
	Body  string
}

// Sink receives user-facing status events.
type Sink interface {
	Notify(ev Event)
}

// LogSink mirrors notifications into the diagnostics log.
type LogSink struct{}

func (LogSink) Notify(ev Event) {
	if ev.Kind == Failed {
		log.Errorf("%s: %s", ev.Title, ev.Body)
		return
	}
	log.Infof("%s: %s", ev.Title, ev.Body)
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Notify(ev Event) {
	for _, s := range m {
		s.Notify(ev)
	}
}
