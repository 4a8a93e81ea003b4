//go:build !whisper

package transcriber

import "context"

// The local backend needs whisper.cpp compiled in. Build with
// -tags whisper and the whisper.cpp libraries available.

type Local struct{}

func NewLocal(string) (*Local, error) {
	return nil, &Failure{
		Kind:    KindUnavailable,
		Message: "local backend not compiled in (rebuild with -tags whisper)",
	}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Available() bool { return false }

func (l *Local) Transcribe(context.Context, Request) (*Result, error) {
	return nil, &Failure{Kind: KindUnavailable, Message: "local backend not compiled in"}
}

func (l *Local) Close() error { return nil }
