// Package transcriber converts captured audio into text. Backends
// share a single blocking interface; the caller decides how long to
// wait through the context.
package transcriber

import (
	"context"
	"fmt"
	"time"

	"dictap/audio"
	"dictap/encoder"
)

type Request struct {
	Audio    *audio.Buffer
	Language string // ISO 639-1 code, empty for auto-detect
}

type Result struct {
	Text     string
	Language string        // detected or requested language, empty when unknown
	Elapsed  time.Duration // wall time the backend spent
}

type Transcriber interface {
	Name() string
	// Available reports whether the backend is ready to serve a
	// request.
	Available() bool
	// Transcribe blocks until text is available, the context is
	// done, or the backend fails. Errors are *Failure values.
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend   string // local, openai or groq
	ModelPath string // local backend
	APIKey    string
	APIURL    string // override for self-hosted or compatible endpoints
	Model     string
	Format    encoder.Format // upload format for remote backends
	Timeout   time.Duration  // per-request HTTP timeout
}

func New(opts Options) (Transcriber, error) {
	switch opts.Backend {
	case "local":
		return NewLocal(opts.ModelPath)
	case "openai":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai backend requires an API key")
		}
		return NewOpenAI(opts), nil
	case "groq":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("groq backend requires an API key")
		}
		return NewGroq(opts), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want local, openai or groq)", opts.Backend)
}
