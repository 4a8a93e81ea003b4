//go:build whisper

package transcriber

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"dictap/log"
)

// Local runs whisper.cpp in-process. The model is loaded once on
// construction and kept resident; the cgo binding is not reentrant so
// requests serialize on a mutex.
type Local struct {
	mu    sync.Mutex
	model whisper.Model
}

func NewLocal(modelPath string) (*Local, error) {
	if modelPath == "" {
		return nil, &Failure{Kind: KindUnavailable, Message: "local backend requires a model path"}
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, &Failure{Kind: KindUnavailable, Message: "loading model " + modelPath, Err: err}
	}
	return &Local{model: model}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) Available() bool { return l.model != nil }

func (l *Local) Transcribe(ctx context.Context, req Request) (*Result, error) {
	samples := req.Audio.Float32()
	if len(samples) == 0 {
		return nil, &Failure{Kind: KindInvalidAudio, Message: "empty recording"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}

	wctx, err := l.model.NewContext()
	if err != nil {
		return nil, &Failure{Kind: KindUnavailable, Err: err}
	}
	if req.Language != "" {
		if err := wctx.SetLanguage(req.Language); err != nil {
			log.Warnf("whisper: language %q rejected, using auto-detect", req.Language)
		}
	}

	start := time.Now()
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, &Failure{Kind: KindProvider, Message: "whisper process", Err: err}
	}

	var b strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		b.WriteString(seg.Text)
		if !strings.HasSuffix(seg.Text, " ") {
			b.WriteByte(' ')
		}
	}
	elapsed := time.Since(start)
	log.Debugf("whisper transcribed %.1fs audio in %s", req.Audio.Duration().Seconds(), elapsed)

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = req.Language
	}
	return &Result{
		Text:     strings.TrimSpace(b.String()),
		Language: lang,
		Elapsed:  elapsed,
	}, nil
}

func (l *Local) Close() error {
	return l.model.Close()
}
