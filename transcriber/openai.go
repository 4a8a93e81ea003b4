package transcriber

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"dictap/encoder"
	"dictap/log"
)

const openaiDefaultModel = "whisper-1"

type OpenAI struct {
	client openai.Client
	model  string
	format encoder.Format
}

func NewOpenAI(opts Options) *OpenAI {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.APIURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.APIURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	o := &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
		format: opts.Format,
	}
	if o.model == "" {
		o.model = openaiDefaultModel
	}
	if o.format == "" {
		o.format = encoder.FormatWAV
	}
	return o
}

func (o *OpenAI) Name() string { return "openai" }

// Available is constant: construction requires an API key.
func (o *OpenAI) Available() bool { return true }

func (o *OpenAI) Transcribe(ctx context.Context, req Request) (*Result, error) {
	data, err := encoder.Encode(o.format, req.Audio)
	if err != nil {
		return nil, &Failure{Kind: KindInvalidAudio, Err: err}
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(data), "audio."+o.format.Ext(), o.format.MIME()),
		Model: openai.AudioModel(o.model),
	}
	if req.Language != "" {
		params.Language = openai.String(req.Language)
	}

	start := time.Now()
	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return nil, fromStatus(apierr.StatusCode, apierr.Message)
		}
		return nil, classify(err)
	}
	elapsed := time.Since(start)
	log.Debugf("openai transcribed %.1fs audio in %s", req.Audio.Duration().Seconds(), elapsed)

	return &Result{Text: resp.Text, Language: req.Language, Elapsed: elapsed}, nil
}
