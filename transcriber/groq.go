package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"dictap/encoder"
	"dictap/log"
)

const (
	groqDefaultURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	groqDefaultModel = "whisper-large-v3-turbo"

	// keep error bodies in logs readable
	maxErrorBody = 2048
)

type Groq struct {
	apiKey string
	apiURL string
	model  string
	format encoder.Format
	client *http.Client
}

func NewGroq(opts Options) *Groq {
	g := &Groq{
		apiKey: opts.APIKey,
		apiURL: opts.APIURL,
		model:  opts.Model,
		format: opts.Format,
		client: &http.Client{Timeout: opts.Timeout},
	}
	if g.apiURL == "" {
		g.apiURL = groqDefaultURL
	}
	if g.model == "" {
		g.model = groqDefaultModel
	}
	if g.format == "" {
		g.format = encoder.FormatFLAC
	}
	return g
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Available() bool { return g.apiKey != "" }

type groqResponse struct {
	Text string `json:"text"`
}

func (g *Groq) Transcribe(ctx context.Context, req Request) (*Result, error) {
	data, err := encoder.Encode(g.format, req.Audio)
	if err != nil {
		return nil, &Failure{Kind: KindInvalidAudio, Err: err}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+g.format.Ext())
	if err != nil {
		return nil, &Failure{Kind: KindInvalidAudio, Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &Failure{Kind: KindInvalidAudio, Err: err}
	}

	writer.WriteField("model", g.model)
	writer.WriteField("response_format", "json")
	if req.Language != "" {
		writer.WriteField("language", req.Language)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, &body)
	if err != nil {
		return nil, &Failure{Kind: KindUnavailable, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classify(err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, fromStatus(resp.StatusCode, msg)
	}

	var gResp groqResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return nil, &Failure{Kind: KindProvider, Message: "unparseable response", Err: err}
	}

	if remaining := resp.Header.Get("x-ratelimit-remaining-requests"); remaining != "" {
		log.Debugf("groq rate limit: %s/%s remaining",
			remaining, resp.Header.Get("x-ratelimit-limit-requests"))
	}
	elapsed := time.Since(start)
	log.Debugf("groq transcribed %.1fs audio in %s", req.Audio.Duration().Seconds(), elapsed)

	return &Result{Text: gResp.Text, Language: req.Language, Elapsed: elapsed}, nil
}
