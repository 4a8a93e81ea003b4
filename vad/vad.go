// Package vad trims silence from a finished recording before it is
// handed to a transcription backend. Frames are classified with the
// WebRTC voice activity detector gated by an RMS energy floor, which
// keeps keyboard noise and breath sounds from counting as speech.
package vad

import (
	"fmt"
	"math"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"dictap/audio"
)

const (
	frameMs    = 20
	frameBytes = audio.SampleRate * frameMs / 1000 * 2 // 640 bytes

	// context kept around each speech region so word onsets are not
	// clipped
	padFrames = 5 // 100ms
)

// Classifier reports whether a single 20ms s16le frame contains
// speech.
type Classifier func(frame []byte) bool

type Config struct {
	Aggressiveness  int     // webrtc mode, 0 (permissive) to 3 (strict)
	EnergyThreshold float64 // RMS floor in int16 units
	MinSpeechMS     int     // shortest run of active frames that counts as speech
	MinSilenceMS    int     // silence needed to close a speech region
}

// Trimmer cuts leading and trailing silence from captured PCM and
// rejects recordings with no speech at all.
type Trimmer struct {
	classify  Classifier
	minSpeech int // frames
	minQuiet  int // frames
}

func New(cfg Config) (*Trimmer, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("webrtcvad: %w", err)
	}
	if err := v.SetMode(cfg.Aggressiveness); err != nil {
		return nil, fmt.Errorf("webrtcvad mode %d: %w", cfg.Aggressiveness, err)
	}

	threshold := cfg.EnergyThreshold
	classify := func(frame []byte) bool {
		active, err := v.Process(audio.SampleRate, frame)
		if err != nil || !active {
			return false
		}
		return rms(frame) >= threshold
	}
	return NewWithClassifier(classify, cfg), nil
}

// NewWithClassifier builds a Trimmer around an arbitrary frame
// classifier. Tests use this to get deterministic behavior.
func NewWithClassifier(classify Classifier, cfg Config) *Trimmer {
	minSpeech := cfg.MinSpeechMS / frameMs
	if minSpeech < 1 {
		minSpeech = 1
	}
	minQuiet := cfg.MinSilenceMS / frameMs
	if minQuiet < 1 {
		minQuiet = 1
	}
	return &Trimmer{classify: classify, minSpeech: minSpeech, minQuiet: minQuiet}
}

// Trim returns the slice of buf spanning the first to the last speech
// region, with a little padding on both sides. The second return is
// false when no speech was found.
func (t *Trimmer) Trim(buf *audio.Buffer) (*audio.Buffer, bool) {
	pcm := buf.Bytes()
	total := len(pcm) / frameBytes
	if total == 0 {
		return nil, false
	}

	firstFrame, lastFrame := -1, -1

	run := 0       // consecutive active frames
	quiet := 0     // consecutive inactive frames inside a region
	inRegion := false
	regionStart := 0

	for i := 0; i < total; i++ {
		frame := pcm[i*frameBytes : (i+1)*frameBytes]
		if t.classify(frame) {
			run++
			quiet = 0
			if !inRegion && run >= t.minSpeech {
				inRegion = true
				regionStart = i - run + 1
			}
			if inRegion {
				if firstFrame == -1 {
					firstFrame = regionStart
				}
				lastFrame = i
			}
		} else {
			run = 0
			if inRegion {
				quiet++
				if quiet >= t.minQuiet {
					inRegion = false
					quiet = 0
				}
			}
		}
	}

	if firstFrame == -1 {
		return nil, false
	}

	start := max(firstFrame-padFrames, 0)
	end := min(lastFrame+1+padFrames, total)
	trimmed := make([]byte, (end-start)*frameBytes)
	copy(trimmed, pcm[start*frameBytes:end*frameBytes])
	return audio.NewBuffer(trimmed), true
}

func rms(frame []byte) float64 {
	var sum float64
	n := len(frame) / 2
	for i := 0; i < n; i++ {
		s := float64(int16(uint16(frame[i*2]) | uint16(frame[i*2+1])<<8))
		sum += s * s
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
