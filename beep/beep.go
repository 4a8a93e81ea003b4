// Package beep synthesizes short audio cues for recording start,
// stop and error, so dictation gives feedback without a window.
package beep

import (
	"math"
	"sync"
	"time"
)

const toneRate = 44100

// A cue is one or more sine bursts with an exponential decay envelope.
type cue struct {
	freq   float64
	burst  time.Duration
	gap    time.Duration
	count  int
	volume float64
	decay  float64
}

var (
	startCue = cue{freq: 1200, burst: 200 * time.Millisecond, count: 1, volume: 0.5, decay: 60}
	endCue   = cue{freq: 900, burst: 200 * time.Millisecond, count: 1, volume: 0.5, decay: 40}
	errorCue = cue{freq: 350, burst: 80 * time.Millisecond, gap: 50 * time.Millisecond, count: 2, volume: 0.6, decay: 30}
)

var (
	disabled bool
	initOnce sync.Once
)

func Disable() { disabled = true }

// Init prepares the playback backend ahead of the first cue so the
// first notification is not delayed by device setup.
func Init() { initOnce.Do(initPlayback) }

func PlayStart() { play(startCue) }
func PlayEnd()   { play(endCue) }
func PlayError() { play(errorCue) }

func play(c cue) {
	if disabled {
		return
	}
	initOnce.Do(initPlayback)
	go playTone(c.render())
}

// render produces mono s16le samples at toneRate.
func (c cue) render() []int16 {
	burst := int(toneRate * c.burst.Seconds())
	gap := int(toneRate * c.gap.Seconds())
	out := make([]int16, 0, c.count*(burst+gap))
	for b := 0; b < c.count; b++ {
		for i := 0; i < burst; i++ {
			t := float64(i) / toneRate
			env := math.Exp(-t * c.decay)
			out = append(out, int16(math.Sin(2*math.Pi*c.freq*t)*32767*c.volume*env))
		}
		if b < c.count-1 {
			out = append(out, make([]int16, gap)...)
		}
	}
	return out
}
