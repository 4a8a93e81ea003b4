//go:build darwin

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// One persistent output device; the data callback drains whatever cue
// is currently loaded and falls back to silence.
type playback struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu      sync.Mutex
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
}

var pb playback

func initPlayback() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	pb.ctx = ctx
	if err := pb.openDevice(); err != nil {
		ctx.Uninit()
		pb.ctx = nil
	}
}

func (p *playback) openDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = toneRate

	dev, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: p.feed})
	if err != nil {
		return err
	}
	p.device = dev
	return nil
}

func (p *playback) feed(out, _ []byte, frameCount uint32) {
	for i := range out {
		out[i] = 0
	}
	samples := p.current.Load()
	if samples == nil {
		return
	}
	pos := p.pos.Load()
	total := uint32(len(*samples))
	if pos >= total {
		p.current.Store(nil)
		return
	}
	n := frameCount * 2
	if n > total-pos {
		n = total - pos
	}
	copy(out[:n], (*samples)[pos:pos+n])
	p.pos.Store(pos + n)
}

func playTone(samples []int16) {
	if pb.ctx == nil || len(samples) == 0 {
		return
	}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.device == nil {
		return
	}
	pb.device.Stop()
	pb.pos.Store(0)
	pb.current.Store(&pcm)
	if err := pb.device.Start(); err != nil {
		// the device can vanish across sleep/wake; reopen once
		pb.device.Uninit()
		if err := pb.openDevice(); err != nil {
			pb.device = nil
			pb.current.Store(nil)
			return
		}
		if err := pb.device.Start(); err != nil {
			pb.current.Store(nil)
		}
	}
}
