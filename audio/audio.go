// Package audio captures microphone input as 16 kHz mono signed
// 16-bit little-endian PCM, the format the transcription backends
// consume directly.
package audio

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	SampleRate = 16000
	Channels   = 1

	// bytes per sample frame (s16le mono)
	frameBytes = 2
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth heuristically flags wireless headsets, which typically
// deliver lower capture quality than wired microphones.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

// FindDevice resolves a configured device name to a capture device by
// case-insensitive substring match. An empty name selects the system
// default (nil device).
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), needle) {
			return &devices[i], nil
		}
	}
	return nil, &UnknownDeviceError{Name: name, Available: devices}
}

type UnknownDeviceError struct {
	Name      string
	Available []DeviceInfo
}

func (e *UnknownDeviceError) Error() string {
	names := make([]string, len(e.Available))
	for i, d := range e.Available {
		names[i] = d.Name
	}
	return fmt.Sprintf("no capture device matching %q (available: %s)",
		e.Name, strings.Join(names, ", "))
}

// Buffer holds captured PCM. It is written incrementally during a
// recording and read whole once the recording ends.
type Buffer struct {
	data []byte
}

func NewBuffer(pcm []byte) *Buffer {
	return &Buffer{data: pcm}
}

func (b *Buffer) Append(pcm []byte) {
	b.data = append(b.data, pcm...)
}

// Bytes returns the raw s16le PCM. The slice is owned by the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) Frames() int { return len(b.data) / frameBytes }

func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.Frames()) * time.Second / SampleRate
}

// Samples decodes the PCM into int16 samples.
func (b *Buffer) Samples() []int16 {
	out := make([]int16, b.Frames())
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b.data[i*frameBytes:]))
	}
	return out
}

// Float32 decodes the PCM into [-1, 1] float samples, the input
// format of the local whisper backend.
func (b *Buffer) Float32() []float32 {
	out := make([]float32, b.Frames())
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(b.data[i*frameBytes:]))
		out[i] = float32(s) / 32768
	}
	return out
}
