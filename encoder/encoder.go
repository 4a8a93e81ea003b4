// Package encoder serializes captured PCM into the container formats
// the remote transcription APIs accept.
package encoder

import (
	"fmt"

	"dictap/audio"
)

const (
	BitsPerSample = 16
	BlockSize     = 4096
)

type Format string

const (
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatWAV, FormatFLAC:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown audio format %q (want wav or flac)", s)
}

// Ext returns the filename extension used in multipart uploads.
func (f Format) Ext() string { return string(f) }

func (f Format) MIME() string {
	switch f {
	case FormatFLAC:
		return "audio/flac"
	default:
		return "audio/wav"
	}
}

// Encode serializes buf into the given format.
func Encode(f Format, buf *audio.Buffer) ([]byte, error) {
	switch f {
	case FormatWAV:
		return EncodeWAV(buf)
	case FormatFLAC:
		return EncodeFLAC(buf)
	}
	return nil, fmt.Errorf("unknown audio format %q", f)
}
