package encoder

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"dictap/audio"
)

func toneBuffer(d time.Duration) *audio.Buffer {
	return audio.NewBuffer(audio.TonePCM(440, 0.5, d))
}

func TestEncodeWAVHeader(t *testing.T) {
	buf := toneBuffer(100 * time.Millisecond)
	data, err := EncodeWAV(buf)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix(data, []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		t.Fatalf("bad RIFF header: % x", data[:12])
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != audio.SampleRate {
		t.Errorf("sample rate = %d, want %d", rate, audio.SampleRate)
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != audio.Channels {
		t.Errorf("channels = %d, want %d", ch, audio.Channels)
	}
	if len(data) < len(buf.Bytes()) {
		t.Errorf("wav output %d bytes, shorter than %d bytes of pcm", len(data), len(buf.Bytes()))
	}
}

func TestEncodeFLACMagic(t *testing.T) {
	data, err := EncodeFLAC(toneBuffer(100 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("fLaC")) {
		t.Fatalf("missing fLaC magic: % x", data[:4])
	}
}

func TestEncodeFLACPartialBlock(t *testing.T) {
	// 100 samples, well under one block
	pcm := make([]byte, 200)
	data, err := EncodeFLAC(audio.NewBuffer(pcm))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty flac output")
	}
}

func TestEncodeDispatch(t *testing.T) {
	buf := toneBuffer(20 * time.Millisecond)

	if _, err := Encode(FormatWAV, buf); err != nil {
		t.Errorf("wav: %v", err)
	}
	if _, err := Encode(FormatFLAC, buf); err != nil {
		t.Errorf("flac: %v", err)
	}
	if _, err := Encode(Format("mp3"), buf); err == nil {
		t.Error("mp3 should be rejected")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("flac"); err != nil || f != FormatFLAC {
		t.Errorf("flac: %v %v", f, err)
	}
	if _, err := ParseFormat("ogg"); err == nil {
		t.Error("ogg should be rejected")
	}
}

func TestMemWriteSeeker(t *testing.T) {
	var ws memWriteSeeker
	ws.Write([]byte("hello world"))
	if _, err := ws.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	ws.Write([]byte("HELLO"))
	if got := string(ws.buf); got != "HELLO world" {
		t.Errorf("buf = %q", got)
	}
}
