// Package doctor runs interactive system diagnostics so users can
// verify every moving part of dictation before relying on it.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cb "github.com/atotto/clipboard"

	"dictap/audio"
	"dictap/config"
	"dictap/gesture"
	"dictap/injector"
	"dictap/shutdown"
	"dictap/transcriber"
	"dictap/vad"
)

// Run executes the checks and returns an exit code (0=all pass).
func Run(cfg *config.Config) int {
	resetTerminal()
	exitOnInterrupt()

	fmt.Println("dictap doctor - interactive system diagnostics")
	fmt.Println("===============================================")

	allPass := true

	if !checkGesture(cfg) {
		allPass = false
	}

	var recorded *audio.Buffer
	if allPass {
		var ok bool
		recorded, ok = checkMicrophone(cfg)
		if !ok {
			allPass = false
		}
	}
	if allPass && !checkBackend(cfg, recorded) {
		allPass = false
	}
	if allPass && !checkInjection() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

// exitOnInterrupt restores the terminal and exits when the user
// aborts mid-check.
func exitOnInterrupt() {
	ctx, stop := shutdown.Context(context.Background())
	go func() {
		<-ctx.Done()
		stop()
		resetTerminal()
		fmt.Println("\ninterrupted")
		os.Exit(1)
	}()
}

func checkGesture(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println("[1/4] Double-press detection")

	if msg, err := gesture.Diagnose(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	} else if msg != "" {
		fmt.Printf("  %s\n", msg)
	}

	src := gesture.NewSource()
	events, err := src.Start()
	if err != nil {
		fmt.Printf("  FAIL: could not open keyboard input: %v\n", err)
		return false
	}
	defer src.Close()

	fmt.Println("Double-press Ctrl within 10 seconds...")
	det := gesture.NewDetector(cfg.Threshold())
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			out := det.OnKey(ev)
			if out != nil && out.Kind == gesture.Activate {
				fmt.Println("  PASS: double-press detected")
				resetTerminal()
				return true
			}
		case <-timeout:
			fmt.Println("  FAIL: timeout waiting for double-press")
			return false
		}
	}
}

func checkMicrophone(cfg *config.Config) (*audio.Buffer, bool) {
	fmt.Println()
	fmt.Println("[2/4] Microphone capture")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return nil, false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return nil, false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return nil, false
	}
	for _, d := range devices {
		marker := " "
		if audio.IsBluetooth(d.Name) {
			marker = "~" // lower capture quality
		}
		fmt.Printf("  %s %s\n", marker, d.Name)
	}

	device, err := audio.FindDevice(ctx, cfg.Audio.Device)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	rec := audio.NewRecorder(ctx, device)
	if err := rec.Start(); err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return nil, false
	}
	fmt.Print("  Recording")
	for i := 0; i < 6; i++ {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	buf, err := rec.Stop()
	fmt.Println(" done")
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	if buf.Frames() == 0 {
		fmt.Println("  FAIL: no audio captured")
		return nil, false
	}
	fmt.Printf("  Captured %.1fs of audio\n", buf.Duration().Seconds())

	trimmer, err := vad.New(vad.Config{
		Aggressiveness:  cfg.VAD.Aggressiveness,
		EnergyThreshold: cfg.VAD.EnergyThreshold,
		MinSpeechMS:     cfg.VAD.MinSpeechMS,
		MinSilenceMS:    cfg.VAD.MinSilenceMS,
	})
	if err != nil {
		fmt.Printf("  FAIL: voice detection unavailable: %v\n", err)
		return nil, false
	}
	trimmed, ok := trimmer.Trim(buf)
	if !ok {
		fmt.Println("  FAIL: no speech detected in recording (microphone muted?)")
		return nil, false
	}
	fmt.Printf("  PASS: %.1fs of speech detected\n", trimmed.Duration().Seconds())
	return trimmed, true
}

func checkBackend(cfg *config.Config, buf *audio.Buffer) bool {
	fmt.Println()
	fmt.Printf("[3/4] Transcription (%s)\n", cfg.Backend)

	trans, err := transcriber.New(transcriber.Options{
		Backend:   cfg.Backend,
		ModelPath: cfg.Local.ModelPath,
		APIKey:    cfg.API.Key,
		APIURL:    cfg.API.URL,
		Model:     cfg.API.Model,
		Format:    cfg.EncodeFormat(),
		Timeout:   cfg.APITimeout(),
	})
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	if !trans.Available() {
		fmt.Println("  FAIL: backend is not ready")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProcessingTimeout())
	defer cancel()
	result, err := trans.Transcribe(ctx, transcriber.Request{
		Audio:    buf,
		Language: cfg.Audio.Language,
	})
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}
	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

func checkInjection() bool {
	fmt.Println()
	fmt.Println("[4/4] Clipboard and paste")

	fmt.Println("Focus on a text editor window...")
	for i := 5; i > 0; i-- {
		fmt.Printf("  %d...\n", i)
		time.Sleep(time.Second)
	}

	inj := injector.NewClipboard(injector.Options{Paste: true})
	testStr := "dictap-doctor-test"
	if err := inj.Inject(testStr); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	resetTerminal()
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Println()
	fmt.Printf("Did the text %q appear? [y/n]: ", testStr)
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm != "y" && confirm != "yes" {
		fmt.Println("  FAIL: clipboard/paste not confirmed")
		return false
	}
	fmt.Println("  PASS: clipboard and paste verified by user")

	// restore check: the clipboard should hold what we copy last
	sentinel := fmt.Sprintf("dictap-preserve-%d", time.Now().UnixNano())
	if err := cb.WriteAll(sentinel); err != nil {
		fmt.Printf("  FAIL: clipboard write failed: %v\n", err)
		return false
	}
	got, err := cb.ReadAll()
	if err != nil {
		fmt.Printf("  FAIL: clipboard read failed: %v\n", err)
		return false
	}
	if got != sentinel {
		fmt.Printf("  FAIL: clipboard mismatch (wrote %q, got %q)\n", sentinel, got)
		return false
	}
	fmt.Println("  PASS: clipboard round trip verified")
	return true
}
