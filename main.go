package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"dictap/audio"
	"dictap/config"
	"dictap/controller"
	"dictap/doctor"
	"dictap/gesture"
	"dictap/injector"
	"dictap/log"
	"dictap/notify"
	"dictap/shutdown"
	"dictap/transcriber"
	"dictap/vad"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "config file path (default: ~/.config/dictap/config.toml)")
	backendFlag := flag.String("backend", "", "transcription backend: local, openai or groq (overrides config)")
	langFlag := flag.String("lang", "", "language code for transcription, e.g. en, de (overrides config)")
	deviceFlag := flag.String("device", "", "capture device name substring (overrides config)")
	autopasteFlag := flag.Bool("autopaste", true, "paste into the focused window after transcription")
	doctorFlag := flag.Bool("doctor", false, "run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "print version and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("dictap %s\n", version)
		return 0
	}

	cfgPath := *configFlag
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot locate config directory: %v\n", err)
			return 1
		}
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *backendFlag != "" {
		cfg.Backend = *backendFlag
	}
	if *langFlag != "" {
		cfg.Audio.Language = *langFlag
	}
	if *deviceFlag != "" {
		cfg.Audio.Device = *deviceFlag
	}
	if !*autopasteFlag {
		cfg.Inject.Paste = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logDir := *logPathFlag
	if logDir == "" {
		logDir = cfg.Logging.Dir
	}
	resolved, err := log.ResolveDir(logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(resolved)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n",
			time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *doctorFlag {
		return doctor.Run(cfg)
	}

	if err := log.Init(cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	trans, err := transcriber.New(transcriber.Options{
		Backend:   cfg.Backend,
		ModelPath: cfg.Local.ModelPath,
		APIKey:    apiKey(cfg),
		APIURL:    cfg.API.URL,
		Model:     cfg.API.Model,
		Format:    cfg.EncodeFormat(),
		Timeout:   cfg.APITimeout(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer audioCtx.Close()

	device, err := audio.FindDevice(audioCtx, cfg.Audio.Device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if device != nil && audio.IsBluetooth(device.Name) {
		log.Warnf("bluetooth device %q may deliver lower capture quality", device.Name)
	}
	rec := audio.NewRecorder(audioCtx, device)

	var trim controller.Trimmer
	if cfg.VAD.Enabled {
		trimmer, err := vad.New(vad.Config{
			Aggressiveness:  cfg.VAD.Aggressiveness,
			EnergyThreshold: cfg.VAD.EnergyThreshold,
			MinSpeechMS:     cfg.VAD.MinSpeechMS,
			MinSilenceMS:    cfg.VAD.MinSilenceMS,
		})
		if err != nil {
			log.Warnf("voice detection unavailable, sending audio untrimmed: %v", err)
		} else {
			trim = trimmer
		}
	}

	inj := injector.NewClipboard(injector.Options{
		Paste:            cfg.Inject.Paste,
		RestoreClipboard: cfg.Inject.RestoreClipboard,
	})

	sinks := notify.Multi{notify.LogSink{}}
	if cfg.Notify.Desktop {
		sinks = append(sinks, notify.NewDesktop())
	}
	if cfg.Notify.Sound {
		sinks = append(sinks, notify.NewBeep())
	}

	ctrl := controller.New(rec, trans, inj, trim, sinks, controller.Config{
		Language:          cfg.Audio.Language,
		ProcessingTimeout: cfg.ProcessingTimeout(),
	})

	src := gesture.NewSource()
	keys, err := src.Start()
	if err != nil {
		log.Errorf("keyboard source: %v", err)
		fmt.Fprintf(os.Stderr, "Error opening keyboard input: %v\n", err)
		if msg, derr := gesture.Diagnose(); derr != nil {
			fmt.Fprintf(os.Stderr, "  %v\n", derr)
		} else if msg != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}
		return 1
	}
	defer src.Close()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	det := gesture.NewDetector(cfg.Threshold())
	go func() {
		for {
			select {
			case ev, ok := <-keys:
				if !ok {
					return
				}
				if out := det.OnKey(ev); out != nil {
					ctrl.Handle(*out)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Infof("dictap %s ready, backend %s", version, trans.Name())
	fmt.Printf("dictap %s ready. Double-press Ctrl to dictate, Esc to cancel, Ctrl+C to quit.\n", version)

	err = ctrl.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("controller: %v", err)
		return 1
	}
	return 0
}

// apiKey prefers the config file but falls back to conventional
// environment variables so keys need not be written to disk.
func apiKey(cfg *config.Config) string {
	if cfg.API.Key != "" {
		return cfg.API.Key
	}
	switch cfg.Backend {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	}
	return ""
}
