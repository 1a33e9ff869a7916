package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bynzo/voiceanalyst/audio"
	"github.com/bynzo/voiceanalyst/gemini"
	"github.com/bynzo/voiceanalyst/hotkey"
	"github.com/bynzo/voiceanalyst/log"
)

var version = "dev"

func run() {
	configFlag := flag.String("config", "", "Path to YAML config file")
	setupFlag := flag.Bool("setup", false, "Select capture device interactively")
	deviceFlag := flag.String("device", "", "Use named capture device")
	modeFlag := flag.String("mode", "", "Recording mode: continuous or single-shot")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("voiceanalyst %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *modeFlag != "" {
		cfg.Mode = *modeFlag
		if err := cfg.validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	var selected *audio.DeviceInfo
	deviceName := cfg.Device
	if *deviceFlag != "" {
		deviceName = *deviceFlag
	}
	if deviceName != "" {
		if devices, err := actx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == deviceName {
					selected = &devices[i]
					break
				}
			}
		}
		if selected == nil {
			log.Warnf("device %q not found, using default", deviceName)
			fmt.Fprintf(os.Stderr, "Warning: device %q not found, using default\n", deviceName)
		}
	} else if *setupFlag {
		selected, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v, using default\n", err)
			selected = nil
		}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1 // an explicit zero in the config means no retries
	}
	analyzer := gemini.NewClient(gemini.Config{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		MaxRetries:   maxRetries,
		InitialDelay: time.Duration(cfg.InitialDelayMS) * time.Millisecond,
	})

	deviceLabel := "default device"
	if selected != nil {
		deviceLabel = selected.Name
	}
	commands := make(chan UserCommand, 4)
	prog := NewTUIProgram(commands, deviceLabel)

	app := NewApp(cfg, actx, selected, analyzer, prog)

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("global hotkey unavailable: %v", err)
	}
	defer hk.Unregister()

	go app.Run(commands, hk)

	if _, err := prog.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		os.Exit(1)
	}
	<-app.Done()
}
