package main

import (
	"os"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bynzo/voiceanalyst/audio"
	"github.com/bynzo/voiceanalyst/gemini"
	"github.com/bynzo/voiceanalyst/hotkey"
	"github.com/bynzo/voiceanalyst/log"
	"github.com/bynzo/voiceanalyst/shutdown"
)

// tuiSink forwards session events into the Bubble Tea program. Send is safe
// from any goroutine, including the audio callback.
type tuiSink struct{ p *tea.Program }

func (s *tuiSink) TranscriptUpdated(full string) { s.p.Send(TranscriptMsg{Full: full}) }
func (s *tuiSink) ProfilesUpdated(profiles []gemini.SpeakerProfile) {
	s.p.Send(ProfilesMsg{Profiles: profiles})
}
func (s *tuiSink) Status(message string, busy bool) {
	s.p.Send(StatusMsg{Text: message, Busy: busy})
}
func (s *tuiSink) FatalError(title, message string) {
	s.p.Send(FatalMsg{Title: title, Message: message})
}
func (s *tuiSink) AudioLevel(level float64)      { s.p.Send(AudioLevelMsg{Level: level}) }
func (s *tuiSink) StateChanged(st SessionState) { s.p.Send(StateMsg{State: st}) }

// App owns the long-lived pieces (audio context, API client, TUI program)
// and runs at most one recording session at a time.
type App struct {
	cfg      Config
	actx     audio.Context
	device   *audio.DeviceInfo
	analyzer gemini.Analyzer
	sink     Sink
	prog     *tea.Program

	session *Session
	done    chan struct{}
}

func NewApp(cfg Config, actx audio.Context, device *audio.DeviceInfo, analyzer gemini.Analyzer, prog *tea.Program) *App {
	return &App{
		cfg:      cfg,
		actx:     actx,
		device:   device,
		analyzer: analyzer,
		sink:     &tuiSink{p: prog},
		prog:     prog,
		done:     make(chan struct{}),
	}
}

// Done is closed once the command loop has exited and any active session
// has been wound down.
func (a *App) Done() <-chan struct{} { return a.done }

// Run is the command loop: it reacts to TUI keys, the global hotkey and OS
// signals until the user quits.
func (a *App) Run(commands <-chan UserCommand, hk hotkey.Hotkey) {
	defer close(a.done)

	sigCh := make(chan os.Signal, 1)
	shutdown.Notify(sigCh)

	for {
		select {
		case cmd := <-commands:
			switch cmd {
			case CmdStart:
				a.startSession()
			case CmdStop:
				a.stopSession()
			case CmdClear:
				a.clear()
			case CmdCopy:
				a.copyTranscript()
			case CmdQuit:
				a.quit()
				return
			}
		case <-hk.Toggled():
			if a.sessionActive() {
				a.stopSession()
			} else {
				a.startSession()
			}
		case <-sigCh:
			log.Info("shutdown signal received")
			a.quit()
			return
		}
	}
}

func (a *App) sessionActive() bool {
	return a.session != nil && a.session.State() != StateIdle
}

func (a *App) startSession() {
	if a.sessionActive() {
		return
	}
	if a.session != nil {
		select {
		case <-a.session.Done():
		default:
			return // previous session still tearing down
		}
	}

	s := NewSession(a.actx, a.device, a.analyzer, a.sink, a.cfg.SessionConfig())
	if err := s.Start(); err != nil {
		// the session already surfaced the failure on the sink
		return
	}
	a.session = s
}

func (a *App) stopSession() {
	if a.session != nil {
		a.session.Stop()
	}
}

func (a *App) clear() {
	if a.sessionActive() {
		return
	}
	a.session = nil
	a.prog.Send(ClearMsg{})
	a.sink.Status("Ready.", false)
}

func (a *App) copyTranscript() {
	if a.session == nil {
		return
	}
	text := a.session.Transcript()
	if text == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		log.Warnf("clipboard copy failed: %v", err)
		a.prog.Send(CopiedMsg{OK: false})
		return
	}
	a.prog.Send(CopiedMsg{OK: true})
}

func (a *App) quit() {
	if a.sessionActive() {
		a.stopSession()
		select {
		case <-a.session.Done():
		case <-time.After(30 * time.Second):
			log.Warn("session did not wind down before quit")
		}
	}
	a.prog.Quit()
}
