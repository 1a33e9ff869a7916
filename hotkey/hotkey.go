// Package hotkey provides a global Ctrl+Shift+Space toggle so a recording
// can be started and stopped while another window has focus.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	// Toggled delivers one signal per completed press of the hotkey.
	Toggled() <-chan struct{}
}
