package audio

import (
	"errors"
	"strings"
)

// Acquisition failures map onto these categories so callers can surface
// distinct user-facing notices. Anything else from a backend is wrapped as-is.
var (
	ErrPermissionDenied = errors.New("capture permission denied")
	ErrNoDevice         = errors.New("no capture device")
	ErrUnsupported      = errors.New("unsupported capture configuration")
	ErrNoAudioTrack     = errors.New("source has no audio track")
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

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

// CaptureDevice is an open handle to a live audio source. It is owned by
// exactly one recording session at a time; Lost fires when the source is
// revoked externally (device unplugged, share canceled).
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
	Lost() <-chan struct{}
}

// classifyInitError folds backend-specific failure text into the
// acquisition error taxonomy.
func classifyInitError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "permission"):
		return errors.Join(ErrPermissionDenied, err)
	case strings.Contains(msg, "no device"), strings.Contains(msg, "device not found"),
		strings.Contains(msg, "no such"):
		return errors.Join(ErrNoDevice, err)
	case strings.Contains(msg, "format"), strings.Contains(msg, "invalid device config"),
		strings.Contains(msg, "not supported"):
		return errors.Join(ErrUnsupported, err)
	}
	return err
}
