package status

import (
	"errors"
	"fmt"
	"math"
)

// Command names.
const (
	CmdReset       = "reset"
	CmdSensitivity = "sensitivity"
	CmdPreset      = "preset"
	CmdLoad        = "load"
)

// ErrBusy is returned when the render thread cannot accept more work.
var ErrBusy = errors.New("viewer busy")

// Command is a remote control message, e.g. {"cmd":"reset"}.
type Command struct {
	Cmd      string  `json:"cmd"`
	Rotation float64 `json:"rotation,omitempty"`
	Zoom     float64 `json:"zoom,omitempty"`
	Preset   string  `json:"preset,omitempty"`
	URL      string  `json:"url,omitempty"`
	Product  string  `json:"product,omitempty"`
}

// Target is the viewer side of a command.
type Target interface {
	ResetView()
	SetSensitivity(rotation, zoom float64)
	ApplyPreset(name string) bool
	Open(url, productName string)
}

// Dispatch validates commands and hands them to post, which must run the
// function on the thread that owns t.
func Dispatch(post func(func()) bool, t Target) func(Command) error {
	return func(cmd Command) error {
		var fn func()
		switch cmd.Cmd {
		case CmdReset:
			fn = t.ResetView
		case CmdSensitivity:
			if !finite(cmd.Rotation) || !finite(cmd.Zoom) || cmd.Rotation <= 0 || cmd.Zoom <= 0 {
				return fmt.Errorf("sensitivity needs positive rotation and zoom")
			}
			fn = func() { t.SetSensitivity(cmd.Rotation, cmd.Zoom) }
		case CmdPreset:
			if cmd.Preset == "" {
				return errors.New("preset needs a name")
			}
			fn = func() { t.ApplyPreset(cmd.Preset) }
		case CmdLoad:
			if cmd.URL == "" {
				return errors.New("load needs a url")
			}
			fn = func() { t.Open(cmd.URL, cmd.Product) }
		default:
			return fmt.Errorf("unknown command %q", cmd.Cmd)
		}
		if !post(fn) {
			return ErrBusy
		}
		return nil
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
