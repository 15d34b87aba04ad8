package viewport

// State is the lifecycle state of a viewport session.
type State int

// Session states.
const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is the outward view of a session.
type Status struct {
	State      State  `json:"state"`
	Error      string `json:"error,omitempty"`
	Progress   int    `json:"progress"`
	NoGeometry bool   `json:"noGeometry,omitempty"`
	URL        string `json:"url,omitempty"`
	Product    string `json:"product,omitempty"`

	RotationSensitivity float64 `json:"rotationSensitivity"`
	ZoomSensitivity     float64 `json:"zoomSensitivity"`
}
