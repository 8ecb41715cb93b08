package models

// CameraType of a channel.
type CameraType int

const (
	CameraAnalog CameraType = iota
	CameraIP
	CameraAutoAdd
)

// CameraRights is a per-camera permission bitmask of the logged-in user.
type CameraRights uint8

const (
	RightMonitor CameraRights = 1 << iota
	RightPlayback
	RightPTZ
	RightAudioIn
	RightAudioOut
	RightVideoPopUp
)

// DefaultLocalViewerRights applies until the banner delivers the real mask.
const DefaultLocalViewerRights = RightMonitor | RightPlayback | RightVideoPopUp

// Has reports whether every bit of want is granted.
func (r CameraRights) Has(want CameraRights) bool {
	return r&want == want
}

// CameraInfo is the cached per-camera view of the CAMERA table plus rights.
type CameraInfo struct {
	Enabled          bool         `json:"enabled"`
	Name             string       `json:"name"`
	Type             CameraType   `json:"type"`
	NameOSD          bool         `json:"name_osd"`
	NamePosition     int          `json:"name_position"`
	StatusOSD        bool         `json:"status_osd"`
	StatusPosition   int          `json:"status_position"`
	DateTimeOverlay  bool         `json:"date_time_overlay"`
	DateTimePosition int          `json:"date_time_position"`
	Rights           CameraRights `json:"rights"`
}
