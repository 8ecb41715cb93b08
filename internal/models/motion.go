package models

// MotionMethod selects how a camera's motion area is expressed.
type MotionMethod uint8

const (
	MotionBlockMethod MotionMethod = iota
	MotionPointMethod
)

const (
	MaxMotionZones   = 4
	MotionBlockBytes = 198
)

// MotionZone is one rectangular point-method area.
type MotionZone struct {
	StartX      uint16 `json:"start_x"`
	StartY      uint16 `json:"start_y"`
	Width       uint16 `json:"width"`
	Height      uint16 `json:"height"`
	Sensitivity uint8  `json:"sensitivity"`
}

// MotionInfo is the decoded GET_MOTION_WINDOW payload.
type MotionInfo struct {
	Method           MotionMethod           `json:"method"`
	Sensitivity      uint8                  `json:"sensitivity"`
	NoMotionEnabled  bool                   `json:"no_motion_enabled"`
	NoMotionDuration uint16                 `json:"no_motion_duration"`
	Blocks           [MotionBlockBytes]byte `json:"-"`
	Zones            []MotionZone           `json:"zones,omitempty"`
}
