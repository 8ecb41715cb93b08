package models

import (
	"fmt"
	"strings"
)

// EventType is the top-level source of a live event.
type EventType int

const (
	LogNoEvent EventType = iota
	LogCameraEvent
	LogSensorEvent
	LogAlarmEvent
	LogSystemEvent
	LogStorageEvent
	LogNetworkEvent
	LogOtherEvent
	LogUserEvent
	LogCosecEvent
)

// EventSubType is scoped by EventType; values repeat across types.
type EventSubType int

// Camera event subtypes.
const (
	LogMotionDetection EventSubType = iota + 1
	LogViewTampering
	LogCameraSensor1
	LogCameraSensor2
	LogCameraSensor3
	LogCameraAlarm1
	LogCameraAlarm2
	LogCameraAlarm3
	LogConnectivity
	LogManualRecording
	LogAlarmRecording
	LogScheduleRecording
	LogPresetTour
	LogSnapshotSchedule
	LogLineCrossing
	LogObjectIntrusion
	LogAudioException
	LogMissingObject
	LogSuspiciousObject
	LogLoitering
	LogCameraStatus
	LogObjectCounting
	LogNoMotion
	LogVideoPopUp
)

// Sensor and alarm event subtypes.
const (
	LogSensorInput EventSubType = 1
	LogAlarmOutput EventSubType = 1
)

// System event subtypes.
const (
	LogPowerOn EventSubType = iota + 1
	LogMainsException
	LogUPSException
	LogScheduleBackup
	LogManualBackup
	LogSystemReset
	LogTimeSet
	LogShutdown
	LogRestart
	LogRecordingFail
	LogRecordingRestart
	LogBuzzerStatus
)

// Storage event subtypes.
const (
	LogHDDStatus EventSubType = iota + 1
	LogHDDVolumeFull
	LogUSBStatus
)

// User event subtypes.
const (
	LogUserSession EventSubType = iota + 1
	LogManualTrigger
	LogConfigChange
	LogFirmwareUpgrade
	LogPasswordReset
)

// COSEC event subtypes.
const (
	LogCosecRecording EventSubType = iota + 1
	LogCosecVideoPopUp
)

// EventState of a live event.
type EventState int

const (
	EventNormal EventState = iota
	EventActive
	EventStart
	EventStop
	EventComplete
	EventFail
	EventConnect
	EventDisconnect
	EventAlert
	EventRestore
	EventIncomplete
)

// LiveEvent is one decoded event record.
type LiveEvent struct {
	DeviceName     string       `json:"device_name"`
	Index          int          `json:"index"`
	DateTime       string       `json:"date_time"`
	Type           EventType    `json:"type"`
	SubType        EventSubType `json:"sub_type"`
	Detail         string       `json:"detail"`
	State          EventState   `json:"state"`
	AdvancedDetail string       `json:"advanced_detail"`
}

// Format renders the event the way it is kept in the live-event list.
func (e LiveEvent) Format() string {
	return strings.Join([]string{
		e.DeviceName,
		e.DateTime,
		fmt.Sprintf("%d", e.Type),
		fmt.Sprintf("%d", e.SubType),
		e.Detail,
		fmt.Sprintf("%d", e.State),
		e.AdvancedDetail,
	}, "|")
}

// PopUpEvent is a COSEC video pop-up addressed to one camera.
type PopUpEvent struct {
	DeviceName string `json:"device_name"`
	Camera     int    `json:"camera"`
	UserName   string `json:"user_name"`
	DateTime   string `json:"date_time"`
	Detail     string `json:"detail"`
}
