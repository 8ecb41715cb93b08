package models

// HealthParam is a row of the health status matrix.
type HealthParam int

const (
	HealthMotionDetection HealthParam = iota
	HealthViewTampering
	HealthCameraSensor1
	HealthCameraSensor2
	HealthCameraSensor3
	HealthCameraAlarm1
	HealthCameraAlarm2
	HealthCameraAlarm3
	HealthSensorInput
	HealthAlarmOutput
	HealthCameraConnectivity
	HealthManualRecording
	HealthAlarmRecording
	HealthScheduleRecording
	HealthPresetTour
	HealthLineCrossing
	HealthObjectIntrusion
	HealthAudioException
	HealthMissingObject
	HealthSuspiciousObject
	HealthLoitering
	HealthObjectCounting
	HealthNoMotion
	HealthCosecRecording
	HealthDiskStatus
	HealthMainsStatus
	HealthScheduleBackup
	HealthManualBackup
	HealthBuzzer
	HealthUSBStatus
	HealthParamCount
)

// HealthStatus is the per-parameter, per-entity status matrix.
type HealthStatus [HealthParamCount][MaxHealthIndex]uint8

// Row returns a copy of one parameter's entity statuses.
func (h *HealthStatus) Row(p HealthParam) []uint8 {
	if p < 0 || p >= HealthParamCount {
		return nil
	}
	out := make([]uint8, MaxHealthIndex)
	copy(out, h[p][:])
	return out
}
