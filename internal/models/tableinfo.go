package models

// Capacity limits compiled into the client.
const (
	MaxCameras       = 64
	MaxSensors       = 16
	MaxAlarms        = 16
	MaxRemoteDevices = 20
	MaxHealthIndex   = MaxCameras
)

// ConflictType records which side of a protocol-version mismatch is outdated.
type ConflictType int

const (
	ConflictNone ConflictType = iota
	ConflictServerOld
	ConflictServerNew
)

func (c ConflictType) String() string {
	switch c {
	case ConflictServerOld:
		return "server-old"
	case ConflictServerNew:
		return "server-new"
	default:
		return "none"
	}
}

// DeviceTableInfo is the capability snapshot carried by the login banner.
type DeviceTableInfo struct {
	SoftwareVersion      int          `json:"software_version"`
	SoftwareRevision     int          `json:"software_revision"`
	CommVersion          int          `json:"comm_version"`
	CommRevision         int          `json:"comm_revision"`
	ResponseTimeSec      int          `json:"response_time_sec"`
	KLVTimeSec           int          `json:"klv_time_sec"`
	TotalCameras         int          `json:"total_cameras"`
	AnalogCameras        int          `json:"analog_cameras"`
	IPCameras            int          `json:"ip_cameras"`
	SensorInputs         int          `json:"sensor_inputs"`
	AlarmOutputs         int          `json:"alarm_outputs"`
	AudioInputs          int          `json:"audio_inputs"`
	AudioOutputs         int          `json:"audio_outputs"`
	HDDCount             int          `json:"hdd_count"`
	LANCount             int          `json:"lan_count"`
	MainEncodingCapacity int          `json:"main_encoding_capacity"`
	SubEncodingCapacity  int          `json:"sub_encoding_capacity"`
	VideoStandard        int          `json:"video_standard"`
	ProductVariant       int          `json:"product_variant"`
	ProductSubRevision   int          `json:"product_sub_revision"`
	DiskCheckingCount    int          `json:"disk_checking_count"`
	UserGroup            int          `json:"user_group"`
	ConflictType         ConflictType `json:"conflict_type"`
}
