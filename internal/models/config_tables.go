package models

// ConfigTable identifies a device configuration table.
type ConfigTable int

const (
	TableGeneral       ConfigTable = 1
	TableCamera        ConfigTable = 3
	TableNetworkDevice ConfigTable = 47
)

// Field ids of the GENERAL table.
const (
	GenFieldDeviceName = iota + 1
	GenFieldDeviceNo
	GenFieldFileRecordDuration
	GenFieldHTTPPort
	GenFieldTCPPort
	GenFieldVideoSystem
	GenFieldIntegrateCosec
	GenFieldDateFormat
	GenFieldTimeFormat
	GenFieldRecordFormat
	GenFieldAutoCloseRecFailAlert
	GenFieldMax = GenFieldAutoCloseRecFailAlert
)

// Field ids of the CAMERA table.
const (
	CamFieldEnabled = iota + 1
	CamFieldName
	CamFieldType
	CamFieldNameOSD
	CamFieldNamePosition
	CamFieldStatusOSD
	CamFieldStatusPosition
	CamFieldDateTimeOverlay
	CamFieldDateTimePosition
	CamFieldMax = CamFieldDateTimePosition
)

// Field ids of the NETWORK_DEVICE table.
const (
	NetDevFieldEnabled = iota + 1
	NetDevFieldName
	NetDevFieldRegisterMode
	NetDevFieldAddress
	NetDevFieldPort
	NetDevFieldUsername
	NetDevFieldPassword
	NetDevFieldAutoLogin
	NetDevFieldPreferNativeCredential
	NetDevFieldLiveStreamType
	NetDevFieldForwardedTCPPort
	NetDevFieldMax = NetDevFieldForwardedTCPPort
)

// GeneralConfig is the cached GENERAL table.
type GeneralConfig struct {
	DeviceName            string `json:"device_name"`
	DeviceNo              int    `json:"device_no"`
	FileRecordDuration    int    `json:"file_record_duration"`
	HTTPPort              int    `json:"http_port"`
	TCPPort               int    `json:"tcp_port"`
	VideoSystem           int    `json:"video_system"`
	IntegrateCosec        bool   `json:"integrate_cosec"`
	DateFormat            int    `json:"date_format"`
	TimeFormat            int    `json:"time_format"`
	RecordFormat          int    `json:"record_format"`
	AutoCloseRecFailAlert bool   `json:"auto_close_rec_fail_alert"`
}

// RemoteDeviceConfig is one slot of the NETWORK_DEVICE table.
type RemoteDeviceConfig struct {
	Enabled bool         `json:"enabled"`
	Config  DeviceConfig `json:"config"`
}

// RemoteDeviceUpdate is emitted once per slot on every NETWORK_DEVICE refresh.
type RemoteDeviceUpdate struct {
	Slot    int                `json:"slot"`
	Device  RemoteDeviceConfig `json:"device"`
	Changed bool               `json:"changed"`
}
