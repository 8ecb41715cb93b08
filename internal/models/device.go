package models

import "time"

// LocalDeviceName is the synthetic alias of the NVR this client runs on.
const LocalDeviceName = "LOCAL"

// ConnectionType is how a device address is resolved.
type ConnectionType int

const (
	ConnectByIP ConnectionType = iota
	ConnectByHostname
	ConnectByMatrixDNS
)

// LiveStreamType selects which encoder stream is used for live view.
type LiveStreamType int

const (
	LiveStreamMain LiveStreamType = iota
	LiveStreamSub
	LiveStreamOptimized
)

// DeviceConfig is identity plus connection parameters of one managed device.
type DeviceConfig struct {
	Name                   string         `json:"name"`
	IPAddress              string         `json:"ip_address"`
	Port                   uint16         `json:"port"`
	ForwardedTCPPort       uint16         `json:"forwarded_tcp_port"`
	Username               string         `json:"username"`
	Password               string         `json:"-"`
	AutoLogin              bool           `json:"auto_login"`
	PreferNativeCredential bool           `json:"prefer_native_credential"`
	LiveStreamType         LiveStreamType `json:"live_stream_type"`
	ConnectionType         ConnectionType `json:"connection_type"`
}

// IsLocal reports whether the config describes the local NVR alias.
func (c DeviceConfig) IsLocal() bool {
	return c.Name == LocalDeviceName
}

// SameEndpoint reports whether both configs address the same device with the same credentials.
func (c DeviceConfig) SameEndpoint(o DeviceConfig) bool {
	return c.IPAddress == o.IPAddress &&
		c.Port == o.Port &&
		c.ForwardedTCPPort == o.ForwardedTCPPort &&
		c.Username == o.Username &&
		c.Password == o.Password &&
		c.ConnectionType == o.ConnectionType
}

// SessionInfo is issued on login and required on every later request.
type SessionInfo struct {
	SessionID string
	Timeout   time.Duration
}

// Valid reports whether a real session id is held.
func (s SessionInfo) Valid() bool {
	return s.SessionID != "" && s.SessionID != PendingSessionID
}

// PendingSessionID marks a login in progress.
const PendingSessionID = "-"

// ConnectionState of a managed device.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnected
	StateConflict
	StateLoggedOut
	StateDeleted
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConflict:
		return "conflict"
	case StateLoggedOut:
		return "logged_out"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
