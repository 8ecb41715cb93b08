package deviceclient

import "github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"

// Index returns the device index given at construction.
func (c *Client) Index() int {
	return c.index
}

// DeviceName returns the configured device name.
func (c *Client) DeviceName() string {
	return c.name()
}

// DeviceConfig returns a copy of the current device configuration.
func (c *Client) DeviceConfig() models.DeviceConfig {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// SessionInfo returns the session negotiated at login.
func (c *Client) SessionInfo() models.SessionInfo {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.session
}

// ConnectionState returns the current connection state.
func (c *Client) ConnectionState() models.ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsDeleted reports whether SetDeleted was called.
func (c *Client) IsDeleted() bool {
	return c.ConnectionState() == models.StateDeleted
}

// IsConnected is true for CONNECTED and CONFLICT, both of which hold a session.
func (c *Client) IsConnected() bool {
	s := c.ConnectionState()
	return s == models.StateConnected || s == models.StateConflict
}

// TableInfo returns the device capabilities parsed from the login banner.
func (c *Client) TableInfo() models.DeviceTableInfo {
	c.tableMu.RLock()
	defer c.tableMu.RUnlock()
	return c.tableInfo
}

// ProtocolConflict reports which side is outdated after the last login.
func (c *Client) ProtocolConflict() models.ConflictType {
	return c.TableInfo().ConflictType
}

// CameraInfo returns camera cam (0-based).
func (c *Client) CameraInfo(cam int) (models.CameraInfo, bool) {
	if cam < 0 || cam >= models.MaxCameras {
		return models.CameraInfo{}, false
	}
	c.cameraMu.RLock()
	defer c.cameraMu.RUnlock()
	return c.cameras[cam], true
}

// CameraName returns the mirrored name of camera cam (0-based).
func (c *Client) CameraName(cam int) string {
	info, _ := c.CameraInfo(cam)
	return info.Name
}

// CameraRights returns the rights on camera cam (0-based); none when out of range.
// CameraRights returns the user's rights on camera cam (0-based).
func (c *Client) CameraRights(cam int) models.CameraRights {
	info, _ := c.CameraInfo(cam)
	return info.Rights
}

// GeneralConfig returns the mirrored general configuration table.
func (c *Client) GeneralConfig() models.GeneralConfig {
	c.generalMu.RLock()
	defer c.generalMu.RUnlock()
	return c.general
}

// RemoteDevices copies the remote-device table mirrored from the local device.
func (c *Client) RemoteDevices() []models.RemoteDeviceConfig {
	c.remoteMu.RLock()
	defer c.remoteMu.RUnlock()
	out := make([]models.RemoteDeviceConfig, len(c.remotes))
	copy(out, c.remotes[:])
	return out
}

// DeviceEvents returns this device's retained live events, oldest first.
func (c *Client) DeviceEvents() []models.LiveEvent {
	return c.events.DeviceEvents(c.name())
}

// PendingRequests counts occupied request slots, connect request included.
func (c *Client) PendingRequests() int {
	n := c.generic.inUse() + c.commands.inUse() + c.pwdRst.inUse()
	if c.hasConnectRequest() {
		n++
	}
	return n
}
