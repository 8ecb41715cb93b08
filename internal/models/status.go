package models

import "strconv"

// DeviceReply is a status code either reported by the device or synthesized locally.
type DeviceReply int

// Codes reported on the wire.
const (
	CmdSuccess DeviceReply = iota
	CmdInvalidMessage
	CmdInvalidSession
	CmdInvalidSyntax
	CmdIPBlocked
	CmdInvalidCredential
	CmdUserDisabled
	CmdUserBlocked
	CmdMultiLogin
	CmdMaxUserSession
	CmdResourceLimit
	CmdNoPrivilege
	CmdInvalidTableID
	CmdInvalidIndexID
	CmdInvalidFieldID
	CmdInvalidFieldValue
	CmdProcessError
	CmdResetPassword
	CmdPasswordExpire
	CmdUserAccountLocked
	CmdUserAccountLockedPermanent
	CmdMinPasswordLength
	CmdHighPasswordSecurity
	CmdDiskCleanupRequired
	CmdIPSubnetMismatch
	CmdInvalidHostName
	CmdServerNotResponding
	CmdRequestInProgress
	CmdNoRecordFound
)

// Codes produced by the client itself, never read from the wire.
const (
	CmdDeviceDisconnected DeviceReply = 100 + iota
	CmdDeviceLoggedOut
	CmdDeviceConflict
	CmdDeviceDeleted
	CmdInternalResourceLimit
)

// ParseDeviceReply decodes a wire status field.
func ParseDeviceReply(s string) (DeviceReply, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return CmdProcessError, false
	}
	return DeviceReply(v), true
}

// IsAuthReply reports codes that describe why credentials were refused.
// These are forwarded verbatim even when the device is already logged out.
func (r DeviceReply) IsAuthReply() bool {
	switch r {
	case CmdInvalidCredential,
		CmdIPBlocked,
		CmdUserDisabled,
		CmdUserBlocked,
		CmdMultiLogin,
		CmdMaxUserSession,
		CmdResetPassword,
		CmdPasswordExpire,
		CmdUserAccountLocked,
		CmdUserAccountLockedPermanent:
		return true
	}
	return false
}

func (r DeviceReply) String() string {
	switch r {
	case CmdSuccess:
		return "success"
	case CmdInvalidCredential:
		return "invalid_credential"
	case CmdResetPassword:
		return "reset_password"
	case CmdDiskCleanupRequired:
		return "disk_cleanup_required"
	case CmdProcessError:
		return "process_error"
	case CmdDeviceDisconnected:
		return "device_disconnected"
	case CmdDeviceLoggedOut:
		return "device_logged_out"
	case CmdDeviceConflict:
		return "device_conflict"
	case CmdDeviceDeleted:
		return "device_deleted"
	case CmdInternalResourceLimit:
		return "internal_resource_limit"
	default:
		return "code_" + strconv.Itoa(int(r))
	}
}
