package models

// RequestID is the message kind of a request or response.
type RequestID int

const (
	MsgLogin RequestID = iota
	MsgPoll
	MsgEvent
	MsgGetCfg
	MsgSetCfg
	MsgDefCfg
	MsgSetCmd
	MsgPwdRst
)

func (r RequestID) String() string {
	switch r {
	case MsgLogin:
		return "login"
	case MsgPoll:
		return "poll"
	case MsgEvent:
		return "event"
	case MsgGetCfg:
		return "get_cfg"
	case MsgSetCfg:
		return "set_cfg"
	case MsgDefCfg:
		return "def_cfg"
	case MsgSetCmd:
		return "set_cmd"
	case MsgPwdRst:
		return "pwd_rst"
	default:
		return "unknown"
	}
}

// IsConfig reports GET/SET/DEFAULT config kinds.
func (r RequestID) IsConfig() bool {
	return r == MsgGetCfg || r == MsgSetCfg || r == MsgDefCfg
}

// CommandType is the sub-kind of a SET_CMD request.
type CommandType int

const (
	CmdNone CommandType = iota
	CmdLogout
	CmdHealthStatus
	CmdSearchMonthRecord
	CmdSearchDayRecord
	CmdGetMotionWindow
	CmdSetMotionWindow
	CmdTestCamera
	CmdChangePassword
	CmdChangeUsername
	CmdStartManualRecord
	CmdStopManualRecord
	CmdStartManualTrigger
	CmdStopManualTrigger
	CmdSyncClock
	CmdGetUserDetail
	CmdClearBuzzer
	CmdStartManualBackup
	CmdStopManualBackup
)

var commandNames = map[CommandType]string{
	CmdLogout:             "LOGOUT",
	CmdHealthStatus:       "HEALTH_STS",
	CmdSearchMonthRecord:  "SRCH_MNTH_RCD",
	CmdSearchDayRecord:    "SRCH_DAY_RCD",
	CmdGetMotionWindow:    "GET_MOTION_WINDOW",
	CmdSetMotionWindow:    "SET_MOTION_WINDOW",
	CmdTestCamera:         "TST_CAM",
	CmdChangePassword:     "CHNG_PWD",
	CmdChangeUsername:     "CHNG_USR",
	CmdStartManualRecord:  "SRT_MAN_REC",
	CmdStopManualRecord:   "STP_MAN_REC",
	CmdStartManualTrigger: "SRT_MAN_TRG",
	CmdStopManualTrigger:  "STP_MAN_TRG",
	CmdSyncClock:          "SYNC_CLK",
	CmdGetUserDetail:      "GET_USER_DETAIL",
	CmdClearBuzzer:        "CLR_BUZ",
	CmdStartManualBackup:  "SRT_MAN_BKP",
	CmdStopManualBackup:   "STP_MAN_BKP",
}

// WireName is the command keyword sent on the wire.
func (c CommandType) WireName() string {
	return commandNames[c]
}

// ParseCommandType maps a wire keyword back to its command.
func ParseCommandType(name string) (CommandType, bool) {
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return CmdNone, false
}

// IsRawResponse reports commands answered with fixed-format binary payloads.
// They are executed synchronously and read without end-of-message framing.
func (c CommandType) IsRawResponse() bool {
	switch c {
	case CmdSearchMonthRecord, CmdSearchDayRecord, CmdGetMotionWindow, CmdTestCamera:
		return true
	}
	return false
}

// PwdRstCommand is the sub-kind of a password reset request.
type PwdRstCommand int

const (
	PwdRstNone PwdRstCommand = iota
	PwdRstGetInfo
	PwdRstSetInfo
	PwdRstGenerateOTP
	PwdRstVerifyOTP
	PwdRstSetPassword
)

var pwdRstNames = map[PwdRstCommand]string{
	PwdRstGetInfo:     "GET_PWD_RST_INFO",
	PwdRstSetInfo:     "SET_PWD_RST_INFO",
	PwdRstGenerateOTP: "GENERATE_OTP",
	PwdRstVerifyOTP:   "VERIFY_OTP",
	PwdRstSetPassword: "SET_NEW_PWD",
}

// WireName is the password reset keyword sent on the wire.
func (c PwdRstCommand) WireName() string {
	return pwdRstNames[c]
}

// DeviceRequest is what the application layer asks a device client to do.
type DeviceRequest struct {
	RequestID     RequestID     `json:"request_id"`
	Command       CommandType   `json:"command,omitempty"`
	PwdRstCommand PwdRstCommand `json:"pwd_rst_command,omitempty"`
	Payload       string        `json:"payload"`
	WindowID      int           `json:"window_id"`
	CorrelationID string        `json:"correlation_id,omitempty"`
}

// DeviceResponse is the normalized result delivered back to the application layer.
type DeviceResponse struct {
	DeviceName    string        `json:"device_name"`
	RequestID     RequestID     `json:"request_id"`
	Command       CommandType   `json:"command,omitempty"`
	PwdRstCommand PwdRstCommand `json:"pwd_rst_command,omitempty"`
	Status        DeviceReply   `json:"status"`
	Payload       string        `json:"payload"`
	Data          []byte        `json:"data,omitempty"`
	WindowID      int           `json:"window_id"`
	CorrelationID string        `json:"correlation_id,omitempty"`
}
