// Package protocol implements the framed text protocol spoken with NVR devices.
package protocol

// Control bytes.
const (
	SOM byte = 0x01 // start of message
	SOT byte = 0x02 // start of table/command body
	EOT byte = 0x03 // end of table/command body
	EOM byte = 0x04 // end of message
	SOI byte = 0x05 // start of index group
	EOI byte = 0x06 // end of index group
	FSP byte = 0x07 // field separator
	FVS byte = 0x08 // field=value separator
)

// Request headers.
const (
	HeaderLogin     = "REQ_LOG"
	HeaderPoll      = "REQ_POL"
	HeaderEvent     = "REQ_EVT"
	HeaderGetCfg    = "GET_CFG"
	HeaderSetCfg    = "SET_CFG"
	HeaderDefCfg    = "DEF_CFG"
	HeaderSetCmd    = "SET_CMD"
	HeaderPwdRst    = "PWD_RST"
	replyHeaderHead = "RPL_"
)

// Reply headers.
const (
	ReplyLogin  = "RPL_LOG"
	ReplyPoll   = "RPL_POL"
	ReplyEvent  = "RPL_EVT"
	ReplyCfg    = "RPL_CFG"
	ReplyCmd    = "RPL_CMD"
	ReplyPwdRst = "RPL_PWD"
)

// Protocol version compiled into this client. The banner reports the server's.
const (
	CommVersion  = 5
	CommRevision = 2
)
