// Package request holds the one-shot worker objects a device client drives.
// Each object performs its own wire exchange on its own goroutine and reports
// exactly one completion through the Done callback it was built with.
package request

import (
	"time"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// Kind names which completion handler a Response is routed to.
type Kind int

const (
	KindConnect Kind = iota
	KindGeneric
	KindCommand
	KindPwdRst
)

// ServerInfo is where a request connects to.
type ServerInfo struct {
	Address       string
	Port          uint16
	ForwardedPort uint16
}

// Info carries session and payload of one request.
type Info struct {
	RequestID     models.RequestID
	SessionID     string
	Timeout       time.Duration
	Payload       string
	WindowID      int
	CorrelationID string
}

// Response is the completion of a request object.
type Response struct {
	Kind          Kind
	Slot          int
	RequestID     models.RequestID
	Command       models.CommandType
	PwdRstCommand models.PwdRstCommand
	Status        models.DeviceReply
	Payload       []byte
	WindowID      int
	CorrelationID string
}

// Done receives a request's completion. It may be called from any goroutine.
type Done func(Response)

// Request is the lifecycle shared by every request object.
type Request interface {
	// Start runs the exchange on a new goroutine.
	Start()
	// Wait blocks until the goroutine started by Start has returned.
	Wait()
}

// ConnectRequest logs in and then keeps the session alive with poll and event exchanges.
type ConnectRequest interface {
	Request
	// SetRunFlag(false) makes the poll loop exit after its in-flight exchange.
	SetRunFlag(run bool)
	// SetPollFlag tells the request whether to start polling after login.
	SetPollFlag(poll bool)
	// ForwardedPortActive reports whether the forwarded port is in use.
	ForwardedPortActive() bool
}

// GenericRequest is a config GET, SET or DEFAULT exchange.
type GenericRequest interface {
	Request
	GetBlockingRes() ([]byte, models.DeviceReply)
}

// CommandRequest is a SET_CMD exchange.
type CommandRequest interface {
	Request
	GetBlockingRes() ([]byte, models.DeviceReply)
	// GetResWithoutCheckEOM reads a binary reply of at most maxSize bytes.
	GetResWithoutCheckEOM(maxSize int) ([]byte, models.DeviceReply)
}

// PasswordResetRequest is a PWD_RST exchange.
type PasswordResetRequest interface {
	Request
}

// Factory creates request objects. A nil return means the object could not be created.
type Factory interface {
	NewConnectRequest(server ServerInfo, info Info, autoLogin bool, connType models.ConnectionType, slot int, done Done) ConnectRequest
	NewGenericRequest(server ServerInfo, info Info, slot int, done Done) GenericRequest
	NewCommandRequest(server ServerInfo, info Info, cmd models.CommandType, slot int, done Done) CommandRequest
	NewPasswordResetRequest(server ServerInfo, info Info, cmd models.PwdRstCommand, slot int, done Done) PasswordResetRequest
}
