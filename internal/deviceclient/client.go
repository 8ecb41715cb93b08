// Package deviceclient is the protocol and session engine for one managed NVR.
//
// A Client owns the device configuration, the connection state and every
// request object it creates. Request objects report completion into a
// channel that only Run consumes, so all completion handling happens on the
// owner goroutine. Each cached data group has its own lock and accessors
// always return copies.
package deviceclient

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/logger"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/request"
)

var (
	// ErrResourceLimit is logged when no request slot is free.
	ErrResourceLimit = errors.New("no free request slot")
	// ErrDeviceDeleted is logged when work is refused for a deleted device.
	ErrDeviceDeleted = errors.New("device deleted")
)

// Listener receives everything a Client reports to the application layer.
// Calls are made from the owner goroutine, except responses of synchronous
// commands which are delivered on the caller's goroutine.
type Listener interface {
	OnDeviceResponse(deviceName string, resp models.DeviceResponse)
	OnEvent(deviceName string, ev models.LiveEvent, display bool)
	OnPopUpEvent(deviceName string, ev models.PopUpEvent)
	OnDeviceCfgUpdate(deviceName string, update models.RemoteDeviceUpdate)
	OnDeleteStreamRequest(deviceName string)
	OnExitThread(deviceName string)
}

// Tunables are the sizing and timing knobs of a Client.
type Tunables struct {
	GenericPoolSize     int
	CommandPoolSize     int
	PwdRstPoolSize      int
	LoginTimeout        time.Duration
	DefaultTimeout      time.Duration
	LocalStartupDelay   time.Duration
	CompletionQueueSize int
}

// DefaultTunables returns the values used when nothing is configured.
func DefaultTunables() Tunables {
	return Tunables{
		GenericPoolSize:     5,
		CommandPoolSize:     10,
		PwdRstPoolSize:      3,
		LoginTimeout:        10 * time.Second,
		DefaultTimeout:      30 * time.Second,
		LocalStartupDelay:   3 * time.Second,
		CompletionQueueSize: 64,
	}
}

// Options are the collaborators of a Client.
type Options struct {
	Factory  request.Factory
	Listener Listener
	Events   *EventList
	Logger   *zap.Logger
	Tunables Tunables
}

// connectHandle is the single connect request and its generation number.
// abandon is closed on teardown so a late completion never blocks.
type connectHandle struct {
	req     request.ConnectRequest
	gen     int
	abandon chan struct{}
}

type pendingCredential struct {
	cmd     models.CommandType
	payload string
}

// Client is the protocol and session engine of one device.
type Client struct {
	index    int
	factory  request.Factory
	listener Listener
	events   *EventList
	logger   *zap.Logger
	tun      Tunables

	cfgMu sync.RWMutex
	cfg   models.DeviceConfig

	sessionMu sync.RWMutex
	session   models.SessionInfo

	stateMu sync.RWMutex
	state   models.ConnectionState

	tableMu   sync.RWMutex
	tableInfo models.DeviceTableInfo

	cameraMu sync.RWMutex
	cameras  [models.MaxCameras]models.CameraInfo

	generalMu sync.RWMutex
	general   models.GeneralConfig

	remoteMu sync.RWMutex
	remotes  [models.MaxRemoteDevices]models.RemoteDeviceConfig

	healthMu sync.RWMutex
	health   models.HealthStatus

	recMu        sync.RWMutex
	recInMinutes [models.MaxCameras]string
	recInMonth   uint64

	motionMu sync.RWMutex
	motion   models.MotionInfo

	connectMu sync.Mutex
	connect   *connectHandle
	connGen   int

	generic  *slotPool[request.GenericRequest]
	commands *slotPool[request.CommandRequest]
	pwdRst   *slotPool[request.PasswordResetRequest]

	pendingMu   sync.Mutex
	pendingCred map[int]pendingCredential

	logoutMu         sync.Mutex
	loginAfterLogout bool

	completions chan request.Response
	quit        chan struct{}
	quitOnce    sync.Once
	exitOnce    sync.Once
	exited      atomic.Bool
}

// New creates a Client for the device at index with a copy of cfg.
func New(index int, cfg models.DeviceConfig, opts Options) *Client {
	tun := opts.Tunables
	def := DefaultTunables()
	if tun.GenericPoolSize <= 0 {
		tun.GenericPoolSize = def.GenericPoolSize
	}
	if tun.CommandPoolSize <= 0 {
		tun.CommandPoolSize = def.CommandPoolSize
	}
	if tun.PwdRstPoolSize <= 0 {
		tun.PwdRstPoolSize = def.PwdRstPoolSize
	}
	if tun.LoginTimeout <= 0 {
		tun.LoginTimeout = def.LoginTimeout
	}
	if tun.DefaultTimeout <= 0 {
		tun.DefaultTimeout = def.DefaultTimeout
	}
	if tun.LocalStartupDelay < 0 {
		tun.LocalStartupDelay = 0
	}
	if tun.CompletionQueueSize <= 0 {
		tun.CompletionQueueSize = def.CompletionQueueSize
	}
	events := opts.Events
	if events == nil {
		events = NewEventList(DefaultEventCapacity)
	}
	base := opts.Logger
	if base == nil {
		base = zap.NewNop()
	}

	c := &Client{
		index:       index,
		factory:     opts.Factory,
		listener:    opts.Listener,
		events:      events,
		logger:      logger.ForDevice(base, index, cfg.Name),
		tun:         tun,
		cfg:         cfg,
		state:       models.StateDisconnected,
		generic:     newSlotPool[request.GenericRequest](tun.GenericPoolSize),
		commands:    newSlotPool[request.CommandRequest](tun.CommandPoolSize),
		pwdRst:      newSlotPool[request.PasswordResetRequest](tun.PwdRstPoolSize),
		pendingCred: make(map[int]pendingCredential),
		completions: make(chan request.Response, tun.CompletionQueueSize),
		quit:        make(chan struct{}),
	}
	for i := range c.cameras {
		c.cameras[i].Rights = models.DefaultLocalViewerRights
	}
	empty := strings.Repeat(string(models.RecNone), models.RecMinutesLen)
	for i := range c.recInMinutes {
		c.recInMinutes[i] = empty
	}
	return c
}

// deliver queues a completion for the owner goroutine.
func (c *Client) deliver(resp request.Response) {
	select {
	case c.completions <- resp:
	case <-c.quit:
	}
}

func (c *Client) name() string {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg.Name
}

func (c *Client) isLocal() bool {
	return c.name() == models.LocalDeviceName
}

func (c *Client) autoLogin() bool {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg.AutoLogin
}

// setState applies a transition. DELETED is terminal.
func (c *Client) setState(s models.ConnectionState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state == models.StateDeleted || c.state == s {
		return
	}
	c.logger.Info("Connection state changed",
		zap.Stringer("from", c.state),
		zap.Stringer("to", s),
	)
	c.state = s
}

func (c *Client) setSession(s models.SessionInfo) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	c.session = s
}

func (c *Client) invalidateSession() {
	c.setSession(models.SessionInfo{})
}

func (c *Client) emitResponse(resp models.DeviceResponse) {
	resp.DeviceName = c.name()
	if c.listener != nil {
		c.listener.OnDeviceResponse(resp.DeviceName, resp)
	}
}

func responseFrom(r request.Response) models.DeviceResponse {
	return models.DeviceResponse{
		RequestID:     r.RequestID,
		Command:       r.Command,
		PwdRstCommand: r.PwdRstCommand,
		Status:        r.Status,
		Payload:       string(r.Payload),
		WindowID:      r.WindowID,
		CorrelationID: r.CorrelationID,
	}
}
