package request

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

// TCPOptions tunes the TCP request objects.
type TCPOptions struct {
	DialTimeout   time.Duration
	PollInterval  time.Duration
	EventInterval time.Duration
}

// TCPFactory builds request objects that talk to devices over TCP.
type TCPFactory struct {
	opts   TCPOptions
	logger *zap.Logger
}

// NewTCPFactory creates a factory. Zero options fall back to sane defaults.
func NewTCPFactory(opts TCPOptions, logger *zap.Logger) *TCPFactory {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.EventInterval <= 0 {
		opts.EventInterval = time.Second
	}
	return &TCPFactory{opts: opts, logger: logger}
}

func (f *TCPFactory) transport() transport {
	return transport{dialTimeout: f.opts.DialTimeout}
}

// NewConnectRequest implements Factory.
func (f *TCPFactory) NewConnectRequest(server ServerInfo, info Info, autoLogin bool, connType models.ConnectionType, slot int, done Done) ConnectRequest {
	r := &connectRequest{
		worker:        newWorker(),
		t:             f.transport(),
		server:        server,
		info:          info,
		autoLogin:     autoLogin,
		connType:      connType,
		slot:          slot,
		done:          done,
		stop:          make(chan struct{}),
		pollDecision:  make(chan bool, 1),
		pollInterval:  f.opts.PollInterval,
		eventInterval: f.opts.EventInterval,
		logger:        f.logger.With(zap.String("address", server.Address), zap.Int("slot", slot)),
	}
	r.run.Store(true)
	return r
}

// NewGenericRequest implements Factory.
func (f *TCPFactory) NewGenericRequest(server ServerInfo, info Info, slot int, done Done) GenericRequest {
	return &genericRequest{worker: newWorker(), t: f.transport(), server: server, info: info, slot: slot, done: done}
}

// NewCommandRequest implements Factory.
func (f *TCPFactory) NewCommandRequest(server ServerInfo, info Info, cmd models.CommandType, slot int, done Done) CommandRequest {
	return &commandRequest{worker: newWorker(), t: f.transport(), server: server, info: info, cmd: cmd, slot: slot, done: done}
}

// NewPasswordResetRequest implements Factory.
func (f *TCPFactory) NewPasswordResetRequest(server ServerInfo, info Info, cmd models.PwdRstCommand, slot int, done Done) PasswordResetRequest {
	return &pwdRstRequest{worker: newWorker(), t: f.transport(), server: server, info: info, cmd: cmd, slot: slot, done: done}
}

type connectRequest struct {
	worker
	t             transport
	server        ServerInfo
	info          Info
	autoLogin     bool
	connType      models.ConnectionType
	slot          int
	done          Done
	pollInterval  time.Duration
	eventInterval time.Duration
	logger        *zap.Logger

	run          atomic.Bool
	forwarded    atomic.Bool
	stop         chan struct{}
	stopOnce     sync.Once
	pollDecision chan bool
}

func (r *connectRequest) Start() { r.begin(r.loop) }

func (r *connectRequest) SetRunFlag(run bool) {
	r.run.Store(run)
	if !run {
		r.stopOnce.Do(func() { close(r.stop) })
	}
}

func (r *connectRequest) SetPollFlag(poll bool) {
	select {
	case r.pollDecision <- poll:
	default:
	}
}

func (r *connectRequest) ForwardedPortActive() bool { return r.forwarded.Load() }

func (r *connectRequest) addr() string {
	if r.forwarded.Load() {
		return hostPort(r.server.Address, r.server.ForwardedPort)
	}
	return hostPort(r.server.Address, r.server.Port)
}

func (r *connectRequest) emit(id models.RequestID, status models.DeviceReply, payload []byte) {
	r.done(Response{
		Kind:          KindConnect,
		Slot:          r.slot,
		RequestID:     id,
		Status:        status,
		Payload:       payload,
		WindowID:      r.info.WindowID,
		CorrelationID: r.info.CorrelationID,
	})
}

func (r *connectRequest) login() (protocol.Reply, error) {
	frame := protocol.BuildFrame(protocol.HeaderLogin, "", []byte(r.info.Payload))
	reply, err := r.t.roundTrip(hostPort(r.server.Address, r.server.Port), frame, r.info.Timeout)
	if err == nil || r.server.ForwardedPort == 0 {
		return reply, err
	}
	r.logger.Debug("Direct port failed, trying forwarded port",
		zap.Uint16("forwarded_port", r.server.ForwardedPort),
		zap.Error(err),
	)
	reply, err = r.t.roundTrip(hostPort(r.server.Address, r.server.ForwardedPort), frame, r.info.Timeout)
	if err == nil {
		r.forwarded.Store(true)
	}
	return reply, err
}

func (r *connectRequest) loop() {
	r.logger.Debug("Connect request started",
		zap.Bool("auto_login", r.autoLogin),
		zap.Int("connection_type", int(r.connType)),
	)
	reply, err := r.login()
	if err != nil {
		r.logger.Warn("Login exchange failed", zap.Error(err))
		r.emit(models.MsgLogin, statusOf(err), nil)
	} else {
		r.emit(models.MsgLogin, reply.Status, reply.Payload)
	}

	select {
	case poll := <-r.pollDecision:
		if !poll {
			return
		}
	case <-r.stop:
		return
	}

	session := ""
	if len(reply.Payload) >= protocol.SessionIDLen {
		session = string(reply.Payload[:protocol.SessionIDLen])
	}

	pollTicker := time.NewTicker(r.pollInterval)
	defer pollTicker.Stop()
	eventTicker := time.NewTicker(r.eventInterval)
	defer eventTicker.Stop()

	for r.run.Load() {
		select {
		case <-r.stop:
			return
		case <-eventTicker.C:
			r.fetchEvents(session)
		case <-pollTicker.C:
			if !r.poll(session) {
				return
			}
		}
	}
}

// poll reports false when the session is gone and the loop must end.
func (r *connectRequest) poll(session string) bool {
	reply, err := r.t.roundTrip(r.addr(), protocol.BuildFrame(protocol.HeaderPoll, session, nil), r.info.Timeout)
	if err != nil {
		r.logger.Warn("Poll exchange failed", zap.Error(err))
		r.emit(models.MsgPoll, statusOf(err), nil)
		return false
	}
	r.emit(models.MsgPoll, reply.Status, reply.Payload)
	return reply.Status == models.CmdSuccess
}

func (r *connectRequest) fetchEvents(session string) {
	reply, err := r.t.roundTrip(r.addr(), protocol.BuildFrame(protocol.HeaderEvent, session, nil), r.info.Timeout)
	if err != nil {
		r.logger.Debug("Event exchange failed", zap.Error(err))
		return
	}
	if reply.Status != models.CmdSuccess || len(reply.Payload) == 0 {
		return
	}
	r.emit(models.MsgEvent, reply.Status, reply.Payload)
}

type genericRequest struct {
	worker
	t      transport
	server ServerInfo
	info   Info
	slot   int
	done   Done
}

func configHeader(id models.RequestID) string {
	switch id {
	case models.MsgSetCfg:
		return protocol.HeaderSetCfg
	case models.MsgDefCfg:
		return protocol.HeaderDefCfg
	default:
		return protocol.HeaderGetCfg
	}
}

func (r *genericRequest) Start() {
	r.begin(func() {
		payload, status := r.GetBlockingRes()
		r.done(Response{
			Kind:          KindGeneric,
			Slot:          r.slot,
			RequestID:     r.info.RequestID,
			Status:        status,
			Payload:       payload,
			WindowID:      r.info.WindowID,
			CorrelationID: r.info.CorrelationID,
		})
	})
}

func (r *genericRequest) GetBlockingRes() ([]byte, models.DeviceReply) {
	frame := protocol.BuildFrame(configHeader(r.info.RequestID), r.info.SessionID, []byte(r.info.Payload))
	reply, err := r.t.roundTrip(hostPort(r.server.Address, r.server.Port), frame, r.info.Timeout)
	if err != nil {
		return nil, statusOf(err)
	}
	return reply.Payload, reply.Status
}

type commandRequest struct {
	worker
	t      transport
	server ServerInfo
	info   Info
	cmd    models.CommandType
	slot   int
	done   Done
}

func (r *commandRequest) frame() []byte {
	body := protocol.CommandBody(r.cmd.WireName(), r.info.Payload)
	return protocol.BuildFrame(protocol.HeaderSetCmd, r.info.SessionID, []byte(body))
}

func (r *commandRequest) Start() {
	r.begin(func() {
		payload, status := r.GetBlockingRes()
		r.done(Response{
			Kind:          KindCommand,
			Slot:          r.slot,
			RequestID:     models.MsgSetCmd,
			Command:       r.cmd,
			Status:        status,
			Payload:       payload,
			WindowID:      r.info.WindowID,
			CorrelationID: r.info.CorrelationID,
		})
	})
}

func (r *commandRequest) GetBlockingRes() ([]byte, models.DeviceReply) {
	reply, err := r.t.roundTrip(hostPort(r.server.Address, r.server.Port), r.frame(), r.info.Timeout)
	if err != nil {
		return nil, statusOf(err)
	}
	return reply.Payload, reply.Status
}

func (r *commandRequest) GetResWithoutCheckEOM(maxSize int) ([]byte, models.DeviceReply) {
	reply, err := r.t.rawRoundTrip(hostPort(r.server.Address, r.server.Port), r.frame(), r.info.Timeout, maxSize)
	if err != nil {
		return nil, statusOf(err)
	}
	return reply.Payload, reply.Status
}

type pwdRstRequest struct {
	worker
	t      transport
	server ServerInfo
	info   Info
	cmd    models.PwdRstCommand
	slot   int
	done   Done
}

func (r *pwdRstRequest) Start() {
	r.begin(func() {
		body := protocol.CommandBody(r.cmd.WireName(), r.info.Payload)
		frame := protocol.BuildFrame(protocol.HeaderPwdRst, "", []byte(body))
		resp := Response{
			Kind:          KindPwdRst,
			Slot:          r.slot,
			RequestID:     models.MsgPwdRst,
			PwdRstCommand: r.cmd,
			WindowID:      r.info.WindowID,
			CorrelationID: r.info.CorrelationID,
		}
		reply, err := r.t.roundTrip(hostPort(r.server.Address, r.server.Port), frame, r.info.Timeout)
		if err != nil {
			resp.Status = statusOf(err)
		} else {
			resp.Status, resp.Payload = reply.Status, reply.Payload
		}
		r.done(resp)
	})
}
