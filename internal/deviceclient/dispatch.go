package deviceclient

import (
	"time"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/request"
)

// Upper bounds of binary replies read without end-of-message framing.
const (
	maxMonthRecordReply = 64
	maxDayRecordReply   = 64 * 1024
	maxMotionReply      = 1024
	maxTestCameraReply  = 2 * 1024 * 1024
)

func rawReplyLimit(cmd models.CommandType) int {
	switch cmd {
	case models.CmdSearchMonthRecord:
		return maxMonthRecordReply
	case models.CmdSearchDayRecord:
		return maxDayRecordReply
	case models.CmdGetMotionWindow:
		return maxMotionReply
	default:
		return maxTestCameraReply
	}
}

// serverInfo resolves the address to dial. The forwarded port replaces the
// direct one while the connect request reports the tunnel as active.
func (c *Client) serverInfo() request.ServerInfo {
	cfg := c.DeviceConfig()
	port := cfg.Port
	c.connectMu.Lock()
	if c.connect != nil && cfg.ForwardedTCPPort != 0 && c.connect.req.ForwardedPortActive() {
		port = cfg.ForwardedTCPPort
	}
	c.connectMu.Unlock()
	return request.ServerInfo{
		Address:       cfg.IPAddress,
		Port:          port,
		ForwardedPort: cfg.ForwardedTCPPort,
	}
}

func (c *Client) requestInfo(req models.DeviceRequest) request.Info {
	info := request.Info{
		RequestID:     req.RequestID,
		Payload:       req.Payload,
		WindowID:      req.WindowID,
		CorrelationID: req.CorrelationID,
	}
	session := c.SessionInfo()
	info.SessionID = session.SessionID
	if req.RequestID == models.MsgLogin {
		info.Timeout = c.tun.LoginTimeout
	} else if session.Timeout > 0 {
		info.Timeout = session.Timeout
	} else {
		info.Timeout = c.tun.DefaultTimeout
	}
	return info
}

// LoginToDevice starts an asynchronous login. The local device is dialed
// after the configured startup delay.
func (c *Client) LoginToDevice() bool {
	if c.IsDeleted() {
		c.logger.Debug("Login skipped", zap.Error(ErrDeviceDeleted))
		return false
	}
	if c.exited.Load() {
		return false
	}
	cfg := c.DeviceConfig()
	if !c.hasConnectRequest() {
		c.setSession(models.SessionInfo{SessionID: models.PendingSessionID})
	}
	req := models.DeviceRequest{
		RequestID: models.MsgLogin,
		Payload:   protocol.LoginPayload(cfg.Username, cfg.Password),
	}
	if cfg.IsLocal() && c.tun.LocalStartupDelay > 0 {
		time.AfterFunc(c.tun.LocalStartupDelay, func() {
			c.ProcessDeviceRequest(req)
		})
		return true
	}
	return c.ProcessDeviceRequest(req)
}

// LogoutFromDevice sends LOGOUT. When loginAfterLogout is set a new login
// starts once the logout completes.
func (c *Client) LogoutFromDevice(loginAfterLogout bool) bool {
	c.logoutMu.Lock()
	c.loginAfterLogout = loginAfterLogout
	c.logoutMu.Unlock()

	if !c.hasConnectRequest() || !c.SessionInfo().Valid() {
		c.teardownConnect()
		c.invalidateSession()
		c.setState(models.StateLoggedOut)
		if c.takeLoginAfterLogout() {
			return c.LoginToDevice()
		}
		return true
	}

	// stop polling first so a poll failing against the closed session is
	// reported as a logout
	c.connectMu.Lock()
	if c.connect != nil {
		c.connect.req.SetRunFlag(false)
	}
	c.connectMu.Unlock()
	c.setState(models.StateLoggedOut)

	return c.ProcessDeviceRequest(models.DeviceRequest{
		RequestID: models.MsgSetCmd,
		Command:   models.CmdLogout,
	})
}

func (c *Client) takeLoginAfterLogout() bool {
	c.logoutMu.Lock()
	defer c.logoutMu.Unlock()
	v := c.loginAfterLogout
	c.loginAfterLogout = false
	return v
}

// ProcessDeviceRequest dispatches req to a request object. It reports whether
// an object was started; every dispatch yields exactly one response either way.
func (c *Client) ProcessDeviceRequest(req models.DeviceRequest) bool {
	if c.exited.Load() {
		c.logger.Warn("Request dropped, device thread exited", zap.Stringer("request_id", req.RequestID))
		return false
	}
	server := c.serverInfo()
	info := c.requestInfo(req)

	switch req.RequestID {
	case models.MsgLogin:
		return c.startConnect(server, info)
	case models.MsgGetCfg, models.MsgSetCfg, models.MsgDefCfg:
		return c.startGeneric(server, info, req)
	case models.MsgSetCmd:
		if req.Command.IsRawResponse() {
			return c.processSyncCommand(server, info, req)
		}
		return c.startCommand(server, info, req)
	case models.MsgPwdRst:
		return c.startPwdRst(server, info, req)
	default:
		c.logger.Warn("Unsupported request", zap.Int("request_id", int(req.RequestID)))
		c.emitResponse(models.DeviceResponse{
			RequestID:     req.RequestID,
			Status:        models.CmdInvalidMessage,
			WindowID:      req.WindowID,
			CorrelationID: req.CorrelationID,
		})
		return false
	}
}

// synthesize routes a resource-limit failure through the completion path of kind.
func (c *Client) synthesize(kind request.Kind, req models.DeviceRequest) {
	c.logger.Warn("Request rejected",
		zap.Stringer("request_id", req.RequestID),
		zap.Int("command", int(req.Command)),
		zap.Error(ErrResourceLimit),
	)
	c.deliver(request.Response{
		Kind:          kind,
		Slot:          -1,
		RequestID:     req.RequestID,
		Command:       req.Command,
		PwdRstCommand: req.PwdRstCommand,
		Status:        models.CmdInternalResourceLimit,
		WindowID:      req.WindowID,
		CorrelationID: req.CorrelationID,
	})
}

func (c *Client) hasConnectRequest() bool {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	return c.connect != nil
}

func (c *Client) startConnect(server request.ServerInfo, info request.Info) bool {
	req := models.DeviceRequest{RequestID: models.MsgLogin, WindowID: info.WindowID, CorrelationID: info.CorrelationID}
	cfg := c.DeviceConfig()

	c.connectMu.Lock()
	if c.connect != nil {
		c.connectMu.Unlock()
		c.synthesize(request.KindConnect, req)
		return false
	}
	c.connGen++
	h := &connectHandle{gen: c.connGen, abandon: make(chan struct{})}
	done := func(resp request.Response) {
		select {
		case c.completions <- resp:
		case <-h.abandon:
		case <-c.quit:
		}
	}
	h.req = c.factory.NewConnectRequest(server, info, cfg.AutoLogin, cfg.ConnectionType, h.gen, done)
	if h.req == nil {
		c.connectMu.Unlock()
		c.synthesize(request.KindConnect, req)
		return false
	}
	c.connect = h
	c.connectMu.Unlock()

	c.logger.Info("Login started", zap.String("address", server.Address), zap.Uint16("port", server.Port))
	h.req.Start()
	return true
}

// teardownConnect stops the connect request and joins its goroutine.
func (c *Client) teardownConnect() {
	c.connectMu.Lock()
	h := c.connect
	c.connect = nil
	c.connectMu.Unlock()
	if h == nil {
		return
	}
	close(h.abandon)
	h.req.SetRunFlag(false)
	h.req.Wait()
}

func (c *Client) startGeneric(server request.ServerInfo, info request.Info, req models.DeviceRequest) bool {
	slot, ok := c.generic.acquire()
	if !ok {
		c.synthesize(request.KindGeneric, req)
		return false
	}
	gr := c.factory.NewGenericRequest(server, info, slot, c.deliver)
	if gr == nil {
		c.generic.release(slot)
		c.synthesize(request.KindGeneric, req)
		return false
	}
	c.generic.set(slot, gr)
	gr.Start()
	return true
}

func (c *Client) startCommand(server request.ServerInfo, info request.Info, req models.DeviceRequest) bool {
	slot, ok := c.commands.acquire()
	if !ok {
		c.synthesize(request.KindCommand, req)
		return false
	}
	cr := c.factory.NewCommandRequest(server, info, req.Command, slot, c.deliver)
	if cr == nil {
		c.commands.release(slot)
		c.synthesize(request.KindCommand, req)
		return false
	}
	c.commands.set(slot, cr)
	if req.Command == models.CmdChangePassword || req.Command == models.CmdChangeUsername {
		c.pendingMu.Lock()
		c.pendingCred[slot] = pendingCredential{cmd: req.Command, payload: req.Payload}
		c.pendingMu.Unlock()
	}
	cr.Start()
	return true
}

func (c *Client) startPwdRst(server request.ServerInfo, info request.Info, req models.DeviceRequest) bool {
	slot, ok := c.pwdRst.acquire()
	if !ok {
		c.synthesize(request.KindPwdRst, req)
		return false
	}
	pr := c.factory.NewPasswordResetRequest(server, info, req.PwdRstCommand, slot, c.deliver)
	if pr == nil {
		c.pwdRst.release(slot)
		c.synthesize(request.KindPwdRst, req)
		return false
	}
	c.pwdRst.set(slot, pr)
	pr.Start()
	return true
}

// processSyncCommand runs one of the binary-reply commands on the caller's
// goroutine, decodes the reply in place and reports the result directly.
func (c *Client) processSyncCommand(server request.ServerInfo, info request.Info, req models.DeviceRequest) bool {
	resp := models.DeviceResponse{
		RequestID:     req.RequestID,
		Command:       req.Command,
		WindowID:      req.WindowID,
		CorrelationID: req.CorrelationID,
	}
	cr := c.factory.NewCommandRequest(server, info, req.Command, -1, nil)
	if cr == nil {
		c.logger.Warn("Command rejected", zap.Int("command", int(req.Command)), zap.Error(ErrResourceLimit))
		resp.Status = models.CmdInternalResourceLimit
		c.emitResponse(resp)
		return false
	}
	payload, status := cr.GetResWithoutCheckEOM(rawReplyLimit(req.Command))
	cr.Wait()

	resp.Status = status
	if status == models.CmdSuccess {
		var err error
		switch req.Command {
		case models.CmdSearchMonthRecord:
			err = c.storeRecStatusMonth(payload)
		case models.CmdSearchDayRecord:
			err = c.storeRecStatusDay(payload)
		case models.CmdGetMotionWindow:
			err = c.storeMotionInfo(payload)
		case models.CmdTestCamera:
			resp.Data = payload
		}
		if err != nil {
			c.logger.Warn("Failed to decode command reply", zap.Int("command", int(req.Command)), zap.Error(err))
			resp.Status = models.CmdInvalidMessage
		}
	}
	c.emitResponse(resp)
	return true
}

// ChangeDeviceConfig replaces the configuration. A changed address or
// credential on a logged-in device forces a logout, followed by a new login
// when auto-login is enabled.
func (c *Client) ChangeDeviceConfig(cfg models.DeviceConfig) {
	c.cfgMu.Lock()
	old := c.cfg
	c.cfg = cfg
	c.cfgMu.Unlock()

	if old.SameEndpoint(cfg) {
		return
	}
	c.logger.Info("Device endpoint changed",
		zap.String("address", cfg.IPAddress),
		zap.Uint16("port", cfg.Port),
	)
	if c.hasConnectRequest() {
		c.LogoutFromDevice(cfg.AutoLogin)
	}
}

// SetDeleted marks the device as removed. Further logins are refused.
func (c *Client) SetDeleted() {
	c.stateMu.Lock()
	c.state = models.StateDeleted
	c.stateMu.Unlock()
	c.logger.Info("Device marked deleted")
}
