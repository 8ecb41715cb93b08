package deviceclient

import (
	"context"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/request"
)

// Run consumes request completions until ctx is cancelled or the client
// gives up on the device. It must run on exactly one goroutine.
func (c *Client) Run(ctx context.Context) {
	defer c.quitOnce.Do(func() { close(c.quit) })
	for {
		select {
		case <-ctx.Done():
			c.tearDownAll()
			return
		case resp := <-c.completions:
			c.handle(resp)
			if c.exited.Load() {
				return
			}
		}
	}
}

// Exited reports whether the client gave up on its device.
func (c *Client) Exited() bool {
	return c.exited.Load()
}

func (c *Client) handle(resp request.Response) {
	switch resp.Kind {
	case request.KindConnect:
		c.slotConnectResponse(resp)
	case request.KindGeneric:
		c.slotConfigResponse(resp)
	case request.KindCommand:
		c.slotCommandResponse(resp)
	case request.KindPwdRst:
		c.slotPwdRstCmdResponse(resp)
	}
}

func (c *Client) slotConnectResponse(resp request.Response) {
	c.connectMu.Lock()
	current := c.connect != nil && c.connect.gen == resp.Slot
	c.connectMu.Unlock()

	if !current {
		if resp.Slot < 0 {
			// rejected login; the active connect request is untouched
			c.emitResponse(responseFrom(resp))
			return
		}
		c.logger.Debug("Dropping stale connect completion",
			zap.Stringer("request_id", resp.RequestID),
			zap.Int("slot", resp.Slot),
		)
		return
	}

	switch resp.RequestID {
	case models.MsgLogin:
		c.onLoginResponse(resp)
	case models.MsgPoll:
		c.onPollResponse(resp)
	case models.MsgEvent:
		if resp.Status == models.CmdSuccess {
			c.processLiveEvents(resp.Payload)
		}
	}
}

func (c *Client) onLoginResponse(resp request.Response) {
	status := resp.Status
	verified := true
	if status == models.CmdSuccess || status == models.CmdResetPassword {
		ok, err := c.verifyDeviceLogInInit(resp.Payload)
		if err != nil {
			c.logger.Warn("Invalid login banner", zap.Error(err))
			status = models.CmdInvalidMessage
		}
		verified = ok
	}

	poll := false
	if status == models.CmdSuccess {
		c.GetHealthStatusFromDevice()
		c.getCommonCfg(models.TableCamera, false)
		if verified {
			c.setState(models.StateConnected)
		} else {
			c.setState(models.StateConflict)
		}
		c.getCommonCfg(models.TableGeneral, false)
		if c.isLocal() {
			c.getCommonCfg(models.TableNetworkDevice, false)
			if c.TableInfo().DiskCheckingCount > 0 {
				status = models.CmdDiskCleanupRequired
			}
		}
		poll = true
	} else if status != models.CmdResetPassword {
		c.invalidateSession()
		c.setState(models.StateDisconnected)
	}

	c.connectMu.Lock()
	if c.connect != nil {
		c.connect.req.SetPollFlag(poll)
	}
	c.connectMu.Unlock()
	if !poll {
		c.teardownConnect()
	}

	c.logger.Info("Login completed", zap.Stringer("status", status), zap.Bool("polling", poll))
	out := responseFrom(resp)
	out.Status = status
	c.emitResponse(out)

	if isLoginFailure(status) && !c.autoLogin() {
		c.giveUp()
	}
}

func isLoginFailure(status models.DeviceReply) bool {
	switch status {
	case models.CmdSuccess, models.CmdDiskCleanupRequired, models.CmdResetPassword, models.CmdInternalResourceLimit:
		return false
	}
	return true
}

// pollFailureStatus maps a failed poll to the status the application sees.
func pollFailureStatus(state models.ConnectionState, status models.DeviceReply) models.DeviceReply {
	switch state {
	case models.StateDeleted:
		return models.CmdDeviceDeleted
	case models.StateConflict:
		return models.CmdDeviceConflict
	case models.StateLoggedOut, models.StateDisconnected:
		if status.IsAuthReply() {
			return status
		}
		return models.CmdDeviceLoggedOut
	default:
		return models.CmdDeviceDisconnected
	}
}

func (c *Client) onPollResponse(resp request.Response) {
	if resp.Status == models.CmdSuccess {
		// remote state follows login only, so a late poll cannot flap it
		if c.isLocal() {
			c.setState(models.StateConnected)
		}
		return
	}

	state := c.ConnectionState()
	status := pollFailureStatus(state, resp.Status)
	c.logger.Warn("Poll failed",
		zap.Stringer("state", state),
		zap.Stringer("wire_status", resp.Status),
		zap.Stringer("status", status),
	)
	c.invalidateSession()
	if state == models.StateConnected || state == models.StateConflict {
		c.setState(models.StateDisconnected)
	}
	c.teardownConnect()

	out := responseFrom(resp)
	out.Status = status
	c.emitResponse(out)

	if resp.Status != models.CmdInternalResourceLimit && state != models.StateLoggedOut && !c.autoLogin() {
		c.giveUp()
	}
}

func (c *Client) slotConfigResponse(resp request.Response) {
	if gr, ok := c.generic.release(resp.Slot); ok {
		gr.Wait()
	}
	c.emitResponse(responseFrom(resp))
}

func (c *Client) slotCommandResponse(resp request.Response) {
	if cr, ok := c.commands.release(resp.Slot); ok {
		cr.Wait()
	}
	c.pendingMu.Lock()
	pending, hasPending := c.pendingCred[resp.Slot]
	delete(c.pendingCred, resp.Slot)
	c.pendingMu.Unlock()

	if hasPending && resp.Slot >= 0 && resp.Status == models.CmdSuccess {
		c.applyCredentialChange(pending)
	}

	if resp.Command == models.CmdLogout && resp.Slot < 0 {
		// polling was already stopped; end the session locally
		c.takeLoginAfterLogout()
		c.teardownConnect()
		c.invalidateSession()
		c.emitResponse(responseFrom(resp))
		return
	}
	if resp.Command == models.CmdLogout {
		c.teardownConnect()
		c.invalidateSession()
		c.setState(models.StateLoggedOut)
		c.emitResponse(responseFrom(resp))
		if c.takeLoginAfterLogout() {
			c.LoginToDevice()
		}
		return
	}
	c.emitResponse(responseFrom(resp))
}

// applyCredentialChange updates the cached credentials after the device
// confirmed CHNG_PWD (user, old, new) or CHNG_USR (new user, password).
func (c *Client) applyCredentialChange(p pendingCredential) {
	d := protocol.NewDecoder([]byte(p.payload))
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	switch p.cmd {
	case models.CmdChangePassword:
		user, err1 := d.ReadField()
		_, err2 := d.ReadField()
		pwd, err3 := d.ReadField()
		if err1 != nil || err2 != nil || err3 != nil {
			c.logger.Warn("Malformed change-password payload")
			return
		}
		if user == c.cfg.Username {
			c.cfg.Password = pwd
		}
	case models.CmdChangeUsername:
		user, err1 := d.ReadField()
		pwd, err2 := d.ReadField()
		if err1 != nil || err2 != nil {
			c.logger.Warn("Malformed change-username payload")
			return
		}
		c.cfg.Username = user
		c.cfg.Password = pwd
	}
	c.logger.Info("Cached credentials updated", zap.Int("command", int(p.cmd)))
}

func (c *Client) slotPwdRstCmdResponse(resp request.Response) {
	if pr, ok := c.pwdRst.release(resp.Slot); ok {
		pr.Wait()
	}
	c.emitResponse(responseFrom(resp))
}

// giveUp releases everything owned by the client and tells the owning layer
// to close streams and drop this device. It runs at most once.
func (c *Client) giveUp() {
	c.exitOnce.Do(func() {
		name := c.name()
		c.logger.Warn("Giving up on device")
		c.tearDownAll()
		flushed := c.events.Flush(name)
		c.logger.Debug("Live events flushed", zap.Int("count", flushed))
		c.exited.Store(true)
		if c.listener != nil {
			c.listener.OnDeleteStreamRequest(name)
			c.listener.OnExitThread(name)
		}
	})
}

// tearDownAll stops and joins every request object, discarding completions
// that arrive meanwhile and any still queued afterwards.
func (c *Client) tearDownAll() {
	stopDrain := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			select {
			case <-c.completions:
			case <-stopDrain:
				return
			}
		}
	}()

	c.teardownConnect()
	for _, gr := range c.generic.releaseAll() {
		if gr != nil {
			gr.Wait()
		}
	}
	for _, cr := range c.commands.releaseAll() {
		if cr != nil {
			cr.Wait()
		}
	}
	for _, pr := range c.pwdRst.releaseAll() {
		if pr != nil {
			pr.Wait()
		}
	}
	c.pendingMu.Lock()
	c.pendingCred = make(map[int]pendingCredential)
	c.pendingMu.Unlock()

	close(stopDrain)
	<-drained
	for {
		select {
		case <-c.completions:
		default:
			return
		}
	}
}
