package deviceclient

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

// verifyDeviceLogInInit stores session, capabilities and camera rights from
// the login banner. It returns false when the protocol versions differ; the
// login itself still counts as successful in that case.
func (c *Client) verifyDeviceLogInInit(payload []byte) (bool, error) {
	banner, err := protocol.ParseBanner(payload)
	if err != nil {
		return false, fmt.Errorf("parse banner: %w", err)
	}
	banner.Info.ConflictType = protocol.CompareCommVersion(banner.Info.CommVersion, banner.Info.CommRevision)

	timeout := time.Duration(banner.Info.ResponseTimeSec) * time.Second
	if timeout <= 0 {
		timeout = c.tun.DefaultTimeout
	}
	c.setSession(models.SessionInfo{SessionID: banner.SessionID, Timeout: timeout})

	c.tableMu.Lock()
	c.tableInfo = banner.Info
	c.tableMu.Unlock()

	c.cameraMu.Lock()
	for i := range c.cameras {
		if i < len(banner.Rights) {
			c.cameras[i].Rights = banner.Rights[i]
		} else {
			c.cameras[i].Rights = models.DefaultLocalViewerRights
		}
	}
	c.cameraMu.Unlock()

	if banner.Info.ConflictType != models.ConflictNone {
		c.logger.Warn("Protocol version mismatch",
			zap.Int("comm_version", banner.Info.CommVersion),
			zap.Int("comm_revision", banner.Info.CommRevision),
			zap.Stringer("conflict", banner.Info.ConflictType),
		)
		return false, nil
	}
	return true, nil
}
