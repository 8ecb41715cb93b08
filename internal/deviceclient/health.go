package deviceclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

// GetHealthStatusFromDevice fetches HEALTH_STS synchronously and replaces the
// health matrix on success.
func (c *Client) GetHealthStatusFromDevice() bool {
	info := c.requestInfo(models.DeviceRequest{RequestID: models.MsgSetCmd})
	cr := c.factory.NewCommandRequest(c.serverInfo(), info, models.CmdHealthStatus, -1, nil)
	if cr == nil {
		c.logger.Warn("Health status fetch rejected", zap.Error(ErrResourceLimit))
		return false
	}
	payload, status := cr.GetBlockingRes()
	cr.Wait()
	if status != models.CmdSuccess {
		c.logger.Warn("Health status fetch failed", zap.Stringer("status", status))
		return false
	}
	if err := c.storeHealthStatus(payload); err != nil {
		c.logger.Warn("Invalid health status reply", zap.Error(err))
		return false
	}
	return true
}

// storeHealthStatus decodes (SOI param FSP digits FSP EOI)* into a fresh matrix.
// Digit i of a group is the status of entity i.
func (c *Client) storeHealthStatus(payload []byte) error {
	groups, err := protocol.SplitGroups(payload)
	if err != nil {
		return err
	}
	var next models.HealthStatus
	for _, g := range groups {
		d := protocol.NewDecoder(g)
		param, err := d.ReadInt()
		if err != nil {
			return err
		}
		if param < 0 || param >= int(models.HealthParamCount) {
			return fmt.Errorf("%w: health param %d", protocol.ErrMalformed, param)
		}
		digits, err := d.ReadField()
		if err != nil {
			return err
		}
		if len(digits) > models.MaxHealthIndex {
			return fmt.Errorf("%w: %d health entries", protocol.ErrMalformed, len(digits))
		}
		for i := 0; i < len(digits); i++ {
			ch := digits[i]
			if ch < '0' || ch > '9' {
				return fmt.Errorf("%w: health digit %q", protocol.ErrMalformed, ch)
			}
			next[param][i] = ch - '0'
		}
	}

	c.healthMu.Lock()
	c.health = next
	c.healthMu.Unlock()
	return nil
}

func (c *Client) setHealth(param models.HealthParam, index int, value uint8) {
	if param < 0 || param >= models.HealthParamCount || index < 0 || index >= models.MaxHealthIndex {
		return
	}
	c.healthMu.Lock()
	c.health[param][index] = value
	c.healthMu.Unlock()
}

// HealthStatus returns a copy of the whole matrix.
func (c *Client) HealthStatus() models.HealthStatus {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health
}

// ParamHealth returns a copy of one parameter's row.
func (c *Client) ParamHealth(param models.HealthParam) []uint8 {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health.Row(param)
}

// EntityHealth returns the status of one entity of one parameter.
func (c *Client) EntityHealth(param models.HealthParam, index int) uint8 {
	if param < 0 || param >= models.HealthParamCount || index < 0 || index >= models.MaxHealthIndex {
		return 0
	}
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health[param][index]
}
