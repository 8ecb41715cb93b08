package deviceclient

import (
	"fmt"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

// decodeMotionInfo decodes a GET_MOTION_WINDOW reply. The first byte selects
// the layout:
//
//	block: sensitivity, no-motion flag, no-motion duration (u16 BE), 198-byte grid
//	point: zone count, then per zone startX, startY, width, height (u16 BE each), sensitivity
func decodeMotionInfo(payload []byte) (models.MotionInfo, error) {
	var m models.MotionInfo
	d := protocol.NewDecoder(payload)
	method, err := d.ReadByte()
	if err != nil {
		return m, err
	}

	switch models.MotionMethod(method) {
	case models.MotionBlockMethod:
		m.Method = models.MotionBlockMethod
		if m.Sensitivity, err = d.ReadByte(); err != nil {
			return m, err
		}
		flag, err := d.ReadByte()
		if err != nil {
			return m, err
		}
		m.NoMotionEnabled = flag != 0
		if m.NoMotionDuration, err = d.ReadUint16BE(); err != nil {
			return m, err
		}
		grid, err := d.ReadBytes(models.MotionBlockBytes)
		if err != nil {
			return m, err
		}
		copy(m.Blocks[:], grid)

	case models.MotionPointMethod:
		m.Method = models.MotionPointMethod
		n, err := d.ReadByte()
		if err != nil {
			return m, err
		}
		if int(n) > models.MaxMotionZones {
			return m, fmt.Errorf("%w: %d motion zones", protocol.ErrMalformed, n)
		}
		m.Zones = make([]models.MotionZone, 0, n)
		for i := 0; i < int(n); i++ {
			var z models.MotionZone
			if z.StartX, err = d.ReadUint16BE(); err != nil {
				return m, err
			}
			if z.StartY, err = d.ReadUint16BE(); err != nil {
				return m, err
			}
			if z.Width, err = d.ReadUint16BE(); err != nil {
				return m, err
			}
			if z.Height, err = d.ReadUint16BE(); err != nil {
				return m, err
			}
			if z.Sensitivity, err = d.ReadByte(); err != nil {
				return m, err
			}
			m.Zones = append(m.Zones, z)
		}

	default:
		return m, fmt.Errorf("%w: motion method %d", protocol.ErrMalformed, method)
	}
	return m, nil
}

func (c *Client) storeMotionInfo(payload []byte) error {
	m, err := decodeMotionInfo(payload)
	if err != nil {
		return err
	}
	c.motionMu.Lock()
	c.motion = m
	c.motionMu.Unlock()
	return nil
}

// MotionInfo returns a copy of the last decoded motion window.
func (c *Client) MotionInfo() models.MotionInfo {
	c.motionMu.RLock()
	defer c.motionMu.RUnlock()
	m := c.motion
	m.Zones = append([]models.MotionZone(nil), c.motion.Zones...)
	return m
}
