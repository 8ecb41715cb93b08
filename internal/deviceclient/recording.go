package deviceclient

import (
	"bytes"
	"fmt"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

// recPriority returns the minute character of a record type bitmask.
// When several bits are set the highest priority wins.
func recPriority(recType int) byte {
	switch {
	case recType&models.RecTypeAlarm != 0:
		return models.RecAlarm
	case recType&models.RecTypeCosec != 0:
		return models.RecCosec
	case recType&models.RecTypeManual != 0:
		return models.RecManual
	case recType&models.RecTypeSchedule != 0:
		return models.RecSchedule
	}
	return models.RecNone
}

func cameraIndex(cam int) (int, error) {
	if cam < 1 || cam > models.MaxCameras {
		return 0, fmt.Errorf("%w: camera %d", protocol.ErrMalformed, cam)
	}
	return cam - 1, nil
}

// decodeRecStatusDay decodes
//
//	count FSP (camera FSP type FSP <180 bytes> FSP)* overlapCount FSP (camera FSP <flag> FSP)*
//
// into one 1441-character minute string per camera. Bit i of a grid is
// minute i, least significant bit first.
func decodeRecStatusDay(payload []byte) ([models.MaxCameras]string, error) {
	var out [models.MaxCameras]string
	var minutes [models.MaxCameras][]byte
	minute := func(idx int) []byte {
		if minutes[idx] == nil {
			minutes[idx] = bytes.Repeat([]byte{models.RecNone}, models.RecMinutesLen)
		}
		return minutes[idx]
	}

	d := protocol.NewDecoder(payload)
	count, err := d.ReadInt()
	if err != nil {
		return out, err
	}
	for r := 0; r < count; r++ {
		cam, err := d.ReadInt()
		if err != nil {
			return out, err
		}
		idx, err := cameraIndex(cam)
		if err != nil {
			return out, err
		}
		recType, err := d.ReadInt()
		if err != nil {
			return out, err
		}
		grid, err := d.ReadBytes(models.RecDayGridBytes)
		if err != nil {
			return out, err
		}
		if err := d.Expect(protocol.FSP); err != nil {
			return out, err
		}
		ch := recPriority(recType)
		if ch == models.RecNone {
			continue
		}
		m := minute(idx)
		for bit := 0; bit < models.MinutesPerDay; bit++ {
			if grid[bit/8]>>(bit%8)&1 == 1 && ch > m[bit] {
				m[bit] = ch
			}
		}
	}

	overlaps, err := d.ReadInt()
	if err != nil {
		return out, err
	}
	for o := 0; o < overlaps; o++ {
		cam, err := d.ReadInt()
		if err != nil {
			return out, err
		}
		idx, err := cameraIndex(cam)
		if err != nil {
			return out, err
		}
		flag, err := d.ReadByte()
		if err != nil {
			return out, err
		}
		if err := d.Expect(protocol.FSP); err != nil {
			return out, err
		}
		if flag == 1 {
			minute(idx)[models.RecOverlapOffset] = '1'
		}
	}

	empty := string(bytes.Repeat([]byte{models.RecNone}, models.RecMinutesLen))
	for i := range out {
		if minutes[i] == nil {
			out[i] = empty
		} else {
			out[i] = string(minutes[i])
		}
	}
	return out, nil
}

// storeRecStatusDay replaces every camera's minute string, or nothing on error.
func (c *Client) storeRecStatusDay(payload []byte) error {
	next, err := decodeRecStatusDay(payload)
	if err != nil {
		return err
	}
	c.recMu.Lock()
	c.recInMinutes = next
	c.recMu.Unlock()
	return nil
}

// storeRecStatusMonth stores the 4-byte big-endian day bitmask of a month.
func (c *Client) storeRecStatusMonth(payload []byte) error {
	v, err := protocol.NewDecoder(payload).ReadUint32BE()
	if err != nil {
		return err
	}
	c.recMu.Lock()
	c.recInMonth = uint64(v)
	c.recMu.Unlock()
	return nil
}

// RecInMinutes returns the minute string of camera index cam (0-based).
func (c *Client) RecInMinutes(cam int) string {
	if cam < 0 || cam >= models.MaxCameras {
		return ""
	}
	c.recMu.RLock()
	defer c.recMu.RUnlock()
	return c.recInMinutes[cam]
}

// RecInMonth returns the month bitmask; bit d-1 is day d.
func (c *Client) RecInMonth() uint64 {
	c.recMu.RLock()
	defer c.recMu.RUnlock()
	return c.recInMonth
}
