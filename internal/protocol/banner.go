package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// SessionIDLen is the width of the session id at the start of every login banner.
const SessionIDLen = 10

type bannerField struct {
	offset int
	width  int
	ptr    func(*models.DeviceTableInfo) *int
}

// Offsets are wire-fixed; changing any of them breaks every deployed device.
var bannerLayout = []bannerField{
	{10, 2, func(t *models.DeviceTableInfo) *int { return &t.SoftwareVersion }},
	{12, 2, func(t *models.DeviceTableInfo) *int { return &t.SoftwareRevision }},
	{14, 2, func(t *models.DeviceTableInfo) *int { return &t.CommVersion }},
	{16, 2, func(t *models.DeviceTableInfo) *int { return &t.CommRevision }},
	{18, 3, func(t *models.DeviceTableInfo) *int { return &t.ResponseTimeSec }},
	{21, 3, func(t *models.DeviceTableInfo) *int { return &t.KLVTimeSec }},
	{24, 3, func(t *models.DeviceTableInfo) *int { return &t.TotalCameras }},
	{27, 3, func(t *models.DeviceTableInfo) *int { return &t.AnalogCameras }},
	{30, 3, func(t *models.DeviceTableInfo) *int { return &t.IPCameras }},
	{33, 2, func(t *models.DeviceTableInfo) *int { return &t.SensorInputs }},
	{35, 2, func(t *models.DeviceTableInfo) *int { return &t.AlarmOutputs }},
	{37, 2, func(t *models.DeviceTableInfo) *int { return &t.AudioInputs }},
	{39, 2, func(t *models.DeviceTableInfo) *int { return &t.AudioOutputs }},
	{41, 2, func(t *models.DeviceTableInfo) *int { return &t.HDDCount }},
	{43, 1, func(t *models.DeviceTableInfo) *int { return &t.LANCount }},
	{44, 4, func(t *models.DeviceTableInfo) *int { return &t.MainEncodingCapacity }},
	{48, 4, func(t *models.DeviceTableInfo) *int { return &t.SubEncodingCapacity }},
	{52, 1, func(t *models.DeviceTableInfo) *int { return &t.VideoStandard }},
	{53, 2, func(t *models.DeviceTableInfo) *int { return &t.ProductVariant }},
	{55, 2, func(t *models.DeviceTableInfo) *int { return &t.ProductSubRevision }},
	{57, 2, func(t *models.DeviceTableInfo) *int { return &t.DiskCheckingCount }},
}

// BannerLen is the width of the fixed part of the login banner.
const BannerLen = 59

// Banner is the decoded login reply payload.
type Banner struct {
	SessionID string
	Info      models.DeviceTableInfo
	Rights    []models.CameraRights
}

// ParseBanner decodes the fixed-width banner followed by
// FSP userGroup FSP rights FSP, where rights holds two hex digits per camera.
// TotalCameras is clamped to models.MaxCameras.
func ParseBanner(payload []byte) (Banner, error) {
	if len(payload) < BannerLen {
		return Banner{}, ErrShortRead
	}
	var b Banner
	b.SessionID = string(payload[:SessionIDLen])
	for _, f := range bannerLayout {
		raw := strings.TrimSpace(string(payload[f.offset : f.offset+f.width]))
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Banner{}, fmt.Errorf("%w: banner offset %d: %q", ErrMalformed, f.offset, raw)
		}
		*f.ptr(&b.Info) = v
	}
	if b.Info.TotalCameras > models.MaxCameras {
		b.Info.TotalCameras = models.MaxCameras
	}

	d := NewDecoder(payload[BannerLen:])
	if err := d.Expect(FSP); err != nil {
		return Banner{}, err
	}
	group, err := d.ReadInt()
	if err != nil {
		return Banner{}, err
	}
	b.Info.UserGroup = group
	rights, err := d.ReadField()
	if err != nil {
		return Banner{}, err
	}
	b.Rights, err = parseRights(rights, b.Info.TotalCameras)
	if err != nil {
		return Banner{}, err
	}
	return b, nil
}

func parseRights(hex string, cameras int) ([]models.CameraRights, error) {
	n := len(hex) / 2
	if n > cameras {
		n = cameras
	}
	out := make([]models.CameraRights, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: rights of camera %d", ErrMalformed, i+1)
		}
		out[i] = models.CameraRights(v)
	}
	return out, nil
}

// CompareCommVersion classifies the server's protocol version against the compiled-in one.
func CompareCommVersion(version, revision int) models.ConflictType {
	switch {
	case version > CommVersion || (version == CommVersion && revision > CommRevision):
		return models.ConflictServerNew
	case version < CommVersion || (version == CommVersion && revision < CommRevision):
		return models.ConflictServerOld
	default:
		return models.ConflictNone
	}
}
