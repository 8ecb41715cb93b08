package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol/devicetest"
)

func sampleInfo() models.DeviceTableInfo {
	return models.DeviceTableInfo{
		SoftwareVersion:      7,
		SoftwareRevision:     3,
		CommVersion:          protocol.CommVersion,
		CommRevision:         protocol.CommRevision,
		ResponseTimeSec:      30,
		KLVTimeSec:           120,
		TotalCameras:         16,
		AnalogCameras:        8,
		IPCameras:            8,
		SensorInputs:         4,
		AlarmOutputs:         2,
		AudioInputs:          1,
		AudioOutputs:         1,
		HDDCount:             2,
		LANCount:             2,
		MainEncodingCapacity: 1920,
		SubEncodingCapacity:  480,
		VideoStandard:        1,
		ProductVariant:       12,
		ProductSubRevision:   4,
		DiskCheckingCount:    0,
		UserGroup:            1,
	}
}

func TestBannerRoundTrip(t *testing.T) {
	in := protocol.Banner{
		SessionID: "0000001234",
		Info:      sampleInfo(),
		Rights:    []models.CameraRights{models.RightMonitor, models.RightMonitor | models.RightVideoPopUp},
	}
	raw := devicetest.EncodeBanner(in)
	assert.Equal(t, protocol.FSP, raw[protocol.BannerLen])

	out, err := protocol.ParseBanner(raw)
	require.NoError(t, err)
	assert.Equal(t, in.SessionID, out.SessionID)
	assert.Equal(t, in.Info, out.Info)
	assert.Equal(t, in.Rights, out.Rights)
}

func TestBannerFixedOffsets(t *testing.T) {
	raw := devicetest.EncodeBanner(protocol.Banner{SessionID: "ABCDEFGHIJ", Info: sampleInfo()})
	assert.Equal(t, "ABCDEFGHIJ", string(raw[0:10]))
	assert.Equal(t, "07", string(raw[10:12]))
	assert.Equal(t, "030", string(raw[18:21]))
	assert.Equal(t, "016", string(raw[24:27]))
	assert.Equal(t, "1920", string(raw[44:48]))
	assert.Equal(t, "00", string(raw[57:59]))
}

func TestBannerClampsCameraCount(t *testing.T) {
	info := sampleInfo()
	info.TotalCameras = 128
	out, err := protocol.ParseBanner(devicetest.EncodeBanner(protocol.Banner{SessionID: "1", Info: info}))
	require.NoError(t, err)
	assert.Equal(t, models.MaxCameras, out.Info.TotalCameras)
}

func TestBannerRightsLimitedToCameraCount(t *testing.T) {
	info := sampleInfo()
	info.TotalCameras = 1
	rights := []models.CameraRights{models.RightMonitor, models.RightPTZ}
	out, err := protocol.ParseBanner(devicetest.EncodeBanner(protocol.Banner{SessionID: "1", Info: info, Rights: rights}))
	require.NoError(t, err)
	assert.Equal(t, rights[:1], out.Rights)
}

func TestBannerShortOrMalformed(t *testing.T) {
	raw := devicetest.EncodeBanner(protocol.Banner{SessionID: "1", Info: sampleInfo()})

	_, err := protocol.ParseBanner(raw[:protocol.BannerLen-1])
	assert.ErrorIs(t, err, protocol.ErrShortRead)

	_, err = protocol.ParseBanner(raw[:protocol.BannerLen])
	assert.ErrorIs(t, err, protocol.ErrShortRead)

	bad := append([]byte(nil), raw...)
	bad[25] = 'x'
	_, err = protocol.ParseBanner(bad)
	assert.ErrorIs(t, err, protocol.ErrMalformed)
}

func TestCompareCommVersion(t *testing.T) {
	v, r := protocol.CommVersion, protocol.CommRevision
	assert.Equal(t, models.ConflictNone, protocol.CompareCommVersion(v, r))
	assert.Equal(t, models.ConflictServerNew, protocol.CompareCommVersion(v+1, 0))
	assert.Equal(t, models.ConflictServerNew, protocol.CompareCommVersion(v, r+1))
	assert.Equal(t, models.ConflictServerOld, protocol.CompareCommVersion(v-1, 99))
	assert.Equal(t, models.ConflictServerOld, protocol.CompareCommVersion(v, r-1))
}
