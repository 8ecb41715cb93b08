package deviceclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

func remoteRecord(index int, port string) protocol.ConfigRecord {
	return protocol.ConfigRecord{Index: index, Fields: map[int]string{
		models.NetDevFieldEnabled:   "1",
		models.NetDevFieldName:      "warehouse",
		models.NetDevFieldAddress:   "10.0.0.9",
		models.NetDevFieldPort:      port,
		models.NetDevFieldUsername:  "viewer",
		models.NetDevFieldPassword:  "secret",
		models.NetDevFieldAutoLogin: "1",
	}}
}

func changedSlots(updates []models.RemoteDeviceUpdate) []int {
	var out []int
	for _, u := range updates {
		if u.Changed {
			out = append(out, u.Slot)
		}
	}
	return out
}

func TestStoreRemoteDeviceCfgFlagsChanges(t *testing.T) {
	local := models.DeviceConfig{Name: models.LocalDeviceName, IPAddress: "127.0.0.1", Port: 8000}
	c, rec := newTestClient(t, local, newFakeFactory(), Tunables{})

	require.NoError(t, c.storeRemoteDeviceCfg([]protocol.ConfigRecord{remoteRecord(2, "8000")}))
	require.Len(t, rec.cfgUpdates, models.MaxRemoteDevices)
	assert.Equal(t, []int{1}, changedSlots(rec.cfgUpdates))
	assert.Equal(t, "warehouse", rec.cfgUpdates[1].Device.Config.Name)
	assert.Equal(t, uint16(8000), rec.cfgUpdates[1].Device.Config.Port)
	assert.True(t, rec.cfgUpdates[1].Device.Config.AutoLogin)

	rec.cfgUpdates = nil
	require.NoError(t, c.storeRemoteDeviceCfg([]protocol.ConfigRecord{remoteRecord(2, "8000")}))
	assert.Empty(t, changedSlots(rec.cfgUpdates))

	rec.cfgUpdates = nil
	require.NoError(t, c.storeRemoteDeviceCfg([]protocol.ConfigRecord{remoteRecord(2, "8001")}))
	assert.Equal(t, []int{1}, changedSlots(rec.cfgUpdates))
	assert.Equal(t, uint16(8001), c.RemoteDevices()[1].Config.Port)
}

func TestStoreRemoteDeviceCfgRejectsBadRecords(t *testing.T) {
	c, rec := newTestClient(t, remoteConfig(), newFakeFactory(), Tunables{})
	require.NoError(t, c.storeRemoteDeviceCfg([]protocol.ConfigRecord{remoteRecord(1, "8000")}))
	rec.cfgUpdates = nil

	assert.ErrorIs(t, c.storeRemoteDeviceCfg([]protocol.ConfigRecord{remoteRecord(models.MaxRemoteDevices+1, "8000")}), protocol.ErrMalformed)
	assert.ErrorIs(t, c.storeRemoteDeviceCfg([]protocol.ConfigRecord{remoteRecord(1, "70000")}), protocol.ErrMalformed)
	assert.Empty(t, rec.cfgUpdates)
	assert.Equal(t, uint16(8000), c.RemoteDevices()[0].Config.Port)
}

func TestStoreCamCfgPreservesRights(t *testing.T) {
	f := newFakeFactory()
	c, _ := newTestClient(t, remoteConfig(), f, Tunables{})
	loginOK(t, c, f, nil)
	require.Equal(t, models.RightMonitor|models.RightVideoPopUp, c.CameraRights(0))

	require.NoError(t, c.storeCamCfg([]protocol.ConfigRecord{
		{Index: 1, Fields: map[int]string{models.CamFieldEnabled: "1", models.CamFieldName: "Gate", models.CamFieldType: "1"}},
	}))
	info, ok := c.CameraInfo(0)
	require.True(t, ok)
	assert.Equal(t, "Gate", info.Name)
	assert.True(t, info.Enabled)
	assert.Equal(t, models.CameraType(1), info.Type)
	assert.Equal(t, models.RightMonitor|models.RightVideoPopUp, info.Rights)
}

func TestStoreCamCfgMalformedKeepsState(t *testing.T) {
	c, _ := newTestClient(t, remoteConfig(), newFakeFactory(), Tunables{})
	require.NoError(t, c.storeCamCfg([]protocol.ConfigRecord{{Index: 1, Fields: map[int]string{models.CamFieldName: "Gate"}}}))

	err := c.storeCamCfg([]protocol.ConfigRecord{
		{Index: 1, Fields: map[int]string{models.CamFieldName: "Lobby"}},
		{Index: 2, Fields: map[int]string{models.CamFieldType: "abc"}},
	})
	assert.ErrorIs(t, err, protocol.ErrMalformed)
	assert.Equal(t, "Gate", c.CameraName(0))
}

func TestGetCommonCfg(t *testing.T) {
	f := newFakeFactory()
	f.cfgReplies[models.TableGeneral] = protocol.EncodeConfigRecords(models.TableGeneral, []protocol.ConfigRecord{
		{Index: 1, Fields: map[int]string{models.GenFieldDeviceName: "HQ", models.GenFieldTCPPort: "8000", models.GenFieldIntegrateCosec: "1"}},
	})
	f.cfgReplies[models.TableCamera] = protocol.EncodeConfigRecords(models.TableGeneral, nil)
	c, _ := newTestClient(t, remoteConfig(), f, Tunables{})

	require.True(t, c.getCommonCfg(models.TableGeneral, false))
	g := c.GeneralConfig()
	assert.Equal(t, "HQ", g.DeviceName)
	assert.Equal(t, 8000, g.TCPPort)
	assert.True(t, g.IntegrateCosec)

	assert.False(t, c.getCommonCfg(models.TableCamera, false), "reply for another table")
	assert.False(t, c.getCommonCfg(models.TableNetworkDevice, false), "device error")
	assert.False(t, c.getCommonCfg(models.ConfigTable(99), false))
	assert.Empty(t, f.generics, "mirror fetches do not use pool slots")
}
