package deviceclient

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

type tableRange struct {
	records  int
	maxField int
}

func (c *Client) rangeOf(table models.ConfigTable) (tableRange, bool) {
	switch table {
	case models.TableGeneral:
		return tableRange{records: 1, maxField: models.GenFieldMax}, true
	case models.TableCamera:
		n := c.TableInfo().TotalCameras
		if n <= 0 || n > models.MaxCameras {
			n = models.MaxCameras
		}
		return tableRange{records: n, maxField: models.CamFieldMax}, true
	case models.TableNetworkDevice:
		return tableRange{records: models.MaxRemoteDevices, maxField: models.NetDevFieldMax}, true
	}
	return tableRange{}, false
}

// getCommonCfg fetches one mirrored table synchronously and stores it.
// isUpdateOnLiveEvent marks refreshes triggered by a config-change event.
func (c *Client) getCommonCfg(table models.ConfigTable, isUpdateOnLiveEvent bool) bool {
	log := c.logger.With(zap.Int("table", int(table)), zap.Bool("live_event", isUpdateOnLiveEvent))
	rng, ok := c.rangeOf(table)
	if !ok {
		log.Warn("Table is not mirrored")
		return false
	}
	info := c.requestInfo(models.DeviceRequest{
		RequestID: models.MsgGetCfg,
		Payload:   protocol.ConfigGetBody(table, 1, rng.records, 1, rng.maxField),
	})
	gr := c.factory.NewGenericRequest(c.serverInfo(), info, -1, nil)
	if gr == nil {
		log.Warn("Config fetch rejected", zap.Error(ErrResourceLimit))
		return false
	}
	payload, status := gr.GetBlockingRes()
	gr.Wait()
	if status != models.CmdSuccess {
		log.Warn("Config fetch failed", zap.Stringer("status", status))
		return false
	}

	got, records, err := protocol.ParseConfigReply(payload)
	if err == nil && got != table {
		err = fmt.Errorf("%w: reply for table %d", protocol.ErrMalformed, got)
	}
	if err == nil {
		switch table {
		case models.TableGeneral:
			err = c.storeGeneralCfg(records)
		case models.TableCamera:
			err = c.storeCamCfg(records)
		case models.TableNetworkDevice:
			err = c.storeRemoteDeviceCfg(records)
		}
	}
	if err != nil {
		log.Warn("Invalid config reply", zap.Error(err))
		return false
	}
	log.Debug("Config mirrored", zap.Int("records", len(records)))
	return true
}

// fieldReader collects the first conversion error of a record.
type fieldReader struct {
	rec protocol.ConfigRecord
	err error
}

func (r *fieldReader) str(f int, dst *string) {
	if v, ok := r.rec.Field(f); ok {
		*dst = v
	}
}

func (r *fieldReader) num(f int, dst *int) {
	v, ok := r.rec.Field(f)
	if !ok || r.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("%w: record %d field %d: %q", protocol.ErrMalformed, r.rec.Index, f, v)
		return
	}
	*dst = n
}

func (r *fieldReader) port(f int, dst *uint16) {
	n := int(*dst)
	r.num(f, &n)
	if r.err == nil {
		if n < 0 || n > 65535 {
			r.err = fmt.Errorf("%w: record %d port %d", protocol.ErrMalformed, r.rec.Index, n)
			return
		}
		*dst = uint16(n)
	}
}

func (r *fieldReader) flag(f int, dst *bool) {
	n := 0
	if *dst {
		n = 1
	}
	r.num(f, &n)
	*dst = n != 0
}

func (c *Client) storeGeneralCfg(records []protocol.ConfigRecord) error {
	next := c.GeneralConfig()
	for _, rec := range records {
		if rec.Index != 1 {
			continue
		}
		r := fieldReader{rec: rec}
		r.str(models.GenFieldDeviceName, &next.DeviceName)
		r.num(models.GenFieldDeviceNo, &next.DeviceNo)
		r.num(models.GenFieldFileRecordDuration, &next.FileRecordDuration)
		r.num(models.GenFieldHTTPPort, &next.HTTPPort)
		r.num(models.GenFieldTCPPort, &next.TCPPort)
		r.num(models.GenFieldVideoSystem, &next.VideoSystem)
		r.flag(models.GenFieldIntegrateCosec, &next.IntegrateCosec)
		r.num(models.GenFieldDateFormat, &next.DateFormat)
		r.num(models.GenFieldTimeFormat, &next.TimeFormat)
		r.num(models.GenFieldRecordFormat, &next.RecordFormat)
		r.flag(models.GenFieldAutoCloseRecFailAlert, &next.AutoCloseRecFailAlert)
		if r.err != nil {
			return r.err
		}
	}
	c.generalMu.Lock()
	c.general = next
	c.generalMu.Unlock()
	return nil
}

func (c *Client) storeCamCfg(records []protocol.ConfigRecord) error {
	c.cameraMu.RLock()
	next := c.cameras
	c.cameraMu.RUnlock()

	for _, rec := range records {
		idx, err := cameraIndex(rec.Index)
		if err != nil {
			return err
		}
		cam := next[idx]
		camType := int(cam.Type)
		r := fieldReader{rec: rec}
		r.flag(models.CamFieldEnabled, &cam.Enabled)
		r.str(models.CamFieldName, &cam.Name)
		r.num(models.CamFieldType, &camType)
		r.flag(models.CamFieldNameOSD, &cam.NameOSD)
		r.num(models.CamFieldNamePosition, &cam.NamePosition)
		r.flag(models.CamFieldStatusOSD, &cam.StatusOSD)
		r.num(models.CamFieldStatusPosition, &cam.StatusPosition)
		r.flag(models.CamFieldDateTimeOverlay, &cam.DateTimeOverlay)
		r.num(models.CamFieldDateTimePosition, &cam.DateTimePosition)
		if r.err != nil {
			return r.err
		}
		cam.Type = models.CameraType(camType)
		next[idx] = cam
	}

	c.cameraMu.Lock()
	for i := range next {
		// rights come from the banner, not from the table
		next[i].Rights = c.cameras[i].Rights
	}
	c.cameras = next
	c.cameraMu.Unlock()
	return nil
}

// storeRemoteDeviceCfg rebuilds the remote-device table and then reports
// every slot, flagging those that differ from the previous copy.
func (c *Client) storeRemoteDeviceCfg(records []protocol.ConfigRecord) error {
	var next [models.MaxRemoteDevices]models.RemoteDeviceConfig
	for _, rec := range records {
		if rec.Index < 1 || rec.Index > models.MaxRemoteDevices {
			return fmt.Errorf("%w: remote device slot %d", protocol.ErrMalformed, rec.Index)
		}
		var dev models.RemoteDeviceConfig
		mode, stream := 0, 0
		r := fieldReader{rec: rec}
		r.flag(models.NetDevFieldEnabled, &dev.Enabled)
		r.str(models.NetDevFieldName, &dev.Config.Name)
		r.num(models.NetDevFieldRegisterMode, &mode)
		r.str(models.NetDevFieldAddress, &dev.Config.IPAddress)
		r.port(models.NetDevFieldPort, &dev.Config.Port)
		r.str(models.NetDevFieldUsername, &dev.Config.Username)
		r.str(models.NetDevFieldPassword, &dev.Config.Password)
		r.flag(models.NetDevFieldAutoLogin, &dev.Config.AutoLogin)
		r.flag(models.NetDevFieldPreferNativeCredential, &dev.Config.PreferNativeCredential)
		r.num(models.NetDevFieldLiveStreamType, &stream)
		r.port(models.NetDevFieldForwardedTCPPort, &dev.Config.ForwardedTCPPort)
		if r.err != nil {
			return r.err
		}
		dev.Config.ConnectionType = models.ConnectionType(mode)
		dev.Config.LiveStreamType = models.LiveStreamType(stream)
		next[rec.Index-1] = dev
	}

	c.remoteMu.Lock()
	prev := c.remotes
	c.remotes = next
	c.remoteMu.Unlock()

	if c.listener == nil {
		return nil
	}
	name := c.name()
	for i := range next {
		c.listener.OnDeviceCfgUpdate(name, models.RemoteDeviceUpdate{
			Slot:    i,
			Device:  next[i],
			Changed: next[i] != prev[i],
		})
	}
	return nil
}
