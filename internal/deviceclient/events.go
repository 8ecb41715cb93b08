package deviceclient

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

// eventAction is what one live event does to the client.
type eventAction struct {
	health      bool
	param       models.HealthParam
	index       int
	value       uint8
	retain      bool
	popUp       bool // COSEC pop-up, reported through OnPopUpEvent only
	refresh     bool
	refreshWhat models.ConfigTable
}

// active is 1 for states meaning "condition present".
func active(s models.EventState) uint8 {
	switch s {
	case models.EventActive, models.EventStart, models.EventAlert, models.EventFail:
		return 1
	}
	return 0
}

var cameraHealthParams = map[models.EventSubType]models.HealthParam{
	models.LogMotionDetection:  models.HealthMotionDetection,
	models.LogViewTampering:    models.HealthViewTampering,
	models.LogCameraSensor1:    models.HealthCameraSensor1,
	models.LogCameraSensor2:    models.HealthCameraSensor2,
	models.LogCameraSensor3:    models.HealthCameraSensor3,
	models.LogCameraAlarm1:     models.HealthCameraAlarm1,
	models.LogCameraAlarm2:     models.HealthCameraAlarm2,
	models.LogCameraAlarm3:     models.HealthCameraAlarm3,
	models.LogLineCrossing:     models.HealthLineCrossing,
	models.LogObjectIntrusion:  models.HealthObjectIntrusion,
	models.LogAudioException:   models.HealthAudioException,
	models.LogMissingObject:    models.HealthMissingObject,
	models.LogSuspiciousObject: models.HealthSuspiciousObject,
	models.LogLoitering:        models.HealthLoitering,
	models.LogObjectCounting:   models.HealthObjectCounting,
	models.LogNoMotion:         models.HealthNoMotion,
}

var recordingHealthParams = map[models.EventSubType]models.HealthParam{
	models.LogManualRecording:   models.HealthManualRecording,
	models.LogAlarmRecording:    models.HealthAlarmRecording,
	models.LogScheduleRecording: models.HealthScheduleRecording,
}

var watchedTables = map[models.ConfigTable]bool{
	models.TableGeneral:       true,
	models.TableCamera:        true,
	models.TableNetworkDevice: true,
}

// entityIndex converts the 1-based entity number in detail to a matrix
// index, or -1 when detail is not a valid entity number.
func entityIndex(detail string) int {
	n, err := strconv.Atoi(detail)
	if err != nil || n < 1 {
		return -1
	}
	return n - 1
}

// classifyEvent decides health update, retention and side effects of ev.
// rights gates video pop-ups by camera index.
func classifyEvent(ev models.LiveEvent, rights func(int) models.CameraRights) eventAction {
	idx := entityIndex(ev.Detail)
	a := eventAction{retain: true}

	switch ev.Type {
	case models.LogCameraEvent:
		if p, ok := cameraHealthParams[ev.SubType]; ok {
			a = eventAction{health: true, param: p, index: idx, value: active(ev.State), retain: ev.State == models.EventActive}
			break
		}
		if p, ok := recordingHealthParams[ev.SubType]; ok {
			on := uint8(0)
			if ev.State == models.EventStart {
				on = 1
			}
			a = eventAction{health: true, param: p, index: idx, value: on, retain: ev.State == models.EventFail}
			break
		}
		switch ev.SubType {
		case models.LogConnectivity:
			on := uint8(0)
			if ev.State == models.EventConnect {
				on = 1
			}
			a = eventAction{health: true, param: models.HealthCameraConnectivity, index: idx, value: on, retain: ev.State == models.EventDisconnect}
		case models.LogPresetTour:
			a = eventAction{health: true, param: models.HealthPresetTour, index: idx, value: active(ev.State)}
		case models.LogVideoPopUp:
			a.retain = idx >= 0 && rights(idx).Has(models.RightMonitor|models.RightVideoPopUp)
		}

	case models.LogSensorEvent:
		if ev.SubType == models.LogSensorInput {
			a = eventAction{health: true, param: models.HealthSensorInput, index: idx, value: active(ev.State), retain: ev.State == models.EventActive}
		}

	case models.LogAlarmEvent:
		if ev.SubType == models.LogAlarmOutput {
			a = eventAction{health: true, param: models.HealthAlarmOutput, index: idx, value: active(ev.State), retain: ev.State == models.EventActive}
		}

	case models.LogSystemEvent:
		switch ev.SubType {
		case models.LogMainsException:
			fail := uint8(0)
			if ev.State == models.EventFail {
				fail = 1
			}
			a = eventAction{health: true, param: models.HealthMainsStatus, value: fail, retain: ev.State == models.EventFail}
		case models.LogScheduleBackup, models.LogManualBackup:
			p := models.HealthScheduleBackup
			if ev.SubType == models.LogManualBackup {
				p = models.HealthManualBackup
			}
			a = eventAction{health: true, param: p, value: backupStatus(ev.State), retain: ev.State != models.EventComplete}
		case models.LogBuzzerStatus:
			a = eventAction{health: true, param: models.HealthBuzzer, value: active(ev.State)}
		}

	case models.LogStorageEvent:
		switch ev.SubType {
		case models.LogHDDStatus:
			a = eventAction{health: true, param: models.HealthDiskStatus, index: idx, value: uint8(ev.State), retain: ev.State != models.EventNormal}
		case models.LogUSBStatus:
			on := uint8(0)
			if ev.State == models.EventConnect {
				on = 1
			}
			a = eventAction{health: true, param: models.HealthUSBStatus, value: on, retain: ev.State == models.EventFail}
		}

	case models.LogCosecEvent:
		switch ev.SubType {
		case models.LogCosecRecording:
			on := uint8(0)
			if ev.State == models.EventStart {
				on = 1
			}
			a = eventAction{health: true, param: models.HealthCosecRecording, index: idx, value: on, retain: ev.State == models.EventFail}
		case models.LogCosecVideoPopUp:
			a = eventAction{popUp: idx >= 0 && rights(idx).Has(models.RightMonitor|models.RightVideoPopUp)}
		}

	case models.LogUserEvent:
		if ev.SubType == models.LogConfigChange {
			a = eventAction{}
			if table, err := strconv.Atoi(ev.Detail); err == nil && watchedTables[models.ConfigTable(table)] {
				a.refresh = true
				a.refreshWhat = models.ConfigTable(table)
			}
		}
	}
	return a
}

func backupStatus(s models.EventState) uint8 {
	switch s {
	case models.EventStart:
		return 1
	case models.EventFail, models.EventIncomplete:
		return 2
	}
	return 0
}

// parseEventRecord decodes index FSP datetime FSP type FSP subtype FSP detail FSP state FSP adv FSP.
func parseEventRecord(device string, group []byte) (models.LiveEvent, error) {
	d := protocol.NewDecoder(group)
	ev := models.LiveEvent{DeviceName: device}
	var err error
	if ev.Index, err = d.ReadInt(); err != nil {
		return ev, err
	}
	if ev.DateTime, err = d.ReadField(); err != nil {
		return ev, err
	}
	typ, err := d.ReadInt()
	if err != nil {
		return ev, err
	}
	sub, err := d.ReadInt()
	if err != nil {
		return ev, err
	}
	if ev.Detail, err = d.ReadField(); err != nil {
		return ev, err
	}
	state, err := d.ReadInt()
	if err != nil {
		return ev, err
	}
	if ev.AdvancedDetail, err = d.ReadField(); err != nil {
		return ev, err
	}
	ev.Type = models.EventType(typ)
	ev.SubType = models.EventSubType(sub)
	ev.State = models.EventState(state)
	return ev, nil
}

// parseLiveEvents decodes every record or none.
func parseLiveEvents(device string, payload []byte) ([]models.LiveEvent, error) {
	groups, err := protocol.SplitGroups(payload)
	if err != nil {
		return nil, err
	}
	out := make([]models.LiveEvent, 0, len(groups))
	for i, g := range groups {
		ev, err := parseEventRecord(device, g)
		if err != nil {
			return nil, fmt.Errorf("event record %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// processLiveEvents applies a REQ_EVT payload: health first, then retention,
// then notification. A malformed payload is dropped as a whole.
func (c *Client) processLiveEvents(payload []byte) {
	name := c.name()
	events, err := parseLiveEvents(name, payload)
	if err != nil {
		c.logger.Warn("Dropping malformed live events", zap.Error(err))
		return
	}
	for _, ev := range events {
		a := classifyEvent(ev, c.CameraRights)
		if a.health {
			c.setHealth(a.param, a.index, a.value)
		}
		if a.refresh {
			c.getCommonCfg(a.refreshWhat, true)
		}
		if ev.Type == models.LogCosecEvent && ev.SubType == models.LogCosecVideoPopUp {
			if a.popUp && c.listener != nil {
				c.listener.OnPopUpEvent(name, models.PopUpEvent{
					DeviceName: name,
					Camera:     entityIndex(ev.Detail) + 1,
					UserName:   ev.AdvancedDetail,
					DateTime:   ev.DateTime,
					Detail:     ev.Detail,
				})
			}
			continue
		}
		if a.retain {
			if c.events.Push(ev) {
				c.logger.Debug("Live-event list full, oldest dropped")
			}
		}
		if c.listener != nil {
			c.listener.OnEvent(name, ev, a.retain)
		}
	}
}
