package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	rediscommon "github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/redis"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/config"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

type published struct {
	topic   string
	payload []byte
}

type fakeMQTT struct {
	messages []published
	err      error
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{topic: topic, payload: payload})
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Streams.Responses = "nvr:responses"
	cfg.Streams.Events = "nvr:events"
	cfg.Topics.EventPrefix = "nvr/events/"
	cfg.Cache.HealthPrefix = "nvr:health:"
	cfg.Cache.HealthTTL = time.Minute
	return cfg
}

func setupPublisher(t *testing.T) (*Publisher, *redis.Client, *miniredis.Miniredis, *fakeMQTT) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mq := &fakeMQTT{}
	return NewPublisher(testConfig(), client, mq, zap.NewNop()), client, mr, mq
}

func TestPublishResponse(t *testing.T) {
	p, client, _, _ := setupPublisher(t)
	ctx := context.Background()

	resp := models.DeviceResponse{DeviceName: "branch-nvr", RequestID: models.MsgSetCmd, Command: models.CmdClearBuzzer, Status: models.CmdSuccess, WindowID: 4}
	require.NoError(t, p.PublishResponse(ctx, resp))

	msgs, err := rediscommon.ReadRange(ctx, client, "nvr:responses", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, KindResponse, msgs[0].Values["kind"])

	var got models.DeviceResponse
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &got))
	assert.Equal(t, resp, got)
}

func TestPublishEventOnlyDisplayableGoesToMQTT(t *testing.T) {
	p, client, _, mq := setupPublisher(t)
	ctx := context.Background()

	ev := models.LiveEvent{DeviceName: "branch-nvr", Type: models.LogCameraEvent, SubType: models.LogMotionDetection, Detail: "1", State: models.EventActive}
	require.NoError(t, p.PublishEvent(ctx, ev, true))
	require.NoError(t, p.PublishEvent(ctx, ev, false))

	msgs, err := rediscommon.ReadRange(ctx, client, "nvr:events", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	require.Len(t, mq.messages, 1)
	assert.Equal(t, "nvr/events/branch-nvr", mq.messages[0].topic)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(mq.messages[0].payload, &entry))
	assert.Equal(t, true, entry["display"])
	assert.Equal(t, ev.Format(), entry["text"])
}

func TestPublishEventMQTTError(t *testing.T) {
	p, _, _, mq := setupPublisher(t)
	mq.err = errors.New("broker gone")

	err := p.PublishEvent(context.Background(), models.LiveEvent{DeviceName: "x"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nvr/events/x")
}

func TestPublishCfgUpdateHidesPassword(t *testing.T) {
	p, client, _, _ := setupPublisher(t)
	ctx := context.Background()

	update := models.RemoteDeviceUpdate{Slot: 2, Changed: true, Device: models.RemoteDeviceConfig{
		Enabled: true,
		Config:  models.DeviceConfig{Name: "warehouse", Username: "viewer", Password: "secret"},
	}}
	require.NoError(t, p.PublishCfgUpdate(ctx, models.LocalDeviceName, update))

	msgs, err := rediscommon.ReadRange(ctx, client, "nvr:responses", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, KindCfgUpdate, msgs[0].Values["kind"])
	assert.NotContains(t, msgs[0].Values["data"], "secret")
	assert.Contains(t, msgs[0].Values["data"], `"slot":2`)
}

func TestPublishPopUp(t *testing.T) {
	p, client, _, _ := setupPublisher(t)
	ctx := context.Background()

	require.NoError(t, p.PublishPopUp(ctx, models.PopUpEvent{DeviceName: "branch-nvr", Camera: 3, UserName: "guard"}))
	msgs, err := rediscommon.ReadRange(ctx, client, "nvr:events", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, KindPopUp, msgs[0].Values["kind"])
}

func TestHealthCache(t *testing.T) {
	p, _, mr, _ := setupPublisher(t)
	ctx := context.Background()

	var hs models.HealthStatus
	hs[models.HealthMotionDetection][2] = 1
	require.NoError(t, p.CacheHealth(ctx, "branch-nvr", hs))
	assert.True(t, mr.Exists("nvr:health:branch-nvr"))
	assert.Equal(t, time.Minute, mr.TTL("nvr:health:branch-nvr"))

	snap, err := p.GetHealth(ctx, "branch-nvr")
	require.NoError(t, err)
	assert.Equal(t, hs, snap.Status)

	require.NoError(t, p.DropHealth(ctx, "branch-nvr"))
	_, err = p.GetHealth(ctx, "branch-nvr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
