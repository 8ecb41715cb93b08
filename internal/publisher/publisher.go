package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/redis"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/config"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// Stream entry kinds.
const (
	KindResponse  = "response"
	KindEvent     = "event"
	KindPopUp     = "popup"
	KindCfgUpdate = "cfg_update"
)

// MessagePublisher is the MQTT side of the publisher.
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Publisher forwards device client output to Redis Streams and MQTT.
type Publisher struct {
	config      *config.Config
	redisClient *redis.Client
	mqtt        MessagePublisher // nil disables the live-event topic
	logger      *zap.Logger
}

// NewPublisher creates a publisher. mqtt may be nil.
func NewPublisher(cfg *config.Config, redisClient *redis.Client, mqtt MessagePublisher, logger *zap.Logger) *Publisher {
	return &Publisher{
		config:      cfg,
		redisClient: redisClient,
		mqtt:        mqtt,
		logger:      logger,
	}
}

// PublishResponse appends a device response to the responses stream.
func (p *Publisher) PublishResponse(ctx context.Context, resp models.DeviceResponse) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, p.config.Streams.Responses, p.config.Streams.MaxLen, KindResponse, resp); err != nil {
		return fmt.Errorf("failed to publish response: %w", err)
	}
	return nil
}

type eventEntry struct {
	models.LiveEvent
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// PublishEvent appends a live event to the events stream and, when it is
// displayable, publishes it on <prefix><device>.
func (p *Publisher) PublishEvent(ctx context.Context, ev models.LiveEvent, display bool) error {
	entry := eventEntry{LiveEvent: ev, Display: display, Text: ev.Format()}
	if _, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, p.config.Streams.Events, p.config.Streams.MaxLen, KindEvent, entry); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if !display || p.mqtt == nil {
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	topic := p.config.Topics.EventPrefix + ev.DeviceName
	if err := p.mqtt.Publish(topic, 1, false, payload); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", topic, err)
	}
	return nil
}

// PublishPopUp appends a COSEC pop-up to the events stream.
func (p *Publisher) PublishPopUp(ctx context.Context, ev models.PopUpEvent) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, p.config.Streams.Events, p.config.Streams.MaxLen, KindPopUp, ev); err != nil {
		return fmt.Errorf("failed to publish pop-up: %w", err)
	}
	return nil
}

type cfgUpdateEntry struct {
	DeviceName string `json:"device_name"`
	models.RemoteDeviceUpdate
}

// PublishCfgUpdate appends a remote-device table slot to the responses stream.
func (p *Publisher) PublishCfgUpdate(ctx context.Context, device string, update models.RemoteDeviceUpdate) error {
	// passwords never leave the service
	update.Device.Config.Password = ""
	entry := cfgUpdateEntry{DeviceName: device, RemoteDeviceUpdate: update}
	if _, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, p.config.Streams.Responses, p.config.Streams.MaxLen, KindCfgUpdate, entry); err != nil {
		return fmt.Errorf("failed to publish cfg update: %w", err)
	}
	return nil
}

// HealthSnapshot is the cached health matrix of one device.
type HealthSnapshot struct {
	DeviceName string              `json:"device_name"`
	Status     models.HealthStatus `json:"status"`
	UpdatedAt  int64               `json:"updated_at"`
}

func (p *Publisher) healthKey(device string) string {
	return p.config.Cache.HealthPrefix + device
}

// CacheHealth stores the health matrix of device.
func (p *Publisher) CacheHealth(ctx context.Context, device string, status models.HealthStatus) error {
	data, err := json.Marshal(HealthSnapshot{DeviceName: device, Status: status, UpdatedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal health status: %w", err)
	}
	if err := p.redisClient.Set(ctx, p.healthKey(device), data, p.config.Cache.HealthTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache health status: %w", err)
	}
	return nil
}

// GetHealth reads back the cached health matrix of device.
func (p *Publisher) GetHealth(ctx context.Context, device string) (*HealthSnapshot, error) {
	val, err := p.redisClient.Get(ctx, p.healthKey(device)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("health status not found for device: %s", device)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}
	var snap HealthSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal health status: %w", err)
	}
	return &snap, nil
}

// DropHealth removes the cached matrix of a device that is gone.
func (p *Publisher) DropHealth(ctx context.Context, device string) error {
	return p.redisClient.Del(ctx, p.healthKey(device)).Err()
}
