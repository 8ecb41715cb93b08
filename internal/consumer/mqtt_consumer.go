package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqttcommon "github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/mqtt"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

// Subscriber is the MQTT side the consumer needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// Dispatcher hands a request to the client of device.
type Dispatcher interface {
	Dispatch(device string, req models.DeviceRequest) error
}

// requestMessage is the JSON body published on nvr/<device>/request.
// Commands may be given by wire name instead of number. A SET_CFG request may
// carry table and records instead of a ready-made payload.
type requestMessage struct {
	models.DeviceRequest
	CommandName string             `json:"command_name,omitempty"`
	Table       models.ConfigTable `json:"table,omitempty"`
	Records     []configRecord     `json:"records,omitempty"`
}

type configRecord struct {
	Index  int            `json:"index"`
	Fields map[int]string `json:"fields"`
}

// MQTTConsumer routes application requests from MQTT to device clients.
type MQTTConsumer struct {
	topic      string
	qos        byte
	subscriber Subscriber
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewMQTTConsumer creates a consumer for topic, e.g. "nvr/+/request".
func NewMQTTConsumer(topic string, qos byte, subscriber Subscriber, dispatcher Dispatcher, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		topic:      topic,
		qos:        qos,
		subscriber: subscriber,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start subscribes and blocks until ctx is done.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.subscriber.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to request topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.topic),
	)

	<-ctx.Done()
	return nil
}

// Stop unsubscribes.
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage decodes one request. Topic format: <root>/<device>/request.
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	device := parts[1]

	var msg requestMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}

	req := msg.DeviceRequest
	if msg.CommandName != "" {
		cmd, ok := models.ParseCommandType(msg.CommandName)
		if !ok {
			return fmt.Errorf("unknown command: %s", msg.CommandName)
		}
		req.RequestID = models.MsgSetCmd
		req.Command = cmd
	}
	if len(msg.Records) > 0 {
		if req.RequestID != models.MsgSetCfg {
			return fmt.Errorf("records given for %s request", req.RequestID)
		}
		records := make([]protocol.ConfigRecord, 0, len(msg.Records))
		for _, r := range msg.Records {
			records = append(records, protocol.ConfigRecord{Index: r.Index, Fields: r.Fields})
		}
		req.Payload = string(protocol.EncodeConfigRecords(msg.Table, records))
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.New().String()
	}

	if err := c.dispatcher.Dispatch(device, req); err != nil {
		c.logger.Warn("Request not dispatched",
			zap.String("device", device),
			zap.Stringer("request_id", req.RequestID),
			zap.String("correlation_id", req.CorrelationID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to dispatch request to %s: %w", device, err)
	}
	return nil
}
