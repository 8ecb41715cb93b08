package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// PushMessage is what the push gateway receives for one pop-up.
type PushMessage struct {
	MessageID string `json:"message_id"`
	Kind      string `json:"kind"`
	Device    string `json:"device"`
	Camera    int    `json:"camera"`
	UserName  string `json:"user_name,omitempty"`
	DateTime  string `json:"date_time"`
	Detail    string `json:"detail,omitempty"`
}

type pushResult struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// PushNotifier posts pop-up events to an HTTP push gateway.
type PushNotifier struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewPushNotifier creates a notifier for the gateway at baseURL.
func NewPushNotifier(baseURL string, timeout time.Duration, logger *zap.Logger) *PushNotifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &PushNotifier{
		httpClient: client,
		logger:     logger,
	}
}

// NotifyPopUp sends ev and returns the generated message id.
func (n *PushNotifier) NotifyPopUp(ctx context.Context, ev models.PopUpEvent) (string, error) {
	msg := PushMessage{
		MessageID: uuid.New().String(),
		Kind:      "video_popup",
		Device:    ev.DeviceName,
		Camera:    ev.Camera,
		UserName:  ev.UserName,
		DateTime:  ev.DateTime,
		Detail:    ev.Detail,
	}

	var result pushResult
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&result).
		Post("/push/popup")
	if err != nil {
		return "", fmt.Errorf("failed to call push gateway: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("push gateway returned HTTP %d", resp.StatusCode())
	}
	if result.Status != 0 {
		return "", fmt.Errorf("push gateway error: %s (status: %d)", result.Msg, result.Status)
	}

	n.logger.Debug("Pop-up pushed",
		zap.String("message_id", msg.MessageID),
		zap.String("device", ev.DeviceName),
		zap.Int("camera", ev.Camera),
	)
	return msg.MessageID, nil
}
