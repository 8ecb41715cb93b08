package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/config"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/deviceclient"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/request"
)

// ErrUnknownDevice is returned for requests to a device that is not managed.
var ErrUnknownDevice = errors.New("unknown device")

// Registry is the persistent device list.
type Registry interface {
	ListDevices(ctx context.Context) ([]models.DeviceConfig, error)
	UpdateCredentials(ctx context.Context, name, username, password string) error
	UpsertDevice(ctx context.Context, d models.DeviceConfig, enabled bool) error
}

// Sink receives everything the clients report.
type Sink interface {
	PublishResponse(ctx context.Context, resp models.DeviceResponse) error
	PublishEvent(ctx context.Context, ev models.LiveEvent, display bool) error
	PublishPopUp(ctx context.Context, ev models.PopUpEvent) error
	PublishCfgUpdate(ctx context.Context, device string, update models.RemoteDeviceUpdate) error
	CacheHealth(ctx context.Context, device string, status models.HealthStatus) error
	DropHealth(ctx context.Context, device string) error
}

// PopUpNotifier pushes COSEC pop-ups to operators.
type PopUpNotifier interface {
	NotifyPopUp(ctx context.Context, ev models.PopUpEvent) (string, error)
}

type managedDevice struct {
	client *deviceclient.Client
	cancel context.CancelFunc
}

// DeviceService runs one device client per managed NVR and bridges them to
// the registry, the publisher and the push gateway.
type DeviceService struct {
	config   *config.Config
	factory  request.Factory
	registry Registry
	sink     Sink
	notifier PopUpNotifier // nil disables push
	events   *deviceclient.EventList
	logger   *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	devices   map[string]*managedDevice
	nextIndex int
	// remoteSlots maps a NETWORK_DEVICE slot of the local NVR to the device name it held.
	remoteSlots map[int]string

	wg sync.WaitGroup
}

// NewDeviceService wires a service. notifier may be nil.
func NewDeviceService(cfg *config.Config, factory request.Factory, registry Registry, sink Sink, notifier PopUpNotifier, logger *zap.Logger) *DeviceService {
	return &DeviceService{
		config:      cfg,
		factory:     factory,
		registry:    registry,
		sink:        sink,
		notifier:    notifier,
		events:      deviceclient.NewEventList(cfg.DeviceClient.LiveEventCapacity),
		logger:      logger,
		devices:     make(map[string]*managedDevice),
		nextIndex:   1,
		remoteSlots: make(map[int]string),
	}
}

func (s *DeviceService) tunables() deviceclient.Tunables {
	dc := s.config.DeviceClient
	return deviceclient.Tunables{
		GenericPoolSize:   dc.GenericPoolSize,
		CommandPoolSize:   dc.CommandPoolSize,
		PwdRstPoolSize:    dc.PwdRstPoolSize,
		LoginTimeout:      dc.LoginTimeout,
		DefaultTimeout:    dc.DefaultTimeout,
		LocalStartupDelay: dc.LocalStartupDelay,
	}
}

// Start loads the registry, starts the local device and every registered
// remote device, and begins the auto-login loop. It does not block.
func (s *DeviceService) Start(ctx context.Context) error {
	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load devices: %w", err)
	}

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.addDevice(s.config.LocalDevice)
	for _, d := range devices {
		s.addDevice(d)
	}

	s.logger.Info("Device service started", zap.Int("devices", len(devices)+1))

	if interval := s.config.DeviceClient.AutoLoginInterval; interval > 0 {
		s.wg.Add(1)
		go s.autoLoginLoop(interval)
	}
	return nil
}

// Stop tears every client down and waits for their owner goroutines.
func (s *DeviceService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping device service")
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("device service stop: %w", ctx.Err())
	}
}

// addDevice creates and starts the client of d. It returns nil when the name
// is already managed or the service is not started.
func (s *DeviceService) addDevice(d models.DeviceConfig) *deviceclient.Client {
	s.mu.Lock()
	if s.ctx == nil {
		s.mu.Unlock()
		return nil
	}
	if _, ok := s.devices[d.Name]; ok {
		s.mu.Unlock()
		return nil
	}
	index := 0
	if !d.IsLocal() {
		index = s.nextIndex
		s.nextIndex++
	}
	client := deviceclient.New(index, d, deviceclient.Options{
		Factory:  s.factory,
		Listener: s,
		Events:   s.events,
		Logger:   s.logger,
		Tunables: s.tunables(),
	})
	ctx, cancel := context.WithCancel(s.ctx)
	s.devices[d.Name] = &managedDevice{client: client, cancel: cancel}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		client.Run(ctx)
	}()

	if d.AutoLogin {
		client.LoginToDevice()
	}
	return client
}

// removeDevice forgets name. Only the first call for a client has an effect.
func (s *DeviceService) removeDevice(name string) bool {
	s.mu.Lock()
	md, ok := s.devices[name]
	if ok {
		delete(s.devices, name)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	md.cancel()
	s.logger.Info("Device removed", zap.String("device", name))
	return true
}

// Client returns the client of name.
func (s *DeviceService) Client(name string) (*deviceclient.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.devices[name]
	if !ok {
		return nil, false
	}
	return md.client, true
}

// Devices lists the managed device names.
func (s *DeviceService) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.devices))
	for name := range s.devices {
		out = append(out, name)
	}
	return out
}

// Events returns the shared live-event list.
func (s *DeviceService) Events() *deviceclient.EventList {
	return s.events
}

// Dispatch implements consumer.Dispatcher.
func (s *DeviceService) Dispatch(device string, req models.DeviceRequest) error {
	client, ok := s.Client(device)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}

	if req.RequestID == models.MsgSetCmd && req.Command.IsRawResponse() {
		// binary-reply commands block until the device answers
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			client.ProcessDeviceRequest(req)
		}()
		return nil
	}

	var started bool
	switch {
	case req.RequestID == models.MsgLogin:
		started = client.LoginToDevice()
	case req.RequestID == models.MsgSetCmd && req.Command == models.CmdLogout:
		started = client.LogoutFromDevice(false)
	default:
		started = client.ProcessDeviceRequest(req)
	}
	if !started {
		s.logger.Debug("Request not started",
			zap.String("device", device),
			zap.Stringer("request_id", req.RequestID),
			zap.String("correlation_id", req.CorrelationID),
		)
	}
	return nil
}

func (s *DeviceService) autoLoginLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.retryLogins()
		}
	}
}

// retryLogins logs into every auto-login device that is disconnected with no
// login in flight.
func (s *DeviceService) retryLogins() int {
	s.mu.Lock()
	clients := make([]*deviceclient.Client, 0, len(s.devices))
	for _, md := range s.devices {
		clients = append(clients, md.client)
	}
	s.mu.Unlock()

	n := 0
	for _, c := range clients {
		if c.Exited() || c.IsDeleted() || !c.DeviceConfig().AutoLogin {
			continue
		}
		if c.ConnectionState() != models.StateDisconnected || c.SessionInfo().SessionID != "" {
			continue
		}
		if c.LoginToDevice() {
			n++
		}
	}
	if n > 0 {
		s.logger.Debug("Auto-login retried", zap.Int("devices", n))
	}
	return n
}

func (s *DeviceService) background() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *DeviceService) cacheHealth(name string) {
	client, ok := s.Client(name)
	if !ok {
		return
	}
	if err := s.sink.CacheHealth(s.background(), name, client.HealthStatus()); err != nil {
		s.logger.Warn("Failed to cache health status", zap.String("device", name), zap.Error(err))
	}
}

// OnDeviceResponse implements deviceclient.Listener.
func (s *DeviceService) OnDeviceResponse(deviceName string, resp models.DeviceResponse) {
	ctx := s.background()
	if err := s.sink.PublishResponse(ctx, resp); err != nil {
		s.logger.Warn("Failed to publish response", zap.String("device", deviceName), zap.Error(err))
	}

	switch {
	case resp.RequestID == models.MsgLogin && resp.Status == models.CmdSuccess:
		s.cacheHealth(deviceName)
	case resp.RequestID == models.MsgSetCmd && resp.Status == models.CmdSuccess &&
		(resp.Command == models.CmdChangePassword || resp.Command == models.CmdChangeUsername):
		s.persistCredentials(ctx, deviceName)
	}
}

func (s *DeviceService) persistCredentials(ctx context.Context, name string) {
	client, ok := s.Client(name)
	if !ok || client.DeviceConfig().IsLocal() {
		return
	}
	cfg := client.DeviceConfig()
	if err := s.registry.UpdateCredentials(ctx, name, cfg.Username, cfg.Password); err != nil {
		s.logger.Error("Failed to persist credentials", zap.String("device", name), zap.Error(err))
	}
}

// OnEvent implements deviceclient.Listener.
func (s *DeviceService) OnEvent(deviceName string, ev models.LiveEvent, display bool) {
	if err := s.sink.PublishEvent(s.background(), ev, display); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("device", deviceName), zap.Error(err))
	}
	s.cacheHealth(deviceName)
}

// OnPopUpEvent implements deviceclient.Listener.
func (s *DeviceService) OnPopUpEvent(deviceName string, ev models.PopUpEvent) {
	ctx := s.background()
	if err := s.sink.PublishPopUp(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish pop-up", zap.String("device", deviceName), zap.Error(err))
	}
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.notifier.NotifyPopUp(ctx, ev); err != nil {
			s.logger.Warn("Failed to push pop-up", zap.String("device", deviceName), zap.Error(err))
		}
	}()
}

// OnDeviceCfgUpdate implements deviceclient.Listener. Changed slots of the
// local NVR's remote-device table are applied to the registry and to the
// running clients.
func (s *DeviceService) OnDeviceCfgUpdate(deviceName string, update models.RemoteDeviceUpdate) {
	ctx := s.background()
	if err := s.sink.PublishCfgUpdate(ctx, deviceName, update); err != nil {
		s.logger.Warn("Failed to publish cfg update", zap.String("device", deviceName), zap.Error(err))
	}
	if deviceName != models.LocalDeviceName || !update.Changed {
		return
	}

	next := update.Device.Config
	s.mu.Lock()
	prev := s.remoteSlots[update.Slot]
	if update.Device.Enabled && next.Name != "" && !next.IsLocal() {
		s.remoteSlots[update.Slot] = next.Name
	} else {
		delete(s.remoteSlots, update.Slot)
	}
	s.mu.Unlock()

	if prev != "" && prev != next.Name {
		s.deleteDevice(prev)
	}
	if next.Name == "" || next.IsLocal() {
		return
	}
	if err := s.registry.UpsertDevice(ctx, next, update.Device.Enabled); err != nil {
		s.logger.Error("Failed to store remote device", zap.String("remote", next.Name), zap.Error(err))
	}
	if !update.Device.Enabled {
		s.deleteDevice(next.Name)
		return
	}
	if client, ok := s.Client(next.Name); ok {
		client.ChangeDeviceConfig(next)
		return
	}
	s.addDevice(next)
}

// deleteDevice marks the client deleted, logs it out and drops it.
func (s *DeviceService) deleteDevice(name string) {
	client, ok := s.Client(name)
	if !ok {
		return
	}
	client.SetDeleted()
	client.LogoutFromDevice(false)
	s.events.Flush(name)
	s.removeDevice(name)
	if err := s.sink.DropHealth(s.background(), name); err != nil {
		s.logger.Warn("Failed to drop health cache", zap.String("device", name), zap.Error(err))
	}
}

// OnDeleteStreamRequest implements deviceclient.Listener.
func (s *DeviceService) OnDeleteStreamRequest(deviceName string) {
	s.logger.Info("Closing device streams", zap.String("device", deviceName))
	if err := s.sink.DropHealth(s.background(), deviceName); err != nil {
		s.logger.Warn("Failed to drop health cache", zap.String("device", deviceName), zap.Error(err))
	}
}

// OnExitThread implements deviceclient.Listener.
func (s *DeviceService) OnExitThread(deviceName string) {
	s.removeDevice(deviceName)
}
