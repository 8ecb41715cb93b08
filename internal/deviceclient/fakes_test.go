package deviceclient

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol/devicetest"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/request"
)

// fakeFactory records every request object and answers blocking calls from canned replies.
type fakeFactory struct {
	mu        sync.Mutex
	forwarded bool
	hold      bool
	refuse    bool

	cfgReplies  map[models.ConfigTable][]byte
	cfgFetches  []models.ConfigTable
	healthReply []byte
	rawReplies  map[models.CommandType][]byte

	connects []*fakeConnect
	generics []*fakeGeneric
	commands []*fakeCommand
	pwdRsts  []*fakePwdRst
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		cfgReplies: make(map[models.ConfigTable][]byte),
		rawReplies: make(map[models.CommandType][]byte),
	}
}

func (f *fakeFactory) setForwarded(v bool) {
	f.mu.Lock()
	f.forwarded = v
	f.mu.Unlock()
}

func (f *fakeFactory) isForwarded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forwarded
}

func (f *fakeFactory) lastConnect() *fakeConnect {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.connects) == 0 {
		return nil
	}
	return f.connects[len(f.connects)-1]
}

func (f *fakeFactory) NewConnectRequest(server request.ServerInfo, info request.Info, autoLogin bool, connType models.ConnectionType, slot int, done request.Done) request.ConnectRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return nil
	}
	fc := &fakeConnect{factory: f, server: server, info: info, slot: slot, done: done, run: true}
	f.connects = append(f.connects, fc)
	return fc
}

func (f *fakeFactory) NewGenericRequest(server request.ServerInfo, info request.Info, slot int, done request.Done) request.GenericRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return nil
	}
	g := &fakeGeneric{factory: f, server: server, info: info, slot: slot, done: done}
	if slot >= 0 {
		f.generics = append(f.generics, g)
	}
	return g
}

func (f *fakeFactory) NewCommandRequest(server request.ServerInfo, info request.Info, cmd models.CommandType, slot int, done request.Done) request.CommandRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return nil
	}
	c := &fakeCommand{factory: f, server: server, info: info, cmd: cmd, slot: slot, done: done}
	if slot >= 0 {
		f.commands = append(f.commands, c)
	}
	return c
}

func (f *fakeFactory) NewPasswordResetRequest(server request.ServerInfo, info request.Info, cmd models.PwdRstCommand, slot int, done request.Done) request.PasswordResetRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return nil
	}
	p := &fakePwdRst{factory: f, info: info, cmd: cmd, slot: slot, done: done}
	f.pwdRsts = append(f.pwdRsts, p)
	return p
}

type fakeConnect struct {
	factory *fakeFactory
	server  request.ServerInfo
	info    request.Info
	slot    int
	done    request.Done

	mu      sync.Mutex
	started bool
	run     bool
	polls   []bool
}

func (r *fakeConnect) Start() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
}

func (r *fakeConnect) Wait() {}

func (r *fakeConnect) SetRunFlag(run bool) {
	r.mu.Lock()
	r.run = run
	r.mu.Unlock()
}

func (r *fakeConnect) SetPollFlag(poll bool) {
	r.mu.Lock()
	r.polls = append(r.polls, poll)
	r.mu.Unlock()
}

func (r *fakeConnect) ForwardedPortActive() bool { return r.factory.isForwarded() }

func (r *fakeConnect) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run
}

func (r *fakeConnect) pollFlags() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.polls...)
}

// complete reports a connect-loop result the way the real object would.
func (r *fakeConnect) complete(id models.RequestID, status models.DeviceReply, payload []byte) {
	r.done(request.Response{Kind: request.KindConnect, Slot: r.slot, RequestID: id, Status: status, Payload: payload})
}

type fakeGeneric struct {
	factory *fakeFactory
	server  request.ServerInfo
	info    request.Info
	slot    int
	done    request.Done
}

func (r *fakeGeneric) Start() {
	r.factory.mu.Lock()
	hold := r.factory.hold
	r.factory.mu.Unlock()
	if hold {
		return
	}
	r.done(request.Response{Kind: request.KindGeneric, Slot: r.slot, RequestID: r.info.RequestID, Status: models.CmdSuccess, WindowID: r.info.WindowID})
}

func (r *fakeGeneric) Wait() {}

func (r *fakeGeneric) GetBlockingRes() ([]byte, models.DeviceReply) {
	d := protocol.NewDecoder([]byte(r.info.Payload))
	if err := d.Expect(protocol.SOT); err != nil {
		return nil, models.CmdInvalidMessage
	}
	table, err := d.ReadInt()
	if err != nil {
		return nil, models.CmdInvalidMessage
	}
	r.factory.mu.Lock()
	defer r.factory.mu.Unlock()
	r.factory.cfgFetches = append(r.factory.cfgFetches, models.ConfigTable(table))
	reply, ok := r.factory.cfgReplies[models.ConfigTable(table)]
	if !ok {
		return nil, models.CmdProcessError
	}
	return reply, models.CmdSuccess
}

type fakeCommand struct {
	factory *fakeFactory
	server  request.ServerInfo
	info    request.Info
	cmd     models.CommandType
	slot    int
	done    request.Done
}

func (r *fakeCommand) Start() {
	r.factory.mu.Lock()
	hold := r.factory.hold
	r.factory.mu.Unlock()
	if hold {
		return
	}
	r.done(request.Response{Kind: request.KindCommand, Slot: r.slot, RequestID: models.MsgSetCmd, Command: r.cmd, Status: models.CmdSuccess})
}

func (r *fakeCommand) Wait() {}

// complete reports a held command as finished.
func (r *fakeCommand) complete(status models.DeviceReply) {
	r.done(request.Response{Kind: request.KindCommand, Slot: r.slot, RequestID: models.MsgSetCmd, Command: r.cmd, Status: status})
}

func (r *fakeCommand) GetBlockingRes() ([]byte, models.DeviceReply) {
	r.factory.mu.Lock()
	defer r.factory.mu.Unlock()
	if r.cmd == models.CmdHealthStatus && r.factory.healthReply != nil {
		return r.factory.healthReply, models.CmdSuccess
	}
	return nil, models.CmdProcessError
}

func (r *fakeCommand) GetResWithoutCheckEOM(maxSize int) ([]byte, models.DeviceReply) {
	r.factory.mu.Lock()
	defer r.factory.mu.Unlock()
	reply, ok := r.factory.rawReplies[r.cmd]
	if !ok {
		return nil, models.CmdNoRecordFound
	}
	if len(reply) > maxSize {
		reply = reply[:maxSize]
	}
	return reply, models.CmdSuccess
}

type fakePwdRst struct {
	factory *fakeFactory
	info    request.Info
	cmd     models.PwdRstCommand
	slot    int
	done    request.Done
}

func (r *fakePwdRst) Start() {
	r.done(request.Response{Kind: request.KindPwdRst, Slot: r.slot, RequestID: models.MsgPwdRst, PwdRstCommand: r.cmd, Status: models.CmdSuccess})
}

func (r *fakePwdRst) Wait() {}

type recordedEvent struct {
	event   models.LiveEvent
	display bool
}

// recorder is a Listener that keeps everything it is told.
type recorder struct {
	mu           sync.Mutex
	responses    []models.DeviceResponse
	events       []recordedEvent
	popUps       []models.PopUpEvent
	cfgUpdates   []models.RemoteDeviceUpdate
	deleteStream int
	exitThread   int
}

func (r *recorder) OnDeviceResponse(deviceName string, resp models.DeviceResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

func (r *recorder) OnEvent(deviceName string, ev models.LiveEvent, display bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: ev, display: display})
}

func (r *recorder) OnPopUpEvent(deviceName string, ev models.PopUpEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.popUps = append(r.popUps, ev)
}

func (r *recorder) OnDeviceCfgUpdate(deviceName string, update models.RemoteDeviceUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfgUpdates = append(r.cfgUpdates, update)
}

func (r *recorder) OnDeleteStreamRequest(deviceName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteStream++
}

func (r *recorder) OnExitThread(deviceName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exitThread++
}

func (r *recorder) lastResponse() models.DeviceResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return models.DeviceResponse{}
	}
	return r.responses[len(r.responses)-1]
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteStream, r.exitThread
}

func remoteConfig() models.DeviceConfig {
	return models.DeviceConfig{
		Name:      "branch-nvr",
		IPAddress: "192.168.1.20",
		Port:      8000,
		Username:  "admin",
		Password:  "admin123",
	}
}

func newTestClient(t *testing.T, cfg models.DeviceConfig, f *fakeFactory, tun Tunables) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	tun.LocalStartupDelay = 0
	c := New(1, cfg, Options{
		Factory:  f,
		Listener: rec,
		Events:   NewEventList(10),
		Logger:   zap.NewNop(),
		Tunables: tun,
	})
	return c, rec
}

// pump handles exactly one queued completion on the test goroutine.
func pump(t *testing.T, c *Client) {
	t.Helper()
	select {
	case resp := <-c.completions:
		c.handle(resp)
	case <-time.After(time.Second):
		t.Fatal("no completion queued")
	}
}

func testBanner(t *testing.T, mutate func(*models.DeviceTableInfo)) []byte {
	t.Helper()
	info := models.DeviceTableInfo{
		SoftwareVersion:   7,
		CommVersion:       protocol.CommVersion,
		CommRevision:      protocol.CommRevision,
		ResponseTimeSec:   20,
		TotalCameras:      4,
		SensorInputs:      2,
		AlarmOutputs:      2,
		HDDCount:          1,
		LANCount:          1,
		DiskCheckingCount: 0,
	}
	if mutate != nil {
		mutate(&info)
	}
	rights := []models.CameraRights{
		models.RightMonitor | models.RightVideoPopUp,
		models.RightMonitor,
		models.RightMonitor | models.RightVideoPopUp,
		models.RightMonitor,
	}
	return devicetest.EncodeBanner(protocol.Banner{SessionID: "0000000042", Info: info, Rights: rights})
}

// loginOK drives a successful login through the fake connect request.
func loginOK(t *testing.T, c *Client, f *fakeFactory, mutate func(*models.DeviceTableInfo)) *fakeConnect {
	t.Helper()
	require.True(t, c.LoginToDevice())
	fc := f.lastConnect()
	require.NotNil(t, fc)
	fc.complete(models.MsgLogin, models.CmdSuccess, testBanner(t, mutate))
	pump(t, c)
	return fc
}

func eventRecord(ev models.LiveEvent) []byte {
	body := protocol.JoinFields(
		strconv.Itoa(ev.Index),
		ev.DateTime,
		strconv.Itoa(int(ev.Type)),
		strconv.Itoa(int(ev.SubType)),
		ev.Detail,
		strconv.Itoa(int(ev.State)),
		ev.AdvancedDetail,
	)
	out := []byte{protocol.SOI}
	out = append(out, body...)
	return append(out, protocol.EOI)
}

func eventPayload(events ...models.LiveEvent) []byte {
	var out []byte
	for _, ev := range events {
		out = append(out, eventRecord(ev)...)
	}
	return out
}

func requestResponseFor(fc *fakeConnect, id models.RequestID, status models.DeviceReply) request.Response {
	return request.Response{Kind: request.KindConnect, Slot: fc.slot, RequestID: id, Status: status}
}
