package request

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol/devicetest"
)

type frameHandler func(header, session string, body []byte) []byte

// serveFrames answers every connection with handler's reply and then closes it.
func serveFrames(t *testing.T, handler frameHandler) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				raw, err := bufio.NewReader(c).ReadBytes(protocol.EOM)
				if err != nil {
					return
				}
				header, session, body, err := devicetest.ParseFrame(raw)
				if err != nil {
					return
				}
				c.Write(handler(header, session, body))
			}(conn)
		}
	}()
	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

func closedPort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())
	return port
}

func testFactory() *TCPFactory {
	return NewTCPFactory(TCPOptions{
		DialTimeout:   time.Second,
		PollInterval:  20 * time.Millisecond,
		EventInterval: 10 * time.Millisecond,
	}, zap.NewNop())
}

func TestGenericRequestBlocking(t *testing.T) {
	port := serveFrames(t, func(header, session string, body []byte) []byte {
		assert.Equal(t, protocol.HeaderGetCfg, header)
		assert.Equal(t, "0000000001", session)
		return devicetest.BuildReply(protocol.ReplyCfg, models.CmdSuccess, []byte("cfg"))
	})

	req := testFactory().NewGenericRequest(
		ServerInfo{Address: "127.0.0.1", Port: port},
		Info{RequestID: models.MsgGetCfg, SessionID: "0000000001", Timeout: time.Second, Payload: "x"},
		-1, nil,
	)
	payload, status := req.GetBlockingRes()
	assert.Equal(t, models.CmdSuccess, status)
	assert.Equal(t, "cfg", string(payload))
}

func TestCommandRequestAsync(t *testing.T) {
	port := serveFrames(t, func(header, session string, body []byte) []byte {
		name, args, err := devicetest.ParseCommandBody(body)
		assert.NoError(t, err)
		assert.Equal(t, "SRT_MAN_REC", name)
		assert.Equal(t, "3\x07", args)
		return devicetest.BuildReply(protocol.ReplyCmd, models.CmdNoPrivilege, nil)
	})

	got := make(chan Response, 1)
	req := testFactory().NewCommandRequest(
		ServerInfo{Address: "127.0.0.1", Port: port},
		Info{RequestID: models.MsgSetCmd, SessionID: "s", Timeout: time.Second, Payload: "3\x07", WindowID: 9},
		models.CmdStartManualRecord, 4,
		func(r Response) { got <- r },
	)
	req.Start()
	req.Wait()

	resp := <-got
	assert.Equal(t, KindCommand, resp.Kind)
	assert.Equal(t, 4, resp.Slot)
	assert.Equal(t, models.CmdStartManualRecord, resp.Command)
	assert.Equal(t, models.CmdNoPrivilege, resp.Status)
	assert.Equal(t, 9, resp.WindowID)
}

func TestCommandRequestRawResponse(t *testing.T) {
	binary := []byte{0x00, 0x00, 0x01, 0x04}
	port := serveFrames(t, func(header, session string, body []byte) []byte {
		prefix := []byte{protocol.SOM}
		prefix = append(prefix, []byte(protocol.JoinFields(protocol.ReplyCmd, "0"))...)
		return append(prefix, binary...)
	})

	req := testFactory().NewCommandRequest(
		ServerInfo{Address: "127.0.0.1", Port: port},
		Info{RequestID: models.MsgSetCmd, SessionID: "s", Timeout: time.Second},
		models.CmdSearchMonthRecord, -1, nil,
	)
	payload, status := req.GetResWithoutCheckEOM(1024)
	assert.Equal(t, models.CmdSuccess, status)
	assert.Equal(t, binary, payload)
}

func TestRequestUnreachable(t *testing.T) {
	req := testFactory().NewGenericRequest(
		ServerInfo{Address: "127.0.0.1", Port: closedPort(t)},
		Info{RequestID: models.MsgGetCfg, Timeout: time.Second},
		-1, nil,
	)
	_, status := req.GetBlockingRes()
	assert.Equal(t, models.CmdServerNotResponding, status)
}

func TestPasswordResetRequest(t *testing.T) {
	port := serveFrames(t, func(header, session string, body []byte) []byte {
		assert.Equal(t, protocol.HeaderPwdRst, header)
		assert.Empty(t, session)
		return devicetest.BuildReply(protocol.ReplyPwdRst, models.CmdSuccess, []byte("q1"))
	})

	got := make(chan Response, 1)
	req := testFactory().NewPasswordResetRequest(
		ServerInfo{Address: "127.0.0.1", Port: port},
		Info{RequestID: models.MsgPwdRst, Timeout: time.Second},
		models.PwdRstGetInfo, 0,
		func(r Response) { got <- r },
	)
	req.Start()
	req.Wait()

	resp := <-got
	assert.Equal(t, KindPwdRst, resp.Kind)
	assert.Equal(t, models.PwdRstGetInfo, resp.PwdRstCommand)
	assert.Equal(t, "q1", string(resp.Payload))
}

func TestConnectRequestFallsBackToForwardedPort(t *testing.T) {
	banner := devicetest.EncodeBanner(protocol.Banner{SessionID: "0000000077"})
	forwarded := serveFrames(t, func(header, session string, body []byte) []byte {
		switch header {
		case protocol.HeaderLogin:
			return devicetest.BuildReply(protocol.ReplyLogin, models.CmdSuccess, banner)
		case protocol.HeaderPoll:
			assert.Equal(t, "0000000077", session)
			return devicetest.BuildReply(protocol.ReplyPoll, models.CmdSuccess, nil)
		default:
			return devicetest.BuildReply(protocol.ReplyEvent, models.CmdSuccess, nil)
		}
	})

	got := make(chan Response, 64)
	req := testFactory().NewConnectRequest(
		ServerInfo{Address: "127.0.0.1", Port: closedPort(t), ForwardedPort: forwarded},
		Info{RequestID: models.MsgLogin, Timeout: time.Second, Payload: protocol.LoginPayload("admin", "pw")},
		false, models.ConnectByIP, 1,
		func(r Response) { got <- r },
	)
	req.Start()

	login := <-got
	assert.Equal(t, models.MsgLogin, login.RequestID)
	assert.Equal(t, models.CmdSuccess, login.Status)
	assert.True(t, req.ForwardedPortActive())

	req.SetPollFlag(true)
	select {
	case poll := <-got:
		assert.Equal(t, models.MsgPoll, poll.RequestID)
		assert.Equal(t, models.CmdSuccess, poll.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no poll response")
	}

	req.SetRunFlag(false)
	req.Wait()
}

func TestConnectRequestStopsWithoutPolling(t *testing.T) {
	port := serveFrames(t, func(header, session string, body []byte) []byte {
		return devicetest.BuildReply(protocol.ReplyLogin, models.CmdInvalidCredential, nil)
	})

	got := make(chan Response, 4)
	req := testFactory().NewConnectRequest(
		ServerInfo{Address: "127.0.0.1", Port: port},
		Info{RequestID: models.MsgLogin, Timeout: time.Second},
		false, models.ConnectByIP, 1,
		func(r Response) { got <- r },
	)
	req.Start()
	resp := <-got
	assert.Equal(t, models.CmdInvalidCredential, resp.Status)
	assert.False(t, req.ForwardedPortActive())

	req.SetPollFlag(false)
	req.Wait()
}
