package request

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

const defaultExchangeTimeout = 10 * time.Second

// errNoConnection marks failures to reach the device at all.
var errNoConnection = errors.New("device not reachable")

type transport struct {
	dialTimeout time.Duration
}

func hostPort(address string, port uint16) string {
	return net.JoinHostPort(address, strconv.Itoa(int(port)))
}

func (t transport) dial(addr string) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, t.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoConnection, err)
	}
	return conn, nil
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = defaultExchangeTimeout
	}
	return time.Now().Add(timeout)
}

// roundTrip sends one frame and reads one EOM-terminated reply.
func (t transport) roundTrip(addr string, frame []byte, timeout time.Duration) (protocol.Reply, error) {
	conn, err := t.dial(addr)
	if err != nil {
		return protocol.Reply{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline(timeout)); err != nil {
		return protocol.Reply{}, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return protocol.Reply{}, fmt.Errorf("write frame: %w", err)
	}
	raw, err := bufio.NewReader(conn).ReadBytes(protocol.EOM)
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return protocol.ParseReply(raw)
}

// rawRoundTrip reads until the device closes the connection or maxSize bytes arrive.
func (t transport) rawRoundTrip(addr string, frame []byte, timeout time.Duration, maxSize int) (protocol.Reply, error) {
	conn, err := t.dial(addr)
	if err != nil {
		return protocol.Reply{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline(timeout)); err != nil {
		return protocol.Reply{}, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return protocol.Reply{}, fmt.Errorf("write frame: %w", err)
	}
	raw, err := io.ReadAll(io.LimitReader(conn, int64(maxSize)))
	if err != nil && len(raw) == 0 {
		return protocol.Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return protocol.ParseReplyPrefix(raw)
}

// statusOf maps a transport failure to the status reported upward.
func statusOf(err error) models.DeviceReply {
	switch {
	case err == nil:
		return models.CmdSuccess
	case errors.Is(err, errNoConnection):
		return models.CmdServerNotResponding
	case errors.Is(err, protocol.ErrShortRead), errors.Is(err, protocol.ErrMalformed):
		return models.CmdInvalidMessage
	default:
		return models.CmdServerNotResponding
	}
}

// worker runs one goroutine per request object and lets Wait join it.
type worker struct {
	started  atomic.Bool
	finished chan struct{}
}

func newWorker() worker {
	return worker{finished: make(chan struct{})}
}

func (w *worker) begin(fn func()) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(w.finished)
		fn()
	}()
}

// Wait blocks until the request goroutine returns. It returns at once if Start was never called.
func (w *worker) Wait() {
	if w.started.Load() {
		<-w.finished
	}
}
