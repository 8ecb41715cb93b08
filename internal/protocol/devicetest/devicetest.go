// Package devicetest provides the device side of the NVR protocol for tests:
// it parses request frames and renders replies and login banners.
package devicetest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/protocol"
)

// BuildReply assembles SOM header FSP status FSP payload EOM.
func BuildReply(header string, status models.DeviceReply, payload []byte) []byte {
	var b bytes.Buffer
	b.WriteByte(protocol.SOM)
	b.WriteString(header)
	b.WriteByte(protocol.FSP)
	b.WriteString(strconv.Itoa(int(status)))
	b.WriteByte(protocol.FSP)
	b.Write(payload)
	b.WriteByte(protocol.EOM)
	return b.Bytes()
}

// ParseFrame splits a request frame into header, session and body. Login and
// password-reset frames carry no session.
func ParseFrame(frame []byte) (header, sessionID string, body []byte, err error) {
	if len(frame) < 2 || frame[len(frame)-1] != protocol.EOM {
		return "", "", nil, protocol.ErrShortRead
	}
	d := protocol.NewDecoder(frame[:len(frame)-1])
	if err := d.Expect(protocol.SOM); err != nil {
		return "", "", nil, err
	}
	if header, err = d.ReadField(); err != nil {
		return "", "", nil, err
	}
	if header != protocol.HeaderLogin && header != protocol.HeaderPwdRst {
		if sessionID, err = d.ReadField(); err != nil {
			return "", "", nil, err
		}
	}
	return header, sessionID, d.Rest(), nil
}

// ParseCommandBody splits a command body into keyword and arguments.
func ParseCommandBody(body []byte) (string, string, error) {
	d := protocol.NewDecoder(body)
	if err := d.Expect(protocol.SOT); err != nil {
		return "", "", err
	}
	name, err := d.ReadField()
	if err != nil {
		return "", "", err
	}
	rest := d.Rest()
	if len(rest) == 0 || rest[len(rest)-1] != protocol.EOT {
		return "", "", protocol.ErrShortRead
	}
	return name, string(rest[:len(rest)-1]), nil
}

// EncodeBanner renders b as a login reply payload. Values wider than their
// slot are truncated to the low digits.
func EncodeBanner(b protocol.Banner) []byte {
	i := b.Info
	fields := []struct{ v, width int }{
		{i.SoftwareVersion, 2},
		{i.SoftwareRevision, 2},
		{i.CommVersion, 2},
		{i.CommRevision, 2},
		{i.ResponseTimeSec, 3},
		{i.KLVTimeSec, 3},
		{i.TotalCameras, 3},
		{i.AnalogCameras, 3},
		{i.IPCameras, 3},
		{i.SensorInputs, 2},
		{i.AlarmOutputs, 2},
		{i.AudioInputs, 2},
		{i.AudioOutputs, 2},
		{i.HDDCount, 2},
		{i.LANCount, 1},
		{i.MainEncodingCapacity, 4},
		{i.SubEncodingCapacity, 4},
		{i.VideoStandard, 1},
		{i.ProductVariant, 2},
		{i.ProductSubRevision, 2},
		{i.DiskCheckingCount, 2},
	}

	var buf bytes.Buffer
	session := fmt.Sprintf("%-*s", protocol.SessionIDLen, b.SessionID)
	buf.WriteString(session[:protocol.SessionIDLen])
	for _, f := range fields {
		s := fmt.Sprintf("%0*d", f.width, f.v)
		buf.WriteString(s[len(s)-f.width:])
	}

	var rights strings.Builder
	for _, r := range b.Rights {
		fmt.Fprintf(&rights, "%02X", uint8(r))
	}
	buf.WriteString(protocol.JoinFields("", strconv.Itoa(i.UserGroup), rights.String()))
	return buf.Bytes()
}
