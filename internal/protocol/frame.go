package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// Reply is a decoded device reply frame.
type Reply struct {
	Header  string
	Status  models.DeviceReply
	Payload []byte
}

// BuildFrame assembles SOM header FSP [session FSP] body EOM.
func BuildFrame(header, sessionID string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteByte(SOM)
	b.WriteString(header)
	b.WriteByte(FSP)
	if sessionID != "" {
		b.WriteString(sessionID)
		b.WriteByte(FSP)
	}
	b.Write(body)
	b.WriteByte(EOM)
	return b.Bytes()
}

// LoginPayload is the login body: username FSP password FSP.
func LoginPayload(username, password string) string {
	return JoinFields(username, password)
}

// JoinFields terminates every field with FSP.
func JoinFields(fields ...string) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte(FSP)
	}
	return b.String()
}

// ConfigGetBody requests fields [fromField, toField] of records [from, to] of table.
func ConfigGetBody(table models.ConfigTable, from, to, fromField, toField int) string {
	return string(SOT) + JoinFields(
		strconv.Itoa(int(table)),
		strconv.Itoa(from),
		strconv.Itoa(to),
		strconv.Itoa(fromField),
		strconv.Itoa(toField),
	) + string(EOT)
}

// CommandBody wraps a command keyword and its FSP-terminated arguments.
func CommandBody(name, args string) string {
	return string(SOT) + name + string(FSP) + args + string(EOT)
}

// ParseReply decodes a complete reply frame terminated by EOM.
func ParseReply(frame []byte) (Reply, error) {
	if len(frame) == 0 || frame[len(frame)-1] != EOM {
		return Reply{}, ErrShortRead
	}
	return ParseReplyPrefix(frame[:len(frame)-1])
}

// ParseReplyPrefix decodes header and status and returns the remaining bytes
// untouched. Binary replies carry no reliable EOM so the caller owns the rest.
func ParseReplyPrefix(data []byte) (Reply, error) {
	d := NewDecoder(data)
	if err := d.Expect(SOM); err != nil {
		return Reply{}, err
	}
	header, err := d.ReadField()
	if err != nil {
		return Reply{}, err
	}
	if !strings.HasPrefix(header, replyHeaderHead) {
		return Reply{}, fmt.Errorf("%w: unexpected reply header %q", ErrMalformed, header)
	}
	field, err := d.ReadField()
	if err != nil {
		return Reply{}, err
	}
	status, ok := models.ParseDeviceReply(field)
	if !ok {
		return Reply{}, fmt.Errorf("%w: status %q", ErrMalformed, field)
	}
	return Reply{Header: header, Status: status, Payload: d.Rest()}, nil
}
