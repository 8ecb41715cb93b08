package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Decoder is a bounds-checked cursor over a reply payload.
// A failed read never advances the cursor.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps b without copying it.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// Rest returns a copy of all unread bytes and consumes them.
func (d *Decoder) Rest() []byte {
	out := append([]byte(nil), d.buf[d.pos:]...)
	d.pos = len(d.buf)
	return out
}

// Peek returns the next byte without consuming it.
func (d *Decoder) Peek() (byte, bool) {
	if d.pos >= len(d.buf) {
		return 0, false
	}
	return d.buf[d.pos], true
}

// ReadField returns the bytes up to the next FSP and consumes the separator.
func (d *Decoder) ReadField() (string, error) {
	i := bytes.IndexByte(d.buf[d.pos:], FSP)
	if i < 0 {
		return "", ErrShortRead
	}
	field := string(d.buf[d.pos : d.pos+i])
	d.pos += i + 1
	return field, nil
}

// ReadInt reads a field and parses it as a decimal integer.
func (d *Decoder) ReadInt() (int, error) {
	start := d.pos
	field, err := d.ReadField()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(field)
	if err != nil {
		d.pos = start
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformed, field)
	}
	return v, nil
}

// ReadByte reads a single raw byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrShortRead
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n raw bytes into a fresh slice.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, ErrShortRead
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+n])
	d.pos += n
	return out, nil
}

// ReadUint16BE reads a big-endian uint16.
func (d *Decoder) ReadUint16BE() (uint16, error) {
	if d.Remaining() < 2 {
		return 0, ErrShortRead
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

// ReadUint32BE reads a big-endian uint32.
func (d *Decoder) ReadUint32BE() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, ErrShortRead
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// Expect consumes b or fails without advancing.
func (d *Decoder) Expect(b byte) error {
	c, ok := d.Peek()
	if !ok {
		return ErrShortRead
	}
	if c != b {
		return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrMalformed, b, c)
	}
	d.pos++
	return nil
}

// ReadGroup returns the content between the next SOI and its EOI.
func (d *Decoder) ReadGroup() ([]byte, error) {
	start := d.pos
	if err := d.Expect(SOI); err != nil {
		return nil, err
	}
	i := bytes.IndexByte(d.buf[d.pos:], EOI)
	if i < 0 {
		d.pos = start
		return nil, ErrShortRead
	}
	group := d.buf[d.pos : d.pos+i]
	d.pos += i + 1
	return group, nil
}

// SplitGroups returns every SOI..EOI group of payload in order.
// Bytes outside groups are ignored.
func SplitGroups(payload []byte) ([][]byte, error) {
	var groups [][]byte
	d := NewDecoder(payload)
	for {
		i := bytes.IndexByte(d.buf[d.pos:], SOI)
		if i < 0 {
			return groups, nil
		}
		d.pos += i
		g, err := d.ReadGroup()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
}
