package protocol

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// ConfigRecord is one index of a config table reply.
type ConfigRecord struct {
	Index  int
	Fields map[int]string
}

// Field returns the raw value of field id f.
func (r ConfigRecord) Field(f int) (string, bool) {
	v, ok := r.Fields[f]
	return v, ok
}

// ParseConfigReply decodes SOT table FSP (SOI idx FSP (field FVS value FSP)* EOI)* EOT.
func ParseConfigReply(payload []byte) (models.ConfigTable, []ConfigRecord, error) {
	d := NewDecoder(payload)
	if err := d.Expect(SOT); err != nil {
		return 0, nil, err
	}
	table, err := d.ReadInt()
	if err != nil {
		return 0, nil, err
	}
	var records []ConfigRecord
	for {
		c, ok := d.Peek()
		if !ok {
			return 0, nil, ErrShortRead
		}
		if c == EOT {
			break
		}
		group, err := d.ReadGroup()
		if err != nil {
			return 0, nil, err
		}
		rec, err := parseConfigGroup(group)
		if err != nil {
			return 0, nil, err
		}
		records = append(records, rec)
	}
	return models.ConfigTable(table), records, nil
}

func parseConfigGroup(group []byte) (ConfigRecord, error) {
	d := NewDecoder(group)
	idx, err := d.ReadInt()
	if err != nil {
		return ConfigRecord{}, err
	}
	rec := ConfigRecord{Index: idx, Fields: make(map[int]string)}
	for d.Remaining() > 0 {
		pair, err := d.ReadField()
		if err != nil {
			return ConfigRecord{}, err
		}
		sep := bytes.IndexByte([]byte(pair), FVS)
		if sep < 0 {
			return ConfigRecord{}, fmt.Errorf("%w: field without value separator", ErrMalformed)
		}
		id, err := strconv.Atoi(pair[:sep])
		if err != nil {
			return ConfigRecord{}, fmt.Errorf("%w: field id %q", ErrMalformed, pair[:sep])
		}
		rec.Fields[id] = pair[sep+1:]
	}
	return rec, nil
}

// EncodeConfigRecords builds a SET_CFG body (the same shape the device replies with).
func EncodeConfigRecords(table models.ConfigTable, records []ConfigRecord) []byte {
	var b bytes.Buffer
	b.WriteByte(SOT)
	b.WriteString(strconv.Itoa(int(table)))
	b.WriteByte(FSP)
	for _, rec := range records {
		b.WriteByte(SOI)
		b.WriteString(strconv.Itoa(rec.Index))
		b.WriteByte(FSP)
		ids := make([]int, 0, len(rec.Fields))
		for id := range rec.Fields {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			b.WriteString(strconv.Itoa(id))
			b.WriteByte(FVS)
			b.WriteString(rec.Fields[id])
			b.WriteByte(FSP)
		}
		b.WriteByte(EOI)
	}
	b.WriteByte(EOT)
	return b.Bytes()
}
