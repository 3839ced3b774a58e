package action

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fedcore/corefed/internal/bytesize"
	"github.com/fedcore/corefed/pkg/ids"
)

// MaxFrameSize bounds a single Depacketize frame. It defaults to a
// generous ceiling and is overridden at process startup from
// config.Config.MaxMessageSize, so a corrupt or hostile length prefix
// can't force an unbounded buffer grow in a transport's read loop.
var MaxFrameSize = 16 * bytesize.MiB

// Binary frame layout (big-endian throughout):
//
//	actionCode   int32
//	flags        uint32
//	counter      uint32
//	sourceID     int32
//	destID       int32
//	messageID    int32
//	actionTime   float64
//	te           float64
//	tdemin       float64
//	payloadLen   uint32
//	payload      []byte
//	stringCount  uint32
//	[stringLen uint32, string bytes]...
//	nameLen      uint32
//	name         []byte
const fixedHeaderSize = 4 + 4 + 4 + 4 + 4 + 4 + 8 + 8 + 8

// ToVector serializes m to its self-describing binary form.
func (m *Message) ToVector() []byte {
	payload := m.Payload.ToStringView()

	size := fixedHeaderSize + 4 + len(payload) + 4
	for _, s := range m.StringData {
		size += 4 + len(s)
	}
	size += 4 + len(m.Name)

	out := make([]byte, size)
	off := 0

	off = putInt32(out, off, int32(m.ActionCode))
	off = putUint32(out, off, m.Flags)
	off = putUint32(out, off, m.Counter)
	off = putInt32(out, off, int32(m.SourceID))
	off = putInt32(out, off, int32(m.DestID))
	off = putInt32(out, off, m.MessageID)
	off = putFloat64(out, off, m.ActionTime)
	off = putFloat64(out, off, m.Te)
	off = putFloat64(out, off, m.Tdemin)

	off = putUint32(out, off, uint32(len(payload)))
	off += copy(out[off:], payload)

	off = putUint32(out, off, uint32(len(m.StringData)))
	for _, s := range m.StringData {
		off = putUint32(out, off, uint32(len(s)))
		off += copy(out[off:], s)
	}

	off = putUint32(out, off, uint32(len(m.Name)))
	off += copy(out[off:], m.Name)

	return out[:off]
}

// FromVector parses the binary form produced by ToVector.
func FromVector(data []byte) (*Message, error) {
	if len(data) < fixedHeaderSize {
		return nil, fmt.Errorf("action: buffer too short for header: got %d bytes, need %d", len(data), fixedHeaderSize)
	}

	m := &Message{}
	off := 0

	var code, src, dst, msgID int32
	code, off = getInt32(data, off)
	m.ActionCode = Code(code)
	m.Flags, off = getUint32(data, off)
	m.Counter, off = getUint32(data, off)
	src, off = getInt32(data, off)
	m.SourceID = ids.GlobalFederateId(src)
	dst, off = getInt32(data, off)
	m.DestID = ids.GlobalFederateId(dst)
	msgID, off = getInt32(data, off)
	m.MessageID = msgID
	m.ActionTime, off = getFloat64(data, off)
	m.Te, off = getFloat64(data, off)
	m.Tdemin, off = getFloat64(data, off)

	var payloadLen uint32
	payloadLen, off = getUint32(data, off)
	if off+int(payloadLen) > len(data) {
		return nil, fmt.Errorf("action: truncated payload: need %d bytes, have %d", payloadLen, len(data)-off)
	}
	if payloadLen > 0 {
		if err := m.Payload.Assign(data[off : off+int(payloadLen)]); err != nil {
			return nil, fmt.Errorf("action: assigning payload: %w", err)
		}
	}
	off += int(payloadLen)

	var stringCount uint32
	stringCount, off = getUint32(data, off)
	m.StringData = make([]string, 0, stringCount)
	for i := uint32(0); i < stringCount; i++ {
		var strLen uint32
		strLen, off = getUint32(data, off)
		if off+int(strLen) > len(data) {
			return nil, fmt.Errorf("action: truncated string %d: need %d bytes, have %d", i, strLen, len(data)-off)
		}
		m.StringData = append(m.StringData, string(data[off:off+int(strLen)]))
		off += int(strLen)
	}

	var nameLen uint32
	nameLen, off = getUint32(data, off)
	if off+int(nameLen) > len(data) {
		return nil, fmt.Errorf("action: truncated name: need %d bytes, have %d", nameLen, len(data)-off)
	}
	m.Name = string(data[off : off+int(nameLen)])
	off += int(nameLen)

	return m, nil
}

// Packetize prefixes ToVector's output with a 4-byte big-endian length,
// the framing stream transports (TCP) require.
func (m *Message) Packetize() []byte {
	body := m.ToVector()
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[:4], uint32(len(body)))
	copy(out[4:], body)
	return out
}

// Depacketize parses a single length-prefixed frame from the head of
// data. Returns the parsed message, the number of bytes consumed, and
// an error. Consumed is 0 (with a nil message and nil error) when data
// holds fewer bytes than the frame declares, signaling the caller to
// wait for more.
func Depacketize(data []byte) (*Message, int, error) {
	if len(data) < 4 {
		return nil, 0, nil
	}
	frameLen := binary.BigEndian.Uint32(data[:4])
	if bytesize.ByteSize(frameLen) > MaxFrameSize {
		return nil, 0, fmt.Errorf("action: frame length %d exceeds max frame size %s", frameLen, MaxFrameSize)
	}
	total := 4 + int(frameLen)
	if len(data) < total {
		return nil, 0, nil
	}

	m, err := FromVector(data[4:total])
	if err != nil {
		return nil, 0, err
	}
	return m, total, nil
}

func putInt32(dst []byte, off int, v int32) int {
	return putUint32(dst, off, uint32(v))
}

func putUint32(dst []byte, off int, v uint32) int {
	binary.BigEndian.PutUint32(dst[off:off+4], v)
	return off + 4
}

func putFloat64(dst []byte, off int, v float64) int {
	binary.BigEndian.PutUint64(dst[off:off+8], math.Float64bits(v))
	return off + 8
}

func getInt32(src []byte, off int) (int32, int) {
	v, off := getUint32(src, off)
	return int32(v), off
}

func getUint32(src []byte, off int) (uint32, int) {
	return binary.BigEndian.Uint32(src[off : off+4]), off + 4
}

func getFloat64(src []byte, off int) (float64, int) {
	bits := binary.BigEndian.Uint64(src[off : off+8])
	return math.Float64frombits(bits), off + 8
}
