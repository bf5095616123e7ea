package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrShort       = errors.New("protocol: datagram too short")
	ErrOversized   = errors.New("protocol: datagram too large")
	ErrUnknownKind = errors.New("protocol: unknown message kind")
	ErrNoPayload   = errors.New("protocol: message has no payload")
)

func (p Position) put(b []byte) {
	b[0] = p.PlayerID
	binary.BigEndian.PutUint16(b[1:], p.X)
	binary.BigEndian.PutUint16(b[3:], p.Y)
}

func (c CoinData) put(b []byte) {
	b[0] = c.CoinID
	binary.BigEndian.PutUint16(b[1:], c.X)
	binary.BigEndian.PutUint16(b[3:], c.Y)
}

func (md *MapData) put(b []byte) {
	for y := range md.Cells {
		copy(b[y*MapCols:], md.Cells[y][:])
	}
}

// Encode 把 m 编码为新的数据报
func Encode(m Message) ([]byte, error) {
	if m.Payload == nil {
		return nil, ErrNoPayload
	}
	b := make([]byte, HeaderSize+m.Payload.size())
	binary.BigEndian.PutUint16(b[0:], m.Origin)
	b[2] = uint8(m.Payload.Kind())
	binary.BigEndian.PutUint32(b[3:], uint32(m.TimestampMs))
	m.Payload.put(b[HeaderSize:])
	return b, nil
}

type reader struct {
	data   []byte
	offset int
}

func (r *reader) need(n int) error {
	if r.offset+n > len(r.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShort, n, r.offset, len(r.data))
	}
	return nil
}

func (r *reader) readUint8() uint8 {
	v := r.data[r.offset]
	r.offset++
	return v
}

func (r *reader) readUint16() uint16 {
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v
}

func (r *reader) readInt32() int32 {
	v := int32(binary.BigEndian.Uint32(r.data[r.offset:]))
	r.offset += 4
	return v
}

// Decode 解析一个数据报；过短、过长、未知 kind 分别返回
// ErrShort、ErrOversized、ErrUnknownKind
func Decode(b []byte) (Message, error) {
	if len(b) > MaxDatagramSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrOversized, len(b))
	}
	r := &reader{data: b}
	if err := r.need(HeaderSize); err != nil {
		return Message{}, err
	}
	m := Message{Origin: r.readUint16()}
	kind := Kind(r.readUint8())
	m.TimestampMs = r.readInt32()

	switch kind {
	case KindPing:
		m.Payload = Ping{}
	case KindPong:
		m.Payload = Pong{}
	case KindConnect:
		m.Payload = Connect{}
	case KindReady:
		m.Payload = Ready{}
	case KindPosition:
		if err := r.need(PositionSize); err != nil {
			return Message{}, err
		}
		m.Payload = Position{PlayerID: r.readUint8(), X: r.readUint16(), Y: r.readUint16()}
	case KindCoinData:
		if err := r.need(CoinSize); err != nil {
			return Message{}, err
		}
		m.Payload = CoinData{CoinID: r.readUint8(), X: r.readUint16(), Y: r.readUint16()}
	case KindMapData:
		if err := r.need(MapDataSize); err != nil {
			return Message{}, err
		}
		md := &MapData{}
		for y := range md.Cells {
			copy(md.Cells[y][:], r.data[r.offset:r.offset+MapCols])
			r.offset += MapCols
		}
		m.Payload = md
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	return m, nil
}
