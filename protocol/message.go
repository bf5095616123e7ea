// Package protocol 节点之间交换的数据报格式
//
// 每个数据报为 7 字节头 + 由 kind 决定的定长负载：
//
//	originId:u16 kind:u8 timestampMs:i32 payload
//
// 整数一律大端（网络字节序）；负载之后的多余字节忽略，允许对端补齐到定长
package protocol

import (
	"lanarena/endpoint"
)

// Kind 消息负载类型
type Kind uint8

const (
	KindPing     Kind = 0
	KindPong     Kind = 1
	KindConnect  Kind = 2
	KindReady    Kind = 3
	KindMapData  Kind = 5
	KindCoinData Kind = 6
	KindPosition Kind = 7
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindPong:
		return "pong"
	case KindConnect:
		return "connect"
	case KindReady:
		return "ready"
	case KindMapData:
		return "map"
	case KindCoinData:
		return "coin"
	case KindPosition:
		return "position"
	}
	return "unknown"
}

const (
	HeaderSize   = 7
	PositionSize = 5
	CoinSize     = 5
	MapCols      = 20
	MapRows      = 20
	MapDataSize  = MapCols * MapRows

	// MaxDatagramSize 合法数据报的最大长度
	MaxDatagramSize = HeaderSize + MapDataSize
)

// Payload 各 kind 对应的消息体
type Payload interface {
	Kind() Kind
	size() int
	put(b []byte)
}

// Message 解码后的一个数据报
type Message struct {
	Origin      uint16
	TimestampMs int32
	Payload     Payload
}

// Kind 负载类型，nil 负载视为 Ping
func (m Message) Kind() Kind {
	if m.Payload == nil {
		return KindPing
	}
	return m.Payload.Kind()
}

// Envelope 消息 + 发送目的地
type Envelope struct {
	Message     Message
	Destination endpoint.Endpoint
}

type (
	Ping    struct{}
	Pong    struct{}
	Connect struct{}
	Ready   struct{}
)

func (Ping) Kind() Kind    { return KindPing }
func (Pong) Kind() Kind    { return KindPong }
func (Connect) Kind() Kind { return KindConnect }
func (Ready) Kind() Kind   { return KindReady }

func (Ping) size() int    { return 0 }
func (Pong) size() int    { return 0 }
func (Connect) size() int { return 0 }
func (Ready) size() int   { return 0 }

func (Ping) put([]byte)    {}
func (Pong) put([]byte)    {}
func (Connect) put([]byte) {}
func (Ready) put([]byte)   {}

// Position 玩家位置
type Position struct {
	PlayerID uint8
	X        uint16
	Y        uint16
}

func (Position) Kind() Kind { return KindPosition }
func (Position) size() int  { return PositionSize }

// CoinData 金币位置
type CoinData struct {
	CoinID uint8
	X      uint16
	Y      uint16
}

func (CoinData) Kind() Kind { return KindCoinData }
func (CoinData) size() int  { return CoinSize }

// MapData 整张地图，每格一字节，按行存储；空格为可通行，其余为阻挡
type MapData struct {
	Cells [MapRows][MapCols]byte
}

func (*MapData) Kind() Kind { return KindMapData }
func (*MapData) size() int  { return MapDataSize }

// MapDataFromLines 由文本行构造，不足处补空格
func MapDataFromLines(lines []string) *MapData {
	md := &MapData{}
	for y := range md.Cells {
		for x := range md.Cells[y] {
			md.Cells[y][x] = ' '
			if y < len(lines) && x < len(lines[y]) {
				md.Cells[y][x] = lines[y][x]
			}
		}
	}
	return md
}

// Lines 还原为文本行
func (md *MapData) Lines() []string {
	out := make([]string, MapRows)
	for y := range md.Cells {
		out[y] = string(md.Cells[y][:])
	}
	return out
}
