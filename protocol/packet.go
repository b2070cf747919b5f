// Package protocol defines the byte-packed little-endian wire formats the
// mesh exchanges over the three rime channels. The packet kind is implied by
// the channel it arrives on: beacons on broadcast, LSAs on reliable unicast,
// data/sync datagrams on plain unicast.
package protocol

import (
	"encoding/binary"
	"errors"
)

type Channel uint16

const (
	BroadcastChannel Channel = 129
	UnicastChannel   Channel = 146
	RunicastChannel  Channel = 144
)

// Radio tuning handed to the driver.
const (
	RadioChannel = 14
	TxPower      = 1
)

var ErrTruncated = errors.New("protocol: truncated packet")

func bool2byte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Lsa is a single directed-link advertisement:
// reply_to_sync_req:u8, link_cost:u16le, src:u8, dst:u8, seq_nr:u8.
type Lsa struct {
	SyncReply bool
	Cost      uint16
	Src       uint8
	Dst       uint8
	Seq       uint8
}

const LsaSize = 6

func (p Lsa) Encode() []byte {
	b := make([]byte, LsaSize)
	b[0] = bool2byte(p.SyncReply)
	binary.LittleEndian.PutUint16(b[1:3], p.Cost)
	b[3] = p.Src
	b[4] = p.Dst
	b[5] = p.Seq
	return b
}

func DecodeLsa(b []byte) (Lsa, error) {
	if len(b) < LsaSize {
		return Lsa{}, ErrTruncated
	}
	return Lsa{
		SyncReply: b[0] != 0,
		Cost:      binary.LittleEndian.Uint16(b[1:3]),
		Src:       b[3],
		Dst:       b[4],
		Seq:       b[5],
	}, nil
}

// Beacon is the periodic keep-alive:
// get_lsdb_req:u8, neighbours:[u8;N], battery_value:u16le.
// N is the roster size and is fixed network-wide; slot i holds id i+1 when
// that neighbour is live and 0 when the slot is empty.
type Beacon struct {
	GetLsdbReq bool
	Neighbours []uint8
	Battery    uint16
}

func BeaconSize(n int) int {
	return 1 + n + 2
}

func (p Beacon) Encode() []byte {
	b := make([]byte, BeaconSize(len(p.Neighbours)))
	b[0] = bool2byte(p.GetLsdbReq)
	copy(b[1:], p.Neighbours)
	binary.LittleEndian.PutUint16(b[1+len(p.Neighbours):], p.Battery)
	return b
}

func DecodeBeacon(b []byte, n int) (Beacon, error) {
	if len(b) < BeaconSize(n) {
		return Beacon{}, ErrTruncated
	}
	neigh := make([]uint8, n)
	copy(neigh, b[1:1+n])
	return Beacon{
		GetLsdbReq: b[0] != 0,
		Neighbours: neigh,
		Battery:    binary.LittleEndian.Uint16(b[1+n:]),
	}, nil
}

// Datagram is the unicast-channel packet, both sensor data and the LSDB sync
// exchanges: is_data:u8, data_type:u8, data:u16le, ttl:u8, lsdb_age:u16le,
// request_lsdb:u8, path:[u8;N].
type Datagram struct {
	IsData      bool
	DataType    uint8
	Data        uint16
	Ttl         uint8
	LsdbAge     uint16
	RequestLsdb bool
	Path        []uint8
}

func DatagramSize(n int) int {
	return 8 + n
}

func (p Datagram) Encode() []byte {
	b := make([]byte, DatagramSize(len(p.Path)))
	b[0] = bool2byte(p.IsData)
	b[1] = p.DataType
	binary.LittleEndian.PutUint16(b[2:4], p.Data)
	b[4] = p.Ttl
	binary.LittleEndian.PutUint16(b[5:7], p.LsdbAge)
	b[7] = bool2byte(p.RequestLsdb)
	copy(b[8:], p.Path)
	return b
}

func DecodeDatagram(b []byte, n int) (Datagram, error) {
	if len(b) < DatagramSize(n) {
		return Datagram{}, ErrTruncated
	}
	path := make([]uint8, n)
	copy(path, b[8:8+n])
	return Datagram{
		IsData:      b[0] != 0,
		DataType:    b[1],
		Data:        binary.LittleEndian.Uint16(b[2:4]),
		Ttl:         b[4],
		LsdbAge:     binary.LittleEndian.Uint16(b[5:7]),
		RequestLsdb: b[7] != 0,
		Path:        path,
	}, nil
}
