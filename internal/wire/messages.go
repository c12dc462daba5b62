// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package wire implements the bit-exact, little-endian control-plane
// message framing the data plane emits: a DPMsgHdr followed by one of the
// fixed-layout DPMsg* payloads. Field order and width reproduce the C
// structs this protocol was ported from; nothing here is free-form.
package wire

import (
	"encoding/binary"

	"github.com/segmentic/dpengine/internal/errors"
)

// MaxMessageSize is the largest framed message body, header included.
const MaxMessageSize = 8192

// Message kinds, matching DP_KIND_* in the original protocol.
const (
	KindAppUpdate            = 1
	KindSessionList          = 2
	KindSessionCount         = 3
	KindDeviceCounter        = 4
	KindMeterList            = 5
	KindThreatLog            = 6
	KindConnection           = 7
	KindMACStats             = 8
	KindDeviceStats          = 9
	KindKeepAlive            = 10
	KindFQDNUpdate           = 11
	KindIPFQDNStorageUpdate  = 12
	KindIPFQDNStorageRelease = 13
)

// More flags on DPMsgHdr.
const (
	MsgStart = 0x1
	MsgEnd   = 0x2
)

// Hdr is DPMsgHdr: Kind:u8, More:u8, Length:u16 (length includes the header
// itself).
type Hdr struct {
	Kind   uint8
	More   uint8
	Length uint16
}

const hdrSize = 4

// MarshalBinary encodes the header.
func (h Hdr) MarshalBinary() ([]byte, error) {
	b := make([]byte, hdrSize)
	b[0] = h.Kind
	b[1] = h.More
	binary.LittleEndian.PutUint16(b[2:4], h.Length)
	return b, nil
}

// UnmarshalBinary decodes the header.
func (h *Hdr) UnmarshalBinary(b []byte) error {
	if len(b) < hdrSize {
		return errors.Errorf(errors.KindValidation, "wire: short header: %d bytes", len(b))
	}
	h.Kind = b[0]
	h.More = b[1]
	h.Length = binary.LittleEndian.Uint16(b[2:4])
	return nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)    { e.buf = append(e.buf, v) }
func (e *encoder) pad(n int)     { e.buf = append(e.buf, make([]byte, n)...) }
func (e *encoder) bytes(v []byte, width int) {
	b := make([]byte, width)
	copy(b, v)
	e.buf = append(e.buf, b...)
}
func (e *encoder) str(v string, width int) {
	b := make([]byte, width)
	copy(b, v)
	e.buf = append(e.buf, b...)
}
func (e *encoder) u16(v uint16) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	e.buf = append(e.buf, b...)
}
func (e *encoder) u32(v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	e.buf = append(e.buf, b...)
}
func (e *encoder) u64(v uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	e.buf = append(e.buf, b...)
}

type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.off+n > len(d.buf) {
		d.err = errors.Errorf(errors.KindValidation, "wire: short read at offset %d, need %d, have %d", d.off, n, len(d.buf)-d.off)
		return false
	}
	return true
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}
func (d *decoder) skip(n int) {
	if !d.need(n) {
		return
	}
	d.off += n
}
func (d *decoder) bytes(width int) []byte {
	if !d.need(width) {
		return make([]byte, width)
	}
	v := make([]byte, width)
	copy(v, d.buf[d.off:d.off+width])
	d.off += width
	return v
}
func (d *decoder) str(width int) string {
	b := d.bytes(width)
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
func (d *decoder) u16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off : d.off+2])
	d.off += 2
	return v
}
func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off : d.off+4])
	d.off += 4
	return v
}
func (d *decoder) u64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off : d.off+8])
	d.off += 8
	return v
}

// Session flag bits, matching DPSESS_FLAG_*.
const (
	SessFlagIngress    = 0x0001
	SessFlagTap        = 0x0002
	SessFlagMid        = 0x0004
	SessFlagExternal   = 0x0008
	SessFlagXFF        = 0x0010
	SessFlagSvcExtIP   = 0x0020
	SessFlagMeshToSvr  = 0x0040
	SessFlagLinkLocal  = 0x0080
	SessFlagTmpOpen    = 0x0100
	SessFlagUWLIP      = 0x0200
	SessFlagCheckNBE   = 0x0400
	SessFlagNBESameNS  = 0x0800
)

// Session is DPMsgSession: one session's accounting and policy-disposition
// snapshot as reported to the control plane.
type Session struct {
	ID             uint32
	EPMAC          [6]byte
	EtherType      uint16
	ClientMAC      [6]byte
	ServerMAC      [6]byte
	ClientIP       [16]byte
	ServerIP       [16]byte
	ClientPort     uint16
	ServerPort     uint16
	ICMPCode       uint8
	ICMPType       uint8
	IPProto        uint8
	ClientPkts     uint32
	ServerPkts     uint32
	ClientBytes    uint32
	ServerBytes    uint32
	ClientAsmPkts  uint32
	ServerAsmPkts  uint32
	ClientAsmBytes uint32
	ServerAsmBytes uint32
	ClientState    uint8
	ServerState    uint8
	Idle           uint16
	Age            uint32
	Life           uint16
	Application    uint16
	ThreatID       uint32
	PolicyID       uint32
	PolicyAction   uint8
	Severity       uint8
	Flags          uint16
	XffIP          [16]byte
	XffApp         uint16
	XffPort        uint16
}

// MarshalBinary encodes the session in the exact DPMsgSession field order.
func (s Session) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.u32(s.ID)
	e.bytes(s.EPMAC[:], 6)
	e.u16(s.EtherType)
	e.bytes(s.ClientMAC[:], 6)
	e.bytes(s.ServerMAC[:], 6)
	e.bytes(s.ClientIP[:], 16)
	e.bytes(s.ServerIP[:], 16)
	e.u16(s.ClientPort)
	e.u16(s.ServerPort)
	e.u8(s.ICMPCode)
	e.u8(s.ICMPType)
	e.u8(s.IPProto)
	e.pad(1) // Padding
	e.u32(s.ClientPkts)
	e.u32(s.ServerPkts)
	e.u32(s.ClientBytes)
	e.u32(s.ServerBytes)
	e.u32(s.ClientAsmPkts)
	e.u32(s.ServerAsmPkts)
	e.u32(s.ClientAsmBytes)
	e.u32(s.ServerAsmBytes)
	e.u8(s.ClientState)
	e.u8(s.ServerState)
	e.u16(s.Idle)
	e.u32(s.Age)
	e.u16(s.Life)
	e.u16(s.Application)
	e.u32(s.ThreatID)
	e.u32(s.PolicyID)
	e.u8(s.PolicyAction)
	e.u8(s.Severity)
	e.u16(s.Flags)
	e.bytes(s.XffIP[:], 16)
	e.u16(s.XffApp)
	e.u16(s.XffPort)
	return e.buf, nil
}

// UnmarshalBinary decodes a DPMsgSession body.
func (s *Session) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	s.ID = d.u32()
	copy(s.EPMAC[:], d.bytes(6))
	s.EtherType = d.u16()
	copy(s.ClientMAC[:], d.bytes(6))
	copy(s.ServerMAC[:], d.bytes(6))
	copy(s.ClientIP[:], d.bytes(16))
	copy(s.ServerIP[:], d.bytes(16))
	s.ClientPort = d.u16()
	s.ServerPort = d.u16()
	s.ICMPCode = d.u8()
	s.ICMPType = d.u8()
	s.IPProto = d.u8()
	d.skip(1)
	s.ClientPkts = d.u32()
	s.ServerPkts = d.u32()
	s.ClientBytes = d.u32()
	s.ServerBytes = d.u32()
	s.ClientAsmPkts = d.u32()
	s.ServerAsmPkts = d.u32()
	s.ClientAsmBytes = d.u32()
	s.ServerAsmBytes = d.u32()
	s.ClientState = d.u8()
	s.ServerState = d.u8()
	s.Idle = d.u16()
	s.Age = d.u32()
	s.Life = d.u16()
	s.Application = d.u16()
	s.ThreatID = d.u32()
	s.PolicyID = d.u32()
	s.PolicyAction = d.u8()
	s.Severity = d.u8()
	s.Flags = d.u16()
	copy(s.XffIP[:], d.bytes(16))
	s.XffApp = d.u16()
	s.XffPort = d.u16()
	return d.err
}

// Meter IDs, matching METER_ID_*.
const (
	MeterIDSynFlood     = 0
	MeterIDICMPFlood    = 1
	MeterIDIPSrcSession = 2
	MeterIDTCPNoData    = 3
)

// Meter flag bits, matching DPMETER_FLAG_*.
const (
	MeterFlagIPv4 = 0x01
	MeterFlagTap  = 0x02
)

// Meter is DPMsgMeter: one DDoS-class meter's current reading.
type Meter struct {
	EPMAC      [6]byte
	Idle       uint16
	Count      uint32
	LastCount  uint32
	PeerIP     [16]byte
	MeterID    uint8
	Flags      uint8
	Span       uint8
	UpperLimit uint32
	LowerLimit uint32
}

// MarshalBinary encodes the meter in DPMsgMeter field order.
func (m Meter) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.bytes(m.EPMAC[:], 6)
	e.u16(m.Idle)
	e.u32(m.Count)
	e.u32(m.LastCount)
	e.bytes(m.PeerIP[:], 16)
	e.u8(m.MeterID)
	e.u8(m.Flags)
	e.u8(m.Span)
	e.u32(m.UpperLimit)
	e.u32(m.LowerLimit)
	return e.buf, nil
}

// UnmarshalBinary decodes a DPMsgMeter body.
func (m *Meter) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	copy(m.EPMAC[:], d.bytes(6))
	m.Idle = d.u16()
	m.Count = d.u32()
	m.LastCount = d.u32()
	copy(m.PeerIP[:], d.bytes(16))
	m.MeterID = d.u8()
	m.Flags = d.u8()
	m.Span = d.u8()
	m.UpperLimit = d.u32()
	m.LowerLimit = d.u32()
	return d.err
}

// ThreatLog flag bits, matching DPLOG_FLAG_*.
const (
	ThreatLogFlagPktIngress  = 0x01
	ThreatLogFlagSessIngress = 0x02
	ThreatLogFlagTap         = 0x04

	ThreatLogMaxMsgLen = 64
	ThreatLogMaxPktLen = 2048
)

// ThreatLog is DPMsgThreatLog: one detected threat event, with an optional
// raw-packet sample.
type ThreatLog struct {
	ThreatID    uint32
	ReportedAt  uint32
	Count       uint32
	Action      uint8
	Severity    uint8
	IPProto     uint8
	Flags       uint8
	EPMAC       [6]byte
	EtherType   uint16
	SrcIP       [16]byte
	DstIP       [16]byte
	SrcPort     uint16
	DstPort     uint16
	ICMPCode    uint8
	ICMPType    uint8
	Application uint16
	PktLen      uint16
	CapLen      uint16
	Msg         string
	Packet      []byte
	DlpNameHash uint32
}

// MarshalBinary encodes the threat log in DPMsgThreatLog field order.
func (t ThreatLog) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.u32(t.ThreatID)
	e.u32(t.ReportedAt)
	e.u32(t.Count)
	e.u8(t.Action)
	e.u8(t.Severity)
	e.u8(t.IPProto)
	e.u8(t.Flags)
	e.bytes(t.EPMAC[:], 6)
	e.u16(t.EtherType)
	e.bytes(t.SrcIP[:], 16)
	e.bytes(t.DstIP[:], 16)
	e.u16(t.SrcPort)
	e.u16(t.DstPort)
	e.u8(t.ICMPCode)
	e.u8(t.ICMPType)
	e.u16(t.Application)
	e.u16(t.PktLen)
	e.u16(t.CapLen)
	e.str(t.Msg, ThreatLogMaxMsgLen)
	e.bytes(t.Packet, ThreatLogMaxPktLen)
	e.u32(t.DlpNameHash)
	return e.buf, nil
}

// UnmarshalBinary decodes a DPMsgThreatLog body.
func (t *ThreatLog) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	t.ThreatID = d.u32()
	t.ReportedAt = d.u32()
	t.Count = d.u32()
	t.Action = d.u8()
	t.Severity = d.u8()
	t.IPProto = d.u8()
	t.Flags = d.u8()
	copy(t.EPMAC[:], d.bytes(6))
	t.EtherType = d.u16()
	copy(t.SrcIP[:], d.bytes(16))
	copy(t.DstIP[:], d.bytes(16))
	t.SrcPort = d.u16()
	t.DstPort = d.u16()
	t.ICMPCode = d.u8()
	t.ICMPType = d.u8()
	t.Application = d.u16()
	t.PktLen = d.u16()
	t.CapLen = d.u16()
	t.Msg = d.str(ThreatLogMaxMsgLen)
	t.Packet = d.bytes(ThreatLogMaxPktLen)
	t.DlpNameHash = d.u32()
	return d.err
}

// DeviceCounter is DPMsgDeviceCounter: cumulative engine-wide counters
// (the C struct's per-parser arrays are omitted).
type DeviceCounter struct {
	RXPackets           uint64
	RXDropPackets       uint64
	TXPackets           uint64
	TXDropPackets       uint64
	ErrorPackets        uint64
	NoWorkloadPackets   uint64
	IPv4Packets         uint64
	IPv6Packets         uint64
	TCPPackets          uint64
	TCPNoSessionPackets uint64
	UDPPackets          uint64
	ICMPPackets         uint64
	OtherPackets        uint64
	Assemblys           uint64
	FreedAssemblys      uint64
	Fragments           uint64
	FreedFragments      uint64
	TimeoutFragments    uint64
	TotalSessions       uint64
	TCPSessions         uint64
	UDPSessions         uint64
	ICMPSessions        uint64
	IPSessions          uint64
	DropMeters          uint64
	ProxyMeters         uint64
	CurMeters           uint64
	CurLogCaches        uint64
	PolicyType1Rules    uint32
	PolicyType2Rules    uint32
	PolicyDomains       uint32
	PolicyDomainIPs     uint32
	LimitDropConns      uint64
	LimitPassConns      uint64
}

// MarshalBinary encodes the device counter block.
func (c DeviceCounter) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.u64(c.RXPackets)
	e.u64(c.RXDropPackets)
	e.u64(c.TXPackets)
	e.u64(c.TXDropPackets)
	e.u64(c.ErrorPackets)
	e.u64(c.NoWorkloadPackets)
	e.u64(c.IPv4Packets)
	e.u64(c.IPv6Packets)
	e.u64(c.TCPPackets)
	e.u64(c.TCPNoSessionPackets)
	e.u64(c.UDPPackets)
	e.u64(c.ICMPPackets)
	e.u64(c.OtherPackets)
	e.u64(c.Assemblys)
	e.u64(c.FreedAssemblys)
	e.u64(c.Fragments)
	e.u64(c.FreedFragments)
	e.u64(c.TimeoutFragments)
	e.u64(c.TotalSessions)
	e.u64(c.TCPSessions)
	e.u64(c.UDPSessions)
	e.u64(c.ICMPSessions)
	e.u64(c.IPSessions)
	e.u64(c.DropMeters)
	e.u64(c.ProxyMeters)
	e.u64(c.CurMeters)
	e.u64(c.CurLogCaches)
	e.u32(c.PolicyType1Rules)
	e.u32(c.PolicyType2Rules)
	e.u32(c.PolicyDomains)
	e.u32(c.PolicyDomainIPs)
	e.u64(c.LimitDropConns)
	e.u64(c.LimitPassConns)
	return e.buf, nil
}

// UnmarshalBinary decodes a DPMsgDeviceCounter body.
func (c *DeviceCounter) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	c.RXPackets = d.u64()
	c.RXDropPackets = d.u64()
	c.TXPackets = d.u64()
	c.TXDropPackets = d.u64()
	c.ErrorPackets = d.u64()
	c.NoWorkloadPackets = d.u64()
	c.IPv4Packets = d.u64()
	c.IPv6Packets = d.u64()
	c.TCPPackets = d.u64()
	c.TCPNoSessionPackets = d.u64()
	c.UDPPackets = d.u64()
	c.ICMPPackets = d.u64()
	c.OtherPackets = d.u64()
	c.Assemblys = d.u64()
	c.FreedAssemblys = d.u64()
	c.Fragments = d.u64()
	c.FreedFragments = d.u64()
	c.TimeoutFragments = d.u64()
	c.TotalSessions = d.u64()
	c.TCPSessions = d.u64()
	c.UDPSessions = d.u64()
	c.ICMPSessions = d.u64()
	c.IPSessions = d.u64()
	c.DropMeters = d.u64()
	c.ProxyMeters = d.u64()
	c.CurMeters = d.u64()
	c.CurLogCaches = d.u64()
	c.PolicyType1Rules = d.u32()
	c.PolicyType2Rules = d.u32()
	c.PolicyDomains = d.u32()
	c.PolicyDomainIPs = d.u32()
	c.LimitDropConns = d.u64()
	c.LimitPassConns = d.u64()
	return d.err
}

// FQDNNameMaxLen is DP_POLICY_FQDN_NAME_MAX_LEN.
const FQDNNameMaxLen = 256

// FQDNUpdateFlagVH is DPFQDN_IP_FLAG_VH.
const FQDNUpdateFlagVH = 0x01

// FQDNUpdate is DPMsgFqdnIpHdr plus its trailing DPMsgFqdnIp[] array,
// flattened into one Go struct (IPs holds 16-byte addresses, IPv4 stored in
// the low 4 bytes per the original's IPv4-in-IPv6-shaped field).
type FQDNUpdate struct {
	Name  string
	Flags uint8
	IPs   [][16]byte
}

// MarshalBinary encodes a DPMsgFqdnIpHdr followed by len(IPs) DPMsgFqdnIp
// entries.
func (f FQDNUpdate) MarshalBinary() ([]byte, error) {
	if len(f.IPs) > 0xffff {
		return nil, errors.Errorf(errors.KindValidation, "wire: too many FQDN IPs: %d", len(f.IPs))
	}
	e := &encoder{}
	e.str(f.Name, FQDNNameMaxLen)
	e.u16(uint16(len(f.IPs)))
	e.pad(2) // Reserved
	e.u8(f.Flags)
	for _, ip := range f.IPs {
		e.bytes(ip[:], 16)
	}
	return e.buf, nil
}

// UnmarshalBinary decodes a DPMsgFqdnIpHdr plus trailing array.
func (f *FQDNUpdate) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	f.Name = d.str(FQDNNameMaxLen)
	count := d.u16()
	d.skip(2)
	f.Flags = d.u8()
	f.IPs = make([][16]byte, 0, count)
	for i := uint16(0); i < count; i++ {
		var ip [16]byte
		copy(ip[:], d.bytes(16))
		f.IPs = append(f.IPs, ip)
	}
	return d.err
}

// IPFQDNStorageUpdate is DPMsgIpFqdnStorageUpdateHdr: the reverse IP->FQDN
// sidecar's upsert record.
type IPFQDNStorageUpdate struct {
	IP   [16]byte
	Name string
}

// MarshalBinary encodes an IPFQDNStorageUpdate record.
func (u IPFQDNStorageUpdate) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.bytes(u.IP[:], 16)
	e.str(u.Name, FQDNNameMaxLen)
	return e.buf, nil
}

// UnmarshalBinary decodes an IPFQDNStorageUpdate record.
func (u *IPFQDNStorageUpdate) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	copy(u.IP[:], d.bytes(16))
	u.Name = d.str(FQDNNameMaxLen)
	return d.err
}

// IPFQDNStorageRelease is DPMsgIpFqdnStorageReleaseHdr: the reverse sidecar's
// expiry/release record.
type IPFQDNStorageRelease struct {
	IP [16]byte
}

// MarshalBinary encodes an IPFQDNStorageRelease record.
func (r IPFQDNStorageRelease) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.bytes(r.IP[:], 16)
	return e.buf, nil
}

// UnmarshalBinary decodes an IPFQDNStorageRelease record.
func (r *IPFQDNStorageRelease) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	copy(r.IP[:], d.bytes(16))
	return d.err
}

// Frame prefixes a marshaled payload with its DPMsgHdr, enforcing
// MaxMessageSize.
func Frame(kind uint8, more uint8, payload []byte) ([]byte, error) {
	total := hdrSize + len(payload)
	if total > MaxMessageSize {
		return nil, errors.Errorf(errors.KindValidation, "wire: frame of kind %d is %d bytes, exceeds max %d", kind, total, MaxMessageSize)
	}
	hdr := Hdr{Kind: kind, More: more, Length: uint16(total)}
	hb, _ := hdr.MarshalBinary()
	return append(hb, payload...), nil
}

// ParseFrame splits a framed message into its header and payload bytes.
func ParseFrame(b []byte) (Hdr, []byte, error) {
	var h Hdr
	if err := h.UnmarshalBinary(b); err != nil {
		return h, nil, err
	}
	if int(h.Length) > len(b) {
		return h, nil, errors.Errorf(errors.KindValidation, "wire: frame declares length %d but only %d bytes available", h.Length, len(b))
	}
	return h, b[hdrSize:h.Length], nil
}
