// Package discovery implements the Simple Participant/Endpoint Discovery
// Protocols (§4.6): SPDP announces and detects participants over a
// well-known multicast locator, SEDP does the same for readers and
// writers once two participants have found each other via SPDP, and the
// liveliness protocol purges participants whose lease has expired.
package discovery

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/opendds-go/rtps/rtps/endpoint"
	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// SPDPMulticastPort is the well-known SPDP multicast port for domain 0
// (§4.6; real deployments derive this from the domain id the way the
// DDSI-RTPS spec's port formula does, omitted here as a Non-goal).
const SPDPMulticastPort = 7400

// SPDPMulticastAddress is the well-known SPDP multicast group.
var SPDPMulticastAddress = []byte{239, 255, 0, 1}

// ParticipantProxy is the local record of one remote participant learned
// through SPDP (§4.6).
type ParticipantProxy struct {
	Guid                         types.GUID
	ProtocolVersion              wire.ProtocolVersion
	VendorId                     wire.VendorId
	DefaultUnicastLocators       []types.Locator
	MetatrafficUnicastLocators   []types.Locator
	MetatrafficMulticastLocators []types.Locator
	LeaseDuration                types.Duration
	BuiltinEndpoints             uint32
	LastSeen                     time.Time
}

// encodeParticipantProxy builds the ParameterList payload for an SPDP
// announcement (§4.6, §6 PID table).
func encodeParticipantProxy(p ParticipantProxy) *wire.ParameterList {
	var pl wire.ParameterList
	pl.Add(wire.PIDParticipantGuid, guidBytes(p.Guid))
	pl.Add(wire.PIDProtocolVersion, []byte{p.ProtocolVersion.Major, p.ProtocolVersion.Minor, 0, 0})
	pl.Add(wire.PIDVendorId, []byte{p.VendorId[0], p.VendorId[1], 0, 0})
	for _, l := range p.DefaultUnicastLocators {
		pl.Add(wire.PIDDefaultUnicastLocator, locatorBytes(l))
	}
	for _, l := range p.MetatrafficUnicastLocators {
		pl.Add(wire.PIDMetatrafficUnicastLocator, locatorBytes(l))
	}
	for _, l := range p.MetatrafficMulticastLocators {
		pl.Add(wire.PIDMetatrafficMulticastLocator, locatorBytes(l))
	}
	leaseBuf := make([]byte, 8)
	binary.LittleEndian.PutUint32(leaseBuf[0:4], uint32(p.LeaseDuration.Seconds))
	binary.LittleEndian.PutUint32(leaseBuf[4:8], p.LeaseDuration.Fraction)
	pl.Add(wire.PIDParticipantLeaseDuration, leaseBuf)
	beBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(beBuf, p.BuiltinEndpoints)
	pl.Add(wire.PIDBuiltinEndpointSet, beBuf)
	return &pl
}

func decodeParticipantProxy(pl wire.ParameterList) ParticipantProxy {
	var p ParticipantProxy
	if v, ok := pl.Get(wire.PIDParticipantGuid); ok {
		p.Guid = guidFromBytes(v.Value)
	}
	if v, ok := pl.Get(wire.PIDProtocolVersion); ok && len(v.Value) >= 2 {
		p.ProtocolVersion = wire.ProtocolVersion{Major: v.Value[0], Minor: v.Value[1]}
	}
	if v, ok := pl.Get(wire.PIDVendorId); ok && len(v.Value) >= 2 {
		p.VendorId = wire.VendorId{v.Value[0], v.Value[1]}
	}
	for _, param := range pl.Parameters {
		switch param.Id {
		case wire.PIDDefaultUnicastLocator:
			p.DefaultUnicastLocators = append(p.DefaultUnicastLocators, locatorFromBytes(param.Value))
		case wire.PIDMetatrafficUnicastLocator:
			p.MetatrafficUnicastLocators = append(p.MetatrafficUnicastLocators, locatorFromBytes(param.Value))
		case wire.PIDMetatrafficMulticastLocator:
			p.MetatrafficMulticastLocators = append(p.MetatrafficMulticastLocators, locatorFromBytes(param.Value))
		}
	}
	if v, ok := pl.Get(wire.PIDParticipantLeaseDuration); ok && len(v.Value) >= 8 {
		p.LeaseDuration = types.Duration{
			Seconds:  int32(binary.LittleEndian.Uint32(v.Value[0:4])),
			Fraction: binary.LittleEndian.Uint32(v.Value[4:8]),
		}
	}
	if v, ok := pl.Get(wire.PIDBuiltinEndpointSet); ok && len(v.Value) >= 4 {
		p.BuiltinEndpoints = binary.LittleEndian.Uint32(v.Value)
	}
	return p
}

func guidBytes(g types.GUID) []byte {
	out := make([]byte, 16)
	copy(out[:12], g.Prefix[:])
	copy(out[12:], g.EntityId.Bytes())
	return out
}

func guidFromBytes(b []byte) types.GUID {
	var g types.GUID
	if len(b) < 16 {
		return g
	}
	copy(g.Prefix[:], b[:12])
	g.EntityId = types.EntityIdFromBytes(b[12:16])
	return g
}

func locatorBytes(l types.Locator) []byte {
	out := make([]byte, 24)
	binary.LittleEndian.PutUint32(out[0:4], uint32(l.Kind))
	binary.LittleEndian.PutUint32(out[4:8], l.Port)
	copy(out[8:24], l.Address[:])
	return out
}

func locatorFromBytes(b []byte) types.Locator {
	var l types.Locator
	if len(b) < 24 {
		return l
	}
	l.Kind = types.LocatorKind(binary.LittleEndian.Uint32(b[0:4]))
	l.Port = binary.LittleEndian.Uint32(b[4:8])
	copy(l.Address[:], b[8:24])
	return l
}

// SPDP owns the best-effort stateless writer/reader pair that announces
// and detects participants, and the liveliness table built from the
// announcements received (§4.6).
type SPDP struct {
	mu      sync.Mutex
	writer  *endpoint.StatelessWriter
	reader  *endpoint.StatelessReader
	known   map[types.GuidPrefix]*ParticipantProxy
	onFound func(ParticipantProxy)
	onLost  func(types.GuidPrefix)
}

// NewSPDP creates the SPDP endpoints for one local participant, already
// pointed at the well-known multicast locator.
func NewSPDP(local types.GUID, multicastLocator types.Locator, onFound func(ParticipantProxy), onLost func(types.GuidPrefix)) *SPDP {
	writerId := types.EntityIdSPDPBuiltinParticipantWriter
	readerId := types.EntityIdSPDPBuiltinParticipantReader
	p := qos.Default()
	return &SPDP{
		writer: endpoint.NewStatelessWriter(endpoint.Identity{
			Guid: types.NewGUID(local.Prefix, writerId),
			Qos:  p,
		}, []types.Locator{multicastLocator}),
		reader: endpoint.NewStatelessReader(endpoint.Identity{
			Guid: types.NewGUID(local.Prefix, readerId),
			Qos:  p,
		}),
		known:   make(map[types.GuidPrefix]*ParticipantProxy),
		onFound: onFound,
		onLost:  onLost,
	}
}

// Announce queues a fresh SPDP announcement of the local participant's
// current state.
func (s *SPDP) Announce(self ParticipantProxy) error {
	pl := encodeParticipantProxy(self)
	payload := append(wire.EncodePayloadHeader(wire.ReprPLCDR_LE, 0), pl.Encode(binary.LittleEndian)...)
	_, err := s.writer.NewChange(history.Alive, types.InstanceHandleNil, payload)
	return err
}

// NextOutbound pops the next encoded DATA submessage ready for
// transmission on the SPDP multicast locator, if any.
func (s *SPDP) NextOutbound() ([]byte, bool) {
	return s.writer.NextUnsent()
}

// HandleDatagram decodes an inbound SPDP DATA submessage, updates the
// liveliness table, and invokes onFound for a newly (or re-)discovered
// participant. Self-announcements (matching selfPrefix) are ignored.
func (s *SPDP) HandleDatagram(selfPrefix types.GuidPrefix, writer types.GUID, d wire.Data, now time.Time) error {
	_, err := s.reader.HandleData(writer, d, types.InstanceHandleNil)
	if err != nil {
		return err
	}
	raw := d.SerializedPayload
	repr, _, decErr := wire.DecodePayloadHeader(raw)
	if decErr != nil {
		return nil
	}
	body := raw[wire.SerializedPayloadHeaderLength:]
	pl, err := wire.DecodeParameterList(body, repr.ByteOrder())
	if err != nil {
		return err
	}
	proxy := decodeParticipantProxy(pl)
	if proxy.Guid.Prefix == selfPrefix {
		return nil
	}
	proxy.LastSeen = now

	s.mu.Lock()
	s.known[proxy.Guid.Prefix] = &proxy
	s.mu.Unlock()

	if s.onFound != nil {
		s.onFound(proxy)
	}
	return nil
}

// PurgeExpired drops every participant whose lease has elapsed as of
// now, invoking onLost for each (§4.6 liveliness protocol).
func (s *SPDP) PurgeExpired(now time.Time) {
	s.mu.Lock()
	var expired []types.GuidPrefix
	for prefix, p := range s.known {
		if now.Sub(p.LastSeen) > p.LeaseDuration.StdDuration() {
			expired = append(expired, prefix)
			delete(s.known, prefix)
		}
	}
	s.mu.Unlock()

	for _, prefix := range expired {
		if s.onLost != nil {
			s.onLost(prefix)
		}
	}
}

// Known returns a snapshot of every currently live remote participant.
func (s *SPDP) Known() []ParticipantProxy {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ParticipantProxy, 0, len(s.known))
	for _, p := range s.known {
		out = append(out, *p)
	}
	return out
}
