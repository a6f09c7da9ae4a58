package discovery

import (
	"encoding/binary"

	"github.com/opendds-go/rtps/registry"
	"github.com/opendds-go/rtps/rtps/endpoint"
	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// EndpointAnnouncement is the decoded form of one SEDP publication or
// subscription announcement (§4.6).
type EndpointAnnouncement struct {
	Guid      types.GUID
	TopicName string
	TypeName  string
	Qos       qos.Policies
	Unicast   []types.Locator
	Multicast []types.Locator
	IsReader  bool
}

func encodeEndpointAnnouncement(a EndpointAnnouncement) *wire.ParameterList {
	var pl wire.ParameterList
	pl.Add(wire.PIDEndpointGuid, guidBytes(a.Guid))
	pl.Add(wire.PIDTopicName, padString(a.TopicName))
	pl.Add(wire.PIDTypeName, padString(a.TypeName))
	reliability := byte(0)
	if a.Qos.Reliability.Kind == qos.Reliable {
		reliability = 1
	}
	pl.Add(wire.PIDReliability, []byte{reliability, 0, 0, 0})
	pl.Add(wire.PIDDurability, []byte{byte(a.Qos.Durability.Kind), 0, 0, 0})
	for _, l := range a.Unicast {
		pl.Add(wire.PIDUnicastLocator, locatorBytes(l))
	}
	for _, l := range a.Multicast {
		pl.Add(wire.PIDMulticastLocator, locatorBytes(l))
	}
	return &pl
}

func decodeEndpointAnnouncement(pl wire.ParameterList) EndpointAnnouncement {
	var a EndpointAnnouncement
	if v, ok := pl.Get(wire.PIDEndpointGuid); ok {
		a.Guid = guidFromBytes(v.Value)
	}
	if v, ok := pl.Get(wire.PIDTopicName); ok {
		a.TopicName = unpadString(v.Value)
	}
	if v, ok := pl.Get(wire.PIDTypeName); ok {
		a.TypeName = unpadString(v.Value)
	}
	a.Qos = qos.Default()
	if v, ok := pl.Get(wire.PIDReliability); ok && len(v.Value) >= 1 && v.Value[0] == 1 {
		a.Qos.Reliability.Kind = qos.Reliable
	}
	if v, ok := pl.Get(wire.PIDDurability); ok && len(v.Value) >= 1 {
		a.Qos.Durability.Kind = qos.DurabilityKind(v.Value[0])
	}
	for _, param := range pl.Parameters {
		switch param.Id {
		case wire.PIDUnicastLocator:
			a.Unicast = append(a.Unicast, locatorFromBytes(param.Value))
		case wire.PIDMulticastLocator:
			a.Multicast = append(a.Multicast, locatorFromBytes(param.Value))
		}
	}
	a.IsReader = a.Guid.EntityId.IsReader()
	return a
}

func padString(s string) []byte {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func unpadString(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

// SEDP owns one direction's announcer/detector pair — publications or
// subscriptions — built on reliable stateful builtin endpoints so
// endpoint discovery itself benefits from retransmission (§4.6).
type SEDP struct {
	writer *endpoint.StatefulWriter
	reader *endpoint.StatefulReader
}

// NewSEDP creates a SEDP announcer/detector pair for one builtin
// endpoint direction (e.g. SEDPBuiltinPublications), reliable and
// keep-all so no announcement is ever silently dropped.
func NewSEDP(local types.GUID, writerId, readerId types.EntityId) *SEDP {
	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	p.History = qos.HistoryPolicy{Kind: qos.KeepAll}
	return &SEDP{
		writer: endpoint.NewStatefulWriter(endpoint.Identity{Guid: types.NewGUID(local.Prefix, writerId), Qos: p}),
		reader: endpoint.NewStatefulReader(endpoint.Identity{Guid: types.NewGUID(local.Prefix, readerId), Qos: p}),
	}
}

// MatchRemoteParticipant wires this SEDP direction's writer and reader to
// the reciprocal builtin endpoints of a newly discovered participant
// (§4.6: SEDP's own endpoints are matched directly from SPDP data,
// without a further discovery round).
func (s *SEDP) MatchRemoteParticipant(remote types.GUID, remoteWriterId, remoteReaderId types.EntityId, unicast, multicast []types.Locator) {
	s.writer.MatchReader(types.NewGUID(remote.Prefix, remoteReaderId), unicast, multicast, true)
	s.reader.MatchWriter(types.NewGUID(remote.Prefix, remoteWriterId), unicast, multicast)
}

// Announce queues an endpoint announcement for delivery to every matched
// remote SEDP reader.
func (s *SEDP) Announce(a EndpointAnnouncement) error {
	pl := encodeEndpointAnnouncement(a)
	payload := append(wire.EncodePayloadHeader(wire.ReprPLCDR_LE, 0), pl.Encode(binary.LittleEndian)...)
	_, err := s.writer.NewChange(history.Alive, types.InstanceHandleNil, payload)
	return err
}

// Writer exposes the underlying StatefulWriter for transport wiring
// (heartbeat scheduling, ackNack handling).
func (s *SEDP) Writer() *endpoint.StatefulWriter { return s.writer }

// Reader exposes the underlying StatefulReader for transport wiring.
func (s *SEDP) Reader() *endpoint.StatefulReader { return s.reader }

// Take drains newly received endpoint announcements, decoding each into
// an EndpointAnnouncement (ToEndpointRecord converts one for the registry).
func (s *SEDP) Take() []EndpointAnnouncement {
	changes := s.reader.Cache().Take(0, history.FilterSpec{})
	out := make([]EndpointAnnouncement, 0, len(changes))
	for _, c := range changes {
		repr, _, err := wire.DecodePayloadHeader(c.Payload)
		if err != nil {
			continue
		}
		body := c.Payload[wire.SerializedPayloadHeaderLength:]
		pl, err := wire.DecodeParameterList(body, repr.ByteOrder())
		if err != nil {
			continue
		}
		out = append(out, decodeEndpointAnnouncement(pl))
	}
	return out
}

// ToEndpointRecord converts a decoded announcement into the registry's
// EndpointRecord shape for cross-participant bookkeeping.
func ToEndpointRecord(a EndpointAnnouncement) *registry.EndpointRecord {
	return &registry.EndpointRecord{
		Guid:      a.Guid,
		Topic:     registry.Topic{Name: a.TopicName, Type: a.TypeName},
		Qos:       a.Qos,
		IsReader:  a.IsReader,
		Unicast:   a.Unicast,
		Multicast: a.Multicast,
	}
}
