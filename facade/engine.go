package facade

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/opendds-go/rtps/discovery"
	"github.com/opendds-go/rtps/rtps/endpoint"
	"github.com/opendds-go/rtps/rtps/proxy"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/receiver"
	"github.com/opendds-go/rtps/rtps/sender"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
	"github.com/opendds-go/rtps/transport"
)

// engine is the protocol pump wiring MessageReceiver/MessageSender to the
// endpoints a DomainParticipant owns: builtin SPDP/SEDP plus every
// registered user DataWriter/DataReader. Every call into it runs on the
// participant's actor mailbox, so the endpoint state machines underneath
// never need locks against concurrent network and API activity.
type engine struct {
	dp          *DomainParticipant
	recv        *receiver.MessageReceiver
	send        *sender.MessageSender
	dataWriters map[types.EntityId]*DataWriter
	dataReaders map[types.EntityId]*DataReader
}

func newEngine(dp *DomainParticipant) *engine {
	unicast := dp.transport.UnicastLocator()
	mcast := types.NewUDPv4Locator(unicast.IP(), uint16(unicast.Port))
	return &engine{
		dp:          dp,
		recv:        receiver.New(unicast, mcast, dp.log),
		send:        sender.New(dp.Guid.Prefix, dp.cfg.Transport.MaxMessageSize),
		dataWriters: make(map[types.EntityId]*DataWriter),
		dataReaders: make(map[types.EntityId]*DataReader),
	}
}

// registerReader makes dr visible to the engine's DATA/HEARTBEAT routing
// and to SEDP subscription announcement.
func (e *engine) registerReader(dr *DataReader) {
	e.dataReaders[dr.reader.Guid.EntityId] = dr
}

// registerWriter makes dw visible to the engine's ACKNACK routing and to
// SEDP publication announcement.
func (e *engine) registerWriter(dw *DataWriter) {
	e.dataWriters[dw.writer.Guid.EntityId] = dw
}

// RunRecvLoop blocks reading datagrams from one socket until ctx is
// cancelled, posting each to the mailbox for dispatch. Pass group nil for
// the unicast socket, or a joined multicast locator to drain that group.
// Callers run this in its own goroutine per socket.
func (dp *DomainParticipant) RunRecvLoop(ctx context.Context, group *types.Locator) {
	for {
		var dgram transport.Datagram
		var err error
		if group != nil {
			dgram, err = dp.transport.RecvMulticast(ctx, *group)
		} else {
			dgram, err = dp.transport.RecvUnicast(ctx)
		}
		if err != nil {
			return
		}
		payload := dgram.Payload
		dp.loop.Mailbox.PostFunc(func() {
			dp.engine.dispatch(payload)
		})
	}
}

func (e *engine) dispatch(buf []byte) {
	events, _ := e.recv.Process(buf)
	for _, ev := range events {
		switch ev.Raw.Kind {
		case wire.KindData:
			e.handleData(ev)
		case wire.KindHeartbeat:
			e.handleHeartbeat(ev)
		case wire.KindAckNack:
			e.handleAckNack(ev)
		case wire.KindGap:
			e.handleGap(ev)
		}
	}
	e.flushAndSend()
}

func (e *engine) handleData(ev receiver.Event) {
	d, err := wire.DecodeData(ev.Raw)
	if err != nil {
		return
	}
	writerGuid := receiver.SourceGuid(ev.Session, d.WriterId)

	switch d.ReaderId {
	case types.EntityIdSPDPBuiltinParticipantReader:
		_ = e.dp.spdp.HandleDatagram(e.dp.Guid.Prefix, writerGuid, d, time.Now())
		return
	case types.EntityIdSEDPBuiltinPublicationsReader:
		if _, err := e.dp.sedpPub.Reader().HandleData(writerGuid, d, types.InstanceHandleNil); err == nil {
			e.matchRemoteEndpoints(e.dp.sedpPub.Take(), false)
		}
		return
	case types.EntityIdSEDPBuiltinSubscriptionsReader:
		if _, err := e.dp.sedpSub.Reader().HandleData(writerGuid, d, types.InstanceHandleNil); err == nil {
			e.matchRemoteEndpoints(e.dp.sedpSub.Take(), true)
		}
		return
	}
	if dr, ok := e.dataReaders[d.ReaderId]; ok {
		_ = dr.Deliver(writerGuid, d, types.InstanceHandleNil)
	}
}

// matchRemoteEndpoints wires a batch of freshly taken SEDP announcements
// (remote publications if fromReaders is false, remote subscriptions if
// true) to this participant's opposite-role local endpoints, once QoS
// compatibility holds (§4.3.5, §4.6).
func (e *engine) matchRemoteEndpoints(announcements []discovery.EndpointAnnouncement, fromReaders bool) {
	for _, a := range announcements {
		if fromReaders {
			for _, dw := range e.dataWriters {
				if dw.topic != a.TopicName {
					continue
				}
				if qos.CheckCompatibility(a.Qos, dw.writer.Qos).Compatible {
					dw.MatchReader(a.Guid, a.Unicast, a.Multicast, true)
				}
			}
		} else {
			for _, dr := range e.dataReaders {
				if dr.topic != a.TopicName {
					continue
				}
				if qos.CheckCompatibility(dr.reader.Qos, a.Qos).Compatible {
					dr.MatchWriter(a.Guid, a.Unicast, a.Multicast)
				}
			}
		}
	}
}

func (e *engine) handleHeartbeat(ev receiver.Event) {
	hb, err := wire.DecodeHeartbeat(ev.Raw)
	if err != nil {
		return
	}
	writerGuid := receiver.SourceGuid(ev.Session, hb.WriterId)

	var r *endpoint.StatefulReader
	switch hb.ReaderId {
	case types.EntityIdSEDPBuiltinPublicationsReader:
		r = e.dp.sedpPub.Reader()
	case types.EntityIdSEDPBuiltinSubscriptionsReader:
		r = e.dp.sedpSub.Reader()
	default:
		if dr, ok := e.dataReaders[hb.ReaderId]; ok {
			r = dr.reader
		}
	}
	if r == nil {
		return
	}
	an, needsReply := r.HandleHeartbeat(writerGuid, hb)
	if !needsReply || len(ev.Session.UnicastReply) == 0 {
		return
	}
	body, err := an.Encode(binary.LittleEndian)
	if err != nil {
		return
	}
	e.send.Enqueue(sender.Destination{
		Locator:        ev.Session.UnicastReply[0],
		DestGuidPrefix: ev.Session.SourceGuidPrefix,
		Submessage:     body,
	})
}

func (e *engine) handleAckNack(ev receiver.Event) {
	an, err := wire.DecodeAckNack(ev.Raw)
	if err != nil {
		return
	}
	readerGuid := receiver.SourceGuid(ev.Session, an.ReaderId)

	var w *endpoint.StatefulWriter
	switch an.WriterId {
	case types.EntityIdSEDPBuiltinPublicationsWriter:
		w = e.dp.sedpPub.Writer()
	case types.EntityIdSEDPBuiltinSubscriptionsWriter:
		w = e.dp.sedpSub.Writer()
	default:
		if dw, ok := e.dataWriters[an.WriterId]; ok {
			w = dw.writer
		}
	}
	if w == nil {
		return
	}
	w.HandleAckNack(readerGuid, an)
	e.pumpWriter(w)
}

func (e *engine) handleGap(ev receiver.Event) {
	g, err := wire.DecodeGap(ev.Raw)
	if err != nil {
		return
	}
	writerGuid := receiver.SourceGuid(ev.Session, g.WriterId)
	if dr, ok := e.dataReaders[g.ReaderId]; ok {
		dr.reader.HandleGap(writerGuid, g)
	}
}

// pumpWriter enqueues every unsent change of w for every matched reader,
// addressed to that reader's known unicast locator, then repairs every
// change still Requested from an earlier ACKNACK (§4.3.4 "Pushing" and
// "Repairing"). Called after every ACKNACK a writer processes and from
// PumpAllWriters; writing a sample does not call it.
func (e *engine) pumpWriter(w *endpoint.StatefulWriter) {
	for _, rp := range w.Readers() {
		if len(rp.UnicastLocators) == 0 {
			continue
		}
		for {
			sn, ok := w.PendingUnsent(rp.RemoteReader)
			if !ok {
				break
			}
			body, ok := w.DataFor(rp.RemoteReader.EntityId, sn)
			if !ok {
				continue
			}
			e.send.Enqueue(sender.Destination{
				Locator:        rp.UnicastLocators[0],
				DestGuidPrefix: rp.RemoteReader.Prefix,
				Submessage:     body,
			})
			rp.ChangeSent(sn)
		}
		e.repairReader(w, rp)
	}
}

// repairReader retransmits every change rp's remote reader has requested
// via ACKNACK. A requested change still in the writer's cache is resent as
// DATA; one that has already been evicted is covered by a single GAP
// instead, since the writer can no longer satisfy the request (§4.3.4
// "Repairing").
func (e *engine) repairReader(w *endpoint.StatefulWriter, rp *proxy.ReaderProxy) {
	requested := rp.RequestedChanges()
	if len(requested) == 0 {
		return
	}
	var gapSNs []types.SequenceNumber
	for _, sn := range requested {
		body, ok := w.DataFor(rp.RemoteReader.EntityId, sn)
		if !ok {
			gapSNs = append(gapSNs, sn)
			continue
		}
		e.send.Enqueue(sender.Destination{
			Locator:        rp.UnicastLocators[0],
			DestGuidPrefix: rp.RemoteReader.Prefix,
			Submessage:     body,
		})
		rp.MarkRepairSent(sn)
	}
	if len(gapSNs) == 0 {
		return
	}
	set := types.NewSequenceNumberSet(gapSNs[0])
	for _, sn := range gapSNs {
		set.Add(sn)
	}
	g := wire.Gap{
		ReaderId: rp.RemoteReader.EntityId,
		WriterId: w.Guid.EntityId,
		GapStart: gapSNs[0],
		GapList:  set,
	}
	body, err := g.Encode(binary.LittleEndian)
	if err != nil {
		return
	}
	e.send.Enqueue(sender.Destination{
		Locator:        rp.UnicastLocators[0],
		DestGuidPrefix: rp.RemoteReader.Prefix,
		Submessage:     body,
	})
	for _, sn := range gapSNs {
		rp.Forget(sn)
	}
}

func (e *engine) flushAndSend() {
	for _, batch := range e.send.Flush() {
		_ = e.dp.transport.Send(batch.Locator, batch.Payload)
	}
}

// PumpAllWriters drains unsent changes for every user writer and both
// SEDP writers, then flushes the resulting batches to the network. Called
// from a periodic timer so new samples reach matched readers without
// waiting for an ACKNACK round trip.
func (dp *DomainParticipant) PumpAllWriters() {
	dp.loop.Mailbox.PostFunc(func() {
		for _, dw := range dp.engine.dataWriters {
			dp.engine.pumpWriter(dw.writer)
		}
		dp.engine.pumpWriter(dp.sedpPub.Writer())
		dp.engine.pumpWriter(dp.sedpSub.Writer())
		dp.engine.flushAndSend()
	})
}
