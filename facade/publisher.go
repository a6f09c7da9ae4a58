package facade

import (
	"fmt"
	"time"

	"github.com/opendds-go/rtps/discovery"
	"github.com/opendds-go/rtps/internal/rtpserrors"
	"github.com/opendds-go/rtps/registry"
	"github.com/opendds-go/rtps/rtps/endpoint"
	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

// Publisher groups DataWriters under a shared default QoS (§4.2.2); this
// module does not yet implement publisher-level QoS like PRESENTATION, so
// it is a thin grouping handle over the participant's registry.
type Publisher struct {
	dp         *DomainParticipant
	defaultQos qos.Policies
}

// CreatePublisher returns a Publisher scoped to dp.
func (dp *DomainParticipant) CreatePublisher(defaultQos qos.Policies) *Publisher {
	return &Publisher{dp: dp, defaultQos: defaultQos}
}

// DataWriter is the facade's write-side handle: it owns a StatefulWriter,
// announces itself via SEDP, and is matched against discovered readers by
// the participant's SEDP take loop (§6 facade).
type DataWriter struct {
	dp     *DomainParticipant
	writer *endpoint.StatefulWriter
	topic  string
}

// CreateDataWriter allocates a stateful DataWriter for topic with the
// given policies (reliability included) and announces it over SEDP. The
// writer's GUID entity key is derived from the incrementing user-instance
// counter behind the participant's registry.
func (p *Publisher) CreateDataWriter(topic, typeName string, policies qos.Policies) (*DataWriter, error) {
	dp := p.dp
	entityId := nextUserEntityId(dp, types.EntityKindWriterWithKey)
	guid := types.NewGUID(dp.Guid.Prefix, entityId)

	w := endpoint.NewStatefulWriter(endpoint.Identity{
		Guid:      guid,
		TopicName: topic,
		TypeName:  typeName,
		Qos:       policies,
	})

	rec := &registry.EndpointRecord{
		Guid:     guid,
		Topic:    registry.Topic{Name: topic, Type: typeName},
		Qos:      policies,
		IsReader: false,
	}
	if err := dp.registry.RegisterEndpoint(rec); err != nil {
		return nil, fmt.Errorf("register writer: %w", err)
	}

	dw := &DataWriter{dp: dp, writer: w, topic: topic}
	dp.engine.registerWriter(dw)
	dp.loop.Mailbox.PostFunc(func() {
		_ = dp.sedpPub.Announce(discovery.EndpointAnnouncement{
			Guid:      guid,
			TopicName: topic,
			TypeName:  typeName,
			Qos:       policies,
			IsReader:  false,
		})
	})
	return dw, nil
}

// Write enqueues a new ALIVE sample with payload as its serialized value,
// returning the allocated CacheChange for callers that want its sequence
// number (e.g. for a later dispose keyed to the same instance).
func (dw *DataWriter) Write(instance types.InstanceHandle, payload []byte) (*history.CacheChange, error) {
	return dw.writer.NewChange(history.Alive, instance, payload)
}

// Dispose marks instance as NOT_ALIVE_DISPOSED (§2.2.2.4.1.7).
func (dw *DataWriter) Dispose(instance types.InstanceHandle) error {
	_, err := dw.writer.NewChange(history.NotAliveDisposed, instance, nil)
	return err
}

// MatchReader wires dw directly to a discovered remote reader; called by
// the participant's SEDP take loop once QoS compatibility is confirmed.
func (dw *DataWriter) MatchReader(remote types.GUID, unicast, multicast []types.Locator, reliable bool) {
	dw.writer.MatchReader(remote, unicast, multicast, reliable)
}

// IsAckedByAll reports whether every change in dw's history has been
// acknowledged by every matched reliable reader (§4.3.4 is_acked_by_all).
func (dw *DataWriter) IsAckedByAll() bool {
	for _, rp := range dw.writer.Readers() {
		if rp.IsReliable && rp.UnacknowledgedChanges() {
			return false
		}
	}
	return true
}

// WaitForAcknowledgments blocks until IsAckedByAll holds or maxWait
// elapses, returning PreconditionNotMet if dw has no matched reliable
// reader and Timeout if the deadline passes first (§6 facade interface,
// §7 error taxonomy).
func (dw *DataWriter) WaitForAcknowledgments(maxWait time.Duration) error {
	hasReliable := false
	for _, rp := range dw.writer.Readers() {
		if rp.IsReliable {
			hasReliable = true
			break
		}
	}
	if !hasReliable {
		return rtpserrors.New(rtpserrors.PreconditionNotMet, "no matched reliable readers")
	}

	const pollInterval = 5 * time.Millisecond
	deadline := time.Now().Add(maxWait)
	for {
		if dw.IsAckedByAll() {
			return nil
		}
		if time.Now().After(deadline) {
			return rtpserrors.New(rtpserrors.Timeout, "not acknowledged within %s", maxWait)
		}
		time.Sleep(pollInterval)
	}
}

func nextUserEntityId(dp *DomainParticipant, kind types.EntityKind) types.EntityId {
	h := dp.registry.NextUserInstanceHandle()
	return types.EntityId{Key: [3]byte{h[0], h[1], h[2]}, Kind: kind}
}
