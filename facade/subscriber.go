package facade

import (
	"fmt"

	"github.com/opendds-go/rtps/discovery"
	"github.com/opendds-go/rtps/registry"
	"github.com/opendds-go/rtps/rtps/endpoint"
	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// Subscriber groups DataReaders the same way Publisher groups DataWriters.
type Subscriber struct {
	dp         *DomainParticipant
	defaultQos qos.Policies
}

// CreateSubscriber returns a Subscriber scoped to dp.
func (dp *DomainParticipant) CreateSubscriber(defaultQos qos.Policies) *Subscriber {
	return &Subscriber{dp: dp, defaultQos: defaultQos}
}

// DataReader is the facade's read-side handle: a StatefulReader plus the
// listener callbacks a caller registered; OnDataAvailable is invoked from
// the participant's actor mailbox as DATA submessages arrive (§6 facade).
type DataReader struct {
	dp       *DomainParticipant
	reader   *endpoint.StatefulReader
	topic    string
	listener DataReaderListener
}

// DataReaderListener mirrors the DDS listener capability set named in
// SPEC_FULL's facade scope: on_data_available and on_liveliness_changed
// are the two events a thin facade needs to surface without building a
// full listener hierarchy.
type DataReaderListener interface {
	OnDataAvailable(reader *DataReader)
	OnLivelinessChanged(writer types.GUID, alive bool)
}

// CreateDataReader allocates a stateful DataReader for topic with the
// given policies (reliability included) and announces it over SEDP.
func (s *Subscriber) CreateDataReader(topic, typeName string, policies qos.Policies, listener DataReaderListener) (*DataReader, error) {
	dp := s.dp
	entityId := nextUserEntityId(dp, types.EntityKindReaderWithKey)
	guid := types.NewGUID(dp.Guid.Prefix, entityId)

	r := endpoint.NewStatefulReader(endpoint.Identity{
		Guid:      guid,
		TopicName: topic,
		TypeName:  typeName,
		Qos:       policies,
	})

	rec := &registry.EndpointRecord{
		Guid:     guid,
		Topic:    registry.Topic{Name: topic, Type: typeName},
		Qos:      policies,
		IsReader: true,
	}
	if err := dp.registry.RegisterEndpoint(rec); err != nil {
		return nil, fmt.Errorf("register reader: %w", err)
	}

	dr := &DataReader{dp: dp, reader: r, topic: topic, listener: listener}
	dp.engine.registerReader(dr)
	dp.loop.Mailbox.PostFunc(func() {
		_ = dp.sedpSub.Announce(discovery.EndpointAnnouncement{
			Guid:      guid,
			TopicName: topic,
			TypeName:  typeName,
			Qos:       policies,
			IsReader:  true,
		})
	})
	return dr, nil
}

// MatchWriter wires dr to a discovered remote writer.
func (dr *DataReader) MatchWriter(remote types.GUID, unicast, multicast []types.Locator) {
	dr.reader.MatchWriter(remote, unicast, multicast)
}

// Deliver runs a received DATA submessage into the reader's HistoryCache
// and fires OnDataAvailable when it produces a new sample. Callers invoke
// this from the participant's actor mailbox after MessageReceiver folds a
// submessage into an addressed Event (§4.4/§4.5 wiring).
func (dr *DataReader) Deliver(writer types.GUID, d wire.Data, instance types.InstanceHandle) error {
	delivered, err := dr.reader.HandleData(writer, d, instance)
	if err != nil {
		return err
	}
	if delivered && dr.listener != nil {
		dr.listener.OnDataAvailable(dr)
	}
	return nil
}

// Take removes and returns up to max available samples (all of them when
// max <= 0), the same way a real DDS DataReader::take call would.
func (dr *DataReader) Take(max int) []*history.CacheChange {
	changes := dr.reader.Cache().Take(max, history.FilterSpec{})
	out := make([]*history.CacheChange, len(changes))
	for i, c := range changes {
		out[i] = c.CacheChange
	}
	return out
}

// Read behaves like Take but leaves samples marked Read rather than
// removing them from the cache.
func (dr *DataReader) Read(max int) []*history.CacheChange {
	changes := dr.reader.Cache().Read(max, history.FilterSpec{})
	out := make([]*history.CacheChange, len(changes))
	for i, c := range changes {
		out[i] = c.CacheChange
	}
	return out
}
