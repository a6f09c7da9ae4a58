package facade

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

func wireDataFor(readerId, writerId types.EntityId, sn types.SequenceNumber, payload []byte) wire.Data {
	return wire.Data{
		ReaderId:          readerId,
		WriterId:          writerId,
		WriterSN:          sn,
		SerializedPayload: payload,
	}
}

func TestPumpWriterEnqueuesDataForMatchedReader(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())

	dw, err := pub.CreateDataWriter("Temperature", "TemperatureSample", qos.Default())
	require.NoError(t, err)

	remote := types.NewGUID(types.GuidPrefix{7, 7, 7}, types.EntityIdFromBytes([4]byte{0, 0, 5, 0x07}))
	loc := types.NewUDPv4Locator([]byte{10, 0, 0, 2}, 7411)
	dw.MatchReader(remote, []types.Locator{loc}, nil, true)

	_, err = dw.Write(types.InstanceHandleNil, []byte("23.5C"))
	require.NoError(t, err)

	dp.engine.pumpWriter(dw.writer)
	batches := dp.engine.send.Flush()
	require.Len(t, batches, 1)
	require.Equal(t, loc, batches[0].Locator)
}

func TestPumpWriterRepairsRequestedChange(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())

	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	p.History = qos.HistoryPolicy{Kind: qos.KeepAll}
	dw, err := pub.CreateDataWriter("Temperature", "TemperatureSample", p)
	require.NoError(t, err)

	remote := types.NewGUID(types.GuidPrefix{8, 8, 8}, types.EntityIdFromBytes([4]byte{0, 0, 7, 0x07}))
	loc := types.NewUDPv4Locator([]byte{10, 0, 0, 3}, 7412)
	rp := dw.writer.MatchReader(remote, []types.Locator{loc}, nil, true)

	c1, err := dw.Write(types.InstanceHandleNil, []byte("20.0C"))
	require.NoError(t, err)
	_, err = dw.Write(types.InstanceHandleNil, []byte("21.0C"))
	require.NoError(t, err)

	dp.engine.pumpWriter(dw.writer)
	require.Len(t, dp.engine.send.Flush(), 1) // both DATA share one locator and prefix

	rp.RequestedChangesSet([]types.SequenceNumber{c1.SequenceNumber})
	dp.engine.pumpWriter(dw.writer)
	repaired := dp.engine.send.Flush()
	require.Len(t, repaired, 1)
	require.Equal(t, loc, repaired[0].Locator)
	require.Empty(t, rp.RequestedChanges())
}

func TestRepairReaderSendsGapForEvictedChange(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())

	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	dw, err := pub.CreateDataWriter("Temperature", "TemperatureSample", p)
	require.NoError(t, err)

	remote := types.NewGUID(types.GuidPrefix{8, 8, 8}, types.EntityIdFromBytes([4]byte{0, 0, 7, 0x08}))
	loc := types.NewUDPv4Locator([]byte{10, 0, 0, 4}, 7413)
	rp := dw.writer.MatchReader(remote, []types.Locator{loc}, nil, true)

	rp.RequestedChangesSet([]types.SequenceNumber{5})
	dp.engine.repairReader(dw.writer, rp)

	batches := dp.engine.send.Flush()
	require.Len(t, batches, 1)
	require.Equal(t, loc, batches[0].Locator)
	require.Empty(t, rp.RequestedChanges())
}

func TestHandleDataDeliversToRegisteredReader(t *testing.T) {
	dp := newTestParticipant(t)
	sub := dp.CreateSubscriber(qos.Default())
	dr, err := sub.CreateDataReader("Temperature", "TemperatureSample", qos.Default(), nil)
	require.NoError(t, err)

	remoteWriter := types.NewGUID(types.GuidPrefix{7, 7, 7}, types.EntityIdFromBytes([4]byte{0, 0, 6, 0x02}))
	err = dr.Deliver(remoteWriter, wireDataFor(dr.reader.Guid.EntityId, remoteWriter.EntityId, 1, []byte("23.5C")), types.InstanceHandleNil)
	require.NoError(t, err)

	taken := dr.Take(10)
	require.Len(t, taken, 1)
	require.Equal(t, history.Alive, taken[0].Kind)
	require.Equal(t, []byte("23.5C"), taken[0].Payload)
}
