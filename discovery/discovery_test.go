package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

func prefix(b byte) types.GuidPrefix {
	var p types.GuidPrefix
	p[0] = b
	return p
}

func TestSPDPAnnounceThenDetect(t *testing.T) {
	selfGuid := types.NewGUID(prefix(1), types.EntityIdParticipant)
	mcast := types.NewUDPv4Locator(SPDPMulticastAddress, SPDPMulticastPort)

	var found ParticipantProxy
	local := NewSPDP(selfGuid, mcast, func(p ParticipantProxy) { found = p }, nil)
	remoteParticipant := types.NewGUID(prefix(2), types.EntityIdParticipant)
	remote := NewSPDP(remoteParticipant, mcast, nil, nil)

	require.NoError(t, remote.Announce(ParticipantProxy{
		Guid:            remoteParticipant,
		ProtocolVersion: wire.ProtocolVersion24,
		VendorId:        wire.VendorIdThis,
		LeaseDuration:   types.FromStdDuration(30 * time.Second),
	}))

	buf, ok := remote.NextOutbound()
	require.True(t, ok)
	raw := decodeOneSubmessage(t, buf)
	d, err := wire.DecodeData(raw)
	require.NoError(t, err)

	writerGuid := types.NewGUID(prefix(2), types.EntityIdSPDPBuiltinParticipantWriter)
	require.NoError(t, local.HandleDatagram(prefix(1), writerGuid, d, time.Now()))
	require.Equal(t, remoteParticipant, found.Guid)
	require.Len(t, local.Known(), 1)
}

func TestSPDPIgnoresSelfAnnouncement(t *testing.T) {
	selfGuid := types.NewGUID(prefix(1), types.EntityIdParticipant)
	mcast := types.NewUDPv4Locator(SPDPMulticastAddress, SPDPMulticastPort)
	called := false
	local := NewSPDP(selfGuid, mcast, func(ParticipantProxy) { called = true }, nil)

	require.NoError(t, local.Announce(ParticipantProxy{Guid: selfGuid, LeaseDuration: types.DurationInfinite}))
	buf, ok := local.NextOutbound()
	require.True(t, ok)
	raw := decodeOneSubmessage(t, buf)
	d, err := wire.DecodeData(raw)
	require.NoError(t, err)

	writerGuid := types.NewGUID(prefix(1), types.EntityIdSPDPBuiltinParticipantWriter)
	require.NoError(t, local.HandleDatagram(prefix(1), writerGuid, d, time.Now()))
	require.False(t, called)
	require.Empty(t, local.Known())
}

func TestSPDPPurgeExpiredFiresOnLost(t *testing.T) {
	selfGuid := types.NewGUID(prefix(1), types.EntityIdParticipant)
	mcast := types.NewUDPv4Locator(SPDPMulticastAddress, SPDPMulticastPort)
	var lostPrefix types.GuidPrefix
	local := NewSPDP(selfGuid, mcast, nil, func(p types.GuidPrefix) { lostPrefix = p })

	remoteParticipant := types.NewGUID(prefix(2), types.EntityIdParticipant)
	now := time.Now()
	local.known[prefix(2)] = &ParticipantProxy{Guid: remoteParticipant, LeaseDuration: types.FromStdDuration(time.Second), LastSeen: now}

	local.PurgeExpired(now.Add(2 * time.Second))
	require.Equal(t, prefix(2), lostPrefix)
	require.Empty(t, local.Known())
}

func TestSEDPAnnounceThenTake(t *testing.T) {
	local := types.NewGUID(prefix(1), types.EntityIdParticipant)
	remote := types.NewGUID(prefix(2), types.EntityIdParticipant)

	localSedp := NewSEDP(local, types.EntityIdSEDPBuiltinPublicationsWriter, types.EntityIdSEDPBuiltinPublicationsReader)
	remoteSedp := NewSEDP(remote, types.EntityIdSEDPBuiltinPublicationsWriter, types.EntityIdSEDPBuiltinPublicationsReader)

	localSedp.MatchRemoteParticipant(remote, types.EntityIdSEDPBuiltinPublicationsWriter, types.EntityIdSEDPBuiltinPublicationsReader, nil, nil)
	remoteSedp.MatchRemoteParticipant(local, types.EntityIdSEDPBuiltinPublicationsWriter, types.EntityIdSEDPBuiltinPublicationsReader, nil, nil)

	writerGuid := types.NewGUID(local.Prefix, types.EntityId{Kind: types.EntityKindWriterNoKey})
	require.NoError(t, localSedp.Announce(EndpointAnnouncement{
		Guid:      writerGuid,
		TopicName: "Temp",
		TypeName:  "SensorSample",
		Qos:       qos.Default(),
	}))

	sn, ok := localSedp.Writer().PendingUnsent(remoteSedp.Reader().Guid)
	require.True(t, ok)
	buf, ok := localSedp.Writer().DataFor(remoteSedp.Reader().Guid.EntityId, sn)
	require.True(t, ok)
	raw := decodeOneSubmessage(t, buf)
	d, err := wire.DecodeData(raw)
	require.NoError(t, err)

	_, err = remoteSedp.Reader().HandleData(types.NewGUID(local.Prefix, types.EntityIdSEDPBuiltinPublicationsWriter), d, types.InstanceHandleNil)
	require.NoError(t, err)

	got := remoteSedp.Take()
	require.Len(t, got, 1)
	require.Equal(t, "Temp", got[0].TopicName)
	require.Equal(t, writerGuid, got[0].Guid)
}

func decodeOneSubmessage(t *testing.T, buf []byte) wire.RawSubmessage {
	t.Helper()
	header := wire.MessageHeader{Version: wire.ProtocolVersion24, VendorId: wire.VendorIdThis}
	msg := wire.EncodeMessage(header, [][]byte{buf})
	_, subs, err := wire.DecodeMessage(msg)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	return subs[0]
}
