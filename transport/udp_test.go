package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/types"
)

func TestUnicastSendRecvRoundTrip(t *testing.T) {
	a, err := Listen(types.LocatorKindUDPv4, 0, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := Listen(types.LocatorKindUDPv4, 0, nil)
	require.NoError(t, err)
	defer b.Close()

	dest := b.UnicastLocator()
	dest.Address = loopbackAddress()

	require.NoError(t, a.Send(dest, []byte("hello")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	dgram, err := b.RecvUnicast(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), dgram.Payload)
}

func loopbackAddress() [16]byte {
	l := types.NewUDPv4Locator([]byte{127, 0, 0, 1}, 0)
	return l.Address
}
