// Package facade is the thin DDS-facing shell named in §6: a
// DomainParticipant owning Publishers/Subscribers/DataWriters/DataReaders,
// each call routed through the participant's single actor mailbox so the
// protocol engine underneath never needs its own synchronization beyond
// what rtps/history and rtps/proxy already provide internally.
package facade

import (
	"math/rand"
	"net"
	"time"

	"github.com/charmbracelet/log"

	"github.com/opendds-go/rtps/config"
	"github.com/opendds-go/rtps/discovery"
	"github.com/opendds-go/rtps/internal/actor"
	"github.com/opendds-go/rtps/registry"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/transport"
)

// DomainParticipant is the facade's root entity (§4.7).
type DomainParticipant struct {
	Guid      types.GUID
	domainId  uint32
	cfg       config.DomainParticipantConfig
	loop      *actor.ParticipantLoop
	registry  *registry.Registry
	transport *transport.UDPTransport
	spdp      *discovery.SPDP
	sedpPub   *discovery.SEDP
	sedpSub   *discovery.SEDP
	engine    *engine
	log       *log.Logger
}

// NewDomainParticipant creates a participant, binds its transport, and
// starts its actor loop and builtin discovery endpoints. The GUID prefix
// is randomly generated the way a real deployment's instance id would be
// (§4.7: the prefix need only be unique within the domain).
func NewDomainParticipant(cfg config.DomainParticipantConfig, logger *log.Logger) (*DomainParticipant, error) {
	prefix := randomGuidPrefix()
	self := types.NewGUID(prefix, types.EntityIdParticipant)

	tport, err := transport.Listen(types.LocatorKindUDPv4, cfg.Transport.UnicastPort, logger)
	if err != nil {
		return nil, err
	}
	mcastLoc := types.NewUDPv4Locator(net.ParseIP(cfg.Discovery.SPDPMulticastAddress), uint16(cfg.Discovery.SPDPMulticastPort))
	if err := tport.JoinMulticast(mcastLoc); err != nil && logger != nil {
		logger.Warn("failed to join SPDP multicast group", "error", err)
	}

	dp := &DomainParticipant{
		Guid:      self,
		domainId:  cfg.DomainId,
		cfg:       cfg,
		loop:      actor.NewParticipantLoop(logger),
		registry:  registry.New(self),
		transport: tport,
		log:       logger,
	}
	dp.spdp = discovery.NewSPDP(self, mcastLoc, dp.onParticipantFound, dp.onParticipantLost)
	dp.sedpPub = discovery.NewSEDP(self, types.EntityIdSEDPBuiltinPublicationsWriter, types.EntityIdSEDPBuiltinPublicationsReader)
	dp.sedpSub = discovery.NewSEDP(self, types.EntityIdSEDPBuiltinSubscriptionsWriter, types.EntityIdSEDPBuiltinSubscriptionsReader)
	dp.engine = newEngine(dp)
	return dp, nil
}

func randomGuidPrefix() types.GuidPrefix {
	var p types.GuidPrefix
	for i := range p {
		p[i] = byte(rand.Intn(256))
	}
	return p
}

// onParticipantFound registers SEDP matching against a newly discovered
// remote participant (§4.6): this participant's SEDP endpoints are
// matched directly, without their own discovery round.
func (dp *DomainParticipant) onParticipantFound(p discovery.ParticipantProxy) {
	dp.loop.Mailbox.PostFunc(func() {
		dp.sedpPub.MatchRemoteParticipant(p.Guid, types.EntityIdSEDPBuiltinPublicationsWriter, types.EntityIdSEDPBuiltinPublicationsReader, p.DefaultUnicastLocators, nil)
		dp.sedpSub.MatchRemoteParticipant(p.Guid, types.EntityIdSEDPBuiltinSubscriptionsWriter, types.EntityIdSEDPBuiltinSubscriptionsReader, p.DefaultUnicastLocators, nil)
		if dp.log != nil {
			dp.log.Info("discovered remote participant", "guid", p.Guid.String())
		}
	})
}

func (dp *DomainParticipant) onParticipantLost(prefix types.GuidPrefix) {
	dp.loop.Mailbox.PostFunc(func() {
		if dp.log != nil {
			dp.log.Info("lost remote participant", "prefix", prefix)
		}
	})
}

// AnnounceLoop queues one SPDP announcement; callers typically invoke
// this from a periodic timer registered via dp.loop.SchedulePeriodic.
func (dp *DomainParticipant) AnnounceLoop() {
	dp.loop.Mailbox.PostFunc(func() {
		_ = dp.spdp.Announce(discovery.ParticipantProxy{
			Guid:                   dp.Guid,
			DefaultUnicastLocators: []types.Locator{dp.transport.UnicastLocator()},
			LeaseDuration:          durationFrom(dp.cfg.Discovery.LeaseDuration()),
		})
	})
}

func durationFrom(d time.Duration) types.Duration {
	return types.FromStdDuration(d)
}

// Registry exposes the participant's entity registry for Publisher and
// Subscriber construction.
func (dp *DomainParticipant) Registry() *registry.Registry { return dp.registry }

// Close halts the actor loop and releases the transport.
func (dp *DomainParticipant) Close() error {
	dp.loop.Close()
	return dp.transport.Close()
}

// CheckCompatibility re-exports qos.CheckCompatibility for facade callers
// that don't want a direct rtps/qos import just to match a reader and
// writer's policies.
func CheckCompatibility(reader, writer qos.Policies) qos.CompatibilityResult {
	return qos.CheckCompatibility(reader, writer)
}
