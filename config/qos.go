package config

import (
	"time"

	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

// ToPolicies builds a qos.Policies from the config file's overrides,
// layered on top of qos.Default() so an omitted field behaves exactly as
// the OMG default (§3).
func (c QosConfig) ToPolicies() qos.Policies {
	p := qos.Default()
	switch c.Reliability {
	case "reliable":
		p.Reliability.Kind = qos.Reliable
	case "best_effort", "":
		p.Reliability.Kind = qos.BestEffort
	}
	switch c.Durability {
	case "transient_local":
		p.Durability.Kind = qos.TransientLocal
	case "transient":
		p.Durability.Kind = qos.Transient
	case "persistent":
		p.Durability.Kind = qos.Persistent
	case "volatile", "":
		p.Durability.Kind = qos.Volatile
	}
	switch c.HistoryKind {
	case "keep_all":
		p.History.Kind = qos.KeepAll
	case "keep_last", "":
		p.History.Kind = qos.KeepLast
		if c.HistoryDepth > 0 {
			p.History.Depth = c.HistoryDepth
		}
	}
	if c.DeadlinePeriodMs > 0 {
		p.Deadline.Period = types.FromStdDuration(time.Duration(c.DeadlinePeriodMs) * time.Millisecond)
	}
	return p
}
