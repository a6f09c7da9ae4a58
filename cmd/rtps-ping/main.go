// Command rtps-ping is a minimal two-process exerciser for the engine in
// this module: one instance writes timestamped samples on a topic, any
// number of instances reading the same topic print each one as it
// arrives, discovering each other over SPDP/SEDP the same way a real DDS
// deployment would rather than dialing a fixed address.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/log"

	"github.com/opendds-go/rtps/config"
	"github.com/opendds-go/rtps/facade"
	"github.com/opendds-go/rtps/internal/corelog"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

func main() {
	var role string
	var topic string
	var configPath string
	var interval time.Duration

	flag.StringVar(&role, "role", "write", "write or read")
	flag.StringVar(&topic, "topic", "Ping", "topic name")
	flag.StringVar(&configPath, "config", "", "participant TOML config (optional)")
	flag.DurationVar(&interval, "interval", time.Second, "write/announce interval")
	versioninfo.AddFlag(flag.CommandLine)
	flag.Parse()

	logger := corelog.Default()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			logger.Fatal("loading config", "error", err)
		}
	}

	dp, err := facade.NewDomainParticipant(cfg, logger)
	if err != nil {
		logger.Fatal("creating participant", "error", err)
	}
	defer dp.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dp.RunRecvLoop(ctx, nil)

	announce := func() {
		dp.AnnounceLoop()
		dp.PumpAllWriters()
	}
	announce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	switch role {
	case "write":
		runWriter(ctx, dp, topic, ticker, announce, logger)
	case "read":
		runReader(ctx, dp, topic, ticker, announce, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q (want write or read)\n", role)
		os.Exit(1)
	}
}

func runWriter(ctx context.Context, dp *facade.DomainParticipant, topic string, ticker *time.Ticker, announce func(), logger *log.Logger) {
	pub := dp.CreatePublisher(qos.Default())
	dw, err := pub.CreateDataWriter(topic, "Ping", qos.Default())
	if err != nil {
		logger.Fatal("creating data writer", "error", err)
	}

	instance := dp.Registry().NextUserInstanceHandle()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	var n int
	for {
		select {
		case <-ticker.C:
			announce()
			payload := []byte(fmt.Sprintf("ping %d at %s", n, time.Now().Format(time.RFC3339)))
			if _, err := dw.Write(instance, payload); err != nil {
				logger.Error("write failed", "error", err)
				continue
			}
			dp.PumpAllWriters()
			n++
			logger.Info("sent", "payload", string(payload))
		case <-sig:
			return
		case <-ctx.Done():
			return
		}
	}
}

type printListener struct {
	log *log.Logger
}

func (p *printListener) OnDataAvailable(reader *facade.DataReader) {
	for _, c := range reader.Take(16) {
		p.log.Info("received", "payload", string(c.Payload), "sn", c.SequenceNumber)
	}
}

func (p *printListener) OnLivelinessChanged(writer types.GUID, alive bool) {
	p.log.Info("writer liveliness changed", "writer", writer.String(), "alive", alive)
}

func runReader(ctx context.Context, dp *facade.DomainParticipant, topic string, ticker *time.Ticker, announce func(), logger *log.Logger) {
	sub := dp.CreateSubscriber(qos.Default())
	dr, err := sub.CreateDataReader(topic, "Ping", qos.Default(), &printListener{log: logger})
	if err != nil {
		logger.Fatal("creating data reader", "error", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	for {
		select {
		case <-ticker.C:
			announce()
			for _, c := range dr.Take(16) {
				logger.Info("received", "payload", string(c.Payload), "sn", c.SequenceNumber)
			}
		case <-sig:
			return
		case <-ctx.Done():
			return
		}
	}
}
