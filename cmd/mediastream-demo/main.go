// Command mediastream-demo wires one MediaStream end to end against a UDP
// peer and reports jitter buffer statistics, in the spirit of the teacher's
// cmd/test_sip demo binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/coresip/mediacore/internal/registry"
	"github.com/coresip/mediacore/pkg/audiodevice"
	"github.com/coresip/mediacore/pkg/codecs"
	"github.com/coresip/mediacore/pkg/echo"
	"github.com/coresip/mediacore/pkg/jitterbuffer"
	"github.com/coresip/mediacore/pkg/mediaconfig"
	"github.com/coresip/mediacore/pkg/mediastream"
	"github.com/coresip/mediacore/pkg/metrics"
	"github.com/coresip/mediacore/pkg/rtpsession"
)

func main() {
	cfg := mediaconfig.Default()
	if err := mediaconfig.Flags(&cfg, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mediastream-demo:", err)
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: parseLevel(cfg.LogLevel)})
	reg := registry.New(logger)

	mc := metrics.NewCollector(metrics.DefaultConfig())
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	go func() {
		if err := mc.ServeHTTP(metricsCtx, ":9090"); err != nil {
			logger.Debug("metrics server stopped", "err", err)
		}
	}()

	codec := codecs.NewG711(codecs.ULaw, cfg.RTP.DefaultPayloadType)
	if err := reg.RegisterCodec(cfg.RTP.DefaultPayloadType, codec); err != nil {
		logger.Fatal("register codec", "err", err)
	}

	transport, err := mediastream.NewUDPTransport(cfg.RTP.ListenAddr, "", logger)
	if err != nil {
		logger.Fatal("open transport", "err", err)
	}
	logger.Info("listening", "addr", transport.LocalAddr())

	jbMode := jitterbuffer.Adaptive
	if cfg.JitterBuffer.Mode == "fixed" {
		jbMode = jitterbuffer.Fixed
	}

	ms, err := mediastream.New(mediastream.Config{
		RTP: rtpsession.Config{
			DefaultPayloadType: cfg.RTP.DefaultPayloadType,
			Logger:             logger,
		},
		JitterBuffer: jitterbuffer.Config{
			FrameSize:   cfg.Audio.FrameSamples * 2,
			MaxCount:    cfg.JitterBuffer.MaxCount,
			Mode:        jbMode,
			Prefetch:    cfg.JitterBuffer.Prefetch,
			MinPrefetch: cfg.JitterBuffer.MinPrefetch,
			MaxPrefetch: cfg.JitterBuffer.MaxPrefetch,
			Logger:      logger,
		},
		Echo: echo.Config{
			SamplesPerFrame: cfg.Audio.FrameSamples,
			LatencyFrames:   cfg.Echo.LatencyFrames,
			Logger:          logger,
		},
		Audio: audiodevice.Config{
			SampleRate:   cfg.Audio.SampleRate,
			Channels:     cfg.Audio.Channels,
			FrameSamples: cfg.Audio.FrameSamples,
		},
		Codec:     codec,
		Transport: transport,
		Metrics:   mc,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("assemble media stream", "err", err)
	}

	if err := ms.Start(); err != nil {
		logger.Fatal("start media stream", "err", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			logger.Info("shutting down")
			ms.Stop()
			reg.Shutdown()
			return
		case <-ticker.C:
			s := ms.Stats()
			logger.Info("jitter buffer stats", "lost", s.Lost, "late", s.Late, "reorder", s.Reorder, "max_level", s.MaxLevel)
		}
	}
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
