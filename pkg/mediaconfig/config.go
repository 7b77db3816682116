// Package mediaconfig loads the ambient configuration for a MediaStream:
// YAML file defaults layered under pflag command-line overrides, in the
// style of the teacher's appserver.go (pflag.StringP/Bool/Parse) and
// deviceid.go (yaml.Unmarshal into a plain struct).
package mediaconfig

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document, loaded from YAML and
// then overridden by any flags the caller passes on the command line.
type Config struct {
	RTP struct {
		DefaultPayloadType uint8  `yaml:"default_payload_type"`
		ListenAddr         string `yaml:"listen_addr"`
	} `yaml:"rtp"`

	JitterBuffer struct {
		FrameSize   int    `yaml:"frame_size"`
		MaxCount    int    `yaml:"max_count"`
		Mode        string `yaml:"mode"` // "adaptive" or "fixed"
		Prefetch    int    `yaml:"prefetch"`
		MinPrefetch int    `yaml:"min_prefetch"`
		MaxPrefetch int    `yaml:"max_prefetch"`
	} `yaml:"jitter_buffer"`

	Echo struct {
		LatencyFrames int    `yaml:"latency_frames"`
		Policy        string `yaml:"policy"` // "simple" or "wsola"
	} `yaml:"echo"`

	Audio struct {
		SampleRate   uint32 `yaml:"sample_rate"`
		Channels     int    `yaml:"channels"`
		FrameSamples int    `yaml:"frame_samples"`
	} `yaml:"audio"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration a demo binary would use with no YAML
// file present: 8kHz mono, 20ms frames, PCMU, an adaptive jitter buffer
// sized for a few talkspurts.
func Default() Config {
	var c Config
	c.RTP.DefaultPayloadType = 0
	c.RTP.ListenAddr = "0.0.0.0:0"
	c.JitterBuffer.FrameSize = 160
	c.JitterBuffer.MaxCount = 50
	c.JitterBuffer.Mode = "adaptive"
	c.JitterBuffer.Prefetch = 3
	c.JitterBuffer.MinPrefetch = 2
	c.JitterBuffer.MaxPrefetch = 20
	c.Echo.LatencyFrames = 2
	c.Echo.Policy = "simple"
	c.Audio.SampleRate = 8000
	c.Audio.Channels = 1
	c.Audio.FrameSamples = 160
	c.LogLevel = "info"
	return c
}

// LoadFile reads and unmarshals a YAML config document, starting from
// Default() so an omitted section keeps its default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("mediaconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("mediaconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags mirrors appserver.go's pflag block: a handful of command-line
// overrides for the most commonly tweaked settings, parsed over cfg.
func Flags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("mediastream", pflag.ContinueOnError)

	listenAddr := fs.StringP("listen", "l", cfg.RTP.ListenAddr, "RTP listen address")
	payloadType := fs.Uint8P("payload-type", "t", cfg.RTP.DefaultPayloadType, "default RTP payload type")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fixedJitter := fs.Bool("fixed-jitter", cfg.JitterBuffer.Mode == "fixed", "pin the jitter buffer prefetch instead of adapting")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RTP.ListenAddr = *listenAddr
	cfg.RTP.DefaultPayloadType = *payloadType
	cfg.LogLevel = *logLevel
	if *fixedJitter {
		cfg.JitterBuffer.Mode = "fixed"
	}
	return nil
}
