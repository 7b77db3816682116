package mediaconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsSane(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 160, cfg.JitterBuffer.FrameSize)
	assert.Equal(t, "adaptive", cfg.JitterBuffer.Mode)
	assert.Equal(t, uint32(8000), cfg.Audio.SampleRate)
}

func TestLoadFileOverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rtp:\n  listen_addr: \"127.0.0.1:5000\"\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5000", cfg.RTP.ListenAddr)
	assert.Equal(t, 160, cfg.JitterBuffer.FrameSize) // untouched by the partial file
}

func TestLoadFileMissingReturnsError(t *testing.T) {
	_, err := LoadFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg := Default()
	err := Flags(&cfg, []string{"--listen", "10.0.0.1:6000", "--payload-type", "8", "--fixed-jitter"})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:6000", cfg.RTP.ListenAddr)
	assert.EqualValues(t, 8, cfg.RTP.DefaultPayloadType)
	assert.Equal(t, "fixed", cfg.JitterBuffer.Mode)
}
