package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/idexcal/coord"
)

func writeFile(t *testing.T, data string) string {
	dir, err := ioutil.TempDir("", "idexcal")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	name := filepath.Join(dir, "idexcal.yaml")
	require.NoError(t, ioutil.WriteFile(name, []byte(data), 0644))
	return name
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(os.TempDir(), "does-not-exist", "idexcal.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overlay(t *testing.T) {
	name := writeFile(t, `
controller:
  port: /dev/ttyACM0
  spjs: ws://bridge:8989/ws
probe:
  x:
    start: {x: 70, y: 25, z: 12}
    clearance: 40
  handoff: {x: 200, y: 20, z: 15}
leveling:
  mesh:
    - {x: 0, y: 0, z: 0.1}
    - {x: 300, y: 0, z: 0.2}
    - {x: 0, y: 300, z: 0}
`)
	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Controller.Port)
	assert.Equal(t, 250000, cfg.Controller.Baud)
	assert.Equal(t, "ws://bridge:8989/ws", cfg.Controller.SPJS)
	assert.Equal(t, coord.Point{X: 70, Y: 25, Z: 12}, cfg.Probe.X.Start)
	assert.Equal(t, 40.0, cfg.Probe.X.Clearance)
	// untouched fields keep their defaults
	assert.Equal(t, 25.0, cfg.Probe.X.Backoff)
	assert.Equal(t, 60.0, cfg.Probe.X.Feeds.Slow)
	assert.Equal(t, Default().Probe.Y, cfg.Probe.Y)
	assert.Equal(t, coord.Point{X: 200, Y: 20, Z: 15}, cfg.Probe.Handoff)
	assert.Len(t, cfg.Leveling.Mesh, 3)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeFile(t, "probe:\n  y:\n    feeds: {slow: 0}\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "controller: [1, 2]\n"))
	assert.Error(t, err)
}

func TestLoad_DualMode(t *testing.T) {
	cfg, err := Load(writeFile(t, "controller:\n  dualMode: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Controller.DualMode)

	_, err = Load(writeFile(t, "controller:\n  dualMode: 2\n"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	cfg, err := Load(writeFile(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
