package defs

import (
	"os"
	"path/filepath"
	"testing"

	"ichor/ichor/pkg/mage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
dexcom:
  account: someone
  password: secret
glucose:
  low: 4
  high: 9
mage:
  shortWindow: 4
  direction: descending
timezone: UTC
`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "someone", config.Dexcom.Account)
	assert.Equal(t, 4.0, config.Glucose.Low)
	assert.Equal(t, 9.0, config.Glucose.High)
	assert.Equal(t, 3.0, config.Glucose.VeryLow, "unset bands keep their defaults")
	assert.Equal(t, 13.9, config.Glucose.VeryHigh)
	assert.Equal(t, mage.Options{ShortWindow: 4, Direction: mage.Descending}, config.Mage)
	assert.Equal(t, "mongodb://localhost:27017", config.Mongo.URI, "defaults survive")
	assert.Equal(t, ":4242", config.HTTP.Addr)
	assert.Equal(t, "UTC", config.Location().String())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mage:\n  direction: sideways\n"), 0o600))
	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, mage.ErrUnknownDirection)

	require.NoError(t, os.WriteFile(path, []byte("glucose:\n  low: 10\n  high: 4\n"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("glucose:\n  veryLow: 4.2\n"), 0o600))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "veryLow <= low")
}

func TestGlucoseBands(t *testing.T) {
	g := GlucoseConfig{Low: 3.9, High: 10}.WithBands()
	assert.Equal(t, GlucoseConfig{VeryLow: 3.0, Low: 3.9, High: 10, VeryHigh: 13.9}, g)
	assert.NoError(t, g.Validate())

	custom := GlucoseConfig{VeryLow: 3.5, Low: 3.9, High: 7.8, VeryHigh: 12}
	assert.Equal(t, custom, custom.WithBands())

	assert.Error(t, GlucoseConfig{VeryLow: 3, Low: 3.9, High: 10, VeryHigh: 9}.Validate())
	assert.Error(t, GlucoseConfig{Low: 3.9, High: 10}.Validate(), "bands are required once loaded")
}

func TestConfigRoundTrip(t *testing.T) {
	config := DefaultConfig()
	config.Mage.Direction = mage.Ascending

	out, err := yaml.Marshal(config)
	require.NoError(t, err)
	assert.Contains(t, string(out), "direction: ascending")

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, config.Mage, back.Mage)
}
