package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/mage"
	"ichor/ichor/pkg/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReadReadings(t *testing.T) {
	input := "glucose,time\n100,08:00\n# sensor warmup\n\n 150 ,08:05\n5.55 mmol/L,08:10\n"
	readings, err := readReadings(strings.NewReader(input), units.MgDL, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, 100.0, readings[0])
	assert.Equal(t, 150.0, readings[1])
	assert.InDelta(t, 100.0, readings[2], 0.01)

	_, err = readReadings(strings.NewReader("100\nabc\n"), units.MgDL, zap.NewNop())
	assert.ErrorContains(t, err, "line 2")
}

func TestMageCommand(t *testing.T) {
	out, err := run(t, "100\n150\n100\n150\n100\n150\n100\n", "mage")
	require.NoError(t, err)
	assert.Equal(t, "50.00 mg/dL\n", out)

	out, err = run(t, "100\n150\n100\n150\n100\n150\n100\n", "mage", "-", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "method: windowed extremes")
	assert.Contains(t, out, "excursions: 7")
}

func TestMageCommandFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.csv")
	data := "100,90,80,150,200,150,80,70,80,150,190,150"
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(data, ",", "\n")), 0o600))

	out, err := run(t, "", "mage", path, "--direction", "descending", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "70.00 mg/dL")
	assert.Contains(t, out, "method: moving average crossings")
	assert.Contains(t, out, "windows: 3/5")
}

func TestMageCommandNotComputable(t *testing.T) {
	out, err := run(t, "100\n100\n100\n", "mage")
	require.NoError(t, err)
	assert.Equal(t, "NaN (no variability)\n", out)

	out, err = run(t, "", "mage")
	require.NoError(t, err)
	assert.Equal(t, "NaN (insufficient data)\n", out)
}

func TestMageCommandBadFlags(t *testing.T) {
	_, err := run(t, "100\n", "mage", "--direction", "sideways")
	assert.ErrorIs(t, err, mage.ErrUnknownDirection)

	_, err = run(t, "100\n", "mage", "--unit", "stone")
	assert.ErrorIs(t, err, units.ErrUnknownUnit)

	_, err = run(t, "", "mage", "--short-window", "-1")
	assert.Error(t, err)

	_, err = run(t, "", "mage", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestSummaryCommand(t *testing.T) {
	out, err := run(t, "5.5\n8.3\n5.5\n8.3\n5.5\n8.3\n5.5\n", "summary", "--unit", "mmol/L")
	require.NoError(t, err)
	assert.Contains(t, out, "readings: 7")
	assert.Contains(t, out, "average: 6.70 mmol/L")
	assert.Contains(t, out, "time in range: below 0.0%, in 100.0%, above 0.0%")
	assert.Contains(t, out, "gmi: 6.2% (prediabetes)")
	assert.Contains(t, out, "bands: very low 0.0%, low 0.0%, in 100.0%, high 0.0%, very high 0.0% (excellent)")
	assert.Contains(t, out, "mage: 2.80 mmol/L (auto)")

	out, err = run(t, "", "summary")
	require.NoError(t, err)
	assert.Equal(t, "readings: 0\n", out)

	_, err = run(t, "", "summary", "--low", "10", "--high", "4")
	assert.Error(t, err)

	_, err = run(t, "", "summary", "--very-high", "9")
	assert.Error(t, err)
}

func TestSummaryCommandResolvedDirection(t *testing.T) {
	data := `100
90
80
150
200
150
80
70
80
150
190
150
`
	out, err := run(t, data, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "mage: 60.00 mg/dL (ascending)")
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	envPath := filepath.Join(dir, "ichor.env")

	out, err := run(t, "", "config",
		"-o", cfgPath,
		"--env-file", envPath,
		"--dexcom-account", "someone",
		"--mongo-username", "admin",
		"--mongo-password", "password",
		"--direction", "ascending",
		"--timezone", "UTC",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+cfgPath)

	cfg, err := defs.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "someone", cfg.Dexcom.Account)
	assert.Equal(t, "admin", cfg.Mongo.Username)
	assert.Equal(t, mage.Ascending, cfg.Mage.Direction)
	assert.Equal(t, 3.9, cfg.Glucose.Low)
	assert.Equal(t, 3.0, cfg.Glucose.VeryLow)
	assert.Equal(t, 13.9, cfg.Glucose.VeryHigh)
	assert.Equal(t, "UTC", cfg.Timezone)

	env, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Equal(t, "MONGO_PASSWORD=password\nMONGO_USERNAME=admin\n", string(env))
}

func TestConfigCommandInvalid(t *testing.T) {
	_, err := run(t, "", "config", "-o", filepath.Join(t.TempDir(), "c.yaml"), "--glucose-low", "12")
	assert.Error(t, err)

	_, err = run(t, "", "config", "-o", filepath.Join(t.TempDir(), "c.yaml"), "--glucose-very-low", "4")
	assert.Error(t, err)
}
