package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "GRID_DIR", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "WORKERS", "MISSING_VALUE", "SUBGRID"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data/grids", cfg.GridDir)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
	assert.Equal(t, -9999.0, cfg.MissingValue)
	assert.Equal(t, 10, cfg.Subgrid)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("GRID_DIR", "/srv/grids")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORKERS", "2")
	t.Setenv("MISSING_VALUE", "-1e20")
	t.Setenv("SUBGRID", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "/srv/grids", cfg.GridDir)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, -1e20, cfg.MissingValue)
	assert.Equal(t, 4, cfg.Subgrid)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LOG_LEVEL", "chatty"},
		{"WORKERS", "0"},
		{"SUBGRID", "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = NewLogger("loud")
	assert.Error(t, err)
}

const jobYAML = `
Title: SOSE salinity to Weddell
SourceGrid: grids/sose.nc
TargetGrid: grids/weddell.nc
Input:
  File: sose_salt.nc
  Variable: SALT
Output:
  File: weddell_salt.nc
FillValue: -1
MissingValue: 0
DiscardAndFill: true
Remask: land_ice
`

func TestJob_Parse(t *testing.T) {
	var j Job
	require.NoError(t, j.Parse([]byte(jobYAML)))

	assert.Equal(t, "SOSE salinity to Weddell", j.Title)
	assert.Equal(t, "grids/sose.nc", j.SourceGrid)
	assert.Equal(t, FileVar{File: "sose_salt.nc", Variable: "SALT"}, j.Input)
	assert.Equal(t, "SALT", j.Output.Variable, "output variable defaults to the input one")
	assert.Equal(t, "t", j.GridType)
	assert.Equal(t, 2, j.Dim)
	assert.Equal(t, -1.0, j.FillValue)
	require.NotNil(t, j.MissingValue)
	assert.Equal(t, 0.0, *j.MissingValue)
	assert.True(t, j.DiscardAndFill)
	assert.Equal(t, "land_ice", j.Remask)

	var buf bytes.Buffer
	j.Print(&buf)
	assert.Contains(t, buf.String(), "SOSE salinity to Weddell")
	assert.Contains(t, buf.String(), "land_ice")
}

func TestJob_ParseErrors(t *testing.T) {
	var j Job
	assert.Error(t, j.Parse([]byte("Title: [unterminated")))
	assert.Error(t, j.Parse([]byte("Title: no grids\n")))
	assert.Error(t, j.Parse([]byte("SourceGrid: a\nTargetGrid: b\nInput: {File: x.nc}\n")))
}

func TestReadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	//nolint:gosec // G306: Test fixture.
	require.NoError(t, os.WriteFile(path, []byte(jobYAML), 0o644))

	j, err := ReadJob(path)
	require.NoError(t, err)
	assert.Equal(t, "weddell_salt.nc", j.Output.File)

	_, err = ReadJob(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
