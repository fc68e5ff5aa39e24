package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/lock"
	"github.com/DjordjeVuckovic/qstone/internal/trace/sink"
	"github.com/DjordjeVuckovic/qstone/pkg/config/env"
)

const sampleYAML = `
environment:
  project_name: bench
  scheduling_mode: LOCK
  lock_file: /tmp/qstone.lock
  connectivity:
    connector: RIGETTI
    mode: EMULATED
    qpu_ip_address: 10.0.0.5
    qpu_port: 5000
    compiler_ip_address: 10.0.0.6
    compiler_port: 5555
    target: 9q-square-qvm
  timeouts:
    http: 30
    lock: 2.5
  profiling:
    sink: json
    path: /tmp/profiles
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	cfg := Default()
	require.NoError(t, f.apply(cfg))

	ep := cfg.Connector.Endpoint
	assert.Equal(t, domain.ProtocolVendorCompiled, cfg.Connector.Protocol)
	assert.Equal(t, domain.ModeEmulated, ep.Mode)
	assert.Equal(t, "10.0.0.5", ep.Host)
	assert.Equal(t, 5000, ep.Port)
	assert.Equal(t, "10.0.0.6", ep.CompilerHost)
	assert.Equal(t, 5555, ep.CompilerPort)
	assert.Equal(t, "9q-square-qvm", ep.Target)
	assert.Equal(t, "/tmp/qstone.lock", cfg.Connector.LockPath)
	assert.Equal(t, 30*time.Second, ep.Timeouts.HTTP)
	assert.Equal(t, 30*time.Second, ep.Timeouts.Submit)
	assert.Equal(t, 2500*time.Millisecond, ep.Timeouts.Lock)
	assert.Equal(t, domain.DefaultLockInterval, ep.Timeouts.LockInterval)
	assert.Equal(t, sink.JSON, cfg.Trace.Type)
	assert.Equal(t, "/tmp/profiles", cfg.Trace.Dir)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "environment: [unterminated"},
		{"missing mode", "environment:\n  connectivity:\n    connector: GRPC\n"},
		{"unknown scheduling mode", "environment:\n  scheduling_mode: ASAP\n  connectivity:\n    mode: REAL\n"},
		{"negative timeout", "environment:\n  connectivity:\n    mode: REAL\n  timeouts:\n    http: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, apperr.IsConfig(err))
		})
	}
}

func TestApply_UnknownConnector(t *testing.T) {
	f, err := Parse([]byte("environment:\n  connectivity:\n    connector: PIGEON\n    mode: REAL\n"))
	require.NoError(t, err)
	err = f.apply(Default())
	assert.True(t, apperr.IsConfig(err))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := applyEnv(cfg, env.FromMap(map[string]string{
		"CONNECTOR":                 "https",
		"QPU_IP_ADDRESS":            "qpu.local",
		"QPU_PORT":                  "10001",
		"QPU_MODE":                  "real",
		"LOCK_FILE":                 "NONE",
		"TIMEOUTS_HTTP":             "5",
		"TIMEOUTS_LOCK":             "60",
		"TIMEOUTS_LOCK_INTERVAL_MS": "250",
		"TRACE_SINK":                "ES",
		"ES_ADDRESSES":              "http://es1:9200,http://es2:9200",
		"ES_INDEX_NAME":             "profiles",
		"JOB_ID":                    "7",
		"QS_USER":                   "alice",
		"PROG_ID":                   "ghz",
	}))
	require.NoError(t, err)
	require.NoError(t, validate(cfg))

	ep := cfg.Connector.Endpoint
	assert.Equal(t, domain.ProtocolHTTP, cfg.Connector.Protocol)
	assert.Equal(t, domain.ModeReal, ep.Mode)
	assert.Equal(t, "qpu.local:10001", ep.Address())
	assert.Equal(t, lock.NoLock, cfg.Connector.LockPath)
	assert.Equal(t, 5*time.Second, ep.Timeouts.HTTP)
	assert.Equal(t, time.Minute, ep.Timeouts.Lock)
	assert.Equal(t, 250*time.Millisecond, ep.Timeouts.LockInterval)
	assert.Equal(t, sink.ES, cfg.Trace.Type)
	require.NotNil(t, cfg.Trace.Es)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Trace.Es.Addresses)
	assert.Equal(t, "profiles", cfg.Trace.Es.IndexName)
	assert.Equal(t, "7", cfg.Identity.JobID)
	assert.Equal(t, "alice", cfg.Identity.User)
	assert.Equal(t, "ghz", cfg.Identity.ProgID)
}

func TestApplyEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"unknown connector", map[string]string{"CONNECTOR": "CARRIER_PIGEON"}},
		{"unknown mode", map[string]string{"QPU_MODE": "QUANTUM"}},
		{"port not a number", map[string]string{"QPU_PORT": "http"}},
		{"bad timeout", map[string]string{"TIMEOUTS_HTTP": "soon"}},
		{"zero lock budget", map[string]string{"TIMEOUTS_LOCK": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := applyEnv(Default(), env.FromMap(tt.vars))
			require.Error(t, err)
			assert.True(t, apperr.IsConfig(err))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"port too large", func(c *Config) { c.Connector.Endpoint.Port = 70000 }, false},
		{"negative compiler port", func(c *Config) { c.Connector.Endpoint.CompilerPort = -1 }, false},
		{"remote protocol without host", func(c *Config) { c.Connector.Protocol = domain.ProtocolRPC }, false},
		{"unknown sink", func(c *Config) { c.Trace.Type = "kafka" }, false},
		{"json sink without path", func(c *Config) { c.Trace.Type = sink.JSON }, false},
		{"json sink with path", func(c *Config) {
			c.Trace.Type = sink.JSON
			c.Trace.Dir = "/tmp"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsConfig(err))
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qstone.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	t.Setenv(env.PathVar, "")
	t.Setenv("QPU_PORT", "6000")
	t.Setenv("TRACE_SINK", "none")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ProtocolVendorCompiled, cfg.Connector.Protocol)
	assert.Equal(t, 6000, cfg.Connector.Endpoint.Port)
	assert.Equal(t, sink.None, cfg.Trace.Type)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(env.PathVar, "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
}
