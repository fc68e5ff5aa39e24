// Package config assembles the connector configuration from defaults, an
// optional YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connector"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/lock"
	"github.com/DjordjeVuckovic/qstone/internal/trace"
	"github.com/DjordjeVuckovic/qstone/internal/trace/sink"
	"github.com/DjordjeVuckovic/qstone/pkg/config/env"
)

const DefaultDotEnvPath = ".env"

// Config is the explicit configuration handed to the connector and the
// tracer.
type Config struct {
	Connector connector.Config
	Trace     sink.Config
	Identity  trace.Identity
}

// File mirrors the environment block of a qstone YAML configuration.
type File struct {
	Environment Environment `yaml:"environment"`
}

type Environment struct {
	ProjectName    string       `yaml:"project_name"`
	SchedulingMode string       `yaml:"scheduling_mode"`
	LockFile       string       `yaml:"lock_file"`
	Connectivity   Connectivity `yaml:"connectivity"`
	Timeouts       Timeouts     `yaml:"timeouts"`
	Profiling      Profiling    `yaml:"profiling"`
}

type Connectivity struct {
	Connector         string `yaml:"connector"`
	Mode              string `yaml:"mode"`
	QpuIPAddress      string `yaml:"qpu_ip_address"`
	QpuPort           int    `yaml:"qpu_port"`
	CompilerIPAddress string `yaml:"compiler_ip_address"`
	CompilerPort      int    `yaml:"compiler_port"`
	Target            string `yaml:"target"`
}

// Timeouts are in seconds.
type Timeouts struct {
	HTTP float64 `yaml:"http"`
	Lock float64 `yaml:"lock"`
}

type Profiling struct {
	Sink         string   `yaml:"sink"`
	Path         string   `yaml:"path"`
	PgConnection string   `yaml:"pg_connection_string"`
	EsAddresses  []string `yaml:"es_addresses"`
	EsIndexName  string   `yaml:"es_index_name"`
}

var validSchedulingModes = map[string]bool{
	"":          true,
	"LOCK":      true,
	"SCHEDULER": true,
	"POLLING":   true,
	"NONE":      true,
}

func Default() *Config {
	return &Config{
		Connector: connector.Config{
			Protocol: domain.ProtocolLocalFallback,
			Endpoint: domain.EndpointConfig{
				Mode:     domain.ModeRandom,
				Timeouts: domain.DefaultTimeouts(),
			},
			LockPath: lock.NoLock,
		},
		Trace: sink.Config{Type: sink.None},
	}
}

// Load builds a Config. path may be empty, in which case only defaults and
// the environment are used. A .env file is loaded first when present.
func Load(path string) (*Config, error) {
	if err := env.LoadDotEnv(DefaultDotEnvPath); err != nil {
		slog.Info("Skipping .env ...", "error", err)
	}

	cfg := Default()
	if path != "" {
		f, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, env.OS()); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFromFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NewConfigWrap("read config file", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, apperr.NewConfigWrap("parse config YAML", err)
	}
	if err := validateFile(&f); err != nil {
		return nil, apperr.NewConfigWrap("invalid config file", err)
	}
	return &f, nil
}

func validateFile(f *File) error {
	e := f.Environment
	if !validSchedulingModes[strings.ToUpper(e.SchedulingMode)] {
		return fmt.Errorf("unknown scheduling mode %q", e.SchedulingMode)
	}
	if e.Connectivity.Mode == "" {
		return errors.New("connectivity has no mode")
	}
	if e.Timeouts.HTTP < 0 || e.Timeouts.Lock < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func (f *File) apply(cfg *Config) error {
	e := f.Environment
	c := e.Connectivity
	ep := &cfg.Connector.Endpoint

	if c.Connector != "" {
		p, err := domain.ParseProtocol(c.Connector)
		if err != nil {
			return apperr.NewConfigWrap("connectivity.connector", err)
		}
		cfg.Connector.Protocol = p
	}
	m, err := domain.ParseMode(c.Mode)
	if err != nil {
		return apperr.NewConfigWrap("connectivity.mode", err)
	}
	ep.Mode = m

	setString(&ep.Host, c.QpuIPAddress)
	setInt(&ep.Port, c.QpuPort)
	setString(&ep.CompilerHost, c.CompilerIPAddress)
	setInt(&ep.CompilerPort, c.CompilerPort)
	setString(&ep.Target, c.Target)
	setString(&cfg.Connector.LockPath, e.LockFile)

	if e.Timeouts.HTTP > 0 {
		ep.Timeouts.HTTP = seconds(e.Timeouts.HTTP)
		ep.Timeouts.Submit = ep.Timeouts.HTTP
	}
	if e.Timeouts.Lock > 0 {
		ep.Timeouts.Lock = seconds(e.Timeouts.Lock)
	}

	p := e.Profiling
	if p.Sink != "" {
		cfg.Trace.Type = sink.Type(strings.ToLower(p.Sink))
	}
	setString(&cfg.Trace.Dir, p.Path)
	if p.PgConnection != "" {
		cfg.Trace.Pg = &sink.PoolConfig{ConnStr: p.PgConnection}
	}
	if len(p.EsAddresses) > 0 || p.EsIndexName != "" {
		cfg.Trace.Es = &sink.ClientConfig{Addresses: p.EsAddresses, IndexName: p.EsIndexName}
	}
	return nil
}

func applyEnv(cfg *Config, l env.Lookup) error {
	ep := &cfg.Connector.Endpoint

	if v, ok := l.String("CONNECTOR"); ok {
		p, err := domain.ParseProtocol(v)
		if err != nil {
			return apperr.NewConfigWrap("CONNECTOR", err)
		}
		cfg.Connector.Protocol = p
	}
	if v, ok := l.String("QPU_MODE"); ok {
		m, err := domain.ParseMode(v)
		if err != nil {
			return apperr.NewConfigWrap("QPU_MODE", err)
		}
		ep.Mode = m
	}

	if v, ok := l.String("QPU_IP_ADDRESS"); ok {
		ep.Host = v
	}
	if v, ok := l.String("COMPILER_IP_ADDRESS"); ok {
		ep.CompilerHost = v
	}
	if v, ok := l.String("QPU_TARGET"); ok {
		ep.Target = v
	}
	if v, ok := l("LOCK_FILE"); ok {
		cfg.Connector.LockPath = strings.TrimSpace(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"QPU_PORT", &ep.Port},
		{"COMPILER_PORT", &ep.CompilerPort},
	}
	for _, i := range ints {
		n, ok, err := l.Int(i.key)
		if err != nil {
			return apperr.NewConfigWrap("invalid port", err)
		}
		if ok {
			*i.dst = n
		}
	}

	durations := []struct {
		key  string
		unit time.Duration
		dst  []*time.Duration
	}{
		{"TIMEOUTS_HTTP", time.Second, []*time.Duration{&ep.Timeouts.HTTP, &ep.Timeouts.Submit}},
		{"TIMEOUTS_LOCK", time.Second, []*time.Duration{&ep.Timeouts.Lock}},
		{"TIMEOUTS_LOCK_INTERVAL_MS", time.Millisecond, []*time.Duration{&ep.Timeouts.LockInterval}},
		{"TIMEOUTS_RUN", time.Second, []*time.Duration{&ep.Timeouts.Run}},
	}
	for _, d := range durations {
		v, ok, err := l.Duration(d.key, d.unit)
		if err != nil {
			return apperr.NewConfigWrap("invalid timeout", err)
		}
		if !ok {
			continue
		}
		if v <= 0 {
			return apperr.NewConfig(d.key + " must be positive")
		}
		for _, dst := range d.dst {
			*dst = v
		}
	}

	if v, ok := l.String("TRACE_SINK"); ok {
		cfg.Trace.Type = sink.Type(strings.ToLower(v))
	}
	if v, ok := l.String("PROFILE_PATH"); ok {
		cfg.Trace.Dir = v
	}
	if v, ok := l.String("PG_CONNECTION_STRING"); ok {
		cfg.Trace.Pg = &sink.PoolConfig{ConnStr: v}
	}
	addrs, hasAddrs := l.List("ES_ADDRESSES")
	index, hasIndex := l.String("ES_INDEX_NAME")
	if hasAddrs || hasIndex {
		if cfg.Trace.Es == nil {
			cfg.Trace.Es = &sink.ClientConfig{}
		}
		if hasAddrs {
			cfg.Trace.Es.Addresses = addrs
		}
		if hasIndex {
			cfg.Trace.Es.IndexName = index
		}
	}
	if cfg.Trace.Es != nil {
		if v, ok := l.String("ES_USERNAME"); ok {
			cfg.Trace.Es.Username = v
		}
		if v, ok := l.String("ES_PASSWORD"); ok {
			cfg.Trace.Es.Password = v
		}
	}

	if v, ok := l.String("JOB_ID"); ok {
		cfg.Identity.JobID = v
	}
	if v, ok := l.String("QS_USER"); ok {
		cfg.Identity.User = v
	}
	if v, ok := l.String("PROG_ID"); ok {
		cfg.Identity.ProgID = v
	}
	return nil
}

func validate(cfg *Config) error {
	ep := cfg.Connector.Endpoint
	if ep.Port != 0 {
		if err := validatePort(ep.Port); err != nil {
			return apperr.NewConfigWrap("invalid qpu port", err)
		}
	}
	if ep.CompilerPort != 0 {
		if err := validatePort(ep.CompilerPort); err != nil {
			return apperr.NewConfigWrap("invalid compiler port", err)
		}
	}
	if cfg.Connector.Protocol != domain.ProtocolLocalFallback && ep.Host == "" {
		return apperr.NewConfig(fmt.Sprintf("QPU_IP_ADDRESS is required for connector %s", cfg.Connector.Protocol))
	}
	switch cfg.Trace.Type {
	case sink.None, sink.JSON, sink.PG, sink.ES:
	default:
		return apperr.NewConfig(fmt.Sprintf("unsupported trace sink %q", cfg.Trace.Type))
	}
	if cfg.Trace.Type == sink.JSON && cfg.Trace.Dir == "" {
		return apperr.NewConfig("PROFILE_PATH is required for the json trace sink")
	}
	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return errors.New("port must be between 1 and 65535, got " + strconv.Itoa(port))
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
