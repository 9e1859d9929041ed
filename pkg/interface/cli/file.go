package cli

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML config file, keys follow the long option names
type FileConfig struct {
	Inputs         []string `yaml:"inputs"`
	Sources        []string `yaml:"sources"`
	Channels       []string `yaml:"channels"`
	Output         string   `yaml:"output"`
	ChunkSize      int      `yaml:"chunk_size"`
	Banner         bool     `yaml:"banner"`
	Workers        int      `yaml:"workers"`
	ProbeTimeout   float64  `yaml:"probe_timeout"`
	LatencyCeiling float64  `yaml:"latency_ceiling"`
	ProbeRate      float64  `yaml:"probe_rate"`
	SortBound      float64  `yaml:"sort_bound"`
	DNSServers     []string `yaml:"dns_servers"`
	DNSTimeout     int      `yaml:"dns_timeout"`
	GeoIP          string   `yaml:"geoip"`
	MetricsAddr    string   `yaml:"metrics_addr"`
	Trace          struct {
		Exporter string `yaml:"exporter"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"trace"`
	LogLevel string `yaml:"log_level"`
}

// LoadFile parses a YAML config file
func LoadFile(path string) (FileConfig, error) {
	var file FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return file, nil
}

// overlay applies file values to every option not given on the command line or in the environment
func (c *Config) overlay(parser *flags.Parser, file FileConfig) {
	explicit := func(long string) bool {
		option := parser.FindOptionByLongName(long)
		if option == nil {
			return false
		}
		if option.IsSet() && !option.IsSetDefault() {
			return true
		}
		if key := option.EnvKeyWithNamespace(); key != "" {
			if _, ok := os.LookupEnv(key); ok {
				return true
			}
		}
		return false
	}

	if len(file.Inputs) > 0 && !explicit("input") {
		c.InputFiles = file.Inputs
	}
	if len(file.Sources) > 0 && !explicit("source") {
		c.Sources = file.Sources
	}
	if len(file.Channels) > 0 && !explicit("channel") {
		c.Channels = file.Channels
	}
	if file.Output != "" && !explicit("output") {
		c.OutputDir = file.Output
	}
	if file.ChunkSize > 0 && !explicit("chunk-size") {
		c.ChunkSize = file.ChunkSize
	}
	if file.Banner && !explicit("banner") {
		c.Banner = true
	}
	if file.Workers > 0 && !explicit("workers") {
		c.NumWorkers = file.Workers
	}
	if file.ProbeTimeout > 0 && !explicit("probe-timeout") {
		c.ProbeTimeout = file.ProbeTimeout
	}
	if file.LatencyCeiling > 0 && !explicit("latency-ceiling") {
		c.LatencyCeiling = file.LatencyCeiling
	}
	if file.ProbeRate > 0 && !explicit("probe-rate") {
		c.ProbeRate = file.ProbeRate
	}
	if file.SortBound > 0 && !explicit("sort-bound") {
		c.SortBound = file.SortBound
	}
	if len(file.DNSServers) > 0 && !explicit("dns-server") {
		c.DNSServers = file.DNSServers
	}
	if file.DNSTimeout > 0 && !explicit("dns-timeout") {
		c.DNSTimeout = file.DNSTimeout
	}
	if file.GeoIP != "" && !explicit("geoip") {
		c.GeoIPPath = file.GeoIP
	}
	if file.MetricsAddr != "" && !explicit("metrics-addr") {
		c.MetricsAddr = file.MetricsAddr
	}
	if file.Trace.Exporter != "" && !explicit("trace-exporter") {
		c.TraceExporter = file.Trace.Exporter
	}
	if file.Trace.Endpoint != "" && !explicit("trace-endpoint") {
		c.TraceEndpoint = file.Trace.Endpoint
	}
	if file.LogLevel != "" && !explicit("log-level") {
		c.LogLevel = file.LogLevel
	}
}
