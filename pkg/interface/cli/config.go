package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	ConfigFile string `short:"c" long:"config" env:"COLLECTOR_CONFIG" description:"YAML file providing option values, command line and environment take precedence"`

	// Input
	InputFiles []string `short:"i" long:"input" env:"COLLECTOR_INPUTS" env-delim:"," description:"Text file with raw messages or candidate URIs, - for stdin (repeatable)"`
	Sources    []string `short:"s" long:"source" env:"COLLECTOR_SOURCES" env-delim:"," description:"Subscription URL to fetch (repeatable)"`
	Channels   []string `long:"channel" env:"COLLECTOR_CHANNELS" env-delim:"," description:"Public channel whose preview page is scraped (repeatable)"`
	SinceHours int      `long:"since" env:"COLLECTOR_SINCE" description:"Only keep channel messages newer than this many hours" default:"24"`

	// Output
	OutputDir    string `short:"o" long:"output" env:"COLLECTOR_OUTPUT" description:"Output directory for the subscription buckets" default:"sub"`
	ChunkSize    int    `long:"chunk-size" env:"COLLECTOR_CHUNK_SIZE" description:"Entries per output file" default:"300"`
	Banner       bool   `long:"banner" env:"COLLECTOR_BANNER" description:"Prepend an update-time placeholder entry to the mixed bucket"`
	ReportFile   string `long:"report" env:"COLLECTOR_REPORT" description:"Run report log file (JSONL), empty disables it" default:"report.jsonl"`
	ProbeLogFile string `long:"probe-log" env:"COLLECTOR_PROBE_LOG" description:"TCP probe log file (JSONL), empty disables it"`
	DNSLogFile   string `long:"dns-log" env:"COLLECTOR_DNS_LOG" description:"DNS query/response log file (JSONL), empty disables it"`

	// Probing
	NumWorkers     int     `long:"workers" env:"COLLECTOR_WORKERS" description:"Number of concurrent pre-filter probes" default:"64"`
	ProbeTimeout   float64 `long:"probe-timeout" env:"COLLECTOR_PROBE_TIMEOUT" description:"TCP handshake timeout in seconds" default:"1.5"`
	LatencyCeiling float64 `long:"latency-ceiling" env:"COLLECTOR_LATENCY_CEILING" description:"Treat endpoints slower than this many milliseconds as unreachable, 0 disables it" default:"2000"`
	ProbeRate      float64 `long:"probe-rate" env:"COLLECTOR_PROBE_RATE" description:"Maximum dials per second, 0 is unlimited" default:"0"`
	SortBound      float64 `long:"sort-bound" env:"COLLECTOR_SORT_BOUND" description:"Latency in milliseconds splitting the ascending and descending groups" default:"50"`
	AllAddresses   bool    `long:"all-addresses" env:"COLLECTOR_ALL_ADDRESSES" description:"Probe every resolved address instead of the first one"`

	// Real probe timeout duration (not parsed from flags directly)
	ProbeTimeoutDuration   time.Duration
	LatencyCeilingDuration time.Duration

	// DNS
	DNSServers []string `long:"dns-server" env:"COLLECTOR_DNS_SERVERS" env-delim:"," description:"DNS server host:port (repeatable)" default:"8.8.8.8:53" default:"1.1.1.1:53"`
	DNSTimeout int      `long:"dns-timeout" env:"COLLECTOR_DNS_TIMEOUT" description:"DNS query timeout in seconds" default:"5"`

	// Real DNS timeout duration
	DNSTimeoutDuration time.Duration

	// GeoIP
	GeoIPPath string `long:"geoip" env:"COLLECTOR_GEOIP" description:"MaxMind country database, a missing file maps every address to XX" default:"./geoip-lite/geoip-lite-country.mmdb"`

	// HTTP
	HTTPTimeout     int    `long:"http-timeout" env:"COLLECTOR_HTTP_TIMEOUT" description:"Source fetch timeout in seconds" default:"15"`
	MaxResponseSize int64  `long:"max-response-size" env:"COLLECTOR_MAX_RESPONSE_SIZE" description:"Maximum source response size in bytes" default:"16777216"`
	UserAgent       string `long:"user-agent" env:"COLLECTOR_USER_AGENT" description:"HTTP User-Agent header"`

	// Real HTTP timeout duration
	HTTPTimeoutDuration time.Duration

	// Dedup
	BloomFilterSize uint64  `long:"bloom-size" env:"COLLECTOR_BLOOM_SIZE" description:"Bloom filter size (number of expected candidates)" default:"1000000"`
	BloomFilterFP   float64 `long:"bloom-fp" env:"COLLECTOR_BLOOM_FP" description:"Bloom filter false positive rate" default:"0.0001"`
	BloomFilterFile string  `long:"bloom-file" env:"COLLECTOR_BLOOM_FILE" description:"Bloom filter persistence file, candidates seen in earlier runs are skipped"`

	// Real bloom filter size (uint)
	RealBloomFilterSize uint

	// Telemetry
	MetricsAddr   string `long:"metrics-addr" env:"COLLECTOR_METRICS_ADDR" description:"Serve Prometheus metrics on this address, empty disables it"`
	TraceExporter string `long:"trace-exporter" env:"COLLECTOR_TRACE_EXPORTER" description:"Span exporter" choice:"none" choice:"stdout" choice:"otlp" default:"none"`
	TraceEndpoint string `long:"trace-endpoint" env:"COLLECTOR_TRACE_ENDPOINT" description:"OTLP gRPC collector address"`
	LogLevel      string `long:"log-level" env:"COLLECTOR_LOG_LEVEL" description:"Log level" choice:"DEBUG" choice:"INFO" choice:"WARN" choice:"ERROR" default:"INFO"`
	LogFile       string `long:"log-file" env:"COLLECTOR_LOG_FILE" description:"Write logs to this file instead of stderr"`

	// UI
	ShowDashboard bool `long:"dashboard" env:"COLLECTOR_DASHBOARD" description:"Show interactive TUI dashboard"`
	Version       bool `short:"v" long:"version" description:"Print version and exit"`
}

// ParseFlags loads .env and parses the process command line
func ParseFlags() (*Config, error) {
	// A missing .env is fine, real environment variables still apply
	_ = godotenv.Load()

	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			// Help has been printed by the library, exit cleanly
			os.Exit(0)
		}
		return nil, err
	}
	return cfg, nil
}

// ParseArgs parses args, overlays the YAML config file and validates the result
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.Default)
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		file, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.overlay(parser, file)
	}

	// Convert timeouts
	cfg.ProbeTimeoutDuration = time.Duration(cfg.ProbeTimeout * float64(time.Second))
	cfg.LatencyCeilingDuration = time.Duration(cfg.LatencyCeiling * float64(time.Millisecond))
	cfg.DNSTimeoutDuration = time.Duration(cfg.DNSTimeout) * time.Second
	cfg.HTTPTimeoutDuration = time.Duration(cfg.HTTPTimeout) * time.Second

	// Set bloom filter size
	cfg.RealBloomFilterSize = uint(cfg.BloomFilterSize)

	if cfg.Version {
		return cfg, nil
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.InputFiles) == 0 && len(c.Sources) == 0 && len(c.Channels) == 0 {
		return fmt.Errorf("no input given, use --input, --source or --channel")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output directory must not be empty")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be > 0, got %d", c.ChunkSize)
	}

	if c.NumWorkers <= 0 {
		return fmt.Errorf("number of workers must be > 0, got %d", c.NumWorkers)
	}

	if c.ProbeTimeoutDuration <= 0 {
		return fmt.Errorf("probe timeout must be > 0, got %s", c.ProbeTimeoutDuration)
	}

	if c.LatencyCeiling < 0 {
		return fmt.Errorf("latency ceiling must be >= 0, got %g", c.LatencyCeiling)
	}

	if c.ProbeRate < 0 {
		return fmt.Errorf("probe rate must be >= 0, got %g", c.ProbeRate)
	}

	if c.SortBound < 0 {
		return fmt.Errorf("sort bound must be >= 0, got %g", c.SortBound)
	}

	if len(c.DNSServers) == 0 {
		return fmt.Errorf("at least one DNS server is required")
	}

	if c.DNSTimeoutDuration <= 0 {
		return fmt.Errorf("DNS timeout must be > 0, got %s", c.DNSTimeoutDuration)
	}

	if c.HTTPTimeoutDuration <= 0 {
		return fmt.Errorf("HTTP timeout must be > 0, got %s", c.HTTPTimeoutDuration)
	}

	if c.MaxResponseSize <= 0 {
		return fmt.Errorf("max response size must be > 0, got %d", c.MaxResponseSize)
	}

	if c.SinceHours <= 0 {
		return fmt.Errorf("channel window must be > 0 hours, got %d", c.SinceHours)
	}

	if c.BloomFilterFP <= 0 || c.BloomFilterFP >= 1 {
		return fmt.Errorf("bloom filter false positive rate must be between 0 and 1, got %f", c.BloomFilterFP)
	}

	if c.TraceExporter == "otlp" && c.TraceEndpoint == "" {
		return fmt.Errorf("otlp trace exporter requires --trace-endpoint")
	}

	return nil
}
