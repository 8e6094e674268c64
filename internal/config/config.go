package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like
// "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// ServerConfig holds backend HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// BackendConfig points the CLI at a backend API.
type BackendConfig struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// CheckConfig holds local-check settings.
type CheckConfig struct {
	DNSServer string   `yaml:"dns_server"`
	TCPPort   int      `yaml:"tcp_port"`
	Timeout   Duration `yaml:"timeout"`
}

// GlobalpingConfig holds measurement service settings.
type GlobalpingConfig struct {
	BaseURL string   `yaml:"base_url"`
	Limit   int      `yaml:"limit"`
	Timeout Duration `yaml:"timeout"`
}

// PollConfig holds the session polling cadence.
type PollConfig struct {
	Interval Duration `yaml:"interval"`
	Deadline Duration `yaml:"deadline"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Check      CheckConfig      `yaml:"check"`
	Globalping GlobalpingConfig `yaml:"globalping"`
	Poll       PollConfig       `yaml:"poll"`
	Storage    StorageConfig    `yaml:"storage"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Address: ":8080"},
		Backend: BackendConfig{URL: "http://localhost:8080", Timeout: Duration{10 * time.Second}},
		Check:   CheckConfig{TCPPort: 443, Timeout: Duration{5 * time.Second}},
		Globalping: GlobalpingConfig{
			BaseURL: "https://api.globalping.io",
			Limit:   10,
			Timeout: Duration{10 * time.Second},
		},
		Poll:    PollConfig{Interval: Duration{5 * time.Second}, Deadline: Duration{30 * time.Second}},
		Storage: StorageConfig{Path: "netdiag.db"},
	}
}

// Load reads, parses, and validates the config file at path. Missing
// fields fall back to Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Unmarshal durations via raw strings so a bad duration names the
	// field instead of failing deep inside the yaml decoder.
	type rawConfig struct {
		Server struct {
			Address string `yaml:"address"`
		} `yaml:"server"`
		Backend struct {
			URL     string `yaml:"url"`
			Timeout string `yaml:"timeout"`
		} `yaml:"backend"`
		Check struct {
			DNSServer string `yaml:"dns_server"`
			TCPPort   int    `yaml:"tcp_port"`
			Timeout   string `yaml:"timeout"`
		} `yaml:"check"`
		Globalping struct {
			BaseURL string `yaml:"base_url"`
			Limit   int    `yaml:"limit"`
			Timeout string `yaml:"timeout"`
		} `yaml:"globalping"`
		Poll struct {
			Interval string `yaml:"interval"`
			Deadline string `yaml:"deadline"`
		} `yaml:"poll"`
		Storage struct {
			Path string `yaml:"path"`
		} `yaml:"storage"`
		Alerts AlertsConfig `yaml:"alerts"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := Default()

	if raw.Server.Address != "" {
		cfg.Server.Address = raw.Server.Address
	}
	if raw.Backend.URL != "" {
		cfg.Backend.URL = raw.Backend.URL
	}
	if raw.Check.DNSServer != "" {
		cfg.Check.DNSServer = raw.Check.DNSServer
	}
	if raw.Check.TCPPort != 0 {
		if raw.Check.TCPPort < 1 || raw.Check.TCPPort > 65535 {
			return nil, fmt.Errorf("check.tcp_port: %d is not a valid port", raw.Check.TCPPort)
		}
		cfg.Check.TCPPort = raw.Check.TCPPort
	}
	if raw.Globalping.BaseURL != "" {
		cfg.Globalping.BaseURL = raw.Globalping.BaseURL
	}
	if raw.Globalping.Limit != 0 {
		if raw.Globalping.Limit < 1 {
			return nil, fmt.Errorf("globalping.limit: must be at least 1")
		}
		cfg.Globalping.Limit = raw.Globalping.Limit
	}
	if raw.Storage.Path != "" {
		cfg.Storage.Path = raw.Storage.Path
	}
	cfg.Alerts = raw.Alerts

	durations := []struct {
		field string
		value string
		dst   *Duration
	}{
		{"backend.timeout", raw.Backend.Timeout, &cfg.Backend.Timeout},
		{"check.timeout", raw.Check.Timeout, &cfg.Check.Timeout},
		{"globalping.timeout", raw.Globalping.Timeout, &cfg.Globalping.Timeout},
		{"poll.interval", raw.Poll.Interval, &cfg.Poll.Interval},
		{"poll.deadline", raw.Poll.Deadline, &cfg.Poll.Deadline},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		dur, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid duration %q: %w", d.field, d.value, err)
		}
		if dur <= 0 {
			return nil, fmt.Errorf("%s: must be positive", d.field)
		}
		*d.dst = Duration{dur}
	}

	if cfg.Poll.Interval.Duration > cfg.Poll.Deadline.Duration {
		return nil, fmt.Errorf("poll.interval %s exceeds poll.deadline %s", cfg.Poll.Interval.Duration, cfg.Poll.Deadline.Duration)
	}

	return cfg, nil
}
