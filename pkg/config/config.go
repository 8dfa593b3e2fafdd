package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// ClientAddr is where the local command channel listens. Loopback only.
	ClientAddr string `yaml:"client_addr"`

	// TransferPort is the well-known port other daemons dial for chunks.
	TransferPort   int    `yaml:"transfer_port"`
	DiscoveryPort  int    `yaml:"discovery_port"`
	MulticastGroup string `yaml:"multicast_group"`
	MulticastTTL   int    `yaml:"multicast_ttl"`
	DatagramSize   int    `yaml:"datagram_size"`

	BufferSize   int    `yaml:"buffer_size"`
	TempDir      string `yaml:"temp_dir"`
	ReservedCPUs int    `yaml:"reserved_cpus"`

	MetricsAddr     string        `yaml:"metrics_addr"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

func NewConfig() *Config {
	return &Config{
		ClientAddr:      "127.0.0.1:7643",
		TransferPort:    7644,
		DiscoveryPort:   7645,
		MulticastGroup:  "224.0.0.123",
		MulticastTTL:    1,
		DatagramSize:    40960,
		BufferSize:      100_000,
		TempDir:         ".",
		ReservedCPUs:    2,
		MetricsInterval: 30 * time.Second,
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	host, _, err := net.SplitHostPort(c.ClientAddr)
	if err != nil {
		return fmt.Errorf("%w: client_addr %q: %v", ErrInvalid, c.ClientAddr, err)
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return fmt.Errorf("%w: client_addr %q is not a loopback address", ErrInvalid, c.ClientAddr)
	}
	for name, port := range map[string]int{
		"transfer_port":  c.TransferPort,
		"discovery_port": c.DiscoveryPort,
	} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%w: %s %d out of range", ErrInvalid, name, port)
		}
	}
	ip := net.ParseIP(c.MulticastGroup)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return fmt.Errorf("%w: multicast_group %q is not an IPv4 multicast address", ErrInvalid, c.MulticastGroup)
	}
	if c.MulticastTTL < 1 || c.MulticastTTL > 255 {
		return fmt.Errorf("%w: multicast_ttl %d", ErrInvalid, c.MulticastTTL)
	}
	if c.DatagramSize <= 0 || c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer sizes must be positive", ErrInvalid)
	}
	if c.ReservedCPUs < 0 {
		return fmt.Errorf("%w: reserved_cpus %d", ErrInvalid, c.ReservedCPUs)
	}
	return nil
}

// DiscoveryGroupAddr is the multicast destination for scan requests.
func (c *Config) DiscoveryGroupAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(c.MulticastGroup), Port: c.DiscoveryPort}
}
