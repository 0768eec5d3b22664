package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllGroup is the implicit group listing every configured host.
const AllGroup = "All"

const (
	defaultPort           = 22
	defaultQueueWarnBytes = 8 << 20
)

type Host struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"` // empty for a local shell
	User string `yaml:"user"`
	Port int    `yaml:"port"`
	Key  string `yaml:"key"` // key name from keys, or a path
}

type Group struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
	Hosts []Host `yaml:"hosts"`
}

type Key struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Default bool   `yaml:"default"`
}

type SSH struct {
	Binary  string   `yaml:"binary"`
	Options []string `yaml:"options"`
	Term    string   `yaml:"term"`
}

type Config struct {
	LogLevel       string  `yaml:"log_level"`
	SSH            SSH     `yaml:"ssh"`
	Keys           []Key   `yaml:"keys"`
	Groups         []Group `yaml:"groups"`
	QueueWarnBytes int     `yaml:"queue_warn_bytes"`
}

// DefaultPath returns ~/.config/sshtui/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sshtui", "config.yaml"), nil
}

// Load reads the config from DefaultPath.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path.
// Returns the default config if the file doesn't exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the config used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) validate() error {
	seen := make(map[string]string)
	for _, g := range c.Groups {
		for _, h := range g.Hosts {
			if strings.TrimSpace(h.Name) == "" {
				return fmt.Errorf("group %q: host without a name", g.Name)
			}
			if h.Port < 0 || h.Port > 65535 {
				return fmt.Errorf("host %q: port %d out of range", h.Name, h.Port)
			}
			if other, ok := seen[h.Name]; ok {
				if other == g.Name {
					return fmt.Errorf("host %q defined twice in %q", h.Name, g.Name)
				}
				return fmt.Errorf("host %q defined in both %q and %q", h.Name, other, g.Name)
			}
			seen[h.Name] = g.Name
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	home, _ := os.UserHomeDir()
	user := os.Getenv("USER")

	if c.QueueWarnBytes == 0 {
		c.QueueWarnBytes = defaultQueueWarnBytes
	}
	for i := range c.Keys {
		c.Keys[i].Path = expandHome(c.Keys[i].Path, home)
	}
	for gi := range c.Groups {
		for hi := range c.Groups[gi].Hosts {
			h := &c.Groups[gi].Hosts[hi]
			if h.Port == 0 {
				h.Port = defaultPort
			}
			if h.User == "" && h.Host != "" {
				h.User = user
			}
			h.Key = expandHome(h.Key, home)
		}
	}
}

// expandHome replaces a leading ~ with the home directory.
func expandHome(path, home string) string {
	if home == "" || path == "" || path[0] != '~' {
		return path
	}
	return filepath.Join(home, path[1:])
}

// DefaultKey returns the key marked default, or nil.
func (c *Config) DefaultKey() *Key {
	for i := range c.Keys {
		if c.Keys[i].Default {
			return &c.Keys[i]
		}
	}
	return nil
}

// KeyPath resolves the private key a host connects with: a named key from
// keys, a literal path, or the default key.
func (c *Config) KeyPath(h Host) string {
	if h.Key != "" {
		for _, k := range c.Keys {
			if k.Name == h.Key {
				return k.Path
			}
		}
		return h.Key
	}
	if k := c.DefaultKey(); k != nil {
		return k.Path
	}
	return ""
}

// Hosts returns every host in group order.
func (c *Config) Hosts() []Host {
	var hosts []Host
	for _, g := range c.Groups {
		if g.Name == AllGroup {
			continue
		}
		hosts = append(hosts, g.Hosts...)
	}
	return hosts
}

// GroupsWithAll returns the implicit All group followed by the configured
// groups. A configured group named All is folded into the implicit one.
func (c *Config) GroupsWithAll() []Group {
	all := Group{Name: AllGroup, Color: "blue"}
	groups := []Group{all}
	for _, g := range c.Groups {
		if g.Name == AllGroup {
			if g.Color != "" {
				groups[0].Color = g.Color
			}
			continue
		}
		groups = append(groups, g)
	}
	groups[0].Hosts = c.Hosts()
	return groups
}

// FindHost looks a host up by name, then by address.
func (c *Config) FindHost(name string) (Host, bool) {
	hosts := c.Hosts()
	for _, h := range hosts {
		if h.Name == name {
			return h, true
		}
	}
	for _, h := range hosts {
		if h.Host != "" && h.Host == name {
			return h, true
		}
	}
	return Host{}, false
}
