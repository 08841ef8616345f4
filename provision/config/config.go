// Package config carries the explicit run configuration every stage
// receives: package list, service list, paths, peer host, overlay options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package pairs a distro package name with the binary whose presence on
// the search path marks it as installed.
type Package struct {
	Name   string `yaml:"name"`
	Binary string `yaml:"binary"`
}

// PeerConfig names the host that already holds shared key material and
// credentials. When unset, keys are generated locally and the credentials
// file is written from the template.
type PeerConfig struct {
	Host            string `yaml:"host"`
	User            string `yaml:"user"`
	KeyDir          string `yaml:"key_dir"`
	CredentialsPath string `yaml:"credentials_path"`
}

type TailscaleConfig struct {
	SSH      bool   `yaml:"ssh"`
	ExitNode bool   `yaml:"exit_node"`
	Hostname string `yaml:"hostname"`
	AuthKey  string `yaml:"auth_key"`
	Disabled bool   `yaml:"disabled"`
}

type Config struct {
	LogFile            string          `yaml:"log_file"`
	KeepGoing          bool            `yaml:"keep_going"`
	Packages           []Package       `yaml:"packages"`
	Services           []string        `yaml:"services"`
	SSHKeyPath         string          `yaml:"ssh_key_path"`
	AWSCredentialsPath string          `yaml:"aws_credentials_path"`
	Peer               *PeerConfig     `yaml:"peer"`
	Tailscale          TailscaleConfig `yaml:"tailscale"`
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Default mirrors what the fresh-server setup always needs.
func Default() *Config {
	home := homeDir()
	return &Config{
		LogFile: "/tmp/provision.log",
		Packages: []Package{
			{Name: "git", Binary: "git"},
			{Name: "cron", Binary: "crontab"},
			{Name: "curl", Binary: "curl"},
			{Name: "unzip", Binary: "unzip"},
			{Name: "awscli", Binary: "aws"},
			{Name: "docker", Binary: "docker"},
			{Name: "tailscale", Binary: "tailscale"},
		},
		Services:           []string{"cron", "docker", "tailscaled"},
		SSHKeyPath:         filepath.Join(home, ".ssh", "id_ed25519"),
		AWSCredentialsPath: filepath.Join(home, ".aws", "credentials"),
		Tailscale: TailscaleConfig{
			SSH:      true,
			ExitNode: true,
		},
	}
}

// Load overlays a YAML file onto the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	home := homeDir()
	c.SSHKeyPath = expandHome(c.SSHKeyPath, home)
	c.AWSCredentialsPath = expandHome(c.AWSCredentialsPath, home)
	c.LogFile = expandHome(c.LogFile, home)

	if c.Peer != nil {
		if c.Peer.KeyDir == "" {
			c.Peer.KeyDir = "/root/.ssh"
		}
		if c.Peer.CredentialsPath == "" {
			c.Peer.CredentialsPath = "/root/.aws/credentials"
		}
	}
}

// SetPeer points the run at a peer host, filling in the default remote
// locations of the shared material.
func (c *Config) SetPeer(host string) {
	c.Peer = &PeerConfig{Host: host}
	c.normalize()
}

// SetLogFile points the run transcript at path, expanding a leading ~ the
// same way the YAML loader does.
func (c *Config) SetLogFile(path string) {
	c.LogFile = expandHome(path, homeDir())
}

func expandHome(path, home string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
