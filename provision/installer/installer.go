// Package installer covers the tools whose distro packages are missing or
// stale and that the upstream vendors ship their own install scripts for.
// Everything here is presence-probed before acting, same as the package
// manager path.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	cm "github.com/steelcutops/provision/provision/commandmanager"
)

const composeVersion = "v2.24.6"

type toolInstall struct {
	description string
	commands    []cm.CommandConfig
}

var toolInstalls = map[string]toolInstall{
	"aws": {
		description: "AWS CLI v2 bundle installer",
		commands: []cm.CommandConfig{
			{Command: "curl", Args: []string{"-fsSL", "https://awscli.amazonaws.com/awscli-exe-linux-x86_64.zip", "-o", "/tmp/awscliv2.zip"}},
			{Command: "unzip", Args: []string{"-o", "-q", "/tmp/awscliv2.zip", "-d", "/tmp"}},
			{Command: "/tmp/aws/install", Sudo: true},
		},
	},
	"docker": {
		description: "get.docker.com convenience script",
		commands: []cm.CommandConfig{
			{Command: "curl", Args: []string{"-fsSL", "https://get.docker.com", "-o", "/tmp/get-docker.sh"}},
			{Command: "sh", Args: []string{"/tmp/get-docker.sh"}, Sudo: true},
		},
	},
	"tailscale": {
		description: "tailscale.com install script",
		commands: []cm.CommandConfig{
			{Command: "curl", Args: []string{"-fsSL", "https://tailscale.com/install.sh", "-o", "/tmp/tailscale-install.sh"}},
			{Command: "sh", Args: []string{"/tmp/tailscale-install.sh"}, Sudo: true},
		},
	},
}

type Installer struct {
	CommandManager cm.CommandManager
}

// Supports reports whether a vendor install script exists for the binary.
// Packages without one go through the distro package manager.
func (i *Installer) Supports(binary string) bool {
	_, ok := toolInstalls[binary]
	return ok
}

func (i *Installer) Install(ctx context.Context, binary string) error {
	tool, ok := toolInstalls[binary]
	if !ok {
		return fmt.Errorf("no installer available for %q", binary)
	}

	logrus.WithFields(logrus.Fields{"tool": binary, "via": tool.description}).Info("Installing tool")
	for _, config := range tool.commands {
		if result, err := i.CommandManager.Run(ctx, config); err != nil {
			return fmt.Errorf("installing %s: %s failed: %s: %w", binary, config.Command, result.STDERR, err)
		}
	}
	return nil
}

// EnsureToolPresent probes for the binary and runs the vendor installer
// only when it is absent.
func (i *Installer) EnsureToolPresent(ctx context.Context, binary string) (bool, error) {
	if i.CommandManager.CommandExists(binary) {
		logrus.WithField("tool", binary).Info("Tool already present, skipping install")
		return false, nil
	}
	if err := i.Install(ctx, binary); err != nil {
		return false, err
	}
	return true, nil
}

// ComposePluginPath returns where the docker CLI looks for the compose
// plugin in a per-user install.
func ComposePluginPath(home string) string {
	return filepath.Join(home, ".docker", "cli-plugins", "docker-compose")
}

// EnsureComposePlugin downloads the docker-compose CLI plugin into
// ~/.docker/cli-plugins if no binary is there yet.
func (i *Installer) EnsureComposePlugin(ctx context.Context, home string) (bool, error) {
	path := ComposePluginPath(home)
	if _, err := os.Stat(path); err == nil {
		logrus.WithField("path", path).Info("docker-compose plugin already present, skipping download")
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating cli-plugins directory: %w", err)
	}

	url := fmt.Sprintf("https://github.com/docker/compose/releases/download/%s/docker-compose-linux-x86_64", composeVersion)
	commands := []cm.CommandConfig{
		{Command: "curl", Args: []string{"-fsSL", url, "-o", path}},
		{Command: "chmod", Args: []string{"0755", path}},
	}
	for _, config := range commands {
		if result, err := i.CommandManager.Run(ctx, config); err != nil {
			return false, fmt.Errorf("installing docker-compose plugin: %s failed: %s: %w", config.Command, result.STDERR, err)
		}
	}
	return true, nil
}
