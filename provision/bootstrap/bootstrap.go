// Package bootstrap assembles the provisioning pipeline from the run
// configuration, in the fixed stage order: package index, packages, SSH
// key, AWS credentials, services, overlay network.
package bootstrap

import (
	"os"

	"github.com/steelcutops/provision/provision/commandmanager"
	"github.com/steelcutops/provision/provision/common"
	"github.com/steelcutops/provision/provision/config"
	"github.com/steelcutops/provision/provision/credentialmanager"
	"github.com/steelcutops/provision/provision/installer"
	"github.com/steelcutops/provision/provision/overlaymanager"
	"github.com/steelcutops/provision/provision/packagemanager"
	"github.com/steelcutops/provision/provision/peer"
	"github.com/steelcutops/provision/provision/provisioner"
	"github.com/steelcutops/provision/provision/servicemanager"
	"github.com/steelcutops/provision/provision/sshmanager"
)

type Bootstrap struct {
	cfg            *config.Config
	commandManager commandmanager.CommandManager
	packageManager packagemanager.PackageManager
	installer      *installer.Installer
	serviceManager *servicemanager.LinuxServiceManager
	overlay        *overlaymanager.TailscaleManager
	keyPair        sshmanager.KeyPair
	keySource      sshmanager.KeySource
	credentials    *credentialmanager.Manager
	home           string
}

// New wires the managers for one run. The package manager comes in
// already detected so a missing one fails before any step executes.
func New(cfg *config.Config, commandManager commandmanager.CommandManager, packageManager packagemanager.PackageManager, creds common.Credentials) *Bootstrap {
	b := &Bootstrap{
		cfg:            cfg,
		commandManager: commandManager,
		packageManager: packageManager,
		installer:      &installer.Installer{CommandManager: commandManager},
		serviceManager: &servicemanager.LinuxServiceManager{CommandManager: commandManager},
		overlay:        &overlaymanager.TailscaleManager{CommandManager: commandManager},
		keyPair: sshmanager.KeyPair{
			PrivatePath: cfg.SSHKeyPath,
			PublicPath:  cfg.SSHKeyPath + ".pub",
		},
		credentials: &credentialmanager.Manager{Path: cfg.AWSCredentialsPath},
		home:        homeDir(),
	}

	if cfg.Peer != nil {
		client := &peer.Client{Alias: cfg.Peer.Host}
		client.User = cfg.Peer.User
		client.Password = creds.Password
		client.KeyPassphrase = creds.KeyPassphrase

		b.keySource = &sshmanager.PeerKeySource{Fetcher: client, RemoteDir: cfg.Peer.KeyDir}
		b.credentials.Fetcher = client
		b.credentials.RemotePath = cfg.Peer.CredentialsPath
	} else {
		hostname, _ := os.Hostname()
		b.keySource = &sshmanager.GenerateKeySource{
			CommandManager: commandManager,
			Comment:        "provision@" + hostname,
		}
	}

	return b
}

// Steps returns the pipeline in execution order. Control flows strictly
// top to bottom; no step branches back.
func (b *Bootstrap) Steps() []provisioner.Step {
	steps := []provisioner.Step{
		&packageIndexStep{packageManager: b.packageManager},
	}

	installDocker := false
	for _, pkg := range b.cfg.Packages {
		if pkg.Binary == "docker" {
			installDocker = true
		}
		steps = append(steps, &packageStep{
			pkg:            pkg,
			commandManager: b.commandManager,
			packageManager: b.packageManager,
			installer:      b.installer,
		})
	}
	if installDocker {
		steps = append(steps, &composePluginStep{installer: b.installer, home: b.home})
	}

	steps = append(steps,
		&sshKeyStep{pair: b.keyPair, source: b.keySource},
		&credentialsStep{manager: b.credentials},
	)

	for _, service := range b.cfg.Services {
		steps = append(steps, &serviceStep{name: service, serviceManager: b.serviceManager})
	}

	if !b.cfg.Tailscale.Disabled {
		steps = append(steps, &overlayStep{overlay: b.overlay, options: overlaymanager.UpOptions{
			SSH:               b.cfg.Tailscale.SSH,
			AdvertiseExitNode: b.cfg.Tailscale.ExitNode,
			Hostname:          b.cfg.Tailscale.Hostname,
			AuthKey:           b.cfg.Tailscale.AuthKey,
		}})
	}

	return steps
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
