package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/steelcutops/provision/provision/commandmanager"
	"github.com/steelcutops/provision/provision/config"
	"github.com/steelcutops/provision/provision/credentialmanager"
	"github.com/steelcutops/provision/provision/installer"
	"github.com/steelcutops/provision/provision/overlaymanager"
	"github.com/steelcutops/provision/provision/packagemanager"
	"github.com/steelcutops/provision/provision/provisioner"
	"github.com/steelcutops/provision/provision/servicemanager"
	"github.com/steelcutops/provision/provision/sshmanager"
)

// packageIndexStep refreshes the package manager metadata once per run.
// There is no precondition to check; the refresh is harmless on re-run.
type packageIndexStep struct {
	packageManager packagemanager.PackageManager
}

func (s *packageIndexStep) Name() string { return "package-index" }

func (s *packageIndexStep) Check(ctx context.Context) (provisioner.Status, error) {
	return provisioner.StatusNeedsAction, nil
}

func (s *packageIndexStep) Apply(ctx context.Context) error {
	return s.packageManager.UpdatePackageList(ctx)
}

// packageStep installs one package. Tools with a vendor install script go
// through the installer; everything else through the distro package
// manager.
type packageStep struct {
	pkg            config.Package
	commandManager commandmanager.CommandManager
	packageManager packagemanager.PackageManager
	installer      *installer.Installer
}

func (s *packageStep) Name() string { return "package/" + s.pkg.Name }

func (s *packageStep) Check(ctx context.Context) (provisioner.Status, error) {
	if s.commandManager.CommandExists(s.pkg.Binary) {
		return provisioner.StatusSatisfied, nil
	}
	return provisioner.StatusNeedsAction, nil
}

func (s *packageStep) Apply(ctx context.Context) error {
	if s.installer.Supports(s.pkg.Binary) {
		_, err := s.installer.EnsureToolPresent(ctx, s.pkg.Binary)
		return err
	}
	_, err := s.packageManager.EnsurePackagePresent(ctx, s.pkg.Binary, s.pkg.Name)
	return err
}

// composePluginStep places the docker-compose CLI plugin under the user's
// docker config.
type composePluginStep struct {
	installer *installer.Installer
	home      string
}

func (s *composePluginStep) Name() string { return "docker-compose-plugin" }

func (s *composePluginStep) Check(ctx context.Context) (provisioner.Status, error) {
	if _, err := os.Stat(installer.ComposePluginPath(s.home)); err == nil {
		return provisioner.StatusSatisfied, nil
	}
	return provisioner.StatusNeedsAction, nil
}

func (s *composePluginStep) Apply(ctx context.Context) error {
	_, err := s.installer.EnsureComposePlugin(ctx, s.home)
	return err
}

// sshKeyStep provisions the key pair and surfaces the public key for the
// operator to register with the source-hosting service.
type sshKeyStep struct {
	pair   sshmanager.KeyPair
	source sshmanager.KeySource
}

func (s *sshKeyStep) Name() string { return "ssh-key" }

func (s *sshKeyStep) Check(ctx context.Context) (provisioner.Status, error) {
	if s.pair.Exists() {
		return provisioner.StatusSatisfied, nil
	}
	return provisioner.StatusNeedsAction, nil
}

func (s *sshKeyStep) Apply(ctx context.Context) error {
	if _, err := sshmanager.EnsureKeyPair(ctx, s.pair, s.source); err != nil {
		return err
	}

	publicKey, err := s.pair.PublicKey()
	if err != nil {
		return err
	}
	logrus.Info("Add this public key to your source-hosting service:")
	fmt.Println(publicKey)
	return nil
}

type credentialsStep struct {
	manager *credentialmanager.Manager
}

func (s *credentialsStep) Name() string { return "aws-credentials" }

func (s *credentialsStep) Check(ctx context.Context) (provisioner.Status, error) {
	if s.manager.Exists() {
		return provisioner.StatusSatisfied, nil
	}
	return provisioner.StatusNeedsAction, nil
}

func (s *credentialsStep) Apply(ctx context.Context) error {
	_, err := s.manager.EnsureCredentials(ctx)
	return err
}

// serviceStep enables and starts one system service. Hosts without the
// unit registered skip the step with a warning.
type serviceStep struct {
	name           string
	serviceManager *servicemanager.LinuxServiceManager
}

func (s *serviceStep) Name() string { return "service/" + s.name }

func (s *serviceStep) ShouldRun(ctx context.Context) (bool, string) {
	exists, err := s.serviceManager.UnitExists(s.name)
	if err != nil {
		return false, fmt.Sprintf("unit lookup failed: %v", err)
	}
	if !exists {
		return false, "unit not registered"
	}
	return true, ""
}

func (s *serviceStep) Check(ctx context.Context) (provisioner.Status, error) {
	enabled, err := s.serviceManager.IsServiceEnabled(s.name)
	if err != nil {
		return provisioner.StatusNeedsAction, err
	}
	status, err := s.serviceManager.CheckServiceStatus(s.name)
	if err != nil {
		return provisioner.StatusNeedsAction, err
	}
	if enabled && status == servicemanager.Active {
		return provisioner.StatusSatisfied, nil
	}
	return provisioner.StatusNeedsAction, nil
}

func (s *serviceStep) Apply(ctx context.Context) error {
	_, err := s.serviceManager.EnsureServiceRunning(s.name)
	return err
}

// overlayStep joins the overlay network. Deliberately not guarded: the
// client resolves the current state itself on every run.
type overlayStep struct {
	overlay *overlaymanager.TailscaleManager
	options overlaymanager.UpOptions
}

func (s *overlayStep) Name() string { return "overlay-network" }

func (s *overlayStep) Check(ctx context.Context) (provisioner.Status, error) {
	return provisioner.StatusNeedsAction, nil
}

func (s *overlayStep) Apply(ctx context.Context) error {
	return s.overlay.Up(ctx, s.options)
}
