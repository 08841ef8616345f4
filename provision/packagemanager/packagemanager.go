package packagemanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	cm "github.com/steelcutops/provision/provision/commandmanager"
)

// ErrNoPackageManager is returned by Detect when none of the supported
// package managers is resolvable on the host.
var ErrNoPackageManager = errors.New("no supported package manager found (tried apt, dnf, yum)")

// PackageManager abstracts the distro package manager. Install operations
// are idempotent through EnsurePackagePresent: a resolvable binary means
// the package is considered installed and no command is issued.
type PackageManager interface {
	Name() string
	UpdatePackageList(ctx context.Context) error
	AddPackage(ctx context.Context, pkg string) error
	EnsurePackagePresent(ctx context.Context, binary, pkg string) (bool, error)
}

// Detect probes for a supported package manager in a fixed order: apt
// first, then dnf, then yum. The first match wins; there is no scoring or
// version check.
func Detect(commandManager cm.CommandManager) (PackageManager, error) {
	switch {
	case commandManager.CommandExists("apt-get"):
		return &AptPackageManager{CommandManager: commandManager}, nil
	case commandManager.CommandExists("dnf"):
		return &DnfPackageManager{CommandManager: commandManager}, nil
	case commandManager.CommandExists("yum"):
		return &YumPackageManager{CommandManager: commandManager}, nil
	}
	return nil, ErrNoPackageManager
}

func ensurePresent(ctx context.Context, commandManager cm.CommandManager, mgr PackageManager, binary, pkg string) (bool, error) {
	if commandManager.CommandExists(binary) {
		logrus.WithFields(logrus.Fields{"package": pkg, "binary": binary}).Info("Package already present, skipping install")
		return false, nil
	}

	logrus.WithFields(logrus.Fields{"package": pkg, "manager": mgr.Name()}).Info("Installing package")
	if err := mgr.AddPackage(ctx, pkg); err != nil {
		return false, fmt.Errorf("failed to install %s with %s: %w", pkg, mgr.Name(), err)
	}
	return true, nil
}
