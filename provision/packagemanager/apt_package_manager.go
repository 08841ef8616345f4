package packagemanager

import (
	"context"

	cm "github.com/steelcutops/provision/provision/commandmanager"
)

type AptPackageManager struct {
	CommandManager cm.CommandManager
}

func (apm *AptPackageManager) Name() string {
	return "apt"
}

func (apm *AptPackageManager) UpdatePackageList(ctx context.Context) error {
	_, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "apt-get",
		Sudo:    true,
		Args:    []string{"update"},
	})
	return err
}

func (apm *AptPackageManager) AddPackage(ctx context.Context, pkg string) error {
	_, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "apt-get",
		Sudo:    true,
		Env:     []string{"DEBIAN_FRONTEND=noninteractive"},
		Args:    []string{"install", "-y", "-o", "Dpkg::Options::=--force-confdef", "-o", "Dpkg::Options::=--force-confold", pkg},
	})
	return err
}

func (apm *AptPackageManager) EnsurePackagePresent(ctx context.Context, binary, pkg string) (bool, error) {
	return ensurePresent(ctx, apm.CommandManager, apm, binary, pkg)
}
