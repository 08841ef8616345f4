package packagemanager

import (
	"context"

	cm "github.com/steelcutops/provision/provision/commandmanager"
)

type DnfPackageManager struct {
	CommandManager cm.CommandManager
}

// Debian and RPM distros disagree on a few package names.
var rpmPackageAliases = map[string]string{
	"cron": "cronie",
}

func (dpm *DnfPackageManager) Name() string {
	return "dnf"
}

func (dpm *DnfPackageManager) UpdatePackageList(ctx context.Context) error {
	_, err := dpm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "dnf",
		Sudo:    true,
		Args:    []string{"makecache"},
	})
	return err
}

func (dpm *DnfPackageManager) AddPackage(ctx context.Context, pkg string) error {
	if alias, ok := rpmPackageAliases[pkg]; ok {
		pkg = alias
	}
	_, err := dpm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "dnf",
		Sudo:    true,
		Args:    []string{"install", "-y", pkg},
	})
	return err
}

func (dpm *DnfPackageManager) EnsurePackagePresent(ctx context.Context, binary, pkg string) (bool, error) {
	return ensurePresent(ctx, dpm.CommandManager, dpm, binary, pkg)
}
