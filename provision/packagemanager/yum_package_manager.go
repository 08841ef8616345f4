package packagemanager

import (
	"context"

	cm "github.com/steelcutops/provision/provision/commandmanager"
)

type YumPackageManager struct {
	CommandManager cm.CommandManager
}

func (ypm *YumPackageManager) Name() string {
	return "yum"
}

func (ypm *YumPackageManager) UpdatePackageList(ctx context.Context) error {
	_, err := ypm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "yum",
		Sudo:    true,
		Args:    []string{"makecache"},
	})
	return err
}

func (ypm *YumPackageManager) AddPackage(ctx context.Context, pkg string) error {
	if alias, ok := rpmPackageAliases[pkg]; ok {
		pkg = alias
	}
	_, err := ypm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "yum",
		Sudo:    true,
		Args:    []string{"install", "-y", pkg},
	})
	return err
}

func (ypm *YumPackageManager) EnsurePackagePresent(ctx context.Context, binary, pkg string) (bool, error) {
	return ensurePresent(ctx, ypm.CommandManager, ypm, binary, pkg)
}
