package servicemanager

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	cm "github.com/steelcutops/provision/provision/commandmanager"
)

type LinuxServiceManager struct {
	CommandManager cm.CommandManager
}

// UnitExists reports whether a unit definition is registered with systemd.
// A nonzero exit from `systemctl cat` means the unit is unknown.
func (lsm *LinuxServiceManager) UnitExists(serviceName string) (bool, error) {
	result, err := lsm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"cat", serviceName},
	})
	if err != nil {
		if result.ExitCode != 0 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (lsm *LinuxServiceManager) EnableService(serviceName string) error {
	_, err := lsm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "systemctl",
		Sudo:    true,
		Args:    []string{"enable", serviceName},
	})
	return err
}

func (lsm *LinuxServiceManager) StartService(serviceName string) error {
	_, err := lsm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "systemctl",
		Sudo:    true,
		Args:    []string{"start", serviceName},
	})
	return err
}

func (lsm *LinuxServiceManager) IsServiceEnabled(serviceName string) (bool, error) {
	output, err := lsm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"is-enabled", serviceName},
	})
	if err != nil && output.ExitCode != 0 {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output.STDOUT) == "enabled", nil
}

func (lsm *LinuxServiceManager) CheckServiceStatus(serviceName string) (ServiceStatus, error) {
	output, err := lsm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"is-active", serviceName},
	})
	switch strings.TrimSpace(output.STDOUT) {
	case "active":
		return Active, nil
	case "inactive":
		return Inactive, nil
	case "failed":
		return Failed, nil
	}
	if err != nil && output.ExitCode == 0 {
		return Unknown, err
	}
	return Unknown, nil
}

// EnsureServiceRunning enables and starts the service. Already enabled and
// active means nothing is done.
func (lsm *LinuxServiceManager) EnsureServiceRunning(serviceName string) (bool, error) {
	enabled, err := lsm.IsServiceEnabled(serviceName)
	if err != nil {
		return false, err
	}
	status, err := lsm.CheckServiceStatus(serviceName)
	if err != nil {
		return false, err
	}
	if enabled && status == Active {
		logrus.WithField("service", serviceName).Info("Service already enabled and running")
		return false, nil
	}

	logrus.WithField("service", serviceName).Info("Enabling and starting service")
	if err := lsm.EnableService(serviceName); err != nil {
		return false, err
	}
	if err := lsm.StartService(serviceName); err != nil {
		return false, err
	}
	return true, nil
}
