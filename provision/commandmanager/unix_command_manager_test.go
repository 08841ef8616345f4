package commandmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/steelcutops/provision/provision/common"
)

func TestRunLocal(t *testing.T) {
	manager := UnixCommandManager{
		Credentials: common.Credentials{},
	}

	config := CommandConfig{
		Command: "echo",
		Args:    []string{"hello"},
	}

	result, err := manager.Run(context.Background(), config)
	assert.NoError(t, err)
	assert.Equal(t, "hello\n", result.STDOUT)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunNonZeroExit(t *testing.T) {
	manager := UnixCommandManager{}

	result, err := manager.Run(context.Background(), CommandConfig{
		Command: "false",
	})
	assert.Error(t, err)
	assert.Equal(t, 1, result.ExitCode)
}

func TestRunAppliesEnv(t *testing.T) {
	manager := UnixCommandManager{}

	result, err := manager.Run(context.Background(), CommandConfig{
		Command: "sh",
		Args:    []string{"-c", "echo $PROVISION_TEST_VAR"},
		Env:     []string{"PROVISION_TEST_VAR=ok"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok\n", result.STDOUT)
}

func TestCommandLineSudoCarriesEnvInArgv(t *testing.T) {
	name, args := commandLine(CommandConfig{
		Command: "apt-get",
		Args:    []string{"install", "-y", "git"},
		Sudo:    true,
		Env:     []string{"DEBIAN_FRONTEND=noninteractive"},
	})

	assert.Equal(t, "sudo", name)
	assert.Equal(t, []string{"-S", "env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", "git"}, args)
}

func TestCommandLineSudoWithoutEnv(t *testing.T) {
	name, args := commandLine(CommandConfig{
		Command: "systemctl",
		Args:    []string{"start", "docker"},
		Sudo:    true,
	})

	assert.Equal(t, "sudo", name)
	assert.Equal(t, []string{"-S", "systemctl", "start", "docker"}, args)
}

func TestCommandExists(t *testing.T) {
	manager := UnixCommandManager{}

	assert.True(t, manager.CommandExists("sh"))
	assert.False(t, manager.CommandExists("definitely-not-a-real-binary"))
}
