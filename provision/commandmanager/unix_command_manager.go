package commandmanager

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/steelcutops/provision/provision/common"
)

// UnixCommandManager runs commands on the local host. Provisioning always
// targets the machine the binary runs on; anything remote goes through the
// peer package instead.
type UnixCommandManager struct {
	common.Credentials
}

// commandLine builds the argv actually exec'd. Sudoers env_reset strips
// variables set on the sudo process itself, so Env rides inside the sudo'd
// argv via env(1) instead of cmd.Env.
func commandLine(config CommandConfig) (string, []string) {
	if !config.Sudo {
		return config.Command, config.Args
	}
	args := []string{"-S"}
	if len(config.Env) > 0 {
		args = append(args, "env")
		args = append(args, config.Env...)
	}
	args = append(args, config.Command)
	args = append(args, config.Args...)
	return "sudo", args
}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	start := time.Now()

	name, args := commandLine(config)
	cmd := exec.CommandContext(ctx, name, args...)
	if config.Sudo {
		cmd.Stdin = strings.NewReader(u.SudoPassword + "\n")
	} else if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logrus.WithField("command", config.Command).Debug("Running command")
	err := cmd.Run()

	duration := time.Since(start)
	result := CommandResult{
		Command:   config.Command,
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  duration,
		Timestamp: start,
	}

	// Check for sudo-related errors
	if strings.Contains(result.STDERR, "incorrect password") {
		return result, errors.New("sudo: incorrect password provided")
	}
	if strings.Contains(result.STDERR, "is not in the sudoers file") {
		return result, errors.New("sudo: user is not in the sudoers file")
	}

	return result, err
}

func (u *UnixCommandManager) CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func getExitCode(err error) int {
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			status := exitError.Sys().(syscall.WaitStatus)
			return status.ExitStatus()
		}
	}
	return 0
}
