package commandmanager

import (
	"context"
	"time"
)

// CommandConfig describes a single external command invocation.
type CommandConfig struct {
	Command string
	Args    []string
	Sudo    bool
	Env     []string
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// CommandManager executes commands on the host being provisioned and
// answers presence probes for binaries on the search path.
type CommandManager interface {
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
	CommandExists(name string) bool
}
