package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/steelcutops/provision/logger"
	"github.com/steelcutops/provision/provision/bootstrap"
	"github.com/steelcutops/provision/provision/commandmanager"
	"github.com/steelcutops/provision/provision/common"
	"github.com/steelcutops/provision/provision/config"
	"github.com/steelcutops/provision/provision/packagemanager"
	"github.com/steelcutops/provision/provision/provisioner"
)

type flags struct {
	ConfigPath         string
	Debug              bool
	KeepGoing          bool
	KeyPassPrompt      bool
	LogFileName        string
	NoOverlay          bool
	PasswordPrompt     bool
	Peer               string
	SudoPasswordPrompt bool
	Timeout            time.Duration
}

func parseFlags() *flags {
	f := &flags{}
	flag.BoolVar(&f.Debug, "debug", false, "Enable debug log level")
	flag.BoolVar(&f.KeepGoing, "keep-going", false, "Run remaining steps after a failure")
	flag.BoolVar(&f.KeyPassPrompt, "keypass", false, "Prompt for the passphrase decrypting SSH keys")
	flag.BoolVar(&f.NoOverlay, "no-overlay", false, "Skip joining the overlay network")
	flag.BoolVar(&f.PasswordPrompt, "password", false, "Prompt for the peer SSH password")
	flag.BoolVar(&f.SudoPasswordPrompt, "sudo-password", false, "Prompt for sudo password")
	flag.DurationVar(&f.Timeout, "timeout", 30*time.Minute, "Overall run timeout")
	flag.StringVar(&f.ConfigPath, "config", "", "Path to YAML config file")
	flag.StringVar(&f.LogFileName, "log", "", "Log file name")
	flag.StringVar(&f.Peer, "peer", "", "Host holding existing SSH keys and AWS credentials")

	flag.Parse()

	return f
}

func loadConfig(f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigPath != "" {
		loaded, err := config.Load(f.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.Peer != "" {
		cfg.SetPeer(f.Peer)
	}
	if f.NoOverlay {
		cfg.Tailscale.Disabled = true
	}
	if f.KeepGoing {
		cfg.KeepGoing = true
	}
	if f.LogFileName != "" {
		cfg.SetLogFile(f.LogFileName)
	}
	return cfg, nil
}

func readPasswords(f *flags) common.Credentials {
	creds := common.Credentials{}
	if f.PasswordPrompt {
		creds.Password = promptSecret("Enter the password: ")
	}
	if f.KeyPassPrompt {
		creds.KeyPassphrase = promptSecret("Enter the key passphrase: ")
	}
	if f.SudoPasswordPrompt {
		creds.SudoPassword = promptSecret("Enter the sudo password: ")
	}
	return creds
}

func promptSecret(prompt string) string {
	fmt.Print(prompt)
	secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		logrus.WithError(err).Error("Failed to read secret")
		return ""
	}
	fmt.Println()
	return string(secretBytes)
}

// summarize logs one line per step result and reports whether any step
// failed.
func summarize(results []provisioner.Result) (failed int) {
	for _, result := range results {
		entry := logrus.WithField("step", result.Name)
		switch {
		case result.Err != nil:
			entry.WithError(result.Err).Error("Step failed")
			failed++
		case result.Skipped:
			entry.WithField("reason", result.Reason).Warn("Step skipped")
		case result.Applied:
			entry.Info("Step applied")
		default:
			entry.Info("Step already satisfied")
		}
	}
	return failed
}

func run() int {
	f := parseFlags()

	cfg, err := loadConfig(f)
	if err != nil {
		logrus.WithError(err).Error("Failed to load config")
		return 1
	}

	closer, err := logger.Configure(cfg.LogFile, f.Debug)
	if err != nil {
		logrus.WithError(err).Error("Failed to configure logging")
		return 1
	}
	defer closer.Close()

	creds := readPasswords(f)
	commandManager := &commandmanager.UnixCommandManager{Credentials: creds}

	packageManager, err := packagemanager.Detect(commandManager)
	if err != nil {
		if errors.Is(err, packagemanager.ErrNoPackageManager) {
			logrus.Error("No supported package manager found; need apt, dnf or yum")
		} else {
			logrus.WithError(err).Error("Package manager detection failed")
		}
		return 1
	}
	logrus.WithField("manager", packageManager.Name()).Info("Detected package manager")

	ctx, cancel := context.WithTimeout(context.Background(), f.Timeout)
	defer cancel()

	b := bootstrap.New(cfg, commandManager, packageManager, creds)
	runner := &provisioner.Runner{KeepGoing: cfg.KeepGoing}

	results, runErr := runner.Run(ctx, b.Steps())
	failed := summarize(results)
	if runErr != nil {
		logrus.WithError(runErr).Error("Provisioning finished with errors")
		return 1
	}
	if failed > 0 {
		return 1
	}

	logrus.Info("Provisioning complete")
	return 0
}

func main() {
	os.Exit(run())
}
