package overlaymanager

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	cm "github.com/steelcutops/provision/provision/commandmanager"
)

// UpOptions controls how the node joins the overlay network.
type UpOptions struct {
	SSH               bool
	AdvertiseExitNode bool
	Hostname          string
	AuthKey           string
}

// TailscaleManager brings up the Tailscale client. Up runs on every
// provisioning pass; tailscale itself is idempotent, no guard is kept here.
type TailscaleManager struct {
	CommandManager cm.CommandManager
}

func (tm *TailscaleManager) Up(ctx context.Context, options UpOptions) error {
	args := []string{"up"}
	if options.SSH {
		args = append(args, "--ssh")
	}
	if options.AdvertiseExitNode {
		args = append(args, "--advertise-exit-node")
	}
	if options.Hostname != "" {
		args = append(args, "--hostname="+options.Hostname)
	}
	if options.AuthKey != "" {
		args = append(args, "--auth-key="+options.AuthKey)
	}

	logrus.WithField("args", args).Info("Bringing up overlay network")
	result, err := tm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "tailscale",
		Sudo:    true,
		Args:    args,
	})
	if err != nil {
		return fmt.Errorf("tailscale up failed: %s: %w", result.STDERR, err)
	}
	return nil
}
