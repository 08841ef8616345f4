package sshmanager

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	cm "github.com/steelcutops/provision/provision/commandmanager"
)

// KeyPair is the on-disk location of an SSH key pair. Created at most
// once, never rotated or deleted.
type KeyPair struct {
	PrivatePath string
	PublicPath  string
}

// DefaultKeyPair returns the standard ed25519 pair under the user's home.
func DefaultKeyPair(home string) KeyPair {
	private := filepath.Join(home, ".ssh", "id_ed25519")
	return KeyPair{PrivatePath: private, PublicPath: private + ".pub"}
}

// Exists reports whether the private key is already on disk. Existence of
// the private key alone gates provisioning.
func (k KeyPair) Exists() bool {
	_, err := os.Stat(k.PrivatePath)
	return err == nil
}

// PublicKey returns the trimmed public key contents for the operator to
// paste into a source-hosting service.
func (k KeyPair) PublicKey() (string, error) {
	data, err := os.ReadFile(k.PublicPath)
	if err != nil {
		return "", fmt.Errorf("reading public key %s: %w", k.PublicPath, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// KeySource provisions key material when none exists locally. The two
// implementations are mutually exclusive: generate a fresh pair, or copy a
// shared pair from the peer host.
type KeySource interface {
	Provision(ctx context.Context, pair KeyPair) error
}

// FileFetcher reads a file from the peer host. Implemented by peer.Client.
type FileFetcher interface {
	FetchFile(ctx context.Context, remotePath string) ([]byte, error)
}

// GenerateKeySource creates a new local ed25519 pair with ssh-keygen.
type GenerateKeySource struct {
	CommandManager cm.CommandManager
	Comment        string
}

func (g *GenerateKeySource) Provision(ctx context.Context, pair KeyPair) error {
	if err := os.MkdirAll(filepath.Dir(pair.PrivatePath), 0o700); err != nil {
		return fmt.Errorf("creating ssh directory: %w", err)
	}

	args := []string{"-t", "ed25519", "-f", pair.PrivatePath, "-N", ""}
	if g.Comment != "" {
		args = append(args, "-C", g.Comment)
	}
	result, err := g.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "ssh-keygen",
		Args:    args,
	})
	if err != nil {
		return fmt.Errorf("ssh-keygen failed: %s: %w", result.STDERR, err)
	}
	return nil
}

// PeerKeySource copies a pre-existing shared pair from the peer host.
type PeerKeySource struct {
	Fetcher   FileFetcher
	RemoteDir string
}

func (p *PeerKeySource) Provision(ctx context.Context, pair KeyPair) error {
	if err := os.MkdirAll(filepath.Dir(pair.PrivatePath), 0o700); err != nil {
		return fmt.Errorf("creating ssh directory: %w", err)
	}

	private, err := p.Fetcher.FetchFile(ctx, path.Join(p.RemoteDir, filepath.Base(pair.PrivatePath)))
	if err != nil {
		return fmt.Errorf("fetching shared private key: %w", err)
	}
	public, err := p.Fetcher.FetchFile(ctx, path.Join(p.RemoteDir, filepath.Base(pair.PublicPath)))
	if err != nil {
		return fmt.Errorf("fetching shared public key: %w", err)
	}

	if err := os.WriteFile(pair.PrivatePath, private, 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(pair.PublicPath, public, 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

// EnsureKeyPair provisions the pair from the given source unless the
// private key already exists. Never regenerates or overwrites.
func EnsureKeyPair(ctx context.Context, pair KeyPair, source KeySource) (bool, error) {
	if pair.Exists() {
		logrus.WithField("path", pair.PrivatePath).Info("SSH key already present, skipping provisioning")
		return false, nil
	}

	logrus.WithField("path", pair.PrivatePath).Info("Provisioning SSH key pair")
	if err := source.Provision(ctx, pair); err != nil {
		return false, err
	}
	return true, nil
}
