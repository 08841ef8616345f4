package credentialmanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

const (
	// DefaultRegion matches the region baked into the credentials template.
	DefaultRegion = "us-east-1"

	placeholderAccessKeyID = "YOUR_ACCESS_KEY_ID"
	placeholderSecretKey   = "YOUR_SECRET_ACCESS_KEY"
)

// FileFetcher reads a file from the peer host. Implemented by peer.Client.
type FileFetcher interface {
	FetchFile(ctx context.Context, remotePath string) ([]byte, error)
}

// Manager ensures an AWS credentials file exists at Path. Existence alone
// gates action: an existing file is never merged, validated, or rewritten.
type Manager struct {
	Path string

	// Fetcher, when set, copies the real credentials from the peer host
	// instead of writing the placeholder template. RemotePath is the file
	// location on the peer.
	Fetcher    FileFetcher
	RemotePath string
}

// DefaultPath returns the standard AWS credentials location.
func DefaultPath(home string) string {
	return filepath.Join(home, ".aws", "credentials")
}

func (m *Manager) Exists() bool {
	_, err := os.Stat(m.Path)
	return err == nil
}

// EnsureCredentials creates the credentials file if absent: from the peer
// host when a fetcher is configured, otherwise from the template.
func (m *Manager) EnsureCredentials(ctx context.Context) (bool, error) {
	if m.Exists() {
		logrus.WithField("path", m.Path).Info("Credentials file already present, leaving untouched")
		m.warnOnPlaceholders()
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(m.Path), 0o700); err != nil {
		return false, fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := m.source(ctx)
	if err != nil {
		return false, err
	}

	if err := os.WriteFile(m.Path, data, 0o600); err != nil {
		return false, fmt.Errorf("writing credentials file: %w", err)
	}
	return true, nil
}

// source decides where the new credentials file's contents come from. A
// reachable peer without the file falls back to the template; a peer that
// cannot be reached at all aborts the run.
func (m *Manager) source(ctx context.Context) ([]byte, error) {
	if m.Fetcher == nil {
		logrus.WithField("path", m.Path).Info("Writing credentials template")
		return Template()
	}

	logrus.WithFields(logrus.Fields{"path": m.Path, "remote": m.RemotePath}).Info("Fetching credentials from peer host")
	fetched, err := m.Fetcher.FetchFile(ctx, m.RemotePath)
	if err == nil {
		return fetched, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		logrus.WithField("remote", m.RemotePath).Warn("Peer has no credentials file, writing template instead")
		return Template()
	}
	return nil, fmt.Errorf("fetching credentials from peer: %w", err)
}

// Template renders the placeholder credentials file: a [default] section
// with obviously-fake keys and the default region.
func Template() ([]byte, error) {
	cfg := ini.Empty()
	section, err := cfg.NewSection("default")
	if err != nil {
		return nil, err
	}
	if _, err := section.NewKey("aws_access_key_id", placeholderAccessKeyID); err != nil {
		return nil, err
	}
	if _, err := section.NewKey("aws_secret_access_key", placeholderSecretKey); err != nil {
		return nil, err
	}
	if _, err := section.NewKey("region", DefaultRegion); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// warnOnPlaceholders flags template values that survived a previous run.
// The file itself is never touched.
func (m *Manager) warnOnPlaceholders() {
	cfg, err := ini.Load(m.Path)
	if err != nil {
		return
	}
	if cfg.Section("default").Key("aws_access_key_id").String() == placeholderAccessKeyID {
		logrus.WithField("path", m.Path).Warn("Credentials file still contains placeholder values")
	}
}
