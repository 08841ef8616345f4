// Package peer reaches the host that holds shared provisioning material
// (SSH key pair, AWS credentials) and copies files from it over SSH.
package peer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/steelcutops/provision/provision/common"
)

const defaultDialTimeout = 30 * time.Second

// hostEntry is the resolved connection target for the peer alias.
type hostEntry struct {
	Hostname     string
	User         string
	Port         string
	IdentityFile string
}

// Client copies files from the peer host. The peer is named by alias;
// HostName, User, Port and IdentityFile come from ~/.ssh/config when an
// entry exists, with root@<alias>:22 as the fallback the shell scripts
// assumed.
type Client struct {
	Alias      string
	ConfigPath string // defaults to ~/.ssh/config
	common.Credentials
}

func (c *Client) configPath() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "config")
}

func (c *Client) resolve() (hostEntry, error) {
	entry := hostEntry{Hostname: c.Alias, User: c.User, Port: "22"}

	data, err := os.ReadFile(c.configPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return entry, err
		}
		data = nil
	}

	if data != nil {
		cfg, err := ssh_config.Decode(bytes.NewReader(data))
		if err != nil {
			return entry, fmt.Errorf("parsing ssh config: %w", err)
		}
		if hostname, _ := cfg.Get(c.Alias, "HostName"); hostname != "" {
			entry.Hostname = hostname
		}
		if entry.User == "" {
			if user, _ := cfg.Get(c.Alias, "User"); user != "" {
				entry.User = user
			}
		}
		if port, _ := cfg.Get(c.Alias, "Port"); port != "" {
			entry.Port = port
		}
		if identity, _ := cfg.Get(c.Alias, "IdentityFile"); identity != "" {
			entry.IdentityFile = expandHome(identity)
		}
	}

	if entry.User == "" {
		entry.User = "root"
	}
	return entry, nil
}

func (c *Client) authMethods(identityFile string) ([]ssh.AuthMethod, error) {
	if c.Password != "" {
		return []ssh.AuthMethod{ssh.Password(c.Password)}, nil
	}

	var signers []ssh.Signer

	// Prefer the running agent, like an interactive scp would.
	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			agentSigners, err := agent.NewClient(conn).Signers()
			if err == nil {
				signers = append(signers, agentSigners...)
			}
		}
	}

	fileSigners, err := c.readKeyFiles(identityFile)
	if err != nil && len(signers) == 0 {
		return nil, err
	}
	signers = append(signers, fileSigners...)

	if len(signers) == 0 {
		return nil, errors.New("no usable SSH keys for peer authentication")
	}
	return []ssh.AuthMethod{ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		return signers, nil
	})}, nil
}

func (c *Client) readKeyFiles(identityFile string) ([]ssh.Signer, error) {
	files := []string{}
	if identityFile != "" {
		files = append(files, identityFile)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		globbed, _ := filepath.Glob(filepath.Join(home, ".ssh", "id_*"))
		files = append(files, globbed...)
	}

	var signers []ssh.Signer
	for _, file := range files {
		if strings.HasSuffix(file, ".pub") {
			continue
		}
		keyBytes, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		var signer ssh.Signer
		if c.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(c.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

func (c *Client) dial(ctx context.Context) (*ssh.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if timeout = time.Until(deadline); timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	entry, err := c.resolve()
	if err != nil {
		return nil, err
	}

	auth, err := c.authMethods(entry.IdentityFile)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            entry.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(entry.Hostname, entry.Port)
	logrus.WithFields(logrus.Fields{"peer": c.Alias, "addr": addr, "user": entry.User}).Debug("Dialing peer host")
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dialing peer %s: %w", addr, err)
	}
	return client, nil
}

// FetchFile reads a file from the peer host and returns its contents.
func (c *Client) FetchFile(ctx context.Context, remotePath string) ([]byte, error) {
	client, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	type output struct {
		data []byte
		err  error
	}
	outputCh := make(chan output, 1)
	go func() {
		data, err := session.Output("cat " + shellQuote(remotePath))
		outputCh <- output{data, err}
	}()

	select {
	case out := <-outputCh:
		if out.err != nil {
			// A nonzero exit means the session was established and cat
			// ran: the file is absent, not the peer.
			var exitErr *ssh.ExitError
			if errors.As(out.err, &exitErr) {
				return nil, fmt.Errorf("%s on peer %s: %w", remotePath, c.Alias, os.ErrNotExist)
			}
			return nil, fmt.Errorf("reading %s from peer %s: %w", remotePath, c.Alias, out.err)
		}
		return out.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
