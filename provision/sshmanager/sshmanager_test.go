package sshmanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	cm "github.com/steelcutops/provision/provision/commandmanager"
)

type MockCommandManager struct {
	mock.Mock
}

func (m *MockCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	args := m.Called(ctx, config)
	return args.Get(0).(cm.CommandResult), args.Error(1)
}

func (m *MockCommandManager) CommandExists(name string) bool {
	args := m.Called(name)
	return args.Bool(0)
}

type fakeFetcher struct {
	files   map[string][]byte
	fetched []string
}

func (f *fakeFetcher) FetchFile(ctx context.Context, remotePath string) ([]byte, error) {
	f.fetched = append(f.fetched, remotePath)
	data, ok := f.files[remotePath]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func TestEnsureKeyPairSkipsExisting(t *testing.T) {
	home := t.TempDir()
	pair := DefaultKeyPair(home)
	assert.NoError(t, os.MkdirAll(filepath.Dir(pair.PrivatePath), 0o700))
	assert.NoError(t, os.WriteFile(pair.PrivatePath, []byte("key material"), 0o600))

	mockManager := &MockCommandManager{}
	source := &GenerateKeySource{CommandManager: mockManager}

	provisioned, err := EnsureKeyPair(context.Background(), pair, source)
	assert.NoError(t, err)
	assert.False(t, provisioned)
	mockManager.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestGenerateKeySourceInvokesKeygen(t *testing.T) {
	home := t.TempDir()
	pair := DefaultKeyPair(home)

	mockManager := &MockCommandManager{}
	mockManager.On("Run", mock.Anything, mock.MatchedBy(func(config cm.CommandConfig) bool {
		return config.Command == "ssh-keygen" &&
			assert.ObjectsAreEqual([]string{"-t", "ed25519", "-f", pair.PrivatePath, "-N", ""}, config.Args)
	})).Return(cm.CommandResult{}, nil)

	provisioned, err := EnsureKeyPair(context.Background(), pair, &GenerateKeySource{CommandManager: mockManager})
	assert.NoError(t, err)
	assert.True(t, provisioned)
	mockManager.AssertExpectations(t)

	// ssh-keygen needs its target directory in place.
	assert.DirExists(t, filepath.Dir(pair.PrivatePath))
}

func TestPeerKeySourceWritesBothFiles(t *testing.T) {
	home := t.TempDir()
	pair := DefaultKeyPair(home)

	fetcher := &fakeFetcher{files: map[string][]byte{
		"/root/.ssh/id_ed25519":     []byte("private material"),
		"/root/.ssh/id_ed25519.pub": []byte("ssh-ed25519 AAAA host\n"),
	}}
	source := &PeerKeySource{Fetcher: fetcher, RemoteDir: "/root/.ssh"}

	provisioned, err := EnsureKeyPair(context.Background(), pair, source)
	assert.NoError(t, err)
	assert.True(t, provisioned)

	info, err := os.Stat(pair.PrivatePath)
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	public, err := pair.PublicKey()
	assert.NoError(t, err)
	assert.Equal(t, "ssh-ed25519 AAAA host", public)
}

func TestPeerKeySourceUnreachablePeer(t *testing.T) {
	home := t.TempDir()
	pair := DefaultKeyPair(home)

	source := &PeerKeySource{Fetcher: &fakeFetcher{files: map[string][]byte{}}, RemoteDir: "/root/.ssh"}
	provisioned, err := EnsureKeyPair(context.Background(), pair, source)
	assert.Error(t, err)
	assert.False(t, provisioned)
	assert.NoFileExists(t, pair.PrivatePath)
}
