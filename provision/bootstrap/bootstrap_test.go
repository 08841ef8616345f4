package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	cm "github.com/steelcutops/provision/provision/commandmanager"
	"github.com/steelcutops/provision/provision/common"
	"github.com/steelcutops/provision/provision/config"
	"github.com/steelcutops/provision/provision/provisioner"
	"github.com/steelcutops/provision/provision/servicemanager"
	"github.com/steelcutops/provision/provision/sshmanager"
)

type stubCommandManager struct {
	existing map[string]bool
	calls    []cm.CommandConfig
}

func (s *stubCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	s.calls = append(s.calls, config)
	return cm.CommandResult{}, nil
}

func (s *stubCommandManager) CommandExists(name string) bool {
	return s.existing[name]
}

type stubPackageManager struct {
	updated   int
	installed []string
}

func (s *stubPackageManager) Name() string { return "stub" }

func (s *stubPackageManager) UpdatePackageList(ctx context.Context) error {
	s.updated++
	return nil
}

func (s *stubPackageManager) AddPackage(ctx context.Context, pkg string) error {
	s.installed = append(s.installed, pkg)
	return nil
}

func (s *stubPackageManager) EnsurePackagePresent(ctx context.Context, binary, pkg string) (bool, error) {
	s.installed = append(s.installed, pkg)
	return true, nil
}

func stepNames(steps []provisioner.Step) []string {
	var names []string
	for _, step := range steps {
		names = append(names, step.Name())
	}
	return names
}

func TestStepsOrder(t *testing.T) {
	cfg := config.Default()
	b := New(cfg, &stubCommandManager{}, &stubPackageManager{}, common.Credentials{})

	assert.Equal(t, []string{
		"package-index",
		"package/git",
		"package/cron",
		"package/curl",
		"package/unzip",
		"package/awscli",
		"package/docker",
		"package/tailscale",
		"docker-compose-plugin",
		"ssh-key",
		"aws-credentials",
		"service/cron",
		"service/docker",
		"service/tailscaled",
		"overlay-network",
	}, stepNames(b.Steps()))
}

func TestStepsOverlayDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Tailscale.Disabled = true
	b := New(cfg, &stubCommandManager{}, &stubPackageManager{}, common.Credentials{})

	assert.NotContains(t, stepNames(b.Steps()), "overlay-network")
}

func TestPeerConfigSelectsPeerKeySource(t *testing.T) {
	cfg := config.Default()
	cfg.SetPeer("proxmox")
	b := New(cfg, &stubCommandManager{}, &stubPackageManager{}, common.Credentials{})

	_, ok := b.keySource.(*sshmanager.PeerKeySource)
	assert.True(t, ok)
	assert.NotNil(t, b.credentials.Fetcher)
	assert.Equal(t, "/root/.aws/credentials", b.credentials.RemotePath)
}

func TestDefaultConfigSelectsGenerateKeySource(t *testing.T) {
	b := New(config.Default(), &stubCommandManager{}, &stubPackageManager{}, common.Credentials{})

	_, ok := b.keySource.(*sshmanager.GenerateKeySource)
	assert.True(t, ok)
	assert.Nil(t, b.credentials.Fetcher)
}

func TestPackageStepPresentBinaryIssuesNoInstall(t *testing.T) {
	commandManager := &stubCommandManager{existing: map[string]bool{"git": true}}
	packageManager := &stubPackageManager{}
	step := &packageStep{
		pkg:            config.Package{Name: "git", Binary: "git"},
		commandManager: commandManager,
		packageManager: packageManager,
		installer:      nil,
	}

	runner := &provisioner.Runner{}
	results, err := runner.Run(context.Background(), []provisioner.Step{step})
	assert.NoError(t, err)
	assert.False(t, results[0].Applied)
	assert.Empty(t, packageManager.installed)
}

// fakeSystemctl scripts systemctl for the service property: units listed
// in missing answer `systemctl cat` with a nonzero exit.
type fakeSystemctl struct {
	missing map[string]bool
	calls   []string
}

func (f *fakeSystemctl) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	sub, unit := config.Args[0], config.Args[1]
	f.calls = append(f.calls, sub+" "+unit)
	switch sub {
	case "cat":
		if f.missing[unit] {
			return cm.CommandResult{ExitCode: 1}, errors.New("exit status 1")
		}
		return cm.CommandResult{}, nil
	case "is-enabled":
		return cm.CommandResult{STDOUT: "disabled\n", ExitCode: 1}, errors.New("exit status 1")
	case "is-active":
		return cm.CommandResult{STDOUT: "inactive\n", ExitCode: 3}, errors.New("exit status 3")
	default:
		return cm.CommandResult{}, nil
	}
}

func (f *fakeSystemctl) CommandExists(name string) bool { return true }

func TestServiceStepsSkipUnregisteredUnit(t *testing.T) {
	fake := &fakeSystemctl{missing: map[string]bool{"docker": true}}
	manager := &servicemanager.LinuxServiceManager{CommandManager: fake}

	var steps []provisioner.Step
	for _, name := range []string{"cron", "tailscaled", "docker"} {
		steps = append(steps, &serviceStep{name: name, serviceManager: manager})
	}

	runner := &provisioner.Runner{}
	results, err := runner.Run(context.Background(), steps)
	assert.NoError(t, err)

	assert.True(t, results[0].Applied)
	assert.True(t, results[1].Applied)
	assert.True(t, results[2].Skipped)
	assert.Equal(t, "unit not registered", results[2].Reason)

	assert.Contains(t, fake.calls, "enable cron")
	assert.Contains(t, fake.calls, "start cron")
	assert.Contains(t, fake.calls, "enable tailscaled")
	assert.Contains(t, fake.calls, "start tailscaled")
	assert.NotContains(t, fake.calls, "enable docker")
	assert.NotContains(t, fake.calls, "start docker")
}
