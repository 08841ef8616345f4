package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigureAppendsToTranscript(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "provision.log")

	closer, err := Configure(logFile, false)
	assert.NoError(t, err)
	defer closer.Close()

	logrus.Info("first run")

	data, err := os.ReadFile(logFile)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "first run")

	// A second configure must append, not truncate.
	closer.Close()
	closer, err = Configure(logFile, true)
	assert.NoError(t, err)
	defer closer.Close()

	logrus.Info("second run")

	data, err = os.ReadFile(logFile)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "first run")
	assert.Contains(t, string(data), "second run")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}
