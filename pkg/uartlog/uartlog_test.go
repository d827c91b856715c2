package uartlog

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txn2/uartdbg/pkg/uartcfg"
)

// TestSetup tests level and format selection
func TestSetup(t *testing.T) {
	logger := log.New()
	c, err := Setup(logger, uartcfg.LoggingConfig{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*log.JSONFormatter)
	assert.True(t, ok)

	_, err = Setup(logger, uartcfg.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = Setup(logger, uartcfg.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

// TestSetupFile tests rotating file output
func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "uartdbg.log")
	logger := log.New()
	c, err := Setup(logger, uartcfg.LoggingConfig{Level: "info", Format: "text", Output: path, MaxSize: 1})
	require.NoError(t, err)
	defer c.Close()

	logger.Info("to file")
	assert.FileExists(t, path)
}

// TestRedirect tests that output is restored
func TestRedirect(t *testing.T) {
	var first, second bytes.Buffer
	logger := log.New()
	logger.SetOutput(&first)

	restore := Redirect(logger, &second)
	logger.Info("hidden")
	restore()
	logger.Info("shown")

	assert.Contains(t, second.String(), "hidden")
	assert.Contains(t, first.String(), "shown")
	assert.NotContains(t, first.String(), "hidden")
}

// TestRingWraps tests that old entries are overwritten
func TestRingWraps(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(Entry{Message: fmt.Sprintf("m%d", i)})
	}

	assert.Equal(t, 3, r.Len())
	got := r.Last(10)
	require.Len(t, got, 3)
	assert.Equal(t, "m2", got[0].Message)
	assert.Equal(t, "m4", got[2].Message)

	got = r.Last(1)
	require.Len(t, got, 1)
	assert.Equal(t, "m4", got[0].Message)

	assert.Nil(t, NewRing(2).Last(5))
}

// TestRingHook tests capturing entries through logrus
func TestRingHook(t *testing.T) {
	var out bytes.Buffer
	logger := log.New()
	logger.SetOutput(&out)
	r := NewRing(10)
	logger.AddHook(r.Hook())

	logger.WithField("port", "/dev/ttyUSB0").WithError(fmt.Errorf("boom")).Warn("link lost")

	got := r.Last(1)
	require.Len(t, got, 1)
	assert.Equal(t, "warning", got[0].Level)
	assert.Equal(t, "link lost", got[0].Message)
	assert.Equal(t, "/dev/ttyUSB0", got[0].Fields["port"])
	assert.Equal(t, "boom", got[0].Fields["error"])
}
