package run

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txn2/uartdbg/cmd/uartdbg/internal/app"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlink"
	"github.com/txn2/uartdbg/pkg/uartscript"
)

func setup(t *testing.T, port string) (*app.App, *uartlink.FakePort) {
	t.Helper()

	prevSends, prevEcho, prevDuration, prevWait := sends, echo, duration, wait
	t.Cleanup(func() {
		sends, echo, duration, wait = prevSends, prevEcho, prevDuration, prevWait
	})
	sends, echo, duration, wait = nil, true, 0, false

	cfg, err := uartcfg.Load(uartcfg.New(), "")
	require.NoError(t, err)
	cfg.Port = port
	cfg.UI.Tick = 5 * time.Millisecond

	fp := uartlink.NewFakePort(true)
	a, err := app.New(context.Background(), cfg, fp.Opener())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, fp
}

// TestExecuteScripts tests that panels of finished scripts are printed
func TestExecuteScripts(t *testing.T) {
	a, _ := setup(t, "")

	path := filepath.Join(t.TempDir(), "status.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
w = new_window("status")
write_wnd(w, "ok")
`), 0o600))

	list := []uartscript.Script{
		uartscript.FromFile(path),
		uartscript.FromSource(`w = new_window("inline"); write_wnd(w, "42")`),
	}

	var out bytes.Buffer
	require.NoError(t, execute(a, list, make(chan struct{}), &out))

	assert.Contains(t, out.String(), "] status ===\nok\n")
	assert.Contains(t, out.String(), "] inline ===\n42\n")
}

// TestExecuteScriptFailure tests the error for failed scripts
func TestExecuteScriptFailure(t *testing.T) {
	a, _ := setup(t, "")

	list := []uartscript.Script{
		uartscript.FromSource(`error("boom")`),
		uartscript.FromSource(`x = 1`),
	}

	err := execute(a, list, make(chan struct{}), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 scripts failed")
}

// TestExecuteSendEcho tests that sent lines reach the device and the
// echoed reply is copied to the output
func TestExecuteSendEcho(t *testing.T) {
	a, fp := setup(t, "/dev/ttyFAKE0")
	sends = []string{"AT"}
	duration = 100 * time.Millisecond

	var out bytes.Buffer
	require.NoError(t, execute(a, nil, make(chan struct{}), &out))

	assert.Equal(t, [][]byte{[]byte("AT\r\n")}, fp.Writes())
	assert.Equal(t, "AT\r\n", out.String())
}

// TestExecuteSendWithoutPort tests that --send needs a port
func TestExecuteSendWithoutPort(t *testing.T) {
	a, _ := setup(t, "")
	sends = []string{"AT"}

	err := execute(a, nil, make(chan struct{}), &bytes.Buffer{})
	assert.ErrorIs(t, err, app.ErrNoPort)
}

// TestExecuteWaitStops tests that --wait returns once stopped
func TestExecuteWaitStops(t *testing.T) {
	a, _ := setup(t, "")
	wait = true

	stopCh := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- execute(a, nil, stopCh, &bytes.Buffer{})
	}()

	close(stopCh)
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("execute did not return after stop")
	}
}
