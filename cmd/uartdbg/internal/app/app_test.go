package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlink"
	"github.com/txn2/uartdbg/pkg/uartscript"
	"github.com/txn2/uartdbg/pkg/uartsession"
)

func testConfig(t *testing.T) *uartcfg.Config {
	t.Helper()
	cfg, err := uartcfg.Load(uartcfg.New(), "")
	require.NoError(t, err)
	cfg.Port = "/dev/ttyFAKE0"
	cfg.Flash.Delay = 0
	cfg.UI.Tick = 5 * time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, echo bool) (*App, *uartlink.FakePort) {
	t.Helper()
	fp := uartlink.NewFakePort(echo)
	a, err := New(context.Background(), testConfig(t), fp.Opener())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, fp
}

// TestLoadConfigFlags tests that command flags override defaults
func TestLoadConfigFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	AddConnectionFlags(cmd.Flags())
	AddAPIFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{"-p", "/dev/ttyS1", "-b", "9600", "--api"}))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.Port)
	assert.Equal(t, 9600, cfg.Baud)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:8642", cfg.API.Listen)
}

// TestLoadConfigInvalid tests that a bad flag value fails validation
func TestLoadConfigInvalid(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	AddConnectionFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{"--parity", "space"}))

	_, err := LoadConfig(cmd)
	assert.Error(t, err)
}

// TestConnectAndSend tests the writer path through the session
func TestConnectAndSend(t *testing.T) {
	a, fp := newTestApp(t, true)
	require.NoError(t, a.Connect())
	assert.Equal(t, uartsession.StatusConnected, a.Session.Status())

	require.NoError(t, a.Writer.SendWait(context.Background(), []byte("ping")))
	assert.Eventually(t, func() bool {
		return a.Buffer.String() == "ping"
	}, time.Second, 5*time.Millisecond)

	a.Close()
	assert.True(t, fp.Closed())
	assert.Equal(t, uartsession.StatusDisconnected, a.Session.Status())
}

// TestConnectWithoutPort tests the missing port error
func TestConnectWithoutPort(t *testing.T) {
	a, _ := newTestApp(t, false)
	a.Config.Port = ""
	assert.Error(t, a.Connect())
}

// TestPumpPanels tests that script panels reach the published snapshot
func TestPumpPanels(t *testing.T) {
	a, _ := newTestApp(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.PumpPanels(ctx)
		close(done)
	}()

	err := a.Runner.Run(context.Background(), uartscript.FromSource(`
w = new_window("status")
write_wnd(w, "ready")
`))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(a.Registry.Snapshot().Panels) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	p := a.Registry.Snapshot().Panels[0]
	assert.Equal(t, "status", p.Name)
	assert.Equal(t, "ready", p.Text)
}

// TestReconnectClearsLinkLost tests that a connect outside the UI
// clears the lost flag in the published snapshot
func TestReconnectClearsLinkLost(t *testing.T) {
	var mu sync.Mutex
	var ports []*uartlink.FakePort
	opener := func(uartcfg.Connection) (uartlink.Port, error) {
		mu.Lock()
		defer mu.Unlock()
		fp := uartlink.NewFakePort(false)
		ports = append(ports, fp)
		return fp, nil
	}

	a, err := New(context.Background(), testConfig(t), opener)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NoError(t, a.Connect())
	mu.Lock()
	first := ports[0]
	mu.Unlock()
	first.FailReads(errors.New("unplugged"))

	require.Eventually(t, func() bool {
		return a.Session.Status() == uartsession.StatusLost
	}, time.Second, time.Millisecond)
	a.Drain()
	snap := a.Registry.Snapshot()
	require.True(t, snap.LinkLost)
	assert.Equal(t, "unplugged", snap.LinkError)

	conn, err := a.Config.Connection()
	require.NoError(t, err)
	require.NoError(t, a.Session.Connect(conn))
	a.Drain()

	assert.Equal(t, uartsession.StatusConnected, a.Session.Status())
	snap = a.Registry.Snapshot()
	assert.False(t, snap.LinkLost)
	assert.Empty(t, snap.LinkError)
}

// TestAPIDeps tests that every API collaborator is set
func TestAPIDeps(t *testing.T) {
	a, _ := newTestApp(t, false)
	deps := a.APIDeps()
	assert.NotNil(t, deps.Link)
	assert.NotNil(t, deps.Sender)
	assert.NotNil(t, deps.Events)
	assert.NotNil(t, deps.Panels)
	assert.NotNil(t, deps.Scripts)
	assert.NotNil(t, deps.Logs)
	assert.NotNil(t, deps.Ports)

	assert.Nil(t, a.StartAPI(), "API is off by default")
	StopAPI(nil)
}

// TestCloseInterruptsScripts tests that Close does not wait for an
// endless script
func TestCloseInterruptsScripts(t *testing.T) {
	a, _ := newTestApp(t, false)
	require.NoError(t, a.Runner.Start(a.Scripts, uartscript.FromSource(`while true do end`)))

	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on a running script")
	}
	a.Close()
}

// TestCloseDetachesLogRing tests that a closed App stops collecting
// log entries
func TestCloseDetachesLogRing(t *testing.T) {
	a, _ := newTestApp(t, false)
	log.Info("while open")
	n := a.Ring.Len()
	require.GreaterOrEqual(t, n, 1)

	a.Close()
	log.Info("after close")
	assert.Equal(t, n, a.Ring.Len())

	b, _ := newTestApp(t, false)
	log.Info("second app")
	assert.Equal(t, n, a.Ring.Len())
	assert.GreaterOrEqual(t, b.Ring.Len(), 1)
}

// TestShutdownTrigger tests that the trigger may fire more than once
func TestShutdownTrigger(t *testing.T) {
	stopCh, trigger := ShutdownTrigger()
	trigger()
	trigger()

	select {
	case <-stopCh:
	default:
		t.Fatal("stop channel not closed")
	}
}
