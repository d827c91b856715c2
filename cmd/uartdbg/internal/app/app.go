// Package app wires the serial session, worker pools, panel event
// plumbing and logging shared by the uartdbg subcommands.
package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/txn2/uartdbg/pkg/uartapi"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlink"
	"github.com/txn2/uartdbg/pkg/uartlog"
	"github.com/txn2/uartdbg/pkg/uartmetrics"
	"github.com/txn2/uartdbg/pkg/uartpool"
	"github.com/txn2/uartdbg/pkg/uartrx"
	"github.com/txn2/uartdbg/pkg/uartscript"
	"github.com/txn2/uartdbg/pkg/uartsession"
	"github.com/txn2/uartdbg/pkg/uarttui/events"
	"github.com/txn2/uartdbg/pkg/uarttui/state"
	"github.com/txn2/uartdbg/pkg/uarttx"
)

// LogRingSize is how many log entries the API can return
const LogRingSize = 1000

// Version is set by the main package
var Version = "0.0.0"

// AddConnectionFlags registers the serial line flags on fs
func AddConnectionFlags(fs *pflag.FlagSet) {
	fs.StringP("port", "p", "", "Serial port, e.g. /dev/ttyUSB0 or COM3")
	fs.IntP("baud", "b", uartcfg.DefaultBaudRate, "Baud rate")
	fs.String("parity", "None", "Parity: None, Even or Odd")
	fs.String("stop-bits", "1", "Stop bits: 1 or 2")
	fs.Duration("read-timeout", uartcfg.DefaultReadTimeout, "Read timeout per device poll")
	fs.Int("tx-workers", 1, "Transmit workers; more than 1 gives up write ordering")
}

// AddAPIFlags registers the REST API flags on fs
func AddAPIFlags(fs *pflag.FlagSet) {
	fs.Bool("api", false, "Enable the REST API")
	fs.String("api-listen", "127.0.0.1:8642", "REST API listen address")
}

// LoadConfig builds the configuration from defaults, the --config file,
// UARTDBG_ environment variables and the flags of cmd, in rising order
// of precedence.
func LoadConfig(cmd *cobra.Command) (*uartcfg.Config, error) {
	v := uartcfg.New()
	if err := uartcfg.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	configPath := ""
	if f := cmd.Flags().Lookup("config"); f != nil {
		configPath = f.Value.String()
	}
	return uartcfg.Load(v, configPath)
}

// App holds the long lived collaborators of one uartdbg process
type App struct {
	Config   *uartcfg.Config
	Ring     *uartlog.Ring
	Buffer   *uartrx.Buffer
	Channel  *events.Channel
	IDs      *events.IDAllocator
	Registry *state.Registry
	Session  *uartsession.Session
	TxPool   *uartpool.Pool
	Scripts  *uartpool.Pool
	Writer   *uarttx.Writer
	Uploader *uarttx.Uploader
	Runner   *uartscript.Runner

	ctx          context.Context
	cancel       context.CancelFunc
	cancelScript context.CancelFunc
	logCloser    io.Closer
	prevHooks    log.LevelHooks
	closeOnce    sync.Once
}

// New configures logging and builds every collaborator. Nothing is
// connected yet. opener is normally uartlink.OpenSerial.
func New(ctx context.Context, cfg *uartcfg.Config, opener uartlink.Opener) (*App, error) {
	closer, err := uartlog.Setup(log.StandardLogger(), cfg.Logging)
	if err != nil {
		return nil, err
	}

	ring := uartlog.NewRing(LogRingSize)
	prevHooks := copyHooks(log.StandardLogger().Hooks)
	log.AddHook(ring.Hook())

	ctx, cancel := context.WithCancel(ctx)

	a := &App{
		Config:    cfg,
		Ring:      ring,
		Buffer:    uartrx.NewBuffer(),
		Channel:   events.NewChannel(cfg.Panels.Queue),
		IDs:       events.NewIDAllocator(),
		Registry:  state.NewRegistry(cfg.Panels.AllowClose),
		ctx:       ctx,
		cancel:    cancel,
		logCloser: closer,
		prevHooks: prevHooks,
	}

	a.Session = uartsession.New(ctx, opener, a.Buffer, a.Channel, cfg.IdleBackoff)
	a.TxPool = uartpool.New(ctx, "tx", cfg.TX.Workers, cfg.TX.Queue)
	scriptCtx, cancelScript := context.WithCancel(ctx)
	a.cancelScript = cancelScript
	a.Scripts = uartpool.New(scriptCtx, "scripts", cfg.Scripts.Workers, cfg.Scripts.Queue)
	a.Writer = uarttx.NewWriter(a.TxPool, a.Session)
	a.Uploader = uarttx.NewUploader(a.Writer, cfg.Flash.BlockSize, cfg.Flash.Delay)
	a.Runner = uartscript.NewRunner(uartscript.NewChannelHost(a.IDs, a.Channel), cfg.Scripts.Timeout)

	if cfg.TX.Workers > 1 {
		log.Warnf("tx.workers is %d: writes may reach the device out of order", cfg.TX.Workers)
	}
	return a, nil
}

// Context is cancelled by Close
func (a *App) Context() context.Context {
	return a.ctx
}

// Connect opens the configured port
func (a *App) Connect() error {
	conn, err := a.Config.Connection()
	if err != nil {
		return err
	}
	return a.Session.Connect(conn)
}

// Drain applies pending panel events and publishes the result for
// readers outside the owning goroutine.
func (a *App) Drain() int {
	n := state.Drain(a.Channel, a.Registry, a.Config.UI.MaxEventsPerTick)
	a.Registry.Publish()
	uartmetrics.SetPanels(a.Registry.Len())
	return n
}

// PumpPanels drains the panel channel every tick until ctx is done.
// Only used when no UI owns the registry.
func (a *App) PumpPanels(ctx context.Context) {
	ticker := time.NewTicker(a.Config.UI.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.Drain()
			return
		case <-ticker.C:
			a.Drain()
		}
	}
}

// APIDeps exposes the app to the REST API
func (a *App) APIDeps() uartapi.Deps {
	return uartapi.Deps{
		Link:    a.Session,
		Sender:  a.Writer,
		Events:  a.Channel,
		Panels:  a.Registry,
		Scripts: uartapi.NewScriptStarter(a.Runner, a.Scripts),
		Logs:    a.Ring,
		Ports:   uartlink.ListPorts,
	}
}

// StartAPI runs the REST API in the background when enabled. The
// returned manager is nil when the API is off.
func (a *App) StartAPI() *uartapi.Manager {
	if !a.Config.API.Enabled {
		return nil
	}
	m := uartapi.New(*a.Config, Version, a.APIDeps())
	go func() {
		if err := m.Run(); err != nil {
			log.Errorf("API server error: %s", err)
		}
	}()
	return m
}

// StopAPI stops m and waits a bounded time for it
func StopAPI(m *uartapi.Manager) {
	if m == nil {
		return
	}
	m.Stop()
	select {
	case <-m.Done():
		log.Debugf("API server cleanup complete")
	case <-time.After(time.Second):
		log.Debugf("Timeout waiting for API cleanup")
	}
}

// Close interrupts running scripts, disconnects the device and stops
// the pools. Queued transmit tasks finish before the link is closed.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.cancelScript()
		a.Scripts.Stop()
		a.TxPool.Stop()
		a.Session.Disconnect()
		a.cancel()
		if err := a.logCloser.Close(); err != nil {
			log.Debugf("Closing log output: %v", err)
		}
		log.StandardLogger().ReplaceHooks(a.prevHooks)
	})
}

func copyHooks(hooks log.LevelHooks) log.LevelHooks {
	out := make(log.LevelHooks, len(hooks))
	for level, h := range hooks {
		out[level] = append([]log.Hook(nil), h...)
	}
	return out
}

// SetupSignalHandler calls triggerShutdown on the first interrupt and
// exits on the second.
func SetupSignalHandler(triggerShutdown func()) {
	go func() {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		<-sigChan
		log.Infof("Shutting down... (press Ctrl+C again to force)")
		triggerShutdown()

		<-sigChan
		log.Warnf("Forced shutdown")
		os.Exit(1)
	}()
}

// ShutdownTrigger returns a channel and an idempotent function closing it
func ShutdownTrigger() (<-chan struct{}, func()) {
	stopCh := make(chan struct{})
	var once sync.Once
	return stopCh, func() {
		once.Do(func() { close(stopCh) })
	}
}

// ErrNoPort is returned by commands that need a port but got none
var ErrNoPort = errors.New("no serial port given (use --port or the port config key)")
