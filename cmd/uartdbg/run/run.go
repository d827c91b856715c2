// Package run provides the headless script runner subcommand
package run

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/txn2/uartdbg/cmd/uartdbg/internal/app"
	"github.com/txn2/uartdbg/pkg/uartlink"
	"github.com/txn2/uartdbg/pkg/uartscript"
	"github.com/txn2/uartdbg/pkg/uarttui/state"
)

var (
	scripts  []string
	inline   []string
	sends    []string
	echo     bool
	duration time.Duration
	wait     bool
)

// opener is replaced in tests
var opener uartlink.Opener = uartlink.OpenSerial

func init() {
	app.AddConnectionFlags(Cmd.Flags())
	app.AddAPIFlags(Cmd.Flags())
	Cmd.Flags().StringSliceVarP(&scripts, "script", "s", []string{}, "Lua script file to run. Repeat for more scripts.")
	Cmd.Flags().StringSliceVarP(&inline, "exec", "e", []string{}, "Lua source to run. Repeat for more chunks.")
	Cmd.Flags().StringSliceVar(&sends, "send", []string{}, "Text to send after connecting. Repeat for more lines.")
	Cmd.Flags().BoolVar(&echo, "echo", true, "Copy received data to stdout")
	Cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Keep running this long after the scripts finish")
	Cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Keep running until interrupted")
	Cmd.Flags().Duration("script-timeout", 0, "Stop scripts running longer than this (0 = no limit)")
	Cmd.Flags().Bool("allow-close", true, "Allow scripts to close panels")
}

// Cmd is the headless subcommand
var Cmd = &cobra.Command{
	Use:   "run [script.lua...]",
	Short: "Run Lua scripts against a device without the UI",
	Long: `Run Lua scripts, optionally against an open serial port, without the
interactive UI. Scripts get the same new_window and write_wnd functions
as in the terminal. Panels are printed when everything has finished.

With --wait or --api the process keeps serving until interrupted.`,
	Example: "  uartdbg run status.lua\n" +
		"  uartdbg run -p /dev/ttyUSB0 --send 'AT' -d 2s\n" +
		"  uartdbg run -e 'w = new_window(\"hi\"); write_wnd(w, \"hello\")'\n" +
		"  uartdbg run -p /dev/ttyUSB0 --api --wait",
	RunE: runCmd,
}

func runCmd(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	a, err := app.New(context.Background(), cfg, opener)
	if err != nil {
		return err
	}
	defer a.Close()

	list := make([]uartscript.Script, 0, len(args)+len(scripts)+len(inline))
	for _, path := range append(append([]string{}, args...), scripts...) {
		list = append(list, uartscript.FromFile(path))
	}
	for _, src := range inline {
		list = append(list, uartscript.FromSource(src))
	}

	stopCh, triggerShutdown := app.ShutdownTrigger()
	app.SetupSignalHandler(triggerShutdown)

	return execute(a, list, stopCh, cmd.OutOrStdout())
}

// execute connects when a port is configured, runs the scripts and
// waits as requested before printing the panels to out.
func execute(a *app.App, list []uartscript.Script, stopCh <-chan struct{}, out io.Writer) error {
	cfg := a.Config

	if cfg.Port != "" {
		if err := a.Connect(); err != nil {
			return err
		}
	} else if len(sends) > 0 {
		return app.ErrNoPort
	}

	ctx, cancel := context.WithCancel(a.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.PumpPanels(ctx)
	}()
	if echo && cfg.Port != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			echoReceived(ctx, a, cfg.UI.Tick, out)
		}()
	}

	apiManager := a.StartAPI()
	defer app.StopAPI(apiManager)

	for _, line := range sends {
		if err := a.Writer.SendWait(ctx, []byte(line+"\r\n")); err != nil {
			return errors.Wrap(err, "queueing send")
		}
	}

	failed := runScripts(ctx, a, list, stopCh)

	switch {
	case wait || cfg.API.Enabled:
		log.Println("Press [Ctrl-C] to stop.")
		<-stopCh
	case duration > 0:
		select {
		case <-time.After(duration):
		case <-stopCh:
		}
	}

	cancel()
	wg.Wait()

	printPanels(out, a.Registry.Snapshot())

	if failed > 0 {
		return errors.Errorf("%d of %d scripts failed", failed, len(list))
	}
	return nil
}

// runScripts runs list on the script pool and waits for all of them
// or for stopCh. It returns the number of failed scripts.
func runScripts(ctx context.Context, a *app.App, list []uartscript.Script, stopCh <-chan struct{}) int {
	if len(list) == 0 {
		return 0
	}

	var (
		mu     sync.Mutex
		failed int
		wg     sync.WaitGroup
	)
	for _, s := range list {
		wg.Add(1)
		err := a.Scripts.Submit(ctx, func(ctx context.Context) {
			defer wg.Done()
			if err := a.Runner.Run(ctx, s); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			log.Errorf("Could not queue %s: %v", s, err)
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-stopCh:
		log.Warnf("Interrupted while scripts were running")
	}

	mu.Lock()
	defer mu.Unlock()
	return failed
}

// echoReceived copies newly received bytes to out every tick
func echoReceived(ctx context.Context, a *app.App, tick time.Duration, out io.Writer) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	offset := 0
	flush := func() {
		var p []byte
		p, offset = a.Buffer.Since(offset)
		if len(p) > 0 {
			_, _ = out.Write(p)
		}
	}
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		}
	}
}

func printPanels(out io.Writer, snap *state.Snapshot) {
	if snap.LinkLost {
		fmt.Fprintf(out, "\nLink lost: %s\n", snap.LinkError)
	}
	for _, p := range snap.Panels {
		fmt.Fprintf(out, "\n=== [%d] %s ===\n%s\n", p.ID, p.Name, p.Text)
	}
}
