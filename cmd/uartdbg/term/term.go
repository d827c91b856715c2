// Package term provides the interactive terminal subcommand
package term

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/txn2/uartdbg/cmd/uartdbg/internal/app"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlink"
	"github.com/txn2/uartdbg/pkg/uarttui"
)

func init() {
	app.AddConnectionFlags(Cmd.Flags())
	app.AddAPIFlags(Cmd.Flags())
	Cmd.Flags().StringP("mode", "m", "debug", "Start in debug or terminal mode")
	Cmd.Flags().String("theme", "auto", "Color theme: auto, dark or light")
	Cmd.Flags().Bool("allow-close", true, "Allow panels to be closed from the UI")
	Cmd.Flags().Duration("script-timeout", 0, "Stop scripts running longer than this (0 = no limit)")
	Cmd.Flags().Duration("block-delay", uartcfg.DefaultBlockDelay, "Delay between firmware blocks")
}

// Cmd is the interactive terminal subcommand
var Cmd = &cobra.Command{
	Use:     "term",
	Aliases: []string{"tui", "ui"},
	Short:   "Open the interactive serial terminal",
	Long: `Open the interactive serial terminal.

Debug mode shows a transmit line, the received data as text and hex,
script panels and logs. Terminal mode forwards every key press to the
device as you type it.

Keys:
  ctrl+o  connect / disconnect       ctrl+t  toggle debug / terminal mode
  ctrl+r  run a Lua script           ctrl+p  program firmware (again to cancel)
  ctrl+l  clear received data        F1      help
  ctrl+c  quit`,
	Example: "  uartdbg term -p /dev/ttyUSB0\n" +
		"  uartdbg term -p /dev/ttyACM0 -b 9600 --parity Even\n" +
		"  uartdbg term -p COM3 --mode terminal\n" +
		"  uartdbg term -p /dev/ttyUSB0 --api   # also serve the REST API",
	RunE: runCmd,
}

func runCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	a, err := app.New(context.Background(), cfg, uartlink.OpenSerial)
	if err != nil {
		return err
	}
	defer a.Close()

	stopCh, triggerShutdown := app.ShutdownTrigger()

	tuiManager := uarttui.New(a.Context(), uarttui.Options{
		Version:   app.Version,
		Config:    cfg,
		Session:   a.Session,
		Writer:    a.Writer,
		Uploader:  a.Uploader,
		Runner:    a.Runner,
		Scripts:   a.Scripts,
		Channel:   a.Channel,
		Registry:  a.Registry,
		ListPorts: uartlink.ListPorts,
	}, triggerShutdown)

	apiManager := a.StartAPI()
	app.SetupSignalHandler(triggerShutdown)

	go func() {
		<-stopCh
		tuiManager.Stop()
	}()

	if err := tuiManager.Run(); err != nil {
		log.Errorf("TUI error: %s", err)
	}

	app.StopAPI(apiManager)
	log.Debugf("Clean exit")
	return nil
}
