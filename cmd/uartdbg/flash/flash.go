// Package flash provides the firmware upload subcommand
package flash

import (
	"context"
	"fmt"
	"io"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/txn2/uartdbg/cmd/uartdbg/internal/app"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlink"
)

// opener is replaced in tests
var opener uartlink.Opener = uartlink.OpenSerial

func init() {
	app.AddConnectionFlags(Cmd.Flags())
	Cmd.Flags().Duration("block-delay", uartcfg.DefaultBlockDelay, "Delay between firmware blocks")
}

// Cmd is the firmware upload subcommand
var Cmd = &cobra.Command{
	Use:   "flash <image>",
	Short: "Send a firmware image to the device",
	Long: `Send a firmware image to the device in fixed size blocks
(flash.block_size, 512 bytes by default) with a fixed delay between
blocks. A trailing partial block is not sent.`,
	Example: "  uartdbg flash -p /dev/ttyUSB0 firmware.bin\n" +
		"  uartdbg flash -p /dev/ttyUSB0 --block-delay 20ms firmware.bin",
	Args: cobra.ExactArgs(1),
	RunE: runCmd,
}

func runCmd(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Port == "" {
		return app.ErrNoPort
	}
	cmd.SilenceUsage = true

	a, err := app.New(context.Background(), cfg, opener)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(a.Context())
	defer cancel()
	app.SetupSignalHandler(cancel)

	return upload(ctx, a, args[0], cmd.OutOrStdout())
}

// upload connects and sends the image at path, reporting to out
func upload(ctx context.Context, a *app.App, path string, out io.Writer) error {
	if err := a.Connect(); err != nil {
		return err
	}

	a.Uploader.OnBlock = func(n int) {
		log.Debugf("Block %d queued", n)
	}

	blocks, err := a.Uploader.Upload(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "programming stopped after %d blocks", blocks)
	}

	size := uint64(blocks) * uint64(a.Config.Flash.BlockSize)
	fmt.Fprintf(out, "Sent %d blocks (%s) from %s\n", blocks, humanize.Bytes(size), path)
	return nil
}
