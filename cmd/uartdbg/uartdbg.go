/*
Copyright 2018 Craig Johnston <cjimti@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/txn2/uartdbg/cmd/uartdbg/flash"
	"github.com/txn2/uartdbg/cmd/uartdbg/internal/app"
	"github.com/txn2/uartdbg/cmd/uartdbg/ports"
	"github.com/txn2/uartdbg/cmd/uartdbg/run"
	"github.com/txn2/uartdbg/cmd/uartdbg/term"
)

var globalUsage = `Debug microcontrollers over a serial port.

Send and receive data, view it as text and hex, run Lua scripts that
draw their own panels and upload firmware images. Every setting can
come from a YAML file (--config), UARTDBG_ environment variables or
flags.`

var Version = "0.0.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uartdbg",
		Short: "Serial port terminal and debugger for microcontrollers.",
		Long:  globalUsage,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "YAML config file")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	cmd.PersistentFlags().String("log-output", "stderr", "Log output: stderr, stdout or a file path")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of uartdbg",
		Long:  ``,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uartdbg version: %s\nhttps://github.com/txn2/uartdbg\n", Version)
		},
	}

	cmd.AddCommand(versionCmd, term.Cmd, run.Cmd, flash.Cmd, ports.Cmd)

	return cmd
}

func main() {
	app.Version = Version
	cmd := newRootCmd()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
