// Package ports provides the serial port listing subcommand
package ports

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/txn2/uartdbg/pkg/uartlink"
	"gopkg.in/yaml.v2"
)

var output string

// lister is replaced in tests
var lister = uartlink.ListPorts

// access is replaced in tests
var access = uartlink.CheckAccess

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or yaml")
}

// Cmd is the port listing subcommand
var Cmd = &cobra.Command{
	Use:     "ports",
	Aliases: []string{"ls"},
	Short:   "List serial ports",
	Long: `List the serial ports present on this machine and whether the
current user may open them.`,
	Example: "  uartdbg ports\n" +
		"  uartdbg ports -o yaml",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return list(cmd.OutOrStdout(), output)
	},
}

// Port is one entry of the listing
type Port struct {
	Name       string `yaml:"name"`
	Accessible bool   `yaml:"accessible"`
	Error      string `yaml:"error,omitempty"`
}

func list(w io.Writer, format string) error {
	names, err := lister()
	if err != nil {
		return err
	}

	ports := make([]Port, 0, len(names))
	for _, name := range names {
		p := Port{Name: name, Accessible: true}
		if err := access(name); err != nil {
			p.Accessible = false
			p.Error = errors.Cause(err).Error()
		}
		ports = append(ports, p)
	}

	switch format {
	case "yaml":
		out, err := yaml.Marshal(map[string][]Port{"ports": ports})
		if err != nil {
			return errors.Wrap(err, "encoding port list")
		}
		_, err = w.Write(out)
		return err
	case "", "text":
		if len(ports) == 0 {
			_, err := fmt.Fprintln(w, "No serial ports found")
			return err
		}
		for _, p := range ports {
			line := p.Name
			if !p.Accessible {
				line += "  (" + p.Error + ")"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Errorf("unknown output format %q (expected text or yaml)", format)
	}
}
