package ports

import (
	"bytes"
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txn2/uartdbg/pkg/uartlink"
	"gopkg.in/yaml.v2"
)

func stub(t *testing.T, names []string, denied map[string]bool) {
	t.Helper()
	prevLister, prevAccess := lister, access
	t.Cleanup(func() {
		lister, access = prevLister, prevAccess
	})

	lister = func() ([]string, error) { return names, nil }
	access = func(path string) error {
		if denied[path] {
			return &uartlink.OpenError{Port: path, Err: syscall.EACCES}
		}
		return nil
	}
}

// TestListText tests the plain listing with an inaccessible port
func TestListText(t *testing.T) {
	stub(t, []string{"/dev/ttyACM0", "/dev/ttyUSB0"}, map[string]bool{"/dev/ttyUSB0": true})

	var out bytes.Buffer
	require.NoError(t, list(&out, "text"))
	assert.Equal(t, "/dev/ttyACM0\n/dev/ttyUSB0  (permission denied)\n", out.String())
}

// TestListEmpty tests the message shown without ports
func TestListEmpty(t *testing.T) {
	stub(t, nil, nil)

	var out bytes.Buffer
	require.NoError(t, list(&out, ""))
	assert.Equal(t, "No serial ports found\n", out.String())
}

// TestListYAML tests the yaml output format
func TestListYAML(t *testing.T) {
	stub(t, []string{"COM3"}, nil)

	var out bytes.Buffer
	require.NoError(t, list(&out, "yaml"))

	var got map[string][]Port
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got["ports"], 1)
	assert.Equal(t, Port{Name: "COM3", Accessible: true}, got["ports"][0])
}

// TestListErrors tests lister failures and unknown formats
func TestListErrors(t *testing.T) {
	stub(t, []string{"COM3"}, nil)
	assert.Error(t, list(&bytes.Buffer{}, "xml"))

	lister = func() ([]string, error) { return nil, errors.New("no access to /dev") }
	assert.Error(t, list(&bytes.Buffer{}, "text"))
}
