package flash

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
)

func newApp(t *testing.T) (*app.App, *uartlink.FakePort) {
	t.Helper()
	cfg, err := uartcfg.Load(uartcfg.New(), "")
	require.NoError(t, err)
	cfg.Port = "/dev/ttyFAKE0"
	cfg.Flash.Delay = time.Millisecond

	fp := uartlink.NewFakePort(false)
	a, err := app.New(context.Background(), cfg, fp.Opener())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, fp
}

// TestUpload tests that full blocks are sent and the tail is dropped
func TestUpload(t *testing.T) {
	a, fp := newApp(t)

	image := bytes.Repeat([]byte{0xA5}, 2*512+100)
	path := filepath.Join(t.TempDir(), "fw.bin")
	require.NoError(t, os.WriteFile(path, image, 0o600))

	var out bytes.Buffer
	require.NoError(t, upload(context.Background(), a, path, &out))
	assert.Equal(t, "Sent 2 blocks (1.0 kB) from "+path+"\n", out.String())

	a.Close()
	writes := fp.Writes()
	require.Len(t, writes, 2)
	for _, w := range writes {
		assert.Len(t, w, 512)
	}
}

// TestUploadMissingFile tests the error for a missing image
func TestUploadMissingFile(t *testing.T) {
	a, fp := newApp(t)

	err := upload(context.Background(), a, filepath.Join(t.TempDir(), "none.bin"), &bytes.Buffer{})
	assert.Error(t, err)

	a.Close()
	assert.Empty(t, fp.Writes())
}

// TestUploadCancelled tests that a cancelled upload reports an error
func TestUploadCancelled(t *testing.T) {
	a, _ := newApp(t)

	path := filepath.Join(t.TempDir(), "fw.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 4*512), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := upload(ctx, a, path, &bytes.Buffer{})
	assert.Error(t, err)
}
