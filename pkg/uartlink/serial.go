package uartlink

import (
	"sort"
	"sync"
	"time"

	gxcommon "github.com/Gurux/gxcommon-go"
	gxserial "github.com/Gurux/gxserial-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartcfg"
)

const dataBits = 8

// serialPort adapts the callback driven gxserial media to Port.
// Received chunks are queued until Read picks them up.
type serialPort struct {
	media *gxserial.GXSerial

	mu      sync.Mutex
	pending [][]byte
	err     error
	notify  chan struct{}
}

// OpenSerial opens a real serial device with 8 data bits
func OpenSerial(cfg uartcfg.Connection) (Port, error) {
	if err := CheckAccess(cfg.Port); err != nil {
		return nil, err
	}

	parity, err := gxParity(cfg.Parity)
	if err != nil {
		return nil, err
	}

	media := gxserial.NewGXSerial(cfg.Port, gxcommon.BaudRate(cfg.BaudRate), dataBits, gxStopBits(cfg.StopBits), parity)
	p := &serialPort{media: media, notify: make(chan struct{}, 1)}

	media.SetOnReceived(func(m gxcommon.IGXMedia, e gxcommon.ReceiveEventArgs) {
		p.push(e.Data())
	})
	media.SetOnError(func(m gxcommon.IGXMedia, err error) {
		p.fail(err)
	})

	if err := media.Open(); err != nil {
		return nil, errors.Wrapf(err, "opening %s", cfg.Port)
	}

	log.Debugf("Opened serial port %s", cfg)
	return p, nil
}

func gxParity(p uartcfg.Parity) (gxcommon.Parity, error) {
	switch p {
	case uartcfg.ParityEven:
		return gxcommon.ParityEven, nil
	case uartcfg.ParityOdd:
		return gxcommon.ParityOdd, nil
	case uartcfg.ParityNone:
		return gxcommon.ParityNone, nil
	}
	return gxcommon.ParityNone, errors.Errorf("unsupported parity %s", p)
}

func gxStopBits(s uartcfg.StopBits) gxcommon.StopBits {
	if s == uartcfg.StopBitsTwo {
		return gxcommon.StopBitsTwo
	}
	return gxcommon.StopBitsOne
}

func (p *serialPort) push(data []byte) {
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)

	p.mu.Lock()
	p.pending = append(p.pending, chunk)
	p.mu.Unlock()
	p.wake()
}

func (p *serialPort) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.wake()
}

func (p *serialPort) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// take returns all queued bytes as one slice, or the terminal error
// once the queue is empty
func (p *serialPort) take() ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) > 0 {
		var out []byte
		for _, c := range p.pending {
			out = append(out, c...)
		}
		p.pending = nil
		return out, true, nil
	}
	if p.err != nil {
		return nil, true, p.err
	}
	return nil, false, nil
}

func (p *serialPort) Read(timeout time.Duration) ([]byte, error) {
	if data, ok, err := p.take(); ok {
		return data, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.notify:
		if data, ok, err := p.take(); ok {
			return data, err
		}
		return nil, ErrTimeout
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (p *serialPort) Write(b []byte) error {
	return p.media.Send(b, "")
}

func (p *serialPort) Close() error {
	return p.media.Close()
}

// ListPorts returns the serial ports present on this machine, sorted
func ListPorts() ([]string, error) {
	names, err := gxserial.GetPortNames()
	if err != nil {
		return nil, errors.Wrap(err, "listing serial ports")
	}
	sort.Strings(names)
	return names, nil
}
