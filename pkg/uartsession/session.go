package uartsession

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlink"
	"github.com/txn2/uartdbg/pkg/uartmetrics"
	"github.com/txn2/uartdbg/pkg/uartrx"
	"github.com/txn2/uartdbg/pkg/uarttui/events"
)

// ErrNotConnected is returned by Write without an open link
var ErrNotConnected = errors.New("not connected")

// Status is the connection state of a session
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusLost
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnected:
		return "Connected"
	case StatusLost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// Info describes the session for display
type Info struct {
	Status  Status
	Conn    uartcfg.Connection
	Stats   uartlink.Stats
	LastErr error
	Since   time.Time
}

// Session owns the current link and its reader. At most one reader
// runs at a time: Connect waits for the previous one to exit before
// opening the device again.
type Session struct {
	ctx         context.Context
	opener      uartlink.Opener
	buf         *uartrx.Buffer
	ch          *events.Channel
	idleBackoff time.Duration

	// serializes Connect and Disconnect
	connMu sync.Mutex

	mu      sync.Mutex
	link    *uartlink.Link
	reader  *uartrx.Reader
	cancel  context.CancelFunc
	status  Status
	lastErr error
	since   time.Time
}

// New creates a disconnected session. Received bytes go to buf and
// link loss is announced on ch, which may be nil.
func New(ctx context.Context, opener uartlink.Opener, buf *uartrx.Buffer, ch *events.Channel, idleBackoff time.Duration) *Session {
	if idleBackoff <= 0 {
		idleBackoff = uartrx.DefaultIdleBackoff
	}
	return &Session{
		ctx:         ctx,
		opener:      opener,
		buf:         buf,
		ch:          ch,
		idleBackoff: idleBackoff,
		since:       time.Now(),
	}
}

// Connect opens cfg, replacing any current link
func (s *Session) Connect(cfg uartcfg.Connection) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.disconnect()

	link, err := uartlink.Open(cfg, s.opener)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		log.Errorf("Connect failed: %v", err)
		return err
	}

	ctx, cancel := context.WithCancel(s.ctx)
	reader := uartrx.NewReader(link, s.buf)
	reader.IdleBackoff = s.idleBackoff
	reader.OnData = uartmetrics.RecordRx
	reader.OnLost = func(err error) { s.lost(reader, err) }

	s.mu.Lock()
	s.link = link
	s.reader = reader
	s.cancel = cancel
	s.status = StatusConnected
	s.lastErr = nil
	s.since = time.Now()
	s.mu.Unlock()

	uartmetrics.SetConnected(true)
	if s.ch != nil {
		s.ch.Publish(events.NewLinkUpEvent())
	}
	go func() { _ = reader.Run(ctx) }()

	log.Infof("Connected to %s", cfg)
	return nil
}

// Disconnect stops the reader, waits for it and closes the link
func (s *Session) Disconnect() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.disconnect()
}

func (s *Session) disconnect() {
	s.mu.Lock()
	link, reader, cancel := s.link, s.reader, s.cancel
	s.link, s.reader, s.cancel = nil, nil, nil
	wasConnected := link != nil
	s.status = StatusDisconnected
	s.since = time.Now()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if reader != nil {
		<-reader.Done()
	}
	if link != nil {
		if err := link.Close(); err != nil {
			log.Debugf("Closing link: %v", err)
		}
	}
	if wasConnected {
		uartmetrics.SetConnected(false)
		log.Infof("Disconnected from %s", link.Config().Port)
	}
}

// lost runs on the reader goroutine after a device error
func (s *Session) lost(r *uartrx.Reader, err error) {
	s.mu.Lock()
	if s.reader != r {
		s.mu.Unlock()
		return
	}
	s.status = StatusLost
	s.lastErr = err
	s.since = time.Now()
	link := s.link
	s.mu.Unlock()

	_ = link.Close()
	uartmetrics.SetConnected(false)
	uartmetrics.RecordLinkLost()
	log.Warnf("Connection to %s lost: %v", link.Config().Port, err)

	if s.ch != nil {
		s.ch.Publish(events.NewLinkLostEvent(err))
	}
}

// Write sends p over the current link
func (s *Session) Write(p []byte) error {
	s.mu.Lock()
	link := s.link
	s.mu.Unlock()

	if link == nil {
		return ErrNotConnected
	}
	return link.Write(p)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{Status: s.status, LastErr: s.lastErr, Since: s.since}
	if s.link != nil {
		info.Conn = s.link.Config()
		info.Stats = s.link.Stats()
	}
	return info
}

// Buffer is the receive buffer the reader appends to
func (s *Session) Buffer() *uartrx.Buffer {
	return s.buf
}
