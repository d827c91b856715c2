package uartapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartapi/types"
	"github.com/txn2/uartdbg/pkg/uartcfg"
)

// Deps are the collaborators the API reads and drives. Any of Events,
// Panels, Logs, Scripts and Ports may be nil.
type Deps struct {
	Link    types.LinkController
	Sender  types.Sender
	Events  types.EventStats
	Panels  types.PanelReader
	Scripts types.ScriptStarter
	Logs    types.LogReader
	Ports   types.PortLister
}

// Manager manages the API server lifecycle
type Manager struct {
	server    *http.Server
	router    *gin.Engine
	listen    string
	stopChan  chan struct{}
	doneChan  chan struct{}
	startTime time.Time

	deps    Deps
	cfg     uartcfg.Config
	version string
}

// New creates the API manager. cfg is copied; connect requests start
// from its connection parameters.
func New(cfg uartcfg.Config, version string, deps Deps) *Manager {
	gin.SetMode(gin.ReleaseMode)

	m := &Manager{
		listen:    cfg.API.Listen,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
		startTime: time.Now(),
		deps:      deps,
		cfg:       cfg,
		version:   version,
	}
	m.router = m.setupRouter()
	return m
}

// Handler exposes the router, mainly for tests
func (m *Manager) Handler() http.Handler {
	return m.router
}

// Run serves until Stop is called or the listener fails
func (m *Manager) Run() error {
	if m.deps.Link == nil || m.deps.Sender == nil {
		return errors.New("link and sender must be configured")
	}
	defer close(m.doneChan)

	m.server = &http.Server{
		Addr:              m.listen,
		Handler:           m.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Infof("API listening on http://%s/api/v1", m.listen)

	errCh := make(chan error, 1)
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-m.stopChan:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.server.Shutdown(ctx); err != nil {
			log.Errorf("API server shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		return errors.Wrapf(err, "API server on %s", m.listen)
	}
}

// Stop stops the API server
func (m *Manager) Stop() {
	select {
	case <-m.stopChan:
		return
	default:
		close(m.stopChan)
	}
}

// Done returns a channel that closes when Run has returned
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}
