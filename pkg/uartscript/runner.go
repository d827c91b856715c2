package uartscript

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartmetrics"
	"github.com/txn2/uartdbg/pkg/uartpool"
	"github.com/txn2/uartdbg/pkg/uarttui/events"
	lua "github.com/yuin/gopher-lua"
)

// Script names the code to run: a file path or inline source
type Script struct {
	Path   string
	Source string
}

// FromFile returns a script read from path
func FromFile(path string) Script {
	return Script{Path: path}
}

// FromSource returns an inline script
func FromSource(src string) Script {
	return Script{Source: src}
}

func (s Script) String() string {
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return "<inline>"
}

// ScriptError is a failed script run
type ScriptError struct {
	RunID string
	Path  string
	Err   error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s (run %s): %v", e.Path, e.RunID, e.Err)
}

func (e *ScriptError) Cause() error { return e.Err }

func (e *ScriptError) Unwrap() error { return e.Err }

// Runner executes scripts, each in a fresh interpreter bound to host
type Runner struct {
	host    Host
	timeout time.Duration
}

// NewRunner creates a runner. A zero timeout lets scripts run until
// they finish or their context is cancelled.
func NewRunner(host Host, timeout time.Duration) *Runner {
	return &Runner{host: host, timeout: timeout}
}

// Run executes s to completion. Errors are logged and returned as
// *ScriptError; they never touch panel state.
func (r *Runner) Run(ctx context.Context, s Script) error {
	runID := uuid.NewString()
	logger := log.WithFields(log.Fields{"run_id": runID, "script": s.String()})

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	r.bind(L, logger)

	logger.Debug("Script started")
	start := time.Now()

	var err error
	if s.Path != "" {
		err = L.DoFile(s.Path)
	} else {
		err = L.DoString(s.Source)
	}

	elapsed := time.Since(start)
	if err == nil {
		uartmetrics.RecordScript("ok", elapsed)
		logger.Debugf("Script finished in %s", elapsed)
		return nil
	}

	result := "error"
	if ctx.Err() != nil {
		result = "timeout"
		err = errors.Wrap(ctx.Err(), "script stopped")
	}
	uartmetrics.RecordScript(result, elapsed)

	serr := &ScriptError{RunID: runID, Path: s.String(), Err: err}
	logger.Errorf("Script failed: %v", err)
	return serr
}

// Start queues s on pool without waiting for it to run
func (r *Runner) Start(pool *uartpool.Pool, s Script) error {
	return pool.TrySubmit(func(ctx context.Context) {
		_ = r.Run(ctx, s)
	})
}

// panelID converts a Lua number to a panel id. Negative, fractional,
// NaN and out of range numbers have no id.
func panelID(n lua.LNumber) (events.PanelID, bool) {
	f := float64(n)
	if !(f >= 0 && f < 1<<64) || f != math.Trunc(f) {
		return 0, false
	}
	return events.PanelID(f), true
}

// bind installs the host functions and routes print to the log
func (r *Runner) bind(L *lua.LState, logger *log.Entry) {
	L.SetGlobal("new_window", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		id := r.host.CreatePanel(name)
		L.Push(lua.LNumber(id))
		return 1
	}))

	L.SetGlobal("write_wnd", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckNumber(1)
		text := L.CheckString(2)
		id, ok := panelID(n)
		if !ok {
			// cannot match any panel
			return 0
		}
		r.host.AppendPanel(id, text)
		return 0
	}))

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		logger.Debug(strings.Join(parts, "\t"))
		return 0
	}))
}
