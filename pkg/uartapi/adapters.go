package uartapi

import (
	"github.com/txn2/uartdbg/pkg/uartapi/types"
	"github.com/txn2/uartdbg/pkg/uartpool"
	"github.com/txn2/uartdbg/pkg/uartscript"
)

// poolStarter runs scripts on a fixed pool
type poolStarter struct {
	runner *uartscript.Runner
	pool   *uartpool.Pool
}

// NewScriptStarter adapts a runner and its pool to ScriptStarter
func NewScriptStarter(runner *uartscript.Runner, pool *uartpool.Pool) types.ScriptStarter {
	return &poolStarter{runner: runner, pool: pool}
}

func (s *poolStarter) Start(script uartscript.Script) error {
	return s.runner.Start(s.pool, script)
}
