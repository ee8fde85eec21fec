package observability

import (
	"context"
	"expvar"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var expvarRecorders atomic.Uint64

// ExpvarRecorder keeps per-operation counters in one expvar.Map, served under
// /debug/vars. Every operation owns three keys: "<op>.ok", "<op>.failed" and
// "<op>.ms", the latter accumulating elapsed milliseconds.
type ExpvarRecorder struct {
	name string
	vars *expvar.Map
}

// OperationCounts is what an ExpvarRecorder has seen for one operation.
type OperationCounts struct {
	OK      int64
	Failed  int64
	Elapsed time.Duration
}

// NewExpvarRecorder publishes a fresh map under name. An empty name picks
// ecoresiduos_operations_<n>; expvar panics on a reused name.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		name = fmt.Sprintf("ecoresiduos_operations_%d", expvarRecorders.Add(1))
	}
	vars := new(expvar.Map).Init()
	expvar.Publish(name, vars)
	return &ExpvarRecorder{name: name, vars: vars}
}

// Name is the expvar key of the recorder.
func (r *ExpvarRecorder) Name() string { return r.name }

// Observe bumps the counters of operation. Unnamed operations are dropped.
func (r *ExpvarRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	operation = strings.TrimSpace(operation)
	if operation == "" {
		return
	}
	outcome := ".failed"
	if success {
		outcome = ".ok"
	}
	r.vars.Add(operation+outcome, 1)
	r.vars.AddFloat(operation+".ms", float64(duration)/float64(time.Millisecond))
}

// Counts reads back the counters of operation; unknown operations are zero.
func (r *ExpvarRecorder) Counts(operation string) OperationCounts {
	var c OperationCounts
	if v, ok := r.vars.Get(operation + ".ok").(*expvar.Int); ok {
		c.OK = v.Value()
	}
	if v, ok := r.vars.Get(operation + ".failed").(*expvar.Int); ok {
		c.Failed = v.Value()
	}
	if v, ok := r.vars.Get(operation + ".ms").(*expvar.Float); ok {
		c.Elapsed = time.Duration(v.Value() * float64(time.Millisecond))
	}
	return c
}
