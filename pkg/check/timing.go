package check

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lyy289065406/arachni/pkg/scan/control"
)

// Op is one deferred latency measurement scheduled by a timing check
// during the regular page loop.
type Op struct {
	Check   string
	URL     string
	Execute func() error
}

// TimingController accumulates timing operations and runs them as one
// serial batch after the regular checks. Its counters are shared process
// state: they feed the progress computation and are cleared only by the
// shared reset.
type TimingController struct {
	mu      sync.Mutex
	ops     []Op
	total   int
	pending int
	started bool
}

func NewTimingController() *TimingController {
	return &TimingController{}
}

// Schedule queues a deferred operation.
func (t *TimingController) Schedule(op Op) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ops = append(t.ops, op)
	t.total++
	t.pending++
}

// Total returns how many operations were ever scheduled.
func (t *TimingController) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Pending returns how many operations have not completed yet.
func (t *TimingController) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Started reports whether the batch has begun. It stays true once set,
// so the progress computation keeps crediting the timing phase after
// the batch finishes.
func (t *TimingController) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

// RunBatch executes every scheduled operation serially, honouring the
// pause gate before each one. Operation faults are logged and do not
// stop the batch. Timing measurements share the wire, so no parallelism
// here: a concurrent request would skew the latencies being measured.
func (t *TimingController) RunBatch(gate *control.Gate) {
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	for {
		t.mu.Lock()
		if len(t.ops) == 0 {
			t.mu.Unlock()
			return
		}
		op := t.ops[0]
		t.ops = t.ops[1:]
		t.mu.Unlock()

		if gate != nil {
			gate.Wait()
		}
		if err := t.runOne(op); err != nil {
			log.Error().Err(err).Str("check", op.Check).Str("url", op.URL).Msg("Timing operation failed")
		}

		t.mu.Lock()
		t.pending--
		t.mu.Unlock()
	}
}

func (t *TimingController) runOne(op Op) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("timing operation panicked: %v", r)
		}
	}()
	if op.Execute == nil {
		return nil
	}
	return op.Execute()
}

// Reset clears the queue and all counters.
func (t *TimingController) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ops = nil
	t.total = 0
	t.pending = 0
	t.started = false
}
