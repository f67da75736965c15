// Package interrupt holds back termination signals while a critical
// operation runs, so it can finish before the process exits.
package interrupt

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/newthinker/datacheck/internal/core"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var deferred = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT}

// Guard runs functions with termination signals captured.
type Guard struct {
	logger *zap.Logger

	mu  sync.Mutex
	sig os.Signal
}

// New creates a guard.
func New(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger}
}

// Run calls fn. Signals arriving meanwhile are logged and, once fn has
// returned, reported as core.ErrInterrupted alongside fn's own error.
func (g *Guard) Run(fn func() error) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, deferred...)
	defer signal.Stop(ch)

	return g.run(ch, fn)
}

func (g *Guard) run(ch <-chan os.Signal, fn func() error) error {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case s := <-ch:
				g.record(s)
			case <-done:
				return
			}
		}
	}()

	err := fn()
	close(done)
	wg.Wait()

	// The select above may pick done while a signal is still buffered.
	select {
	case s := <-ch:
		g.record(s)
	default:
	}

	if s := g.Signal(); s != nil {
		return multierr.Append(err, core.WrapError(core.ErrInterrupted, fmt.Errorf("%s received", s)))
	}
	return err
}

// Signal returns the first signal received, or nil.
func (g *Guard) Signal() os.Signal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sig
}

func (g *Guard) record(s os.Signal) {
	g.logger.Warn("please wait until the current operation has finished",
		zap.String("signal", s.String()))

	g.mu.Lock()
	if g.sig == nil {
		g.sig = s
	}
	g.mu.Unlock()
}

// Run runs fn under a fresh Guard.
func Run(logger *zap.Logger, fn func() error) error {
	return New(logger).Run(fn)
}
