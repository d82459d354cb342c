package client

import (
	"context"
	"time"
)

const loopBacklog = 64

// loop runs posted functions one at a time on the goroutine that calls run.
type loop struct {
	events chan func()
	done   <-chan struct{}
}

func newLoop(ctx context.Context) *loop {
	return &loop{
		events: make(chan func(), loopBacklog),
		done:   ctx.Done(),
	}
}

// post queues fn. It reports false once the loop context has ended.
func (l *loop) post(fn func()) bool {
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// after posts fn once d has elapsed. It satisfies Scheduler.
func (l *loop) after(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.post(fn) })
}

// run executes queued functions until the context ends or errs yields a
// non-nil error.
func (l *loop) run(errs <-chan error) error {
	for {
		select {
		case <-l.done:
			return nil
		case fn := <-l.events:
			fn()
		case err := <-errs:
			if err != nil {
				return err
			}
		}
	}
}
