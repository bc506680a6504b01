// Package background runs fire-and-forget tasks, such as sending
// recovery emails, outside the request lifetime. Shutdown waits for
// in-flight tasks so a clean stop never drops queued mail.
package background

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

func (b *Background) Add(task func() error) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		defer func() {
			if rec := recover(); rec != nil {
				trace := debug.Stack()
				b.log.Error(fmt.Sprintf("background task PANIC [%v] TRACE[%s]", rec, string(trace)))
			}
		}()

		if err := task(); err != nil {
			b.log.Errorf("background task: %v", err)
		}
	}()
}

func (b *Background) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
