package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/utils/errutil"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

// Group runs side tasks in background goroutines detached from the caller's
// cancellation, while still letting the caller wait for them.
type Group struct {
	wg sync.WaitGroup
}

// Dispatch runs handler in a new goroutine. The goroutine gets a fresh context that
// keeps the caller's logger. Errors and panics are logged and reported, never returned.
func (g *Group) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.WithoutCancel(ctx), logging.From(ctx))

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				errutil.Handle(bgCtx, goerr.New("panic in async handler", goerr.V("panic", r)), "async handler panicked")
			}
		}()

		if err := handler(bgCtx); err != nil {
			errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()
}

// Wait blocks until every dispatched handler returns
func (g *Group) Wait() {
	g.wg.Wait()
}
