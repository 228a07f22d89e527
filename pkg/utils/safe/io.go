// Package safe wraps cleanup calls whose errors can only be reported, not returned.
package safe

import (
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/utils/errutil"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

// Close closes c and reports a failure through errutil. A nil c is ignored.
func Close(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		_ = errutil.Handle(ctx,
			goerr.Wrap(err, "failed to close resource", goerr.V("resource", fmt.Sprintf("%T", c))),
			"cleanup failed")
	}
}

// Closer returns a cleanup func for c, for deferred shutdown chains
func Closer(c io.Closer) func() {
	return func() { Close(context.Background(), c) }
}

// Write writes a response body. The client may already be gone, so a failure is
// only logged.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if n, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write response body",
			"error", err,
			"written", n,
			"size", len(data),
		)
	}
}
