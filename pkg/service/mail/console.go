package mail

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
)

// Console prints the text version of each reminder instead of sending it
type Console struct {
	emailType
	sender Sender

	mu sync.Mutex
	w  io.Writer
}

var _ interfaces.Transport = &Console{}

// NewConsole writes to w, or to stdout when w is nil
func NewConsole(w io.Writer, sender Sender) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w, sender: sender}
}

func (c *Console) Deliver(ctx context.Context, msg *model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.sender.From
	if c.sender.FromName != "" {
		from = fmt.Sprintf("%s <%s>", c.sender.FromName, c.sender.From)
	}

	_, err := fmt.Fprintf(c.w, "From: %s\nTo: %s <%s>\nSubject: %s\n\n%s\n",
		from, msg.ToName, msg.To, c.sender.subject(msg), msg.Text)
	if err != nil {
		return goerr.Wrap(err, "failed to write reminder to console", goerr.V("to", msg.To))
	}
	return nil
}
