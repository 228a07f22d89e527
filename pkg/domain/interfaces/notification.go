package interfaces

import (
	"context"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

// Transport delivers a rendered message to its recipient. Timeouts and retries are
// the transport's own concern; a returned error is final for that attempt.
type Transport interface {
	Deliver(ctx context.Context, msg *model.Message) error
	Type() types.NotificationType
}

// RunLock excludes concurrent notification runs across processes or hosts
type RunLock interface {
	// TryLock returns false without error when another holder owns the lock
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Archiver keeps a copy of every delivered message
type Archiver interface {
	Archive(ctx context.Context, record *model.NotificationRecord, msg *model.Message) error
}
