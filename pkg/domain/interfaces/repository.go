package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

// ErrNotFound is wrapped by every repository backend when a record does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for data persistence
type Repository interface {
	Obligation() ObligationRepository
	Notification() NotificationRepository
	User() UserRepository
	Close() error
}

type ObligationRepository interface {
	Create(ctx context.Context, obligation *model.Obligation) (*model.Obligation, error)
	Get(ctx context.Context, id model.ObligationID) (*model.Obligation, error)
	Update(ctx context.Context, obligation *model.Obligation) (*model.Obligation, error)
	Delete(ctx context.Context, id model.ObligationID) error
	ListByOwner(ctx context.Context, ownerID model.UserID) ([]*model.Obligation, error)
	CountActiveByOwner(ctx context.Context, ownerID model.UserID) (int, error)

	// ListActiveDueBefore returns ACTIVE obligations whose deadline is strictly before
	// cutoff, joined with their owner's email and name. Obligations whose owner no
	// longer exists are omitted. Order is stable (ascending id).
	ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]*model.DueObligation, error)

	TouchLastNotification(ctx context.Context, id model.ObligationID, at time.Time) error
}

// NotificationRepository is the append-only notification history
type NotificationRepository interface {
	Exists(ctx context.Context, obligationID model.ObligationID, threshold types.Threshold) (bool, error)
	Append(ctx context.Context, record *model.NotificationRecord) (*model.NotificationRecord, error)
	// ListByObligation returns records ordered by SentAt ascending
	ListByObligation(ctx context.Context, obligationID model.ObligationID) ([]*model.NotificationRecord, error)
}

type UserRepository interface {
	Put(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id model.UserID) (*model.User, error)
	PutTeam(ctx context.Context, team *model.Team) error
	GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error)
}
