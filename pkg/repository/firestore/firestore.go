package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
)

// ErrNotFound is returned (wrapped) when a document does not exist
var ErrNotFound = interfaces.ErrNotFound

type Firestore struct {
	client       *firestore.Client
	obligation   *obligationRepository
	notification *notificationRepository
	user         *userRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces every collection, e.g. for isolated test runs
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.obligation.collectionPrefix = prefix
		f.notification.collectionPrefix = prefix
		f.user.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	userRepo := newUserRepository(client)
	notificationRepo := newNotificationRepository(client)

	f := &Firestore{
		client:       client,
		obligation:   newObligationRepository(client, userRepo, notificationRepo),
		notification: notificationRepo,
		user:         userRepo,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Obligation() interfaces.ObligationRepository {
	return f.obligation
}

func (f *Firestore) Notification() interfaces.NotificationRepository {
	return f.notification
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func prefixed(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}
