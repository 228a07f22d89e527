package memory

import (
	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
)

// ErrNotFound is returned (wrapped) when a record does not exist
var ErrNotFound = interfaces.ErrNotFound

type Memory struct {
	obligation   *obligationRepository
	notification *notificationRepository
	user         *userRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	userRepo := newUserRepository()
	notificationRepo := newNotificationRepository()

	return &Memory{
		obligation:   newObligationRepository(userRepo, notificationRepo),
		notification: notificationRepo,
		user:         userRepo,
	}
}

func (m *Memory) Obligation() interfaces.ObligationRepository {
	return m.obligation
}

func (m *Memory) Notification() interfaces.NotificationRepository {
	return m.notification
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Close() error {
	return nil
}
