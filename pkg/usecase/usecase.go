package usecase

import (
	"time"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
)

// DefaultFreeTierLimit is the number of ACTIVE obligations allowed without a subscription
const DefaultFreeTierLimit = 2

type UseCases struct {
	repo          interfaces.Repository
	transport     interfaces.Transport
	runLock       interfaces.RunLock
	archiver      interfaces.Archiver
	clock         func() time.Time
	appURL        string
	freeTierLimit int
	concurrency   int

	Notification *NotificationUseCase
	Obligation   *ObligationUseCase
	Auth         AuthUseCaseInterface
}

type Option func(*UseCases)

// WithTransport sets the channel reminders are delivered through
func WithTransport(transport interfaces.Transport) Option {
	return func(uc *UseCases) {
		uc.transport = transport
	}
}

// WithRunLock makes notification runs exclusive across processes
func WithRunLock(lock interfaces.RunLock) Option {
	return func(uc *UseCases) {
		uc.runLock = lock
	}
}

// WithArchiver stores a copy of every delivered message
func WithArchiver(archiver interfaces.Archiver) Option {
	return func(uc *UseCases) {
		uc.archiver = archiver
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(clock func() time.Time) Option {
	return func(uc *UseCases) {
		uc.clock = clock
	}
}

// WithAppURL sets the base URL used for links in reminders
func WithAppURL(appURL string) Option {
	return func(uc *UseCases) {
		uc.appURL = appURL
	}
}

func WithFreeTierLimit(limit int) Option {
	return func(uc *UseCases) {
		uc.freeTierLimit = limit
	}
}

// WithConcurrency bounds parallel deliveries in one run. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(uc *UseCases) {
		uc.concurrency = n
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:          repo,
		clock:         time.Now,
		appURL:        model.DefaultAppURL,
		freeTierLimit: DefaultFreeTierLimit,
		concurrency:   1,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.concurrency < 1 {
		uc.concurrency = 1
	}

	uc.Notification = &NotificationUseCase{
		repo:        repo,
		transport:   uc.transport,
		runLock:     uc.runLock,
		archiver:    uc.archiver,
		clock:       uc.clock,
		appURL:      uc.appURL,
		concurrency: uc.concurrency,
	}
	uc.Obligation = NewObligationUseCase(repo, uc.freeTierLimit, uc.clock)

	return uc
}
