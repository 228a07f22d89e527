package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

// recordingTransport keeps every delivered message and fails for listed recipients
type recordingTransport struct {
	mu        sync.Mutex
	delivered []*model.Message
	attempts  int
	failFor   map[string]bool
}

func newRecordingTransport(failFor ...string) *recordingTransport {
	t := &recordingTransport{failFor: map[string]bool{}}
	for _, to := range failFor {
		t.failFor[to] = true
	}
	return t
}

func (t *recordingTransport) Deliver(ctx context.Context, msg *model.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attempts++
	if t.failFor[msg.To] {
		return errors.New("mailbox unavailable")
	}
	t.delivered = append(t.delivered, msg)
	return nil
}

func (t *recordingTransport) Type() types.NotificationType {
	return types.NotificationTypeEmail
}

func (t *recordingTransport) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

type heldLock struct {
	held     bool
	unlocked int
}

func (l *heldLock) TryLock(ctx context.Context) (bool, error) {
	return !l.held, nil
}

func (l *heldLock) Unlock(ctx context.Context) error {
	l.unlocked++
	return nil
}

type recordingArchiver struct {
	mu      sync.Mutex
	records []*model.NotificationRecord
}

func (a *recordingArchiver) Archive(ctx context.Context, record *model.NotificationRecord, msg *model.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
	return nil
}

// brokenRepository fails the due-obligation scan
type brokenRepository struct {
	interfaces.Repository
}

type brokenObligations struct {
	interfaces.ObligationRepository
}

func (r *brokenRepository) Obligation() interfaces.ObligationRepository {
	return &brokenObligations{ObligationRepository: r.Repository.Obligation()}
}

func (o *brokenObligations) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]*model.DueObligation, error) {
	return nil, errors.New("connection reset")
}

func putUser(repo interfaces.Repository, id model.UserID) *model.User {
	user := &model.User{ID: id, Email: string(id) + "@example.com", Name: "Owner " + string(id)}
	if err := repo.User().Put(context.Background(), user); err != nil {
		panic(err)
	}
	return user
}

func putObligation(repo interfaces.Repository, owner model.UserID, title string, deadline time.Time) *model.Obligation {
	created, err := repo.Obligation().Create(context.Background(), &model.Obligation{
		OwnerID:     owner,
		Title:       title,
		Category:    types.CategoryTax,
		DeadlineAt:  deadline,
		Consequence: "Late filing penalty",
		Severity:    types.SeverityHigh,
		Status:      types.ObligationStatusActive,
	})
	if err != nil {
		panic(err)
	}
	return created
}

func validInput() *model.ObligationInput {
	return &model.ObligationInput{
		Title:       "Renew business license",
		Category:    types.CategoryLegal,
		DeadlineAt:  testNow.Add(10 * 24 * time.Hour),
		Consequence: "Operating without a license",
		Severity:    types.SeverityCritical,
	}
}

// cancelingTransport delivers successfully and then cancels the run that called it
type cancelingTransport struct {
	*recordingTransport
	cancel context.CancelFunc
}

func (t *cancelingTransport) Deliver(ctx context.Context, msg *model.Message) error {
	if err := t.recordingTransport.Deliver(ctx, msg); err != nil {
		return err
	}
	t.cancel()
	return nil
}
