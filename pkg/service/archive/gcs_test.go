package archive_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
	"github.com/deadline-guardian/guardian/pkg/service/archive"
)

func testRecord() *model.NotificationRecord {
	return &model.NotificationRecord{
		ID:                 "0192b3c4-0000-7000-8000-000000000001",
		ObligationID:       42,
		UserID:             "u1",
		Type:               types.NotificationTypeEmail,
		DaysBeforeDeadline: types.ThresholdSevenDays,
		SentAt:             time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Success:            true,
	}
}

func TestObjectName(t *testing.T) {
	gt.Value(t, archive.ObjectName("reminders", testRecord())).
		Equal("reminders/2026/03/01/42-7d-0192b3c4-0000-7000-8000-000000000001.json")
	gt.Value(t, archive.ObjectName("", testRecord())).
		Equal("2026/03/01/42-7d-0192b3c4-0000-7000-8000-000000000001.json")
}

func TestNewGCSRequiresBucket(t *testing.T) {
	_, err := archive.NewGCS(context.Background(), "", "")
	gt.Value(t, err).NotNil()
}

func TestGCSIntegration(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set")
	}

	ctx := context.Background()
	a, err := archive.NewGCS(ctx, bucket, fmt.Sprintf("test/%d", time.Now().UnixNano()))
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = a.Close() })

	gt.NoError(t, a.Archive(ctx, testRecord(), &model.Message{
		To:      "u1@example.com",
		Subject: "⚠️ URGENT: VAT return - 7 days remaining",
		Text:    "URGENT DEADLINE ALERT",
	}))
}
