package config_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/deadline-guardian/guardian/pkg/cli/config"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
	"github.com/deadline-guardian/guardian/pkg/repository/memory"
	"github.com/deadline-guardian/guardian/pkg/service/mail"
)

func TestRepositoryConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest(config.BackendMemory, "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "guardian.db")
		repo, err := config.NewRepositoryForTest(config.BackendSQLite, path).Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("firestore without project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest(config.BackendFirestore, "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("mysql", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrUnknownBackend)
	})
}

func TestTransportConfigure(t *testing.T) {
	sender := mail.Sender{From: "guardian@example.com"}

	t.Run("console writes reminders", func(t *testing.T) {
		var out bytes.Buffer
		transport, err := config.NewTransportForTest(config.TransportConsole, mail.SMTPConfig{}, "", "", &out).Configure(sender)
		gt.NoError(t, err).Required()
		gt.Value(t, transport.Type()).Equal(types.NotificationTypeEmail)

		gt.NoError(t, transport.Deliver(context.Background(), &model.Message{
			To:      "alice@example.com",
			Subject: "Reminder",
			Text:    "body",
		})).Required()
		gt.String(t, out.String()).Contains("Subject: Reminder")
	})

	t.Run("smtp requires host", func(t *testing.T) {
		_, err := config.NewTransportForTest(config.TransportSMTP, mail.SMTPConfig{}, "", "", nil).Configure(sender)
		gt.Value(t, err).NotNil()
	})

	t.Run("smtp", func(t *testing.T) {
		transport, err := config.NewTransportForTest(config.TransportSMTP, mail.SMTPConfig{Host: "smtp.example.com"}, "", "", nil).Configure(sender)
		gt.NoError(t, err).Required()
		gt.Value(t, transport.Type()).Equal(types.NotificationTypeEmail)
	})

	t.Run("sendgrid requires key", func(t *testing.T) {
		_, err := config.NewTransportForTest(config.TransportSendGrid, mail.SMTPConfig{}, "", "", nil).Configure(sender)
		gt.Value(t, err).NotNil()
	})

	t.Run("slack requires token", func(t *testing.T) {
		_, err := config.NewTransportForTest(config.TransportSlack, mail.SMTPConfig{}, "", "", nil).Configure(sender)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("slack", func(t *testing.T) {
		transport, err := config.NewTransportForTest(config.TransportSlack, mail.SMTPConfig{}, "", "xoxb-test", nil).Configure(sender)
		gt.NoError(t, err).Required()
		gt.Value(t, transport.Type()).Equal(types.NotificationTypeSlack)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := config.NewTransportForTest("pigeon", mail.SMTPConfig{}, "", "", nil).Configure(sender)
		gt.Error(t, err).Is(config.ErrUnknownBackend)
	})
}

func TestLockConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		l, closer, err := config.NewLockForTest(config.LockNone, "").Configure(ctx)
		gt.NoError(t, err).Required()
		defer closer()
		gt.Value(t, l).Nil()
	})

	t.Run("file", func(t *testing.T) {
		l, closer, err := config.NewLockForTest(config.LockFile, filepath.Join(t.TempDir(), "run.lock")).Configure(ctx)
		gt.NoError(t, err).Required()
		defer closer()

		acquired, err := l.TryLock(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, acquired).True()
		gt.NoError(t, l.Unlock(ctx))
	})

	t.Run("redis requires address", func(t *testing.T) {
		_, _, err := config.NewLockForTest(config.LockRedis, "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})
}

func TestAuthConfigure(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	t.Run("no-auth", func(t *testing.T) {
		authUC, err := config.NewAuthForTest("", "alice").Configure(ctx, repo)
		gt.NoError(t, err).Required()
		gt.Bool(t, authUC.IsNoAuthn()).True()

		user, err := authUC.Authenticate(ctx, "")
		gt.NoError(t, err).Required()
		gt.Value(t, user.ID).Equal(model.UserID("alice"))
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := config.NewAuthForTest("", "").Configure(ctx, repo)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := config.NewAuthForTest("short", "").Configure(ctx, repo)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("jwt", func(t *testing.T) {
		authUC, err := config.NewAuthForTest("0123456789abcdef0123456789abcdef", "").Configure(ctx, repo)
		gt.NoError(t, err).Required()
		gt.Bool(t, authUC.IsNoAuthn()).False()
	})
}

func TestLoggerConfigure(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		closer, err := config.NewLoggerForTest("debug", "json", filepath.Join(t.TempDir(), "guardian.log")).Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("loud", "console", "stdout").Configure()
		gt.Bool(t, errors.Is(err, config.ErrInvalidConfig)).True()
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
