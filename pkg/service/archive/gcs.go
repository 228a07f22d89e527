// Package archive keeps a copy of every delivered reminder in Cloud Storage
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/utils/safe"
)

// Document is the JSON object stored per delivered reminder
type Document struct {
	Record  *model.NotificationRecord `json:"record"`
	Message *model.Message            `json:"message"`
}

type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.Archiver = &GCS{}

func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// objectName lays objects out by send date, then obligation and threshold
func objectName(prefix string, rec *model.NotificationRecord) string {
	return path.Join(prefix,
		rec.SentAt.UTC().Format("2006/01/02"),
		fmt.Sprintf("%d-%dd-%s.json", rec.ObligationID, rec.DaysBeforeDeadline.Days(), rec.ID),
	)
}

func (a *GCS) Archive(ctx context.Context, record *model.NotificationRecord, msg *model.Message) error {
	name := objectName(a.prefix, record)

	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if err := json.NewEncoder(w).Encode(&Document{Record: record, Message: msg}); err != nil {
		safe.Close(ctx, w)
		return goerr.Wrap(err, "failed to write archive object", goerr.V("bucket", a.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload archive object", goerr.V("bucket", a.bucket), goerr.V("object", name))
	}
	return nil
}

func (a *GCS) Close() error {
	return a.client.Close()
}
