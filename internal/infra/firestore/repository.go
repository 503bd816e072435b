// Package firestore stores the roster in a Cloud Firestore collection, one document per person.
package firestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"birthday_notification_bot/internal/domain/birthday"

	fs "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Document field names.
const (
	fieldDate               = "date"
	fieldName               = "name"
	fieldGraduation         = "graduation"
	fieldRelationship       = "relationship"
	fieldUnit               = "unit"
	fieldPhone              = "phone"
	fieldNotificationTiming = "notificationTiming"
	fieldSendTime           = "sendTime"
	fieldLastNotification   = "lastNotificationSent"
	fieldNotificationCount  = "notificationCount"
	fieldLastExecutionID    = "lastExecutionId"
	fieldCreatedAt          = "createdAt"
)

// NewClient initializes a Firebase app and returns its Firestore client.
// An empty credentialsPath falls back to application default credentials.
func NewClient(ctx context.Context, projectID, credentialsPath string) (*fs.Client, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}
	return client, nil
}

type Repository struct {
	client     *fs.Client
	collection string
}

func NewRepository(client *fs.Client, collection string) *Repository {
	return &Repository{client: client, collection: collection}
}

func (r *Repository) FetchAll(ctx context.Context) ([]*birthday.Record, error) {
	iter := r.client.Collection(r.collection).Documents(ctx)
	defer iter.Stop()

	var out []*birthday.Record
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", birthday.ErrStore, r.collection, err)
		}
		out = append(out, toRecord(doc.Ref.ID, doc.Data()))
	}
	return out, nil
}

// UpdateIdempotenceFields touches only the three marker fields. The counter is
// read and bumped inside a transaction, which Firestore retries on contention.
func (r *Repository) UpdateIdempotenceFields(ctx context.Context, id string, f birthday.IdempotenceFields) (int, error) {
	ref := r.client.Collection(r.collection).Doc(id)
	var count int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		count = intOf(snap.Data()[fieldNotificationCount]) + 1
		return tx.Update(ref, []fs.Update{
			{Path: fieldLastNotification, Value: f.LastNotifiedAt},
			{Path: fieldNotificationCount, Value: count},
			{Path: fieldLastExecutionID, Value: f.LastExecutionID},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, fmt.Errorf("%w: %s", birthday.ErrRecordNotFound, id)
		}
		return 0, fmt.Errorf("%w: update %s/%s: %w", birthday.ErrStore, r.collection, id, err)
	}
	return count, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	iter := r.client.Collection(r.collection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("%w: %w", birthday.ErrStore, err)
	}
	return nil
}

// Upsert merges the roster fields into the document; an empty ID gets a generated one.
func (r *Repository) Upsert(ctx context.Context, rec *birthday.Record) error {
	col := r.client.Collection(r.collection)
	ref := col.NewDoc()
	if rec.ID != "" {
		ref = col.Doc(rec.ID)
	}
	data := map[string]any{
		fieldDate:               rec.Date,
		fieldName:               rec.Name,
		fieldGraduation:         rec.Graduation,
		fieldRelationship:       rec.Relationship,
		fieldUnit:               rec.Unit,
		fieldPhone:              rec.Phone,
		fieldNotificationTiming: rec.NotificationTiming,
		fieldSendTime:           rec.SendTime,
	}
	if rec.ID == "" {
		data[fieldCreatedAt] = fs.ServerTimestamp
	}
	if _, err := ref.Set(ctx, data, fs.MergeAll); err != nil {
		return fmt.Errorf("%w: save %s/%s: %w", birthday.ErrStore, r.collection, ref.ID, err)
	}
	rec.ID = ref.ID
	return nil
}

// toRecord reads a document leniently: hand-edited documents mix strings, numbers and timestamps.
func toRecord(id string, m map[string]any) *birthday.Record {
	rec := &birthday.Record{
		ID:                 id,
		Date:               dateString(m[fieldDate]),
		Name:               stringOf(m[fieldName]),
		Graduation:         stringOf(m[fieldGraduation]),
		Relationship:       stringOf(m[fieldRelationship]),
		Unit:               stringOf(m[fieldUnit]),
		Phone:              stringOf(m[fieldPhone]),
		NotificationTiming: stringOf(m[fieldNotificationTiming]),
		SendTime:           stringOf(m[fieldSendTime]),
		NotificationCount:  intOf(m[fieldNotificationCount]),
		LastExecutionID:    stringOf(m[fieldLastExecutionID]),
	}
	if t, ok := timeOf(m[fieldLastNotification]); ok {
		rec.LastNotifiedAt = sql.NullTime{Time: t, Valid: true}
	}
	if t, ok := timeOf(m[fieldCreatedAt]); ok {
		rec.CreatedAt = t
	}
	return rec
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

// dateString accepts a birth date stored as a Firestore timestamp too.
func dateString(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format("2006-01-02")
	}
	return stringOf(v)
}

func intOf(v any) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return int(x)
	case string:
		n, _ := strconv.Atoi(x)
		return n
	default:
		return 0
	}
}

func timeOf(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}
