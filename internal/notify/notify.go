// Package notify is the notification sink boundary. Services enqueue event
// records addressed to a user (new donation, new purchase, new comment) and
// the core treats the enqueue as fire-and-forget: a failed enqueue is logged
// and dropped, never rolled back into the operation that triggered it.
// Delivery transport (push, email) is external and consumes the records
// from the notifications table.
package notify

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/repo"
)

// Notification event types.
const (
	TypeNewDonation = "new_donation"
	TypeNewPurchase = "new_purchase"
	TypeNewComment  = "new_comment"
	TypeNewInterest = "new_interest"
)

// Sink accepts notification events. Enqueue never returns an error: sinks
// absorb their own failures so callers cannot couple business outcomes to
// delivery.
type Sink interface {
	Enqueue(ctx context.Context, recipientID, senderID, eventType string, payload any)
}

// DBSink writes notification records through the repository.
type DBSink struct {
	DB *gorm.DB
}

// NewDBSink constructs a sink persisting to db.
func NewDBSink(db *gorm.DB) *DBSink { return &DBSink{DB: db} }

// Enqueue serializes payload to JSON and inserts the record. Failures are
// logged at warn level and swallowed.
func (s *DBSink) Enqueue(ctx context.Context, recipientID, senderID, eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("notification payload not serializable")
		return
	}
	if _, err := repo.CreateNotification(ctx, s.DB, recipientID, senderID, eventType, string(body)); err != nil {
		log.Warn().Err(err).
			Str("type", eventType).
			Str("recipient", recipientID).
			Msg("notification enqueue failed")
	}
}

// Discard is a Sink that drops everything. Useful in tests and tools that
// do not care about notifications.
type Discard struct{}

// Enqueue does nothing.
func (Discard) Enqueue(context.Context, string, string, string, any) {}
