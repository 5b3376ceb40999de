// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model, the outbox consumed by external delivery transports.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// CreateNotification inserts a notification record addressed to
// recipientID. Payload is an opaque JSON document describing the event.
func CreateNotification(ctx context.Context, db *gorm.DB, recipientID, senderID, nType, payload string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        nType,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, translate(err, "notification", "")
	}
	return n, nil
}

// ListNotifications returns recipientID's notifications, newest first.
func ListNotifications(ctx context.Context, db *gorm.DB, recipientID string) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at desc").
		Find(&out).Error
	return out, translate(err, "notification", "")
}

// MarkNotificationRead stamps ReadAt on a notification owned by
// recipientID. Returns NotFound when the row does not exist or belongs to
// someone else.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id, recipientID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read_at", time.Now().UTC())
	if res.Error != nil {
		return translate(res.Error, "notification", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "notification", id)
	}
	return nil
}
