// Package services – ProfileService and NotificationService
//
// Profiles hold the marketplace-facing settings of a user, most importantly
// the payment key and city the payment payload builder needs when someone
// pays for that user's idea. Notifications are the event records produced
// by transactions, comments, and interest joins, consumed by an external
// delivery transport.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
	"github.com/ideapool/go-ideas-backend/internal/domain"
	"github.com/ideapool/go-ideas-backend/internal/repo"
)

// ProfileService manages user profiles.
type ProfileService struct {
	DB *gorm.DB
}

// Get fetches userID's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return repo.GetProfile(ctx, s.DB, userID)
}

// Upsert creates or replaces userID's profile. The payment key is optional;
// an idea owner without one simply cannot receive payments until they
// configure it (surfaced to payers as a configuration error).
func (s *ProfileService) Upsert(ctx context.Context, userID, displayName, paymentKey, city string) (*domain.Profile, error) {
	if userID == "" {
		return nil, apperr.Validation("a signed-in user is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperr.Validation("display name is required")
	}
	return repo.UpsertProfile(ctx, s.DB, &domain.Profile{
		UserID:      userID,
		DisplayName: displayName,
		PaymentKey:  strings.TrimSpace(paymentKey),
		City:        strings.TrimSpace(city),
	})
}

// NotificationService reads and acknowledges a user's notification queue.
type NotificationService struct {
	DB *gorm.DB
}

// List returns userID's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	if userID == "" {
		return nil, apperr.Validation("a signed-in user is required")
	}
	return repo.ListNotifications(ctx, s.DB, userID)
}

// MarkRead stamps a notification owned by userID as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" {
		return apperr.Validation("a signed-in user is required")
	}
	return repo.MarkNotificationRead(ctx, s.DB, notificationID, userID)
}
