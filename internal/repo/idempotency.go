// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for POST endpoints.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// GetIdempotency returns a non-expired record for (userID, scope, key) or a
// NotFound taxonomy error.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, apperr.NotFound("idempotency record not found")
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND expires_at > ?", userID, scope, key, now).
		First(&rec).Error
	if err != nil {
		return nil, translate(err, "idempotency record", "")
	}
	return &rec, nil
}

// CreateIdempotency inserts a record tying (userID, scope, key) to the
// entity refID a successful request produced. A racing duplicate surfaces
// as a Constraint error.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, refID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    userID,
		Scope:     scope,
		Key:       key,
		RefID:     refID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, translate(err, "idempotency record", "")
	}
	return rec, nil
}
