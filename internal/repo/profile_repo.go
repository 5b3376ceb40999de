// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Profile
// model, which holds the payment settings (key, city, display name) that
// the payment payload builder needs for an idea's owner.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// GetProfile fetches the profile row for userID.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, translate(err, "profile", userID)
	}
	return &p, nil
}

// UpsertProfile creates or replaces the profile row for p.UserID.
func UpsertProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) (*domain.Profile, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "payment_key", "city", "updated_at"}),
		}).
		Create(p).Error
	if err != nil {
		return nil, translate(err, "profile", p.UserID)
	}
	return p, nil
}
