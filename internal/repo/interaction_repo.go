// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file covers the per-viewer interaction rows: votes,
// favorites, and interests. All three are (idea, user) pairs guarded by
// unique indexes; duplicate inserts surface as Constraint taxonomy errors
// which the service layer treats as benign no-ops.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// CreateVote inserts a vote row for (ideaID, userID). A duplicate vote
// yields a Constraint error and does not double-count.
func CreateVote(ctx context.Context, db *gorm.DB, ideaID, userID string) (*domain.Vote, error) {
	v := &domain.Vote{
		ID:        uuid.NewString(),
		IdeaID:    ideaID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, translate(err, "vote", "")
	}
	return v, nil
}

// DeleteVote removes the vote row for (ideaID, userID). rowsAffected lets
// the caller decide whether the counter needs adjusting.
func DeleteVote(ctx context.Context, db *gorm.DB, ideaID, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("idea_id = ? AND user_id = ?", ideaID, userID).
		Delete(&domain.Vote{})
	return res.RowsAffected, translate(res.Error, "vote", "")
}

// HasVote reports whether userID has a vote row on ideaID.
func HasVote(ctx context.Context, db *gorm.DB, ideaID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("idea_id = ? AND user_id = ?", ideaID, userID).
		Count(&n).Error
	return n > 0, translate(err, "vote", "")
}

// ListVotedIdeaIDs returns the ids of every idea userID has voted on.
func ListVotedIdeaIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("user_id = ?", userID).
		Pluck("idea_id", &ids).Error
	return ids, translate(err, "vote", "")
}

// CreateFavorite inserts a favorite row for (ideaID, userID).
func CreateFavorite(ctx context.Context, db *gorm.DB, ideaID, userID string) (*domain.Favorite, error) {
	f := &domain.Favorite{
		ID:        uuid.NewString(),
		IdeaID:    ideaID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, translate(err, "favorite", "")
	}
	return f, nil
}

// DeleteFavorite removes the favorite row for (ideaID, userID).
func DeleteFavorite(ctx context.Context, db *gorm.DB, ideaID, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("idea_id = ? AND user_id = ?", ideaID, userID).
		Delete(&domain.Favorite{})
	return res.RowsAffected, translate(res.Error, "favorite", "")
}

// ListFavoriteIdeaIDs returns the ids of every idea userID has favorited.
func ListFavoriteIdeaIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Favorite{}).
		Where("user_id = ?", userID).
		Pluck("idea_id", &ids).Error
	return ids, translate(err, "favorite", "")
}

// CreateInterest inserts an interest row for (ideaID, userID). Expressing
// interest twice yields a Constraint error (idempotent join upstream).
func CreateInterest(ctx context.Context, db *gorm.DB, ideaID, userID string) (*domain.Interest, error) {
	in := &domain.Interest{
		ID:        uuid.NewString(),
		IdeaID:    ideaID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(in).Error; err != nil {
		return nil, translate(err, "interest", "")
	}
	return in, nil
}

// ListInterests returns every interest row on ideaID, oldest first.
func ListInterests(ctx context.Context, db *gorm.DB, ideaID string) ([]domain.Interest, error) {
	var out []domain.Interest
	err := db.WithContext(ctx).
		Where("idea_id = ?", ideaID).
		Order("created_at asc").
		Find(&out).Error
	return out, translate(err, "interest", "")
}

// ListInterestedIdeaIDs returns the ids of every idea userID has expressed
// interest in.
func ListInterestedIdeaIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Interest{}).
		Where("user_id = ?", userID).
		Pluck("idea_id", &ids).Error
	return ids, translate(err, "interest", "")
}
