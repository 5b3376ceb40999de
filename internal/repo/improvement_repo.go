// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Improvement (threaded comment) model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// CreateImprovement inserts a comment on an idea. parentID may be nil for a
// root comment. The cross-idea parent invariant is enforced in the service
// layer so the tree builder can also degrade gracefully on legacy rows.
func CreateImprovement(ctx context.Context, db *gorm.DB, ideaID, authorID, content string, parentID *string) (*domain.Improvement, error) {
	imp := &domain.Improvement{
		ID:        uuid.NewString(),
		IdeaID:    ideaID,
		AuthorID:  authorID,
		Content:   content,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(imp).Error; err != nil {
		return nil, translate(err, "improvement", "")
	}
	return imp, nil
}

// ListImprovements returns every comment on ideaID ordered by creation time
// ascending, the flat input expected by discussion.BuildForest.
func ListImprovements(ctx context.Context, db *gorm.DB, ideaID string) ([]domain.Improvement, error) {
	var out []domain.Improvement
	err := db.WithContext(ctx).
		Where("idea_id = ?", ideaID).
		Order("created_at asc").
		Find(&out).Error
	return out, translate(err, "improvement", "")
}

// GetImprovement fetches a single comment by ID.
func GetImprovement(ctx context.Context, db *gorm.DB, id string) (*domain.Improvement, error) {
	var imp domain.Improvement
	err := db.WithContext(ctx).Where("id = ?", id).First(&imp).Error
	if err != nil {
		return nil, translate(err, "improvement", id)
	}
	return &imp, nil
}

// DeleteImprovement soft-deletes a comment and its entire reply subtree.
// Replies never re-surface under a different parent. The walk runs in a
// transaction so a concurrent reply cannot survive a half-finished cascade.
func DeleteImprovement(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Improvement{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, "improvement", id)
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "improvement", id)
		}
		// Breadth-first over parent links. The default scope hides rows
		// already deleted, so each pass only sees live replies.
		frontier := []string{id}
		for len(frontier) > 0 {
			var replies []string
			if err := tx.Model(&domain.Improvement{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &replies).Error; err != nil {
				return translate(err, "improvement", id)
			}
			if len(replies) == 0 {
				return nil
			}
			if err := tx.Delete(&domain.Improvement{}, "id IN ?", replies).Error; err != nil {
				return translate(err, "improvement", id)
			}
			frontier = replies
		}
		return nil
	})
}
