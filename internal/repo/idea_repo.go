// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Idea
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Errors are translated into the
// application taxonomy (see errors.go).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// IdeaFilter narrows idea list queries. Zero values mean "no filter".
type IdeaFilter struct {
	Niche      string
	OwnerID    string
	IsBuilding *bool
}

func (f IdeaFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Niche != "" {
		q = q.Where("niche = ?", f.Niche)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.IsBuilding != nil {
		q = q.Where("is_building = ?", *f.IsBuilding)
	}
	return q
}

// CreateIdea inserts a new Idea owned by idea.OwnerID. The ID is a randomly
// generated UUID and CreatedAt is set to UTC. The passed struct is persisted
// as-is otherwise; validation happens in the service layer.
func CreateIdea(ctx context.Context, db *gorm.DB, idea *domain.Idea) (*domain.Idea, error) {
	idea.ID = uuid.NewString()
	idea.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(idea).Error; err != nil {
		return nil, translate(err, "idea", "")
	}
	return idea, nil
}

// ListIdeas returns ideas matching filter, ordered by creation time
// descending. It returns an empty slice when nothing matches.
func ListIdeas(ctx context.Context, db *gorm.DB, filter IdeaFilter) ([]domain.Idea, error) {
	var out []domain.Idea
	err := filter.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Find(&out).Error
	return out, translate(err, "idea", "")
}

// ListIdeasPage returns a paginated slice of ideas matching filter. Use
// CountIdeas for the total.
func ListIdeasPage(ctx context.Context, db *gorm.DB, filter IdeaFilter, offset, limit int) ([]domain.Idea, error) {
	var out []domain.Idea
	err := filter.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, translate(err, "idea", "")
}

// CountIdeas returns the total number of ideas matching filter.
func CountIdeas(ctx context.Context, db *gorm.DB, filter IdeaFilter) (int64, error) {
	var total int64
	err := filter.apply(db.WithContext(ctx).Model(&domain.Idea{})).
		Count(&total).Error
	return total, translate(err, "idea", "")
}

// GetIdea fetches a single idea by ID, or a NotFound taxonomy error.
func GetIdea(ctx context.Context, db *gorm.DB, id string) (*domain.Idea, error) {
	var idea domain.Idea
	err := db.WithContext(ctx).Where("id = ?", id).First(&idea).Error
	if err != nil {
		return nil, translate(err, "idea", id)
	}
	return &idea, nil
}

// UpdateIdea applies a partial update (non-zero fields of patch plus the
// explicitly listed columns) to the idea row. Returns NotFound when no row
// was touched. Ownership checks belong to the service layer.
func UpdateIdea(ctx context.Context, db *gorm.DB, id string, patch map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Idea{}).
		Where("id = ?", id).
		Updates(patch)
	if res.Error != nil {
		return translate(res.Error, "idea", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "idea", id)
	}
	return nil
}

// DeleteIdea soft-deletes an idea row. Returns NotFound when the idea does
// not exist.
func DeleteIdea(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Idea{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "idea", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "idea", id)
	}
	return nil
}

// AdjustVotesCount atomically increments (delta=+1) or decrements
// (delta=-1) the server-authoritative vote counter. The counter never goes
// below zero.
func AdjustVotesCount(ctx context.Context, db *gorm.DB, id string, delta int) error {
	res := db.WithContext(ctx).
		Model(&domain.Idea{}).
		Where("id = ?", id).
		Update("votes_count", gorm.Expr("MAX(votes_count + ?, 0)", delta))
	if res.Error != nil {
		return translate(res.Error, "idea", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "idea", id)
	}
	return nil
}
