// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries
// used primarily for conditional responses (ETag generation) in the HTTP
// layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// IdeasStats returns aggregate metadata for ideas matching filter: the
// total row count and the greatest UpdatedAt among those rows. When
// nothing matches, count is 0 and maxUpdatedAt is nil.
func IdeasStats(ctx context.Context, db *gorm.DB, filter IdeaFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := filter.apply(db.WithContext(ctx).Model(&domain.Idea{}))

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, translate(err, "idea", "")
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest updated_at via ORDER BY/LIMIT (avoids MAX() -> TEXT in SQLite).
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, translate(err, "idea", "")
	}
	return count, &row.UpdatedAt, nil
}

// ViewerMarksStats returns aggregate metadata for one viewer's interaction
// rows (votes, favorites, interests): the total row count and the greatest
// CreatedAt among them. Toggling a mark changes the count, and re-marking
// creates a fresh row with a later CreatedAt, so the pair changes on every
// interaction mutation even though the ideas table does not.
func ViewerMarksStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxCreatedAt *time.Time, err error) {
	models := []any{&domain.Vote{}, &domain.Favorite{}, &domain.Interest{}}
	for _, m := range models {
		q := db.WithContext(ctx).Model(m).Where("user_id = ?", userID)

		var n int64
		if err = q.Count(&n).Error; err != nil {
			return 0, nil, translate(err, "interaction", "")
		}
		count += n
		if n == 0 {
			continue
		}

		var row struct {
			CreatedAt time.Time
		}
		if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
			return 0, nil, translate(err, "interaction", "")
		}
		if maxCreatedAt == nil || row.CreatedAt.After(*maxCreatedAt) {
			maxCreatedAt = &row.CreatedAt
		}
	}
	return count, maxCreatedAt, nil
}

// ImprovementsStats returns the comment count and greatest UpdatedAt for
// one idea's discussion, for ETag generation on the comments endpoint.
func ImprovementsStats(ctx context.Context, db *gorm.DB, ideaID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Improvement{}).Where("idea_id = ?", ideaID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, translate(err, "improvement", "")
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, translate(err, "improvement", "")
	}
	return count, &row.UpdatedAt, nil
}
