// Package services – InteractionService
//
// This file implements the per-viewer interaction mutations: vote toggle,
// favorite toggle, and interest (an idempotent join). The store enforces
// uniqueness per (idea, user), so a duplicate insert surfaces as a
// constraint error which these methods absorb as a benign no-op rather than
// a failure, so rapid repeated clicks can never double-count. Every mutation
// is sequence-tagged per idea and invalidates the idea's cached views plus
// the viewer's interaction sets.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
	"github.com/ideapool/go-ideas-backend/internal/cache"
	"github.com/ideapool/go-ideas-backend/internal/notify"
	"github.com/ideapool/go-ideas-backend/internal/repo"
)

// InteractionService mutates votes, favorites, and interests.
type InteractionService struct {
	DB     *gorm.DB
	Cache  *cache.Store
	Notify notify.Sink
}

// NewInteractionService constructs an InteractionService.
func NewInteractionService(db *gorm.DB, store *cache.Store, sink notify.Sink) *InteractionService {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &InteractionService{DB: db, Cache: store, Notify: sink}
}

// ToggleVote flips userID's vote on ideaID and returns the resulting state
// (true = voted). The server-authoritative counter moves by exactly one per
// real state change; a duplicate insert racing this toggle is absorbed.
func (s *InteractionService) ToggleVote(ctx context.Context, ideaID, userID string) (voted bool, err error) {
	if userID == "" {
		return false, apperr.Validation("a signed-in user is required to vote")
	}
	if _, err := repo.GetIdea(ctx, s.DB, ideaID); err != nil {
		return false, err
	}

	seq := s.Cache.BeginWrite(entityKey(ideaID))

	has, err := repo.HasVote(ctx, s.DB, ideaID, userID)
	if err != nil {
		return false, err
	}
	if has {
		n, err := repo.DeleteVote(ctx, s.DB, ideaID, userID)
		if err != nil {
			return false, err
		}
		if n > 0 {
			if err := repo.AdjustVotesCount(ctx, s.DB, ideaID, -1); err != nil {
				return false, err
			}
		}
		voted = false
	} else {
		if _, err := repo.CreateVote(ctx, s.DB, ideaID, userID); err != nil {
			if apperr.IsKind(err, apperr.KindConstraint) {
				// Lost a race with another insert of the same vote: the row
				// exists, the counter was already moved. No-op.
				return true, nil
			}
			return false, err
		}
		if err := repo.AdjustVotesCount(ctx, s.DB, ideaID, +1); err != nil {
			return false, err
		}
		voted = true
	}

	s.Cache.CommitWrite(entityKey(ideaID), seq, func() {
		invalidateIdea(s.Cache, ideaID)
		invalidateViewer(s.Cache, userID)
	})
	return voted, nil
}

// ToggleFavorite flips userID's favorite on ideaID and returns the
// resulting state (true = favorited).
func (s *InteractionService) ToggleFavorite(ctx context.Context, ideaID, userID string) (favorited bool, err error) {
	if userID == "" {
		return false, apperr.Validation("a signed-in user is required to favorite")
	}
	if _, err := repo.GetIdea(ctx, s.DB, ideaID); err != nil {
		return false, err
	}

	seq := s.Cache.BeginWrite(entityKey(ideaID))

	n, err := repo.DeleteFavorite(ctx, s.DB, ideaID, userID)
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := repo.CreateFavorite(ctx, s.DB, ideaID, userID); err != nil {
			if !apperr.IsKind(err, apperr.KindConstraint) {
				return false, err
			}
		}
		favorited = true
	}

	s.Cache.CommitWrite(entityKey(ideaID), seq, func() {
		invalidateIdea(s.Cache, ideaID)
		invalidateViewer(s.Cache, userID)
	})
	return favorited, nil
}

// ExpressInterest records that userID wants to join ideaID's team. The join
// is idempotent: expressing interest twice reports joined=false without an
// error. The idea owner is notified on a first-time join.
func (s *InteractionService) ExpressInterest(ctx context.Context, ideaID, userID string) (joined bool, err error) {
	if userID == "" {
		return false, apperr.Validation("a signed-in user is required to express interest")
	}
	idea, err := repo.GetIdea(ctx, s.DB, ideaID)
	if err != nil {
		return false, err
	}

	seq := s.Cache.BeginWrite(entityKey(ideaID))

	if _, err := repo.CreateInterest(ctx, s.DB, ideaID, userID); err != nil {
		if apperr.IsKind(err, apperr.KindConstraint) {
			return false, nil // already interested
		}
		return false, err
	}

	if idea.OwnerID != userID {
		s.Notify.Enqueue(ctx, idea.OwnerID, userID, notify.TypeNewInterest, map[string]string{
			"idea_id":    ideaID,
			"idea_title": idea.Title,
		})
	}

	s.Cache.CommitWrite(entityKey(ideaID), seq, func() {
		invalidateIdea(s.Cache, ideaID)
		invalidateViewer(s.Cache, userID)
	})
	return true, nil
}

// Interested lists every interest row on ideaID, oldest first.
func (s *InteractionService) Interested(ctx context.Context, ideaID string) ([]string, error) {
	rows, err := repo.ListInterests(ctx, s.DB, ideaID)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.UserID
	}
	return out, nil
}
